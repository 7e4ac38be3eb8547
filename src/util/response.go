package util

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type successEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}

// WriteSuccess writes {status: true, message, data}. A nil data renders as {}.
func WriteSuccess(w http.ResponseWriter, code int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, code, successEnvelope{Status: true, Message: message, Data: data})
}

// WriteError writes {status: false, message, error}. A nil detail renders as {}.
func WriteError(w http.ResponseWriter, code int, message string, detail any) {
	if detail == nil {
		detail = struct{}{}
	}
	writeJSON(w, code, errorEnvelope{Status: false, Message: message, Error: detail})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}
