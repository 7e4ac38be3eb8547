package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"spendsage-server/src/access"
	"spendsage-server/src/auth"
	"spendsage-server/src/services"
	"spendsage-server/src/util"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type detail map[string]string

// principal returns the caller resolved by the auth middleware. Handlers
// mounted outside it answer 401.
func principal(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	p, ok := access.FromContext(r.Context())
	if !ok {
		util.WriteError(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
	}
	return p, ok
}

// pathID parses the {id} URL parameter. Ids that cannot name a row get the
// same 404 as a missing row.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		util.WriteError(w, http.StatusNotFound, notFound, nil)
		return 0, false
	}
	return id, true
}

// readPayload decodes a JSON object body. An empty body is an empty object.
func readPayload(w http.ResponseWriter, r *http.Request, failMsg string) (services.Payload, bool) {
	p := services.Payload{}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p)
	if err == nil || errors.Is(err, io.EOF) {
		return p, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		util.WriteError(w, http.StatusRequestEntityTooLarge, failMsg, detail{"detail": "Request body too large."})
		return nil, false
	}
	util.WriteError(w, http.StatusBadRequest, failMsg, detail{"detail": "JSON parse error - " + err.Error()})
	return nil, false
}

// writeFailure maps a service error onto the envelope. Unexpected errors are
// logged and reported without detail.
func writeFailure(w http.ResponseWriter, log *zap.Logger, err error, failMsg, notFound string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		util.WriteError(w, http.StatusBadRequest, failMsg, verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		util.WriteError(w, http.StatusNotFound, notFound, nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, failMsg, detail{"detail": "No active account found with the given credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		util.WriteError(w, http.StatusUnauthorized, failMsg, detail{"detail": "Token is invalid or expired"})
	case errors.Is(err, services.ErrPlaidUnavailable):
		util.WriteError(w, http.StatusServiceUnavailable, "Plaid is not configured", nil)
	default:
		log.Error(failMsg, zap.Error(err))
		util.WriteError(w, http.StatusInternalServerError, failMsg, nil)
	}
}
