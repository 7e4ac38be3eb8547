package handlers

import (
	"net/http"
	"spendsage-server/src/models"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

func Register(users *services.UserService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "User registration failed"
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindRegister(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		user, err := users.Register(r.Context(), in)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "User registration successful", models.RegisterResponse{
			ID:                 user.ID,
			Email:              user.Email,
			Username:           user.Username,
			Name:               user.Name,
			CurrencyPreference: user.CurrencyPreference,
		})
	}
}

func Login(users *services.UserService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Login failed"
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindLogin(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}

		resp, err := users.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Login successful", resp)
	}
}

func Refresh(users *services.UserService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Token refresh failed"
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		token, err := services.BindRefresh(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		accessToken, err := users.Refresh(r.Context(), token)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", models.RefreshResponse{Access: accessToken})
	}
}
