package handlers

import (
	"net/http"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

func GetProfile(users *services.UserService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		user, err := users.Profile(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve user details", "User not found")
			return
		}
		util.WriteSuccess(w, http.StatusOK, "User details retrieved successfully", user)
	}
}

func UpdateProfile(users *services.UserService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Error updating profile"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindProfile(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		user, err := users.UpdateProfile(r.Context(), p, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, "User not found")
			return
		}
		log.Info("updated profile", zap.Int64("user_id", p.UserID))
		util.WriteSuccess(w, http.StatusOK, "User profile updated successfully", user)
	}
}
