package handlers

import (
	"errors"
	"io"
	"net/http"
	"spendsage-server/src/models"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

func CreateLinkToken(plaid *services.PlaidService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		token, err := plaid.LinkToken(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to create link token", "")
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "Link token created successfully", map[string]string{"link_token": token})
	}
}

func ExchangePublicToken(plaid *services.PlaidService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to link bank account"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		publicToken, err := services.BindPublicToken(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		item, err := plaid.Exchange(r.Context(), p, publicToken)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "Bank account linked successfully", item)
	}
}

func ListPlaidItems(plaid *services.PlaidService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		items, err := plaid.Items(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve linked items", "")
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Linked items retrieved successfully", items)
	}
}

// PlaidWebhook accepts Plaid's signed notifications. It is mounted without
// user authentication; the Plaid-Verification header authenticates it.
func PlaidWebhook(plaid *services.PlaidService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Webhook rejected"
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, failMsg, detail{"detail": "Could not read request body."})
			return
		}
		task, err := plaid.HandleWebhook(r.Context(), body, r.Header.Get("Plaid-Verification"))
		switch {
		case errors.Is(err, services.ErrWebhookRejected):
			util.WriteError(w, http.StatusUnauthorized, failMsg, nil)
			return
		case errors.Is(err, services.ErrDispatch):
			util.WriteError(w, http.StatusServiceUnavailable, failMsg, detail{"detail": "The sync could not be queued."})
			return
		case errors.Is(err, services.ErrNotFound):
			// Unknown items are acknowledged so Plaid stops retrying.
			log.Warn("webhook for unknown plaid item")
			util.WriteSuccess(w, http.StatusOK, "Webhook received", nil)
			return
		case err != nil:
			writeFailure(w, log, err, failMsg, "")
			return
		}
		if task == nil {
			util.WriteSuccess(w, http.StatusOK, "Webhook received", nil)
			return
		}
		util.WriteSuccess(w, http.StatusAccepted, "Transaction sync started", task)
	}
}

// SyncPlaidItems queues a plaid_sync task when Plaid is configured.
func SyncPlaidItems(plaid *services.PlaidService, tasks *services.TaskService, log *zap.Logger) http.HandlerFunc {
	enqueue := EnqueueTask(tasks, models.TaskTypePlaidSync, "Transaction sync started", log)
	return func(w http.ResponseWriter, r *http.Request) {
		if !plaid.Enabled() {
			writeFailure(w, log, services.ErrPlaidUnavailable, "Failed to start transaction sync", "")
			return
		}
		enqueue(w, r)
	}
}
