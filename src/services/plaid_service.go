package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

var ErrWebhookRejected = errors.New("webhook rejected")

type PlaidService struct {
	store    store.Store
	gateway  PlaidGateway
	verifier WebhookVerifier
	tasks    *TaskService
	log      *zap.Logger
}

// NewPlaidService returns a service whose operations fail with
// ErrPlaidUnavailable when gateway is nil.
func NewPlaidService(s store.Store, gateway PlaidGateway, verifier WebhookVerifier, tasks *TaskService, log *zap.Logger) *PlaidService {
	return &PlaidService{store: s, gateway: gateway, verifier: verifier, tasks: tasks, log: log.Named("plaid")}
}

func (s *PlaidService) Enabled() bool {
	return s.gateway != nil
}

func (s *PlaidService) LinkToken(ctx context.Context, p access.Principal) (string, error) {
	if !s.Enabled() {
		return "", ErrPlaidUnavailable
	}
	return s.gateway.CreateLinkToken(ctx, p.UserID)
}

func (s *PlaidService) Exchange(ctx context.Context, p access.Principal, publicToken string) (*models.PlaidItem, error) {
	if !s.Enabled() {
		return nil, ErrPlaidUnavailable
	}
	if publicToken == "" {
		return nil, fieldError("public_token", msgRequired)
	}
	linked, err := s.gateway.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	var out *models.PlaidItem
	err = s.store.Update(ctx, func(r store.Repository) error {
		var err error
		out, err = r.SavePlaidItem(ctx, access.Scope(p), &models.PlaidItem{
			ItemID:          linked.ItemID,
			AccessToken:     linked.AccessToken,
			InstitutionName: linked.InstitutionName,
		})
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fieldError("public_token", "This item is linked to another account.")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("linked plaid item", zap.Int64("user_id", p.UserID), zap.Int64("plaid_item_id", out.ID))
	return out, nil
}

func (s *PlaidService) Items(ctx context.Context, p access.Principal) ([]models.PlaidItem, error) {
	var out []models.PlaidItem
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListPlaidItems(ctx, access.Scope(p))
		return err
	})
	return out, err
}

type webhookEvent struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

// HandleWebhook verifies a Plaid webhook and, for transaction updates,
// enqueues a sync for the item's owner. Other events return a nil task.
func (s *PlaidService) HandleWebhook(ctx context.Context, body []byte, verification string) (*models.BackgroundTask, error) {
	if !s.Enabled() || s.verifier == nil {
		return nil, ErrPlaidUnavailable
	}
	if err := s.verifier.Verify(ctx, body, verification); err != nil {
		s.log.Warn("rejected plaid webhook", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}
	if event.WebhookType != "TRANSACTIONS" || event.WebhookCode != "SYNC_UPDATES_AVAILABLE" {
		s.log.Debug("ignoring plaid webhook", zap.String("type", event.WebhookType), zap.String("code", event.WebhookCode))
		return nil, nil
	}

	var item *models.PlaidItem
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		item, err = r.GetPlaidItemByItemID(ctx, event.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.tasks.Enqueue(ctx, access.Principal{UserID: item.UserID}, models.TaskTypePlaidSync)
}
