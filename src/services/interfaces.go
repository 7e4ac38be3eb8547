package services

import (
	"context"
	"spendsage-server/src/models"
	"spendsage-server/src/plaid"
	"spendsage-server/src/queue"
)

//go:generate mockgen -destination=mocks/mock_services.go -source=interfaces.go

// TaskPublisher hands a recorded task to the worker.
type TaskPublisher interface {
	PublishTask(ctx context.Context, msg queue.TaskMessage) error
}

// PlaidGateway is the subset of the Plaid client used for linking.
type PlaidGateway interface {
	CreateLinkToken(ctx context.Context, userID int64) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.LinkedItem, error)
}

type WebhookVerifier interface {
	Verify(ctx context.Context, body []byte, token string) error
}

// UserCache is the read-through cache consulted when resolving principals.
type UserCache interface {
	Get(id int64) (*models.User, bool)
	Set(u *models.User)
	Del(id int64)
}
