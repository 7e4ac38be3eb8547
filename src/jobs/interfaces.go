package jobs

import (
	"context"
	"spendsage-server/src/plaid"
)

//go:generate mockgen -destination=mocks/mock_jobs.go -source=interfaces.go

// TransactionSyncer pages through an item's transaction changes.
type TransactionSyncer interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncPage, error)
}
