// Package plaid wraps the Plaid API calls used for bank linking and
// transaction import.
package plaid

import (
	"context"
	"fmt"
	"strconv"

	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/shopspring/decimal"
)

const clientName = "SpendSage"

type Client struct {
	api *plaid.APIClient
}

func NewClient(clientID, secret, env string) (*Client, error) {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)

	switch env {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		return nil, fmt.Errorf("invalid Plaid environment: %s", env)
	}

	return &Client{api: plaid.NewAPIClient(configuration)}, nil
}

func (c *Client) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: strconv.FormatInt(userID, 10),
	}
	request := plaid.NewLinkTokenCreateRequest(
		clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
	)
	request.SetUser(user)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", fmt.Errorf("create link token: %w", err)
	}
	return resp.GetLinkToken(), nil
}

// LinkedItem is the result of exchanging a Link public token.
type LinkedItem struct {
	ItemID          string
	AccessToken     string
	InstitutionName string
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*LinkedItem, error) {
	exchangeReq := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	exchangeResp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*exchangeReq).Execute()
	if err != nil {
		return nil, fmt.Errorf("exchange public token: %w", err)
	}

	item := &LinkedItem{
		ItemID:      exchangeResp.GetItemId(),
		AccessToken: exchangeResp.GetAccessToken(),
	}

	// Institution details are optional; the link succeeds without them.
	itemReq := plaid.NewItemGetRequest(item.AccessToken)
	itemResp, _, err := c.api.PlaidApi.ItemGet(ctx).ItemGetRequest(*itemReq).Execute()
	if err == nil {
		if name, ok := itemResp.GetItem().AdditionalProperties["institution_name"].(string); ok {
			item.InstitutionName = name
		}
	}
	return item, nil
}

// Transaction is an added transaction from a sync page. Plaid reports
// outflows as positive amounts and inflows as negative ones.
type Transaction struct {
	ID     string
	Name   string
	Amount decimal.Decimal
	Date   string
}

type SyncPage struct {
	Added      []Transaction
	NextCursor string
	HasMore    bool
}

// SyncTransactions fetches one page of changes after cursor. An empty cursor
// starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error) {
	request := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != "" {
		request.SetCursor(cursor)
	}

	resp, _, err := c.api.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
	if err != nil {
		return nil, fmt.Errorf("sync transactions: %w", err)
	}

	page := &SyncPage{
		NextCursor: resp.GetNextCursor(),
		HasMore:    resp.GetHasMore(),
	}
	for _, tx := range resp.GetAdded() {
		page.Added = append(page.Added, Transaction{
			ID:     tx.GetTransactionId(),
			Name:   tx.GetName(),
			Amount: decimal.NewFromFloat(tx.GetAmount()).Round(2),
			Date:   tx.GetDate(),
		})
	}
	return page, nil
}

func (c *Client) WebhookKey(ctx context.Context, kid string) (*plaid.JWKPublicKey, error) {
	req := *plaid.NewWebhookVerificationKeyGetRequest(kid)
	resp, _, err := c.api.PlaidApi.WebhookVerificationKeyGet(ctx).
		WebhookVerificationKeyGetRequest(req).
		Execute()
	if err != nil {
		return nil, err
	}
	key := resp.GetKey()
	return &key, nil
}
