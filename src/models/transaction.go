package models

import "time"

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"-"`
	CategoryID      *int64          `json:"category"`
	CategoryName    *string         `json:"category_name"`
	Amount          Money           `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	RawDescription  string          `json:"raw_description"`
	IsAnomaly       bool            `json:"is_anomaly"`
	ExternalID      *string         `json:"-"` // Plaid transaction id for imported rows
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
