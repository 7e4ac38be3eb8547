package models

import "time"

type BudgetStatus string

const (
	BudgetOnTrack BudgetStatus = "ON_TRACK"
	BudgetAtRisk  BudgetStatus = "AT_RISK"
	BudgetOver    BudgetStatus = "OVER"
)

type Budget struct {
	ID                 int64        `json:"id"`
	UserID             int64        `json:"-"`
	CategoryID         int64        `json:"category"`
	PeriodStartDate    Date         `json:"period_start_date"`
	PeriodEndDate      Date         `json:"period_end_date"`
	LimitAmount        Money        `json:"limit_amount"`
	MLPredictionAmount *Money       `json:"ml_prediction_amount"`
	Status             BudgetStatus `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
