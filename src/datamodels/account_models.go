package datamodels

import "github.com/shopspring/decimal"

type AccountChange struct {
	Type     ChangeType    `json:"type"`
	ID       string        `json:"id"`
	Name     Field[string] `json:"name"`
	FeedCode Field[string] `json:"trading_feed"`
	Currency Field[string] `json:"currency"`
}

type BalanceChange struct {
	Type      ChangeType             `json:"type"`
	AccountID string                 `json:"account_id"`
	Currency  string                 `json:"currency"`
	Amount    Field[decimal.Decimal] `json:"amount"`
	Available Field[decimal.Decimal] `json:"available"`
}
