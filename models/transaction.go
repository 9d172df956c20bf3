package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persisted record of one payment attempt. It is created
// when checkout starts (outside the callback flow) and read-only here except
// for the settled mark.
type Transaction struct {
	ID        string          `json:"id"`
	TxnID     string          `json:"txn_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"` // pending, settled, failed
	Provider  string          `json:"provider"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

const (
	TransactionStatusPending = "pending"
	TransactionStatusSettled = "settled"
	TransactionStatusFailed  = "failed"
)

// PaymentNotification is the message published to the notification channel
// after a callback resolves. Best effort, never blocks the redirect.
type PaymentNotification struct {
	TxnID       string    `json:"transaction_id"`
	UserID      string    `json:"user_id"`
	Outcome     string    `json:"outcome"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
