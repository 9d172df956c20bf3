package gateway

import (
	"checkout-system/internal/status"
	"context"
)

// Provider represents different payment gateway types
type Provider string

const (
	ProviderPhonePe Provider = "phonepe"
)

// PaymentGateway defines the common interface for all payment gateway providers
type PaymentGateway interface {
	// GetProvider returns the gateway provider type
	GetProvider() Provider

	// CheckStatus queries the gateway for the state of a transaction
	CheckStatus(ctx context.Context, txnID string) (*status.Result, error)

	// SetTransactionChannel sets the channel for receiving settlement notifications
	SetTransactionChannel(ch chan *status.Transaction)

	// Close gracefully closes any connections
	Close(ctx context.Context) error
}

// Factory creates gateway instances based on provider type
type Factory interface {
	CreateGateway(ctx context.Context, provider Provider, config interface{}) (PaymentGateway, error)
	GetSupportedProviders() []Provider
}
