package gateway

import (
	"checkout-system/internal/services/gateway/phonepe"
	"checkout-system/internal/status"
	"context"
	"fmt"
)

// PhonePeAdapter wraps the PhonePe implementation to conform to PaymentGateway
type PhonePeAdapter struct {
	client *phonepe.PhonePe
}

// NewPhonePeAdapter creates a new PhonePe adapter
func NewPhonePeAdapter(ctx context.Context, config *phonepe.Config) (*PhonePeAdapter, error) {
	client, err := phonepe.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PhonePe client: %w", err)
	}

	return &PhonePeAdapter{
		client: client,
	}, nil
}

// GetProvider returns the gateway provider type
func (p *PhonePeAdapter) GetProvider() Provider {
	return ProviderPhonePe
}

// CheckStatus queries PhonePe for the state of a transaction
func (p *PhonePeAdapter) CheckStatus(ctx context.Context, txnID string) (*status.Result, error) {
	return p.client.CheckStatus(ctx, txnID)
}

// SetTransactionChannel sets the channel for receiving settlement notifications
func (p *PhonePeAdapter) SetTransactionChannel(ch chan *status.Transaction) {
	p.client.SetTranChannel(ch)
}

// Close gracefully closes any connections
func (p *PhonePeAdapter) Close(ctx context.Context) error {
	return p.client.Close(ctx)
}
