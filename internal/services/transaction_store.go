package services

import (
	"checkout-system/models"
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// TransactionStore is the persistence collaborator. Its whole contract with
// the callback flow is "mark transaction T for user U as settled", applied
// at most once.
type TransactionStore interface {
	MarkSettled(ctx context.Context, userID, txnID string) error
}

// RecordStore persists transactions as records in the transactions
// collection.
type RecordStore struct {
	app core.App
}

func NewRecordStore(app core.App) *RecordStore {
	return &RecordStore{app: app}
}

// MarkSettled flips a pending transaction to settled. Repeated calls for the
// same transaction are no-ops once the record is settled.
func (s *RecordStore) MarkSettled(ctx context.Context, userID, txnID string) error {
	records, err := s.app.FindRecordsByFilter(
		"transactions",
		"txn_id = {:txnId} && user_id = {:userId}",
		"",
		1,
		0,
		dbx.Params{"txnId": txnID, "userId": userID},
	)
	if err != nil {
		return fmt.Errorf("MarkSettled: find transaction: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("MarkSettled: transaction %s not found for user %s", txnID, userID)
	}

	record := records[0]
	if record.GetString("status") == models.TransactionStatusSettled {
		return nil
	}

	record.Set("status", models.TransactionStatusSettled)
	record.Set("settled_at", types.NowDateTime())

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("MarkSettled: save transaction: %w", err)
	}

	return nil
}
