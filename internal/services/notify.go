package services

import (
	"checkout-system/models"
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// Notifier is the outbound notification surface. Delivery is best effort;
// the callback flow never waits on it.
type Notifier interface {
	NotifyOutcome(n models.PaymentNotification)
}

// PubNubNotifier publishes payment outcomes to a PubNub channel.
type PubNubNotifier struct {
	pn      *pubnub.PubNub
	channel string
}

func NewPubNubNotifier(pn *pubnub.PubNub, channel string) *PubNubNotifier {
	return &PubNubNotifier{
		pn:      pn,
		channel: channel,
	}
}

// NotifyOutcome publishes asynchronously and discards the result beyond a
// log line. A lost notification is acceptable, a delayed redirect is not.
func (p *PubNubNotifier) NotifyOutcome(n models.PaymentNotification) {
	if p == nil || p.pn == nil {
		return
	}

	go func() {
		_, _, err := p.pn.Publish().
			Channel(p.channel).
			Message(map[string]any{
				"transaction_id": n.TxnID,
				"user_id":        n.UserID,
				"outcome":        n.Outcome,
				"provider_ref":   n.ProviderRef,
				"timestamp":      n.Timestamp.Unix(),
			}).
			Execute()
		if err != nil {
			slog.Error("notifier.NotifyOutcome()", "txn_id", n.TxnID, "error", err)
		}
	}()
}
