package status

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingConfig means required gateway configuration (merchant id,
	// salt key) is absent. The flow fails closed: no upstream call is made.
	ErrMissingConfig = errors.New("gateway: missing merchant configuration")

	// ErrUpstreamUnavailable covers timeouts and transport failures on the
	// status query.
	ErrUpstreamUnavailable = errors.New("gateway: upstream unavailable")

	// ErrUpstreamRejected means the gateway answered with an explicit
	// non-success status. Expected traffic, not an operational fault.
	ErrUpstreamRejected = errors.New("gateway: payment rejected")

	// ErrMalformedResponse means the upstream body could not be interpreted.
	ErrMalformedResponse = errors.New("gateway: malformed upstream response")

	// ErrSigningKey means the session signing key is unavailable. No cookie
	// may ever be issued unsigned.
	ErrSigningKey = errors.New("session: signing key unavailable")
)

// Outcome is the interpretation of one upstream status query.
// The asymmetry matters: a credential is issued on OutcomeSettled and on
// nothing else, so the zero value is deliberately OutcomeIndeterminate.
type Outcome int

const (
	OutcomeIndeterminate Outcome = iota
	OutcomeSettled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeFailed:
		return "failed"
	default:
		return "indeterminate"
	}
}

// Transaction is the upstream gateway's view of one payment attempt. It
// lives only for the duration of a single callback.
type Transaction struct {
	TxnID        string          `json:"transactionId"`
	ProviderRef  string          `json:"providerReferenceId"`
	Amount       decimal.Decimal `json:"amount"`
	State        string          `json:"state"`
	ResponseCode string          `json:"responseCode"`
}

// Result carries the resolved outcome plus raw upstream diagnostics.
type Result struct {
	Outcome     Outcome
	Transaction *Transaction

	// HTTPStatus and RawCode are kept for logs only, never surfaced to
	// the browser.
	HTTPStatus int
	RawCode    string
}
