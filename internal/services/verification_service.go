package services

import (
	"checkout-system/internal/services/gateway"
	"checkout-system/internal/status"
	"checkout-system/models"
	"checkout-system/monitoring"
	"checkout-system/utils"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// callbackAuditTTL bounds how long per-transaction audit entries stay in
// redis. Diagnostics only; outcomes are never read back from here.
const callbackAuditTTL = 24 * time.Hour

// persistTimeout bounds the fire-and-forget settled write so a slow
// database can never pile up goroutines.
const persistTimeout = 15 * time.Second

// VerificationService runs the callback pipeline: verified status query
// against the upstream gateway, outcome interpretation, and the best-effort
// side effects (persistence, audit trail, notification). It holds no state
// across callbacks; every inbound request starts a fresh run.
type VerificationService struct {
	Redis *redis.Client

	gw       gateway.PaymentGateway
	store    TransactionStore
	notifier Notifier
	breaker  *utils.CircuitBreaker
}

// NewVerificationService wires the pipeline. A nil gateway means merchant
// configuration was absent at startup; the service then fails closed on
// every callback without attempting an upstream call.
func NewVerificationService(redisClient *redis.Client, gw gateway.PaymentGateway, store TransactionStore, notifier Notifier) *VerificationService {
	return &VerificationService{
		Redis:    redisClient,
		gw:       gw,
		store:    store,
		notifier: notifier,
		breaker:  utils.NewCircuitBreaker("gateway-status", utils.BreakerSettings{}),
	}
}

// Verify resolves one inbound callback into a tri-state outcome. It always
// re-queries the upstream gateway; a reloaded redirect gets a fresh answer,
// never a cached one.
func (s *VerificationService) Verify(ctx context.Context, userID, txnID string) (*status.Result, error) {
	result, err := s.resolve(ctx, txnID)

	monitoring.TrackCallback(result.Outcome.String())
	s.recordCallback(ctx, userID, txnID, result.Outcome)

	if s.notifier != nil {
		s.notifier.NotifyOutcome(models.PaymentNotification{
			TxnID:       txnID,
			UserID:      userID,
			Outcome:     result.Outcome.String(),
			ProviderRef: providerRef(result),
			Timestamp:   time.Now(),
		})
	}

	if result.Outcome == status.OutcomeSettled && s.store != nil {
		// Decoupled from the redirect on purpose: the browser is not held
		// hostage by the database. The store applies the write at most once.
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()

			if err := s.store.MarkSettled(pctx, userID, txnID); err != nil {
				slog.Error("store.MarkSettled()", "txn_id", txnID, "user_id", userID, "error", err)
			}
		}()
	}

	return result, err
}

// resolve performs the verified upstream query, through the circuit breaker.
func (s *VerificationService) resolve(ctx context.Context, txnID string) (*status.Result, error) {
	if s.gw == nil {
		monitoring.TrackUpstreamError("missing_config")
		return &status.Result{Outcome: status.OutcomeIndeterminate}, status.ErrMissingConfig
	}

	start := time.Now()
	raw, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.gw.CheckStatus(ctx, txnID)
	})
	monitoring.TrackUpstreamQuery(time.Since(start))
	monitoring.SetBreakerState(int(s.breaker.State()))

	if errors.Is(err, utils.ErrBreakerOpen) {
		monitoring.TrackUpstreamError("breaker_open")
		return &status.Result{Outcome: status.OutcomeIndeterminate},
			status.ErrUpstreamUnavailable
	}

	result, ok := raw.(*status.Result)
	if !ok || result == nil {
		result = &status.Result{Outcome: status.OutcomeIndeterminate}
	}

	if err != nil {
		monitoring.TrackUpstreamError(errorKind(err))
	}

	return result, err
}

// recordCallback keeps a small per-transaction audit trail in redis.
// Failures here are logged and swallowed; auditing never blocks the flow.
func (s *VerificationService) recordCallback(ctx context.Context, userID, txnID string, outcome status.Outcome) {
	if s.Redis == nil {
		return
	}

	key := "callback:" + txnID

	if err := s.Redis.HSet(ctx, key, "user_id", userID, "outcome", outcome.String()).Err(); err != nil {
		slog.Error("recordCallback: HSet", "txn_id", txnID, "error", err)
		return
	}
	if err := s.Redis.HIncrBy(ctx, key, "attempts", 1).Err(); err != nil {
		slog.Error("recordCallback: HIncrBy", "txn_id", txnID, "error", err)
	}
	if err := s.Redis.Expire(ctx, key, callbackAuditTTL).Err(); err != nil {
		slog.Error("recordCallback: Expire", "txn_id", txnID, "error", err)
	}
}

func providerRef(result *status.Result) string {
	if result == nil || result.Transaction == nil {
		return ""
	}
	return result.Transaction.ProviderRef
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, status.ErrMissingConfig):
		return "missing_config"
	case errors.Is(err, status.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, status.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "other"
	}
}
