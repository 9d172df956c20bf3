package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"checkout-system/internal/services"
	"checkout-system/internal/services/gateway/phonepe"
	"checkout-system/internal/status"
	"checkout-system/models"
	"checkout-system/monitoring"
	"checkout-system/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CallbackHandler struct {
	app       *pocketbase.PocketBase
	verifier  *services.VerificationService
	sessions  *services.SessionService
	redirects *services.Redirects
	notifier  services.Notifier

	// callbackKey, when set, requires inbound callbacks to carry an hmac
	// query parameter over the transaction id.
	callbackKey string

	// simulateSecretHash guards the dev-only simulation endpoint.
	simulateSecretHash string
}

func NewCallbackHandler(app *pocketbase.PocketBase, verifier *services.VerificationService, sessions *services.SessionService, redirects *services.Redirects, notifier services.Notifier, callbackKey, simulateSecretHash string) *CallbackHandler {
	return &CallbackHandler{
		app:                app,
		verifier:           verifier,
		sessions:           sessions,
		redirects:          redirects,
		notifier:           notifier,
		callbackKey:        callbackKey,
		simulateSecretHash: simulateSecretHash,
	}
}

// PaymentCallback handles the gateway redirect after a payment attempt.
// Whatever happens past input validation, the answer is a redirect; upstream
// detail never reaches the browser.
func (h *CallbackHandler) PaymentCallback(e *core.RequestEvent) error {
	userID := e.Request.PathValue("userId")
	if userID == "" {
		return apis.NewBadRequestError("Missing user identifier", nil)
	}

	txnID := e.Request.URL.Query().Get("transactionId")
	if txnID == "" {
		return apis.NewBadRequestError("Missing transaction identifier", nil)
	}

	if h.callbackKey != "" {
		received := e.Request.URL.Query().Get("hmac")
		if _, ok := phonepe.VerifyHMACAndRetrieveTxnID(h.callbackKey, txnID, received); !ok {
			slog.Warn("callback hmac mismatch", "txn_id", txnID)
			return apis.NewBadRequestError("Invalid callback signature", nil)
		}
	}

	ctx := e.Request.Context()

	result, err := h.verifier.Verify(ctx, userID, txnID)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrMissingConfig):
			slog.Error("verifier.Verify()", "txn_id", txnID, "error", err)
		case errors.Is(err, status.ErrMalformedResponse):
			slog.Warn("verifier.Verify()", "txn_id", txnID, "http_status", result.HTTPStatus, "error", err)
		default:
			slog.Warn("verifier.Verify()", "txn_id", txnID, "error", err)
		}
	}

	if result.Outcome != status.OutcomeSettled {
		if result.Outcome == status.OutcomeFailed {
			slog.Info("payment rejected by gateway", "txn_id", txnID, "code", result.RawCode)
		}
		return e.Redirect(http.StatusFound, h.redirects.Failure())
	}

	cred, err := h.sessions.Issue(userID, txnID)
	if err != nil {
		// never fall through to an unsigned or half-built cookie
		slog.Error("sessions.Issue()", "txn_id", txnID, "error", err)
		return e.Redirect(http.StatusFound, h.redirects.Failure())
	}

	monitoring.TrackCredentialIssued()

	e.SetCookie(h.sessions.Cookie(cred))
	return e.Redirect(http.StatusFound, h.redirects.Success(userID))
}

// GetCallbackAudit - inspect the redis audit trail for a transaction
func (h *CallbackHandler) GetCallbackAudit(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	if h.verifier.Redis == nil {
		return apis.NewApiError(http.StatusServiceUnavailable, "Audit trail unavailable", nil)
	}

	txnID := e.Request.PathValue("txnId")
	ctx := e.Request.Context()

	auditKey := fmt.Sprintf("callback:%s", txnID)
	auditData := h.verifier.Redis.HGetAll(ctx, auditKey).Val()

	if len(auditData) == 0 {
		return apis.NewNotFoundError("No callbacks recorded for this transaction", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"transaction_id": txnID,
		"user_id":        auditData["user_id"],
		"outcome":        auditData["outcome"],
		"attempts":       auditData["attempts"],
	})
}

// SimulatePayment - publish a fake settlement notification (for testing)
func (h *CallbackHandler) SimulatePayment(e *core.RequestEvent) error {
	var req struct {
		TransactionID string `json:"transaction_id"`
		UserID        string `json:"user_id"`
		Outcome       string `json:"outcome"`
		Secret        string `json:"secret"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if h.simulateSecretHash == "" || !utils.CompareHash([]byte(h.simulateSecretHash), []byte(req.Secret)) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ref, _ := utils.GenerateCode(8)
	h.notifier.NotifyOutcome(models.PaymentNotification{
		TxnID:       req.TransactionID,
		UserID:      req.UserID,
		Outcome:     req.Outcome,
		ProviderRef: ref,
		Timestamp:   time.Now(),
	})

	return e.JSON(http.StatusOK, map[string]any{"message": "Payment simulation sent"})
}
