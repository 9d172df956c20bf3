package services

import (
	"checkout-system/config"
	"checkout-system/internal/status"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionService is the only component allowed to mint session credentials.
// A credential confirms one transaction for one user and nothing else; it is
// not an account login.
type SessionService struct {
	cfg config.SessionConfig

	// secure toggles the Secure cookie attribute; on outside development.
	secure bool
}

func NewSessionService(cfg config.SessionConfig, environment string) *SessionService {
	if cfg.CookieName == "" {
		cfg.CookieName = "authToken"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 600 * time.Second
	}

	return &SessionService{
		cfg:    cfg,
		secure: environment == "production",
	}
}

// SessionCredential is a short-lived signed assertion that a specific user's
// specific transaction was confirmed paid.
type SessionCredential struct {
	UserID        string
	TransactionID string
	IssuedAt      time.Time
	ExpiresAt     time.Time

	// Token is the signed serialized form carried by the cookie.
	Token string
}

// Issue mints a signed credential for a settled transaction. Refuses to
// produce anything when the signing key is absent; an unsigned cookie must
// never leave the server.
func (s *SessionService) Issue(userID, txnID string) (*SessionCredential, error) {
	if s.cfg.SigningKey == "" {
		return nil, status.ErrSigningKey
	}

	now := time.Now()
	expires := now.Add(s.cfg.TTL)

	claims := jwt.MapClaims{
		"userId":         userID,
		"transactionId":  txnID,
		"paymentSuccess": true,
		"iat":            now.Unix(),
		"exp":            expires.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		return nil, fmt.Errorf("sessions.Issue: %w: %v", status.ErrSigningKey, err)
	}

	return &SessionCredential{
		UserID:        userID,
		TransactionID: txnID,
		IssuedAt:      now,
		ExpiresAt:     expires,
		Token:         token,
	}, nil
}

// Verify parses a serialized credential and validates signature and expiry.
func (s *SessionService) Verify(token string) (*SessionCredential, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SigningKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("sessions.Verify: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("sessions.Verify: invalid claims")
	}

	confirmed, _ := claims["paymentSuccess"].(bool)
	if !confirmed {
		return nil, fmt.Errorf("sessions.Verify: credential does not assert payment success")
	}

	userID, _ := claims["userId"].(string)
	txnID, _ := claims["transactionId"].(string)
	if userID == "" || txnID == "" {
		return nil, fmt.Errorf("sessions.Verify: missing subject claims")
	}

	cred := &SessionCredential{
		UserID:        userID,
		TransactionID: txnID,
		Token:         token,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		cred.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time
	}

	return cred, nil
}

// Cookie wraps a credential into the protected cookie attached to the
// success redirect. HTTP-only, root path scoped, lifetime equal to the
// credential window, and limited to same-site navigation.
func (s *SessionService) Cookie(cred *SessionCredential) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    cred.Token,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
