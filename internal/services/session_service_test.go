package services

import (
	"net/http"
	"testing"
	"time"

	"checkout-system/config"
	"checkout-system/internal/status"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(ttl time.Duration, environment string) *SessionService {
	return NewSessionService(config.SessionConfig{
		SigningKey: "test-signing-key",
		TTL:        ttl,
		CookieName: "authToken",
	}, environment)
}

func TestSessionService_IssueAndVerify(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	cred, err := s.Issue("42", "TXN123")
	require.NoError(t, err)
	require.NotEmpty(t, cred.Token)

	verified, err := s.Verify(cred.Token)
	require.NoError(t, err)

	assert.Equal(t, "42", verified.UserID)
	assert.Equal(t, "TXN123", verified.TransactionID)
	assert.Equal(t, 600*time.Second, verified.ExpiresAt.Sub(verified.IssuedAt))
}

func TestSessionService_ClaimShape(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	cred, err := s.Issue("42", "TXN123")
	require.NoError(t, err)

	parsed, err := jwt.Parse(cred.Token, func(t *jwt.Token) (any, error) {
		return []byte("test-signing-key"), nil
	})
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["userId"])
	assert.Equal(t, "TXN123", claims["transactionId"])
	assert.Equal(t, true, claims["paymentSuccess"])

	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	assert.Equal(t, int64(600), exp-iat)
}

func TestSessionService_MissingSigningKey(t *testing.T) {
	s := NewSessionService(config.SessionConfig{}, "development")

	cred, err := s.Issue("42", "TXN123")
	assert.ErrorIs(t, err, status.ErrSigningKey)
	assert.Nil(t, cred)
}

func TestSessionService_VerifyExpired(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	claims := jwt.MapClaims{
		"userId":         "42",
		"transactionId":  "TXN123",
		"paymentSuccess": true,
		"iat":            time.Now().Add(-20 * time.Minute).Unix(),
		"exp":            time.Now().Add(-10 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestSessionService_VerifyWrongKey(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	other := NewSessionService(config.SessionConfig{SigningKey: "other-key"}, "development")
	cred, err := other.Issue("42", "TXN123")
	require.NoError(t, err)

	_, err = s.Verify(cred.Token)
	assert.Error(t, err)
}

func TestSessionService_VerifyRejectsUnconfirmedPayment(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	claims := jwt.MapClaims{
		"userId":        "42",
		"transactionId": "TXN123",
		"iat":           time.Now().Unix(),
		"exp":           time.Now().Add(10 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestSessionService_CookieAttributes(t *testing.T) {
	s := newTestSessions(600*time.Second, "development")

	cred, err := s.Issue("42", "TXN123")
	require.NoError(t, err)

	cookie := s.Cookie(cred)
	assert.Equal(t, "authToken", cookie.Name)
	assert.Equal(t, cred.Token, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestSessionService_CookieSecureInProduction(t *testing.T) {
	s := newTestSessions(600*time.Second, "production")

	cred, err := s.Issue("42", "TXN123")
	require.NoError(t, err)

	assert.True(t, s.Cookie(cred).Secure)
}

func TestRedirects_Success(t *testing.T) {
	r := NewRedirects(config.RedirectConfig{})

	assert.Equal(t, "/success/42", r.Success("42"))
	assert.Equal(t, "/failed", r.Failure())
}

func TestRedirects_UserIDEscaped(t *testing.T) {
	r := NewRedirects(config.RedirectConfig{})

	assert.Equal(t, "/success/42%2F..%2Fadmin", r.Success("42/../admin"))
}

func TestRedirects_AllowedHost(t *testing.T) {
	r := NewRedirects(config.RedirectConfig{
		SuccessBase:  "https://shop.example.com",
		AllowedHosts: []string{"shop.example.com"},
	})

	assert.Equal(t, "https://shop.example.com/success/42", r.Success("42"))
}

func TestRedirects_DisallowedHostCollapsesToRelative(t *testing.T) {
	r := NewRedirects(config.RedirectConfig{
		SuccessBase:  "https://evil.example.net",
		AllowedHosts: []string{"shop.example.com"},
	})

	assert.Equal(t, "/success/42", r.Success("42"))
}

func TestRedirects_NonHTTPSchemeRejected(t *testing.T) {
	r := NewRedirects(config.RedirectConfig{
		SuccessBase:  "javascript://shop.example.com",
		AllowedHosts: []string{"shop.example.com"},
	})

	assert.Equal(t, "/success/42", r.Success("42"))
}
