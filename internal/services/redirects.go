package services

import (
	"checkout-system/config"
	"net/url"
	"strings"
)

// Redirects decides where the browser is sent after a callback resolves.
// Destinations are built from configuration plus an escaped user id; hosts
// outside the allowlist collapse to relative paths so a crafted base can
// never turn the endpoint into an open redirect.
type Redirects struct {
	cfg config.RedirectConfig
}

func NewRedirects(cfg config.RedirectConfig) *Redirects {
	if cfg.FailureURL == "" {
		cfg.FailureURL = "/failed"
	}
	return &Redirects{cfg: cfg}
}

// Success returns the success destination for a user.
func (r *Redirects) Success(userID string) string {
	path := "/success/" + url.PathEscape(userID)

	base := strings.TrimSuffix(r.cfg.SuccessBase, "/")
	if base == "" {
		return path
	}

	parsed, err := url.Parse(base)
	if err != nil || !r.hostAllowed(parsed) {
		return path
	}

	return base + path
}

// Failure returns the fixed failure destination. Nothing request-derived
// goes into it.
func (r *Redirects) Failure() string {
	return r.cfg.FailureURL
}

func (r *Redirects) hostAllowed(u *url.URL) bool {
	if u.Host == "" {
		// relative base, stays on our origin
		return true
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}

	for _, host := range r.cfg.AllowedHosts {
		if strings.EqualFold(host, u.Host) {
			return true
		}
	}

	return false
}
