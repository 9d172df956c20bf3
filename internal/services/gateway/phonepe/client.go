package phonepe

import (
	"checkout-system/internal/status"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// statusPath is the gateway's fixed status query path template. The merchant
// id and transaction id are appended as path segments and the whole path is
// covered by the X-VERIFY checksum.
const statusPath = "/pg/v1/status/"

// upstream bodies are small JSON documents; anything bigger is garbage.
const maxResponseBytes = 1 << 20

type ClientConfig struct {
	BaseURL    string `json:"baseUrl" mapstructure:"base_url"`
	MerchantID string `json:"merchantId" mapstructure:"merchant_id"`
	SaltKey    string `json:"saltKey" mapstructure:"salt_key"`
	SaltIndex  string `json:"saltIndex" mapstructure:"salt_index"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	// baseURL is the base url of the PhonePe backend.
	baseURL string

	// merchantID identifies this merchant to the PhonePe backend.
	merchantID string

	// saltKey is the shared secret the X-VERIFY checksum is derived from.
	// It must never leave this package, not in logs and not in responses.
	saltKey string

	// saltIndex identifies which rotated salt key signed the request.
	saltIndex string

	// hc is the http client.
	hc *http.Client
}

// newClient creates a new instance of the PhonePe client.
func newClient(c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    c.BaseURL,
		merchantID: c.MerchantID,
		saltKey:    c.SaltKey,
		saltIndex:  c.SaltIndex,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type reply struct {
	// Success is a pointer so an absent field can be told apart from an
	// explicit false: absent means the body is malformed, false means the
	// gateway rejected the payment.
	Success *bool  `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string          `json:"merchantId"`
		MerchantTransactionID string          `json:"merchantTransactionId"`
		TransactionID         string          `json:"transactionId"`
		Amount                decimal.Decimal `json:"amount"`
		State                 string          `json:"state"`
		ResponseCode          string          `json:"responseCode"`
	} `json:"data"`
}

// newStatusRequest builds one status query request. Each attempt gets a
// fresh request and a fresh X-REQUEST-ID.
func (c *Client) newStatusRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	_baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("checkStatus: url.Parse: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, _baseURL.String()+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("checkStatus: http.NewReq: %v", err)
	}

	number, err := randomNumber()
	if err != nil {
		return nil, fmt.Errorf("checkStatus: randomNumber: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", Checksum(endpoint, c.saltKey, c.saltIndex))
	req.Header.Set("X-MERCHANT-ID", c.merchantID)
	req.Header.Set("X-REQUEST-ID", number)

	return req, nil
}

// checkStatus performs the single outbound status query for one callback and
// interprets the response into a closed outcome set. One retry on a transport
// failure is allowed; an explicit rejection is never retried.
func (c *Client) checkStatus(ctx context.Context, txnID string) (*status.Result, error) {
	if c.merchantID == "" || c.saltKey == "" {
		return &status.Result{Outcome: status.OutcomeIndeterminate}, status.ErrMissingConfig
	}

	endpoint := statusPath + c.merchantID + "/" + txnID

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return &status.Result{Outcome: status.OutcomeIndeterminate},
			fmt.Errorf("checkStatus: %w: %v", status.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	result := &status.Result{HTTPStatus: resp.StatusCode}

	if resp.StatusCode >= http.StatusInternalServerError {
		result.Outcome = status.OutcomeIndeterminate
		return result, fmt.Errorf("checkStatus: %w: http status %d", status.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.Outcome = status.OutcomeIndeterminate
		return result, fmt.Errorf("checkStatus: read body: %w: %v", status.ErrMalformedResponse, err)
	}

	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		result.Outcome = status.OutcomeIndeterminate
		return result, fmt.Errorf("checkStatus: json.Unmarshal: %w: %v", status.ErrMalformedResponse, err)
	}
	if r.Success == nil {
		result.Outcome = status.OutcomeIndeterminate
		return result, fmt.Errorf("checkStatus: missing success field: %w", status.ErrMalformedResponse)
	}

	result.RawCode = r.Code

	if !*r.Success {
		result.Outcome = status.OutcomeFailed
		return result, nil
	}

	result.Outcome = status.OutcomeSettled
	result.Transaction = &status.Transaction{
		TxnID:        r.Data.MerchantTransactionID,
		ProviderRef:  r.Data.TransactionID,
		Amount:       r.Data.Amount,
		State:        r.Data.State,
		ResponseCode: r.Data.ResponseCode,
	}

	return result, nil
}

// do sends the status request, retrying once on a transport error. The
// request carries no body, so rebuilding it per attempt is cheap.
func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		req, err := c.newStatusRequest(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		resp, err := c.hc.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// do not retry a cancelled or deadline-exceeded call
		if ctx.Err() != nil {
			return nil, lastErr
		}

		log.Printf("checkStatus: attempt %d: %v", attempt+1, err)
	}

	return nil, lastErr
}
