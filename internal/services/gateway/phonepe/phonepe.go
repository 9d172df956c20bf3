package phonepe

import (
	"checkout-system/internal/status"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type (
	Config struct {
		BaseURL string `json:"baseUrl" mapstructure:"base_url"`

		MerchantID string `json:"merchantId" mapstructure:"merchant_id"`
		SaltKey    string `json:"saltKey" mapstructure:"salt_key"`
		SaltIndex  string `json:"saltIndex" mapstructure:"salt_index"`

		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

		// Optional gateway-side settlement push channel.
		PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
		PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
		PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
		PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
		PNCipherKey string `json:"pn_cipherKey" mapstructure:"pn_cipherkey"`
	}

	// PhonePe is the gateway handle the rest of the system talks to. It
	// owns the signed status query client and, when configured, a push
	// subscription for settlement notifications.
	PhonePe struct {
		MerchantID string

		pnSubKey    string
		pnSubSecret string
		pnUUID      string
		pnChannels  []string
		pnCipherKey string

		sub *subscribe

		client *Client
	}
)

type (
	payload struct {
		TxnID       string          `json:"merchantTransactionId"`
		ProviderRef string          `json:"transactionId"`
		Amount      decimal.Decimal `json:"amount"`
		State       string          `json:"state"`
		Code        string          `json:"responseCode"`
	}
)

func (p *payload) ToDomain() (*status.Transaction, error) {
	if p.TxnID == "" {
		return nil, fmt.Errorf("payload: missing merchantTransactionId")
	}

	return &status.Transaction{
		TxnID:        p.TxnID,
		ProviderRef:  p.ProviderRef,
		Amount:       p.Amount,
		State:        p.State,
		ResponseCode: p.Code,
	}, nil
}

// New returns a new PhonePe instance. Missing merchant credentials are a
// configuration error: the caller must treat the gateway as absent and fail
// closed rather than query without a checksum.
func New(ctx context.Context, cfg *Config) (*PhonePe, error) {
	if cfg.MerchantID == "" || cfg.SaltKey == "" {
		return nil, status.ErrMissingConfig
	}

	client := newClient(&ClientConfig{
		BaseURL:    cfg.BaseURL,
		MerchantID: cfg.MerchantID,
		SaltKey:    cfg.SaltKey,
		SaltIndex:  cfg.SaltIndex,
		Timeout:    cfg.Timeout,
	})

	p := &PhonePe{
		MerchantID: cfg.MerchantID,

		pnSubKey:    cfg.PNSubKey,
		pnSubSecret: cfg.PNSubSecret,
		pnUUID:      cfg.PNUUID,
		pnChannels:  []string{cfg.PNChannel},
		pnCipherKey: cfg.PNCipherKey,

		client: client,
	}

	// The push channel is optional; polling via CheckStatus works without it.
	if p.pnSubKey != "" && cfg.PNChannel != "" {
		pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(p.pnUUID))
		pnCfg.SubscribeKey = p.pnSubKey
		pnCfg.CipherKey = p.pnCipherKey
		pnCfg.SecretKey = p.pnSubSecret

		newSub, err := p.newSubscription(ctx, pnCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to PhonePe's PubNub channel: %v", err)
		}

		newSub.pn.AddListener(newSub.lis)
		p.sub = newSub
	}

	return p, nil
}

// CheckStatus queries the gateway for the authoritative state of one
// transaction. Every inbound callback triggers a fresh query; results are
// never cached on this side.
func (p *PhonePe) CheckStatus(ctx context.Context, txnID string) (*status.Result, error) {
	return p.client.checkStatus(ctx, txnID)
}

// SetTranChannel sets the channel settlement push notifications are
// forwarded to. No-op when the push subscription is not configured.
func (p *PhonePe) SetTranChannel(ch chan *status.Transaction) {
	if p.sub == nil {
		return
	}

	p.sub.setChannel(ch)
	p.sub.pn.Subscribe().
		Channels(p.pnChannels).
		Execute()
}

// Close unsubscribes the push listener if one is running.
func (p *PhonePe) Close(ctx context.Context) error {
	if p.sub != nil {
		p.sub.pn.UnsubscribeAll()
	}
	return nil
}

type subscribe struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener

	// mu guards ch; processSubscription reads it while SetTranChannel can
	// still swap it in.
	mu sync.RWMutex
	ch chan *status.Transaction
}

func (s *subscribe) setChannel(ch chan *status.Transaction) {
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()
}

func (s *subscribe) deliver(tran *status.Transaction) {
	s.mu.RLock()
	ch := s.ch
	s.mu.RUnlock()

	if ch != nil {
		ch <- tran
	}
}

func (p *PhonePe) newSubscription(ctx context.Context, pnCfg *pubnub.Config) (*subscribe, error) {
	sub := &subscribe{
		pn:  pubnub.NewPubNub(pnCfg),
		lis: pubnub.NewListener(),
	}

	go sub.processSubscription(ctx)

	return sub, nil
}

func (s *subscribe) processSubscription(ctx context.Context) {
	listener := s.lis
	for {
		select {
		case st := <-listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")

			case pubnub.PNAccessDeniedCategory:
				log.Println("access denied connect to pubnub")

			case pubnub.PNTimeoutCategory:
				log.Println("timeout connect to pubnub")

			default:
				log.Println("pubnub status category:", st.Category)
			}

		case message := <-listener.Message:
			raw, ok := message.Message.(string)
			if !ok {
				log.Println("pubnub message: unexpected payload type")
				continue
			}

			var p payload
			dec := json.NewDecoder(strings.NewReader(raw))
			if err := dec.Decode(&p); err != nil {
				log.Println(err)
				continue
			}

			tran, err := p.ToDomain()
			if err != nil {
				log.Println(err)
				continue
			}

			s.deliver(tran)

		case <-ctx.Done():
			return
		}
	}
}
