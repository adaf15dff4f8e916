package provider

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const XenditCode = "xendit"

type XenditConfig struct {
	SecretKey       string
	CallbackToken   string
	BaseURL         string
	HTTPTimeout     time.Duration
	InvoiceDuration time.Duration
}

type XenditProvider struct {
	cfg    XenditConfig
	client *http.Client
}

func NewXenditProvider(cfg XenditConfig) *XenditProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.xendit.co"
	}

	return &XenditProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *XenditProvider) Code() string {
	return XenditCode
}

// CallbackConfigured reports whether inbound callbacks can be authenticated at all.
func (p *XenditProvider) CallbackConfigured() bool {
	return strings.TrimSpace(p.cfg.CallbackToken) != ""
}

func (p *XenditProvider) VerifyAndParseCallback(_ context.Context, req *CallbackRequest) (*Notification, error) {
	if !p.CallbackConfigured() {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, ErrVerifierNotConfigured)
	}
	if req == nil || !verifyCallbackToken(req.CallbackToken, p.cfg.CallbackToken) {
		return nil, ErrAuthentication
	}
	if req.Truncated {
		return nil, fmt.Errorf("%w: payload too large", ErrMalformedPayload)
	}
	if len(req.Body) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	body, err := decodeCallbackBody(req.ContentType, req.Body)
	if err != nil {
		return nil, err
	}
	return normalizeNotification(body, req.Body)
}

func (p *XenditProvider) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*Invoice, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("xendit secret key is not configured")
	}

	payload := map[string]interface{}{
		"external_id": input.ExternalID,
		"amount":      input.Amount,
		"payer_email": input.PayerEmail,
		"description": input.Description,
	}
	if input.Currency != "" {
		payload["currency"] = input.Currency
	}
	if p.cfg.InvoiceDuration > 0 {
		payload["invoice_duration"] = int64(p.cfg.InvoiceDuration / time.Second)
	}
	if input.SuccessURL != "" {
		payload["success_redirect_url"] = input.SuccessURL
	}
	if input.FailureURL != "" {
		payload["failure_redirect_url"] = input.FailureURL
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := p.do(ctx, http.MethodPost, "/v2/invoices", bytes.NewReader(encoded), input.ExternalID)
	if err != nil {
		return nil, err
	}

	var created struct {
		ID         string `json:"id"`
		InvoiceURL string `json:"invoice_url"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, err
	}
	if strings.TrimSpace(created.ID) == "" {
		return nil, errors.New("xendit invoice id missing")
	}

	return &Invoice{
		InvoiceRef:  strings.TrimSpace(created.ID),
		CheckoutURL: strings.TrimSpace(created.InvoiceURL),
		Status:      normalizeStatus(created.Status),
	}, nil
}

// GetInvoice fetches the invoice and normalises it like an inbound callback.
func (p *XenditProvider) GetInvoice(ctx context.Context, invoiceRef string) (*Notification, error) {
	invoiceRef = strings.TrimSpace(invoiceRef)
	if invoiceRef == "" {
		return nil, errors.New("invoice ref is required")
	}

	body, err := p.do(ctx, http.MethodGet, "/v2/invoices/"+url.PathEscape(invoiceRef), nil, "")
	if err != nil {
		return nil, err
	}

	decoded, err := decodeCallbackBody("application/json", body)
	if err != nil {
		return nil, err
	}
	return normalizeNotification(decoded, body)
}

func (p *XenditProvider) do(ctx context.Context, method, path string, payload io.Reader, idempotencyKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(p.cfg.SecretKey, "")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("xendit request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

// verifyCallbackToken compares the header exactly as delivered against the
// configured secret.
func verifyCallbackToken(got, expected string) bool {
	expected = strings.TrimSpace(expected)
	if got == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
