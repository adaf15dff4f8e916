package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var notificationValidator = validator.New()

// callbackBody is one of the accepted wire encodings of a notification.
type callbackBody interface {
	lookup(name string) (string, bool)
}

type jsonCallbackBody map[string]json.RawMessage

func (b jsonCallbackBody) lookup(name string) (string, bool) {
	raw, ok := b[name]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}

type formCallbackBody url.Values

func (b formCallbackBody) lookup(name string) (string, bool) {
	values, ok := b[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func decodeCallbackBody(contentType string, body []byte) (callbackBody, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedPayload, contentType)
	}

	switch mediaType {
	case "application/json":
		var decoded jsonCallbackBody
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if decoded == nil {
			return nil, fmt.Errorf("%w: empty json body", ErrMalformedPayload)
		}
		return decoded, nil
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return formCallbackBody(values), nil
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrMalformedPayload, mediaType)
	}
}

func normalizeNotification(body callbackBody, raw []byte) (*Notification, error) {
	n := &Notification{Raw: string(raw)}

	if v, ok := body.lookup("external_id"); ok {
		n.IdempotencyToken = strings.TrimSpace(v)
	}
	if v, ok := body.lookup("status"); ok {
		n.Status = normalizeStatus(v)
	}
	if v, ok := body.lookup("id"); ok {
		n.InvoiceRef = strings.TrimSpace(v)
	}

	amountRaw, ok := body.lookup("paid_amount")
	if !ok {
		amountRaw, ok = body.lookup("amount")
	}
	if ok {
		amount, err := parseAmount(amountRaw)
		if err != nil {
			return nil, err
		}
		n.PaidAmount = amount
		n.HasPaidAmount = true
	}

	if v, ok := body.lookup("paid_at"); ok && strings.TrimSpace(v) != "" {
		paidAt, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: paid_at: %v", ErrMalformedPayload, err)
		}
		paidAt = paidAt.UTC()
		n.PaidAt = &paidAt
	}

	if err := notificationValidator.Struct(n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if n.Status == StatusPaid && !n.HasPaidAmount {
		return nil, fmt.Errorf("%w: paid notification without amount", ErrMalformedPayload)
	}

	return n, nil
}

// parseAmount accepts integral amounts only, in any decimal notation ("1500", "1500.00").
func parseAmount(raw string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrMalformedPayload, raw)
	}
	if !amount.IsInteger() {
		return 0, fmt.Errorf("%w: fractional amount %q", ErrMalformedPayload, raw)
	}
	if amount.IsNegative() || amount.GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("%w: amount out of range %q", ErrMalformedPayload, raw)
	}
	return amount.IntPart(), nil
}

func normalizeStatus(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "SETTLED" {
		return StatusPaid
	}
	return status
}
