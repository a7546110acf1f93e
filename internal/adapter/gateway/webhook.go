package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Decoder validates inbound gateway callbacks.
type Decoder interface {
	DecodeWebhook(delivery model.WebhookDelivery) (*model.PaymentNotification, error)
}

// WebhookDecoder parses Mercado Pago notifications and verifies their x-signature header.
type WebhookDecoder struct {
	secret []byte
}

type webhookBody struct {
	Type   string          `json:"type"`
	Topic  string          `json:"topic"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type webhookData struct {
	ID json.RawMessage `json:"id"`
}

// NewWebhookDecoder creates decoder; an empty secret disables signature verification.
func NewWebhookDecoder(secret string) *WebhookDecoder {
	d := &WebhookDecoder{}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

// VerifiesSignatures reports whether deliveries must carry a valid signature.
func (d *WebhookDecoder) VerifiesSignatures() bool {
	return len(d.secret) > 0
}

// DecodeWebhook extracts topic and resource id from body or query string.
func (d *WebhookDecoder) DecodeWebhook(delivery model.WebhookDelivery) (*model.PaymentNotification, error) {
	var body webhookBody
	if len(strings.TrimSpace(string(delivery.Body))) > 0 {
		if err := json.Unmarshal(delivery.Body, &body); err != nil {
			return nil, fmt.Errorf("decode body: %w", domainErrors.ErrMalformedEvent)
		}
	}

	id, err := dataID(body.Data)
	if err != nil {
		return nil, err
	}

	topic := firstNonEmpty(body.Type, body.Topic, delivery.Query.Get("type"), delivery.Query.Get("topic"))
	if id == "" {
		id = firstNonEmpty(delivery.Query.Get("data.id"), delivery.Query.Get("id"))
	}
	if topic == "" {
		return nil, fmt.Errorf("missing topic: %w", domainErrors.ErrMalformedEvent)
	}
	if id == "" {
		return nil, fmt.Errorf("missing resource id: %w", domainErrors.ErrMalformedEvent)
	}

	if d.VerifiesSignatures() {
		if err := d.verify(id, delivery.RequestID, delivery.Signature); err != nil {
			return nil, err
		}
	}

	return &model.PaymentNotification{
		Topic:     topic,
		Action:    body.Action,
		PaymentID: id,
		RequestID: delivery.RequestID,
	}, nil
}

// verify checks "ts=<unix>,v1=<hex>" against the manifest id:<id>;request-id:<rid>;ts:<ts>;
func (d *WebhookDecoder) verify(id, requestID, header string) error {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return fmt.Errorf("missing signature: %w", domainErrors.ErrMalformedEvent)
	}

	expected := signManifest(d.secret, id, requestID, ts)
	got, err := hex.DecodeString(v1)
	if err != nil || !hmac.Equal(expected, got) {
		return fmt.Errorf("signature mismatch: %w", domainErrors.ErrMalformedEvent)
	}
	return nil
}

// Sign builds an x-signature header value for the given delivery fields.
func Sign(secret, id, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(signManifest([]byte(secret), id, requestID, ts))
}

func signManifest(secret []byte, id, requestID, ts string) []byte {
	var manifest strings.Builder
	manifest.WriteString("id:" + strings.ToLower(id) + ";")
	if requestID != "" {
		manifest.WriteString("request-id:" + requestID + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(manifest.String()))
	return mac.Sum(nil)
}

func dataID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var data webhookData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decode data: %w", domainErrors.ErrMalformedEvent)
	}
	if len(data.ID) == 0 || string(data.ID) == "null" {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(data.ID, &asString); err == nil {
		return strings.TrimSpace(asString), nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data.ID, &asNumber); err == nil {
		if _, err := strconv.ParseInt(asNumber.String(), 10, 64); err == nil {
			return asNumber.String(), nil
		}
	}
	return "", fmt.Errorf("data.id must be a string or integer: %w", domainErrors.ErrMalformedEvent)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
