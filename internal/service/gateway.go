package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentIntent is the gateway's handle for a payment in flight.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway is the interface to the external payment provider.
// Beyond intent creation, the gateway communicates through signed
// asynchronous webhook events.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error)
}

// MockGateway is a deterministic in-process gateway for local runs and
// tests. Intents always succeed.
type MockGateway struct{}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

var _ PaymentGateway = (*MockGateway)(nil)

// CreateIntent returns a fresh intent reference.
func (g *MockGateway) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	id := "pi_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	return &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String()[:8],
	}, nil
}

// GatewayEventKind enumerates the webhook event kinds the gateway emits.
type GatewayEventKind string

const (
	GatewayEventSucceeded      GatewayEventKind = "payment.succeeded"
	GatewayEventFailed         GatewayEventKind = "payment.failed"
	GatewayEventCancelled      GatewayEventKind = "payment.cancelled"
	GatewayEventRequiresAction GatewayEventKind = "payment.requires_action"
	GatewayEventDisputed       GatewayEventKind = "payment.disputed"
)

// GatewayEvent is one decoded webhook delivery.
type GatewayEvent struct {
	ID        string           `json:"id"`
	Kind      GatewayEventKind `json:"type"`
	Reference string           `json:"reference"` // the gateway's intent id
	Reason    string           `json:"reason,omitempty"`
}

// signatureTolerance bounds how stale a signed payload may be before it
// is rejected, limiting replay of captured deliveries.
const signatureTolerance = 5 * time.Minute

// WebhookDecoder verifies and decodes gateway deliveries. Verification
// is pure and separate from applying the event, so replay handling can
// be tested without real signatures.
type WebhookDecoder struct {
	secret string
	now    func() time.Time
}

// NewWebhookDecoder creates a decoder for the given signing secret.
func NewWebhookDecoder(secret string) *WebhookDecoder {
	return &WebhookDecoder{secret: secret, now: time.Now}
}

// VerifyAndDecode checks the signature header and decodes the payload.
// Any verification failure returns ErrSignatureInvalid and the delivery
// must be dropped with no state change.
func (d *WebhookDecoder) VerifyAndDecode(payload []byte, sigHeader string) (*GatewayEvent, error) {
	if err := VerifySignature(payload, sigHeader, d.secret, d.now()); err != nil {
		return nil, err
	}
	return DecodeEvent(payload)
}

// VerifySignature validates a "t=<unix>,v1=<hex>" signature header: an
// HMAC-SHA256 of "<t>.<payload>" under the shared secret, with the
// timestamp inside the tolerance window.
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	var ts string
	var sig string
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			sig = value
		}
	}
	if ts == "" || sig == "" {
		return ErrSignatureInvalid
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	sent := time.Unix(unix, 0)
	if sent.Before(now.Add(-signatureTolerance)) || sent.After(now.Add(signatureTolerance)) {
		return ErrSignatureInvalid
	}

	expected := ComputeSignature(payload, ts, secret)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	return nil
}

// ComputeSignature computes the hex HMAC-SHA256 of "<ts>.<payload>".
// Exported so tests and the mock gateway can produce valid headers.
func ComputeSignature(payload []byte, ts, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// DecodeEvent parses a verified payload into a GatewayEvent.
func DecodeEvent(payload []byte) (*GatewayEvent, error) {
	var event GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode gateway event: %w", err)
	}
	if event.Reference == "" || event.Kind == "" {
		return nil, fmt.Errorf("decode gateway event: missing type or reference")
	}
	return &event, nil
}
