package tests

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 7. WEBHOOK SIGNATURE VERIFICATION
// ──────────────────────────────────────────────

const webhookSecret = "whsec_test_secret"

func signedHeader(payload []byte, at time.Time, secret string) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, service.ComputeSignature(payload, ts, secret))
}

func TestVerifySignature_Valid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt-1","type":"payment.succeeded","reference":"pi_1"}`)

	header := signedHeader(payload, now, webhookSecret)
	if err := service.VerifySignature(payload, header, webhookSecret, now); err != nil {
		t.Fatalf("expected valid signature, got: %v", err)
	}
}

func TestVerifySignature_Rejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt-1","type":"payment.succeeded","reference":"pi_1"}`)

	testCases := []struct {
		name    string
		payload []byte
		header  string
	}{
		{
			name:    "wrong secret",
			payload: payload,
			header:  signedHeader(payload, now, "whsec_other"),
		},
		{
			name:    "tampered payload",
			payload: []byte(`{"id":"evt-1","type":"payment.succeeded","reference":"pi_2"}`),
			header:  signedHeader(payload, now, webhookSecret),
		},
		{
			name:    "stale timestamp",
			payload: payload,
			header:  signedHeader(payload, now.Add(-6*time.Minute), webhookSecret),
		},
		{
			name:    "future timestamp",
			payload: payload,
			header:  signedHeader(payload, now.Add(6*time.Minute), webhookSecret),
		},
		{
			name:    "missing timestamp",
			payload: payload,
			header:  "v1=deadbeef",
		},
		{
			name:    "missing signature",
			payload: payload,
			header:  "t=1767528000",
		},
		{
			name:    "malformed header",
			payload: payload,
			header:  "garbage",
		},
		{
			name:    "non-numeric timestamp",
			payload: payload,
			header:  "t=yesterday,v1=deadbeef",
		},
		{
			name:    "empty header",
			payload: payload,
			header:  "",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := service.VerifySignature(tc.payload, tc.header, webhookSecret, now)
			if !errors.Is(err, service.ErrSignatureInvalid) {
				t.Errorf("expected ErrSignatureInvalid, got: %v", err)
			}
		})
	}
}

func TestVerifySignature_ToleratesSmallClockSkew(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt-1","type":"payment.succeeded","reference":"pi_1"}`)

	for _, skew := range []time.Duration{-4 * time.Minute, 4 * time.Minute} {
		header := signedHeader(payload, now.Add(skew), webhookSecret)
		if err := service.VerifySignature(payload, header, webhookSecret, now); err != nil {
			t.Errorf("expected signature within tolerance (skew %v) to verify, got: %v", skew, err)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	event, err := service.DecodeEvent([]byte(`{"id":"evt-1","type":"payment.failed","reference":"pi_1","reason":"card declined"}`))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if event.Kind != service.GatewayEventFailed {
		t.Errorf("expected kind payment.failed, got %s", event.Kind)
	}
	if event.Reference != "pi_1" || event.Reason != "card declined" {
		t.Errorf("unexpected event fields: %+v", event)
	}

	badPayloads := []string{
		`not json`,
		`{"id":"evt-1","reference":"pi_1"}`,
		`{"id":"evt-1","type":"payment.succeeded"}`,
	}
	for _, payload := range badPayloads {
		if _, err := service.DecodeEvent([]byte(payload)); err == nil {
			t.Errorf("expected decode error for payload %s", payload)
		}
	}
}

func TestWebhookDecoder_VerifyAndDecode(t *testing.T) {
	t.Parallel()

	decoder := service.NewWebhookDecoder(webhookSecret)
	payload := []byte(`{"id":"evt-1","type":"payment.succeeded","reference":"pi_1"}`)

	event, err := decoder.VerifyAndDecode(payload, signedHeader(payload, time.Now(), webhookSecret))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if event.Kind != service.GatewayEventSucceeded || event.Reference != "pi_1" {
		t.Errorf("unexpected event: %+v", event)
	}

	if _, err := decoder.VerifyAndDecode(payload, "t=0,v1=bad"); !errors.Is(err, service.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got: %v", err)
	}
}
