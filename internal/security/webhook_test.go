package security

import (
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

func newTestWebhookVerifier(t *testing.T, now time.Time) *WebhookVerifier {
	t.Helper()
	w, err := NewWebhookVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("webhook-test-key")))
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	w.nowF = func() time.Time { return now }
	return w
}

func TestWebhookVerifier_Valid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := newTestWebhookVerifier(t, now)
	body := []byte(`{"type":"user.created"}`)
	sig := w.Sign("msg_1", now, body)

	ts := strconv.FormatInt(now.Unix(), 10)
	if err := w.Verify("msg_1", ts, "v1,bogus "+sig, body); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestWebhookVerifier_Rejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := newTestWebhookVerifier(t, now)
	body := []byte(`{"type":"user.created"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := w.Sign("msg_1", now, body)
	stale := now.Add(-10 * time.Minute)

	tests := []struct {
		name              string
		id, ts, sig, body string
	}{
		{"tampered body", "msg_1", ts, sig, `{"type":"user.deleted"}`},
		{"other message id", "msg_2", ts, sig, string(body)},
		{"stale timestamp", "msg_1", strconv.FormatInt(stale.Unix(), 10), w.Sign("msg_1", stale, body), string(body)},
		{"bad timestamp", "msg_1", "yesterday", sig, string(body)},
		{"missing signature", "msg_1", ts, "", string(body)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Verify(tt.id, tt.ts, tt.sig, []byte(tt.body))
			if !errors.Is(err, apperrors.ErrInvalidSignature) {
				t.Errorf("err = %v, want InvalidSignature", err)
			}
		})
	}
}

func TestNewWebhookVerifier_BadSecret(t *testing.T) {
	if _, err := NewWebhookVerifier(""); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := NewWebhookVerifier("whsec_!!!"); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("bad base64: err = %v", err)
	}
}
