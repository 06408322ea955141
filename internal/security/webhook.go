package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

// Webhook delivery headers set by the identity provider's delivery service.
const (
	HeaderWebhookID        = "svix-id"
	HeaderWebhookTimestamp = "svix-timestamp"
	HeaderWebhookSignature = "svix-signature"
)

const (
	webhookSecretPrefix = "whsec_"
	webhookTolerance    = 5 * time.Minute
)

// WebhookVerifier checks HMAC-SHA256 signatures on webhook deliveries.
type WebhookVerifier struct {
	key  []byte
	nowF func() time.Time
}

// NewWebhookVerifier returns a verifier for secret. A "whsec_" prefixed secret
// is base64-decoded; any other value is used as raw key bytes.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "webhook signing secret is empty")
	}
	key := []byte(secret)
	if strings.HasPrefix(secret, webhookSecretPrefix) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, webhookSecretPrefix))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, "webhook signing secret is not valid base64", err)
		}
		key = decoded
	}
	return &WebhookVerifier{key: key, nowF: time.Now}, nil
}

// Sign returns the "v1,<base64>" signature for a delivery. Exposed for tests and local tooling.
func (w *WebhookVerifier) Sign(msgID string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, w.key)
	mac.Write([]byte(msgID + "." + strconv.FormatInt(ts.Unix(), 10) + "."))
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks that one of the space-separated signatures matches body and
// that the timestamp is within tolerance. Any failure is ErrInvalidSignature.
func (w *WebhookVerifier) Verify(msgID, timestamp, signatures string, body []byte) error {
	if msgID == "" || timestamp == "" || signatures == "" {
		return apperrors.ErrInvalidSignature
	}
	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperrors.ErrInvalidSignature
	}
	ts := time.Unix(secs, 0)
	now := w.nowF()
	if ts.Before(now.Add(-webhookTolerance)) || ts.After(now.Add(webhookTolerance)) {
		return apperrors.ErrInvalidSignature
	}
	expected := []byte(w.Sign(msgID, ts, body))
	for _, sig := range strings.Fields(signatures) {
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return apperrors.ErrInvalidSignature
}
