package integrations

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/chxlky/trello-mimecast-notifier/internal/config"
)

// TrelloSignatureHeader carries base64(HMAC-SHA1(appSecret, body+callbackURL)).
const TrelloSignatureHeader = "X-Trello-Webhook"

var (
	ErrMissingSignature = errors.New("trello: webhook signature header is required")
	ErrInvalidSignature = errors.New("trello: webhook signature verification failed")
)

// WebhookVerifier checks that a delivery was produced by Trello for the
// configured callback URL.
type WebhookVerifier struct {
	AppSecret   config.Secret
	CallbackURL string
}

// Enabled reports whether an app secret is configured.
func (v WebhookVerifier) Enabled() bool {
	return !v.AppSecret.IsZero()
}

func (v WebhookVerifier) Verify(body []byte, header string) error {
	signature := strings.TrimSpace(header)
	if signature == "" {
		return ErrMissingSignature
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha1.New, []byte(v.AppSecret.Reveal()))
	_, _ = mac.Write(body)
	_, _ = mac.Write([]byte(v.CallbackURL))
	if subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
