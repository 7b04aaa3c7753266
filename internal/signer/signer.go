// Package signer builds the time-bound HMAC credentials attached to every
// outbound Mimecast API call.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/apperr"
	"github.com/chxlky/trello-mimecast-notifier/internal/config"
	"github.com/google/uuid"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderDate          = "x-mc-date"
	HeaderRequestID     = "x-mc-req-id"
	HeaderAppID         = "x-mc-app-id"

	authScheme = "MC"
)

// SignedRequest carries the credentials for exactly one outbound call.
// Authorization embeds the signature and is kept out of formatted output.
type SignedRequest struct {
	Authorization config.Secret
	Date          string
	RequestID     string
	AppID         string
	Body          []byte
}

// Apply sets the signed headers on req.
func (s SignedRequest) Apply(req *http.Request) {
	req.Header.Set(HeaderAuthorization, s.Authorization.Reveal())
	req.Header.Set(HeaderDate, s.Date)
	req.Header.Set(HeaderRequestID, s.RequestID)
	req.Header.Set(HeaderAppID, s.AppID)
}

type Signer struct {
	appID string
	key   config.Secret
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

type Option func(*Signer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides request id generation.
func WithIDSource(newID func() (uuid.UUID, error)) Option {
	return func(s *Signer) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(appID string, key config.Secret, opts ...Option) *Signer {
	s := &Signer{
		appID: strings.TrimSpace(appID),
		key:   key,
		now:   time.Now,
		newID: uuid.NewRandom,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign produces fresh credentials for method and uri. A new date and request
// id are drawn on every call, so a SignedRequest is never reusable.
func (s *Signer) Sign(method, uri string, body []byte) (SignedRequest, error) {
	if s == nil || s.key.IsZero() {
		return SignedRequest{}, apperr.Credential("signer: signing key is required", nil)
	}
	if s.appID == "" {
		return SignedRequest{}, apperr.Credential("signer: app id is required", nil)
	}

	id, err := s.newID()
	if err != nil {
		return SignedRequest{}, apperr.Credential("signer: generate request id", err)
	}
	date := s.now().UTC().Format(http.TimeFormat)
	requestID := id.String()

	signature, err := Signature(s.key, StringToSign(date, requestID, method, uri))
	if err != nil {
		return SignedRequest{}, err
	}

	return SignedRequest{
		Authorization: config.Secret(fmt.Sprintf("%s %s:%s", authScheme, s.appID, signature)),
		Date:          date,
		RequestID:     requestID,
		AppID:         s.appID,
		Body:          body,
	}, nil
}

// StringToSign joins the signed components in their fixed order.
func StringToSign(date, requestID, method, uri string) string {
	return strings.Join([]string{date, requestID, strings.ToUpper(method), uri}, ":")
}

// Signature returns base64(HMAC-SHA1(key, message)).
func Signature(key config.Secret, message string) (string, error) {
	if key.IsZero() {
		return "", apperr.Credential("signer: signing key is required", nil)
	}
	mac := hmac.New(sha1.New, []byte(key.Reveal()))
	if _, err := mac.Write([]byte(message)); err != nil {
		return "", apperr.Credential("signer: compute signature", err)
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
