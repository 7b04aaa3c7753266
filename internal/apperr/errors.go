// Package apperr defines the notifier's error taxonomy on top of go-errors.
package apperr

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeCredential      = "CREDENTIAL_ERROR"
	TextCodeUpstreamFetch   = "UPSTREAM_FETCH_ERROR"
	TextCodePartialDelivery = "PARTIAL_DELIVERY"
)

func build(source error, category goerrors.Category, message string, code int, textCode string, metadata map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	err = err.WithCode(code).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// Credential reports a missing or unusable signing key. The send must be
// aborted.
func Credential(message string, source error) error {
	return build(source, goerrors.CategoryAuth, message, http.StatusUnauthorized, TextCodeCredential, nil)
}

// UpstreamFetch reports a failed read against an external API. status is the
// upstream HTTP status, or 0 when no response was received.
func UpstreamFetch(service, resource, id string, status int, source error) error {
	code := http.StatusBadGateway
	if status == http.StatusNotFound {
		code = http.StatusNotFound
	}
	return build(
		source,
		goerrors.CategoryExternal,
		fmt.Sprintf("%s: fetch %s %s failed", service, resource, id),
		code,
		TextCodeUpstreamFetch,
		map[string]any{
			"service":  service,
			"resource": resource,
			"id":       id,
			"status":   status,
		},
	)
}

// PartialDelivery reports that the email API accepted a call but rejected
// some of its recipients.
func PartialDelivery(rejected int) error {
	return build(
		nil,
		goerrors.CategoryExternal,
		fmt.Sprintf("email accepted with %d rejected recipient(s)", rejected),
		http.StatusMultiStatus,
		TextCodePartialDelivery,
		map[string]any{"rejected": rejected},
	)
}

func hasTextCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}

func IsCredential(err error) bool { return hasTextCode(err, TextCodeCredential) }

func IsUpstreamFetch(err error) bool { return hasTextCode(err, TextCodeUpstreamFetch) }

func IsPartialDelivery(err error) bool { return hasTextCode(err, TextCodePartialDelivery) }
