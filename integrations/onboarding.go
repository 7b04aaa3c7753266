package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"go.uber.org/zap"
)

// OnboardingClient notifies the onboarding flow. Without a URL it only logs
// the trigger.
type OnboardingClient struct {
	Client *http.Client
	URL    string
	logger *zap.Logger
}

func NewOnboardingClient(logger *zap.Logger, url string, timeout time.Duration) *OnboardingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingClient{
		Client: &http.Client{Timeout: timeout},
		URL:    url,
		logger: logger.Named("onboarding"),
	}
}

func (oc *OnboardingClient) TriggerOnboarding(ctx context.Context, event models.OnboardingEvent) error {
	if oc.URL == "" {
		oc.logger.Info("Triggering onboarding (no endpoint configured)", zap.String("card", event.CardName))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal onboarding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send post request to %s: %w", RedactURL(oc.URL), unwrapURLError(err))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("onboarding endpoint returned non-2xx status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	oc.logger.Info("Onboarding triggered", zap.String("card", event.CardName))
	return nil
}
