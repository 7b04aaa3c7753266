package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/apperr"
	"github.com/chxlky/trello-mimecast-notifier/internal/config"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultTrelloBaseURL = "https://api.trello.com/1"
	trelloService        = "trello"
	defaultTrelloTimeout = 10 * time.Second
	maxErrorBody         = 4 << 10
)

type TrelloClient struct {
	Client      *http.Client
	BaseURL     string
	APIKey      config.Secret
	APIToken    config.Secret
	CallbackURL string
	logger      *zap.Logger
}

func NewTrelloClient(logger *zap.Logger, cfg config.TrelloConfig) *TrelloClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultTrelloBaseURL
	}
	return &TrelloClient{
		Client:      &http.Client{Timeout: defaultTrelloTimeout},
		BaseURL:     baseURL,
		APIKey:      cfg.APIKey,
		APIToken:    cfg.APIToken,
		CallbackURL: cfg.CallbackURL,
		logger:      logger.Named("trello"),
	}
}

func (tc *TrelloClient) credentials() url.Values {
	values := url.Values{}
	values.Set("key", tc.APIKey.Reveal())
	values.Set("token", tc.APIToken.Reveal())
	return values
}

// GetCard fetches the full card record; webhook payloads only carry a
// partial snapshot.
func (tc *TrelloClient) GetCard(ctx context.Context, id string) (models.Card, error) {
	var card models.Card
	if err := tc.get(ctx, "card", id, "/cards/"+url.PathEscape(id), &card); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

func (tc *TrelloClient) GetMember(ctx context.Context, id string) (models.Member, error) {
	var member models.Member
	if err := tc.get(ctx, "member", id, "/members/"+url.PathEscape(id), &member); err != nil {
		return models.Member{}, err
	}
	return member, nil
}

func (tc *TrelloClient) get(ctx context.Context, resource, id, path string, out any) error {
	apiURL := tc.BaseURL + path + "?" + tc.credentials().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return apperr.UpstreamFetch(trelloService, resource, id, 0, fmt.Errorf("failed to create get request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := tc.Client.Do(req)
	if err != nil {
		// url.Error embeds the full request URL, key and token included.
		return apperr.UpstreamFetch(trelloService, resource, id, 0,
			fmt.Errorf("failed to send get request to %s: %w", RedactURL(apiURL), unwrapURLError(err)))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.UpstreamFetch(trelloService, resource, id, resp.StatusCode,
			fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.UpstreamFetch(trelloService, resource, id, resp.StatusCode,
			fmt.Errorf("failed to decode Trello response: %w", err))
	}

	tc.logger.Debug("Fetched from Trello", zap.String("resource", resource), zap.String("id", id))
	return nil
}

func (tc *TrelloClient) RegisterWebhook(ctx context.Context, boardID string) (string, error) {
	apiURL := tc.BaseURL + "/webhooks/"

	formData := tc.credentials()
	formData.Set("callbackURL", tc.CallbackURL)
	formData.Set("idModel", boardID)
	formData.Set("description", "Webhook for Trello-Mimecast notifications")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBufferString(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send post request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var webhook struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&webhook); err != nil {
		return "", fmt.Errorf("failed to decode Trello response: %w", err)
	}

	tc.logger.Info("Successfully registered webhook",
		zap.String("webhookID", webhook.ID),
		zap.String("boardID", boardID),
	)
	return webhook.ID, nil
}

func (tc *TrelloClient) DeleteWebhook(ctx context.Context, webhookID string) error {
	apiURL := tc.BaseURL + "/webhooks/" + url.PathEscape(webhookID) + "?" + tc.credentials().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send delete request to %s: %w", RedactURL(apiURL), unwrapURLError(err))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	tc.logger.Info("Successfully deleted webhook", zap.String("webhookID", webhookID))
	return nil
}

func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
