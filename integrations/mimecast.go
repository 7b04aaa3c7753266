package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/apperr"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"github.com/chxlky/trello-mimecast-notifier/internal/signer"
	"go.uber.org/zap"
)

const (
	DefaultMimecastBaseURL = "https://za-api.mimecast.com"
	SendEmailPath          = "/api/email/send-email"
	defaultMimecastTimeout = 10 * time.Second
)

// RequestSigner produces single-use credentials for one API call.
type RequestSigner interface {
	Sign(method, uri string, body []byte) (signer.SignedRequest, error)
}

type MimecastClient struct {
	Client  *http.Client
	BaseURL string
	signer  RequestSigner
	logger  *zap.Logger
}

func NewMimecastClient(logger *zap.Logger, baseURL string, s RequestSigner, timeout time.Duration) *MimecastClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultMimecastTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultMimecastBaseURL
	}
	return &MimecastClient{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		signer:  s,
		logger:  logger.Named("mimecast"),
	}
}

// SendEmail signs and submits msg. When the API accepts the call but rejects
// some recipients the decoded response is returned together with a partial
// delivery error. A signing failure aborts before anything is transmitted.
func (mc *MimecastClient) SendEmail(ctx context.Context, msg models.EmailMessage) (models.SendEmailResponse, error) {
	body, err := json.Marshal(models.SendEmailRequest{Data: []models.EmailMessage{msg}})
	if err != nil {
		return models.SendEmailResponse{}, fmt.Errorf("failed to marshal send-email payload: %w", err)
	}

	if mc.signer == nil {
		return models.SendEmailResponse{}, apperr.Credential("mimecast: request signer is not configured", nil)
	}
	signed, err := mc.signer.Sign(http.MethodPost, SendEmailPath, body)
	if err != nil {
		return models.SendEmailResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.BaseURL+SendEmailPath, bytes.NewReader(signed.Body))
	if err != nil {
		return models.SendEmailResponse{}, fmt.Errorf("failed to create post request: %w", err)
	}
	signed.Apply(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	mc.logger.Debug("Sending email",
		zap.String("requestID", signed.RequestID),
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
	)

	resp, err := mc.Client.Do(req)
	if err != nil {
		return models.SendEmailResponse{}, fmt.Errorf("failed to send post request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.SendEmailResponse{}, fmt.Errorf("mimecast API returned non-2xx status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var out models.SendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.SendEmailResponse{}, fmt.Errorf("failed to decode Mimecast response: %w", err)
	}

	mc.logger.Debug("Mimecast response",
		zap.String("requestID", signed.RequestID),
		zap.Int("status", out.Meta.Status),
		zap.Int("failures", len(out.Fail)),
	)

	if len(out.Fail) > 0 {
		return out, apperr.PartialDelivery(len(out.Fail))
	}
	return out, nil
}
