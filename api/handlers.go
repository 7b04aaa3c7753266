package api

import (
	"context"
	"net/http"

	"github.com/chxlky/trello-mimecast-notifier/integrations"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"github.com/chxlky/trello-mimecast-notifier/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// Notifier runs the notification pipeline for one qualifying transition.
type Notifier interface {
	Dispatch(ctx context.Context, t notify.Transition)
}

type Handler struct {
	Notifier Notifier
	Verifier integrations.WebhookVerifier
	Logger   *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.RootHandler)
	r.GET("/health", h.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	for _, path := range []string{"/webhook", "/trello-webhook"} {
		r.HEAD(path, h.TrelloWebhookHandler)
		r.POST(path, h.TrelloWebhookHandler)
	}
}

func (h *Handler) RootHandler(c *gin.Context) {
	c.String(http.StatusOK, "Server is alive")
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TrelloWebhookHandler always answers 200: any other status makes Trello
// retry the delivery and eventually disable the webhook.
func (h *Handler) TrelloWebhookHandler(c *gin.Context) {
	log := h.logger()

	// Trello validates the callback URL with a HEAD request
	if c.Request.Method != http.MethodPost {
		log.Debug("Received non-POST request to webhook endpoint; responding with 200 OK",
			zap.String("method", c.Request.Method))
		c.Status(http.StatusOK)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	raw, err := c.GetRawData()
	if err != nil {
		log.Warn("Could not read webhook body", zap.Error(err))
		c.String(http.StatusOK, "OK")
		return
	}

	if h.Verifier.Enabled() {
		if err := h.Verifier.Verify(raw, c.GetHeader(integrations.TrelloSignatureHeader)); err != nil {
			log.Warn("Rejected webhook with invalid signature", zap.Error(err))
			c.String(http.StatusOK, "OK")
			return
		}
	}

	var payload models.TrelloWebhookPayload
	if err := binding.JSON.BindBody(raw, &payload); err != nil {
		log.Info("Could not bind JSON payload - likely empty POST request", zap.Error(err))
		c.String(http.StatusOK, "OK")
		return
	}

	classification := notify.Classify(&payload)
	if !classification.Qualifying {
		log.Debug("Ignoring webhook event", zap.String("reason", classification.Reason))
		c.String(http.StatusOK, "OK")
		return
	}

	log.Info("Webhook received",
		zap.String("cardID", classification.Transition.CardID),
		zap.String("from", classification.Transition.ListBefore),
		zap.String("to", classification.Transition.ListAfter),
	)

	if h.Notifier != nil {
		// the send must finish even if Trello drops the connection
		h.Notifier.Dispatch(context.WithoutCancel(c.Request.Context()), classification.Transition)
	}
	c.String(http.StatusOK, "OK")
}
