package notify

import (
	"context"
	"strings"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/apperr"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout       = 10 * time.Second
	defaultOnboardingTimeout = 5 * time.Second
)

// BoardClient reads cards and members from the board API.
type BoardClient interface {
	GetCard(ctx context.Context, id string) (models.Card, error)
	GetMember(ctx context.Context, id string) (models.Member, error)
}

// EmailSender submits one signed send-email call. A non-nil response may
// accompany a partial delivery error.
type EmailSender interface {
	SendEmail(ctx context.Context, msg models.EmailMessage) (models.SendEmailResponse, error)
}

type Onboarder interface {
	TriggerOnboarding(ctx context.Context, event models.OnboardingEvent) error
}

type DispatcherConfig struct {
	Recipient         models.EmailAddress
	Sender            models.EmailAddress
	Location          *time.Location
	SendTimeout       time.Duration
	OnboardingTimeout time.Duration
}

// Dispatcher turns a qualifying transition into an email. Every step handles
// its own failures; nothing is returned to the webhook caller.
type Dispatcher struct {
	board     BoardClient
	email     EmailSender
	onboarder Onboarder
	config    DispatcherConfig
	logger    *zap.Logger
}

func NewDispatcher(logger *zap.Logger, board BoardClient, email EmailSender, onboarder Onboarder, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.OnboardingTimeout <= 0 {
		cfg.OnboardingTimeout = defaultOnboardingTimeout
	}
	return &Dispatcher{
		board:     board,
		email:     email,
		onboarder: onboarder,
		config:    cfg,
		logger:    logger.Named("dispatcher"),
	}
}

// Dispatch runs the notification pipeline for t. Panics are recovered and
// logged so a bad event can never take the server down.
func (d *Dispatcher) Dispatch(ctx context.Context, t Transition) {
	var pc panics.Catcher
	pc.Try(func() { d.dispatch(ctx, t) })
	if r := pc.Recovered(); r != nil {
		dispatchTotal.WithLabelValues(outcomePanic).Inc()
		d.logger.Error("Recovered from panic while dispatching notification",
			zap.String("cardID", t.CardID),
			zap.Error(r.AsError()),
			zap.ByteString("stack", r.Stack),
		)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, t Transition) {
	log := d.logger.With(zap.String("cardID", t.CardID))

	card, err := d.board.GetCard(ctx, t.CardID)
	if err != nil {
		dispatchTotal.WithLabelValues(outcomeCardFetchFailed).Inc()
		log.Error("Failed to fetch full card data; skipping notification", zap.Error(err))
		return
	}
	if card.Name == "" {
		card.Name = t.CardName
	}

	log.Info("Card moved",
		zap.String("card", card.Name),
		zap.String("from", t.ListBefore),
		zap.String("to", t.ListAfter),
	)

	outcome := Compose(t.ListBefore, t.ListAfter)
	n := Notification{
		CardName:   card.Name,
		ListBefore: t.ListBefore,
		ListAfter:  t.ListAfter,
		DueDate:    FormatDueDate(card.Due, d.config.Location),
		Members:    FormatMembers(d.memberNames(ctx, log, card.IDMembers)),
		Message:    TransitionMessage(t.ListBefore, t.ListAfter, outcome),
		CardURL:    card.URL(),
	}

	if outcome.TriggersOnboarding {
		d.triggerOnboarding(ctx, models.OnboardingEvent{
			CardID:     t.CardID,
			CardName:   card.Name,
			CardURL:    n.CardURL,
			ListBefore: t.ListBefore,
			ListAfter:  t.ListAfter,
		})
	}

	d.send(ctx, log, n)
}

// memberNames resolves every id concurrently. A failed lookup becomes an
// "Unknown (id)" entry and never affects its siblings.
func (d *Dispatcher) memberNames(ctx context.Context, log *zap.Logger, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return iter.Map(ids, func(id *string) string {
		member, err := d.board.GetMember(ctx, *id)
		if err != nil {
			memberLookupFailures.Inc()
			log.Warn("Member lookup failed", zap.String("memberID", *id), zap.Error(err))
			return UnknownMember(*id)
		}
		if name := strings.TrimSpace(member.FullName); name != "" {
			return name
		}
		if name := strings.TrimSpace(member.Username); name != "" {
			return name
		}
		return UnknownMember(*id)
	})
}

// triggerOnboarding starts the onboarding call in the background. It outlives
// the webhook request and only ever logs its result.
func (d *Dispatcher) triggerOnboarding(ctx context.Context, event models.OnboardingEvent) {
	if d.onboarder == nil {
		return
	}
	onboardingTotal.WithLabelValues("triggered").Inc()
	detached := context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(detached, d.config.OnboardingTimeout)
		defer cancel()

		var pc panics.Catcher
		pc.Try(func() {
			if err := d.onboarder.TriggerOnboarding(ctx, event); err != nil {
				onboardingTotal.WithLabelValues("failed").Inc()
				d.logger.Warn("Onboarding trigger failed",
					zap.String("cardID", event.CardID),
					zap.Error(err),
				)
			}
		})
		if r := pc.Recovered(); r != nil {
			onboardingTotal.WithLabelValues("failed").Inc()
			d.logger.Error("Recovered from panic in onboarding trigger",
				zap.String("cardID", event.CardID),
				zap.Error(r.AsError()),
			)
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, log *zap.Logger, n Notification) {
	html, err := n.HTML()
	if err != nil {
		dispatchTotal.WithLabelValues(outcomeRenderFailed).Inc()
		log.Error("Failed to render email", zap.Error(err))
		return
	}

	msg := models.EmailMessage{
		To:       []models.EmailAddress{d.config.Recipient},
		From:     d.config.Sender,
		Subject:  n.Subject(),
		HTMLBody: &models.EmailBody{Content: html},
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.SendTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.email.SendEmail(ctx, msg)
	emailSendDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		dispatchTotal.WithLabelValues(outcomeSent).Inc()
		log.Info("Email accepted with no delivery errors", zap.Int("status", resp.Meta.Status))
	case apperr.IsPartialDelivery(err):
		dispatchTotal.WithLabelValues(outcomePartial).Inc()
		rejectedRecipients.Add(float64(len(resp.Fail)))
		for i, failure := range resp.Fail {
			log.Warn("Email recipient rejected",
				zap.Int("index", i),
				zap.ByteString("key", failure.Key),
				zap.Any("errors", failure.Errors),
			)
		}
	case apperr.IsCredential(err):
		dispatchTotal.WithLabelValues(outcomeCredential).Inc()
		log.Error("Email not sent: request could not be signed", zap.Error(err))
	default:
		dispatchTotal.WithLabelValues(outcomeSendFailed).Inc()
		log.Error("Email send failed", zap.Error(err))
	}
}
