package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSent            = "sent"
	outcomePartial         = "partial"
	outcomeCardFetchFailed = "card_fetch_failed"
	outcomeCredential      = "credential_error"
	outcomeSendFailed      = "send_failed"
	outcomeRenderFailed    = "render_failed"
	outcomePanic           = "panic"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trello_notifier_dispatch_total",
			Help: "Card move notifications by final outcome.",
		},
		[]string{"outcome"},
	)
	memberLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trello_notifier_member_lookup_failures_total",
			Help: "Member name lookups that fell back to a placeholder.",
		},
	)
	rejectedRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trello_notifier_rejected_recipients_total",
			Help: "Recipients the email API rejected on an otherwise accepted send.",
		},
	)
	onboardingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trello_notifier_onboarding_total",
			Help: "Onboarding flow triggers by status.",
		},
		[]string{"status"},
	)
	emailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trello_notifier_email_send_duration_seconds",
			Help:    "Duration of email API send calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)
