package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/integrations"
	"github.com/chxlky/trello-mimecast-notifier/internal/config"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"github.com/chxlky/trello-mimecast-notifier/internal/notify"
	"github.com/chxlky/trello-mimecast-notifier/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upstreams struct {
	trello     *httptest.Server
	mimecast   *httptest.Server
	onboarding *httptest.Server

	trelloHits     atomic.Int32
	mimecastHits   atomic.Int32
	onboardingHits atomic.Int32

	mu     sync.Mutex
	emails []models.SendEmailRequest
}

func newUpstreams(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.trello = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.trelloHits.Add(1)
		switch {
		case r.URL.Path == "/cards/card-1":
			_, _ = w.Write([]byte(`{"id":"card-1","name":"Fix login","shortLink":"abc123","due":null,"idMembers":["m1","m2","m3"]}`))
		case r.URL.Path == "/members/m2":
			http.Error(w, "not found", http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/members/"):
			id := strings.TrimPrefix(r.URL.Path, "/members/")
			_ = json.NewEncoder(w).Encode(models.Member{ID: id, FullName: "Member " + strings.ToUpper(id)})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.trello.Close)

	u.mimecast = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mimecastHits.Add(1)
		assert.True(t, strings.HasPrefix(r.Header.Get(signer.HeaderAuthorization), "MC app-123:"))
		var payload models.SendEmailRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		u.mu.Lock()
		u.emails = append(u.emails, payload)
		u.mu.Unlock()
		_, _ = w.Write([]byte(`{"meta":{"status":200},"fail":[]}`))
	}))
	t.Cleanup(u.mimecast.Close)

	u.onboarding = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.onboardingHits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(u.onboarding.Close)

	return u
}

func (u *upstreams) sentEmails() []models.SendEmailRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]models.SendEmailRequest(nil), u.emails...)
}

func (u *upstreams) router() http.Handler {
	logger := zap.NewNop()
	trello := integrations.NewTrelloClient(logger, config.TrelloConfig{
		BaseURL:  u.trello.URL,
		APIKey:   "key",
		APIToken: "token",
	})
	mimecast := integrations.NewMimecastClient(logger, u.mimecast.URL, signer.New("app-123", "signing-key"), time.Second)
	onboarding := integrations.NewOnboardingClient(logger, u.onboarding.URL, time.Second)

	dispatcher := notify.NewDispatcher(logger, trello, mimecast, onboarding, notify.DispatcherConfig{
		Recipient: models.EmailAddress{EmailAddress: "ops@example.com"},
		Sender:    models.EmailAddress{EmailAddress: "noreply@example.com"},
		Location:  time.UTC,
	})
	return newTestRouter(&Handler{Notifier: dispatcher, Logger: logger})
}

func moveBody(before, after string) string {
	return `{"action":{"type":"updateCard","data":{"card":{"id":"card-1"},` +
		`"listBefore":{"name":"` + before + `"},"listAfter":{"name":"` + after + `"}}}}`
}

func TestEndToEnd_CompletedToApproval(t *testing.T) {
	u := newUpstreams(t)

	rec := serve(u.router(), http.MethodPost, "/webhook", moveBody("Completed", "Approval"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	emails := u.sentEmails()
	require.Len(t, emails, 1)
	require.Len(t, emails[0].Data, 1)
	msg := emails[0].Data[0]
	assert.Equal(t, "Trello Update: Fix login", msg.Subject)
	require.NotNil(t, msg.HTMLBody)
	assert.Contains(t, msg.HTMLBody.Content, "- reopened for review\n")
	assert.Contains(t, msg.HTMLBody.Content, "Due Date: No due date")
	assert.Contains(t, msg.HTMLBody.Content, "Members: Member M1, Unknown (m2), Member M3")

	require.Eventually(t, func() bool { return u.onboardingHits.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return u.onboardingHits.Load() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestEndToEnd_ApprovalToCompleted(t *testing.T) {
	u := newUpstreams(t)

	rec := serve(u.router(), http.MethodPost, "/webhook", moveBody("Approval", "Completed"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	emails := u.sentEmails()
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Data[0].HTMLBody.Content, "- completed\n")
	assert.Never(t, func() bool { return u.onboardingHits.Load() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestEndToEnd_MalformedBodyMakesNoOutboundCalls(t *testing.T) {
	u := newUpstreams(t)

	rec := serve(u.router(), http.MethodPost, "/webhook", `{"model":{}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Zero(t, u.trelloHits.Load())
	assert.Zero(t, u.mimecastHits.Load())
	assert.Zero(t, u.onboardingHits.Load())
}

func TestEndToEnd_CardFetchFailureStillAcknowledges(t *testing.T) {
	u := newUpstreams(t)
	body := strings.Replace(moveBody("To Do", "Completed"), "card-1", "missing", 1)

	rec := serve(u.router(), http.MethodPost, "/webhook", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Zero(t, u.mimecastHits.Load())
}
