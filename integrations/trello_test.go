package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/internal/apperr"
	"github.com/chxlky/trello-mimecast-notifier/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTrelloClient(baseURL string) *TrelloClient {
	return NewTrelloClient(zap.NewNop(), config.TrelloConfig{
		BaseURL:     baseURL,
		APIKey:      "key-abc",
		APIToken:    "token-xyz",
		CallbackURL: "https://hooks.example.com/webhook",
	})
}

func TestTrelloClient_GetCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cards/card-1", r.URL.Path)
		assert.Equal(t, "key-abc", r.URL.Query().Get("key"))
		assert.Equal(t, "token-xyz", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"card-1","name":"Fix login","shortLink":"abc123","due":"2025-10-21T12:05:00.000Z","idMembers":["m1","m2"]}`))
	}))
	defer srv.Close()

	card, err := newTestTrelloClient(srv.URL).GetCard(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Equal(t, "Fix login", card.Name)
	assert.Equal(t, "https://trello.com/c/abc123", card.URL())
	assert.Equal(t, []string{"m1", "m2"}, card.IDMembers)
	require.NotNil(t, card.Due)
	assert.True(t, card.Due.Equal(time.Date(2025, time.October, 21, 12, 5, 0, 0, time.UTC)))
}

func TestTrelloClient_GetCardWithoutDueDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"card-1","name":"Fix login","due":null,"idMembers":[]}`))
	}))
	defer srv.Close()

	card, err := newTestTrelloClient(srv.URL).GetCard(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Nil(t, card.Due)
	assert.Empty(t, card.IDMembers)
}

func TestTrelloClient_GetMemberNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestTrelloClient(srv.URL).GetMember(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, apperr.IsUpstreamFetch(err))
	assert.NotContains(t, err.Error(), "token-xyz")
}

func TestTrelloClient_TransportErrorDoesNotLeakCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	_, err := newTestTrelloClient(baseURL).GetMember(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, apperr.IsUpstreamFetch(err))
	assert.NotContains(t, err.Error(), "token-xyz")
	assert.NotContains(t, err.Error(), "key-abc")
}

func TestTrelloClient_WebhookLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "/webhooks/", r.URL.Path)
			assert.Equal(t, "board-1", r.PostForm.Get("idModel"))
			assert.Equal(t, "https://hooks.example.com/webhook", r.PostForm.Get("callbackURL"))
			assert.Equal(t, "token-xyz", r.PostForm.Get("token"))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "wh-1"})
		case http.MethodDelete:
			assert.Equal(t, "/webhooks/wh-1", r.URL.Path)
			assert.Equal(t, "key-abc", r.URL.Query().Get("key"))
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	client := newTestTrelloClient(srv.URL)
	id, err := client.RegisterWebhook(context.Background(), "board-1")
	require.NoError(t, err)
	assert.Equal(t, "wh-1", id)
	require.NoError(t, client.DeleteWebhook(context.Background(), id))
}

func TestRedactURL(t *testing.T) {
	out := RedactURL("https://api.trello.com/1/cards/c1?key=abc&token=xyz")
	assert.NotContains(t, out, "abc")
	assert.NotContains(t, out, "xyz")
	assert.Contains(t, out, "/1/cards/c1")
	assert.Equal(t, "<invalid-url>", RedactURL("://bad"))
}
