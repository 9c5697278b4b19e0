package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	origin, err := url.Parse(server.URL)
	require.NoError(t, err)
	return NewClient(origin, 5*time.Second)
}

func TestClientAgainstSimulator(t *testing.T) {
	sim := simulator.NewServer(0)
	sim.SetRecordings([]string{"nod", "shy"})
	c := newTestClient(t, sim.Handler())
	ctx := context.Background()

	require.NoError(t, c.SetSolidColor(ctx, 1, 2, 3))
	assert.Equal(t, messages.RGB{R: 1, G: 2, B: 3}, sim.Color())

	names, err := c.Recordings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nod", "shy"}, names)

	require.NoError(t, c.PlayRecording(ctx, "nod"))

	reply, err := c.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.UserInput)
	assert.Equal(t, "You said: hello", reply.AIResponse)

	sim.AddConversation(messages.InputVoice, "second", "reply")
	conversations, err := c.Conversations(ctx, 20)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "second", conversations[0].UserInput, "newest first")
	assert.Equal(t, messages.InputVoice, conversations[0].InputType)

	// The simulator records a call after its response is written
	var entry messages.AuditLog
	require.Eventually(t, func() bool {
		logs, err := c.AuditLogs(ctx, 50)
		if err != nil {
			return false
		}
		for _, l := range logs {
			if l.Endpoint == messages.PathConversations {
				entry = l
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, http.MethodGet, entry.Method)
	assert.Equal(t, http.StatusOK, entry.Response.StatusCode)
}

func TestClientNon2xxIsServerError(t *testing.T) {
	sim := simulator.NewServer(0)
	sim.Fail(messages.PathConversations, http.StatusServiceUnavailable)
	c := newTestClient(t, sim.Handler())

	_, err := c.Conversations(context.Background(), 20)
	assert.ErrorIs(t, err, ErrServer)
}

func TestClientErrorBodyIsServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+messages.PathConversations, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"database locked","conversations":[]}`))
	})
	mux.HandleFunc("POST "+messages.PathChat, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","error":"model unavailable"}`))
	})
	c := newTestClient(t, mux)

	_, err := c.Conversations(context.Background(), 20)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "database locked")

	_, err = c.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrServer)
}

func TestClientSendsLimitAndRequestID(t *testing.T) {
	var gotLimit, gotRequestID string
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+messages.PathAuditLogs, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"logs":[]}`))
	})
	c := newTestClient(t, mux)

	logs, err := c.AuditLogs(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, "50", gotLimit)
	assert.Len(t, gotRequestID, 36)
}

func TestClientUnreachableServer(t *testing.T) {
	origin, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)
	c := NewClient(origin, time.Second)

	err = c.SetSolidColor(context.Background(), 0, 0, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServer)
}
