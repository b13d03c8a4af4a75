package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeysting/honeysting/internal/alert"
	"github.com/honeysting/honeysting/internal/models"
)

func notification() *alert.Notification {
	return &alert.Notification{
		RunID:     "run-1",
		EventType: models.EventTypeLoginAttempt,
		SrcIP:     "1.2.3.4",
		Country:   "Canada",
		DstPort:   22,
		Username:  "root",
		Password:  "toor",
		Timestamp: "2026-08-01T03:15:09Z",
	}
}

func TestWebhookChannel_Send(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := alert.NewWebhookChannel(srv.URL, 5*time.Second)
	assert.Equal(t, "webhook", ch.Type())

	require.NoError(t, ch.Send(context.Background(), notification()))
	assert.Equal(t, "1.2.3.4", received["src_ip"])
	assert.Equal(t, "login_attempt", received["event_type"])
	assert.Equal(t, float64(22), received["dst_port"])
	assert.Equal(t, "root", received["username"])
}

func TestWebhookChannel_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := alert.NewWebhookChannel(srv.URL, 5*time.Second)
	err := ch.Send(context.Background(), notification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookChannel_Unreachable(t *testing.T) {
	ch := alert.NewWebhookChannel("http://127.0.0.1:1", 500*time.Millisecond)
	require.Error(t, ch.Send(context.Background(), notification()))
}

func TestSlackChannel_Send(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := alert.NewSlackChannel(srv.URL, 5*time.Second)
	assert.Equal(t, "slack", ch.Type())

	require.NoError(t, ch.Send(context.Background(), notification()))
	assert.Contains(t, payload["text"], "1.2.3.4")
	require.NotEmpty(t, payload["attachments"])
}
