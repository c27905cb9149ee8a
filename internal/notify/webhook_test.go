package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsemon/pulsemon/internal/domain"
)

func TestWebhook_SendPostsJSON(t *testing.T) {
	var got webhookPayload
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(200)
	}))
	defer s.Close()

	wh := NewWebhook(2 * time.Second)
	id := uuid.New()
	detail, err := wh.Send(context.Background(), domain.NotificationSettings{WebhookURL: s.URL}, Payload{
		MonitorID:   id,
		MonitorName: "site",
		Status:      domain.StatusDown,
		Message:     "HTTP 503",
		Timestamp:   time.Now().UTC(),
	})

	require.NoError(t, err)
	assert.Equal(t, "HTTP 200", detail)
	assert.Equal(t, id.String(), got.MonitorID)
	assert.Equal(t, "site", got.MonitorName)
	assert.Equal(t, "DOWN", got.Status)
	assert.Equal(t, "HTTP 503", got.Message)
	assert.False(t, got.Test)
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", 401)
	}))
	defer s.Close()

	wh := NewWebhook(2 * time.Second)
	_, err := wh.Send(context.Background(), domain.NotificationSettings{WebhookURL: s.URL}, Payload{
		MonitorID: uuid.New(),
		Status:    domain.StatusUp,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWebhook_ConfiguredNeedsURL(t *testing.T) {
	wh := NewWebhook(time.Second)
	assert.False(t, wh.Configured(domain.NotificationSettings{}))
	assert.True(t, wh.Configured(domain.NotificationSettings{WebhookURL: "https://x"}))
}
