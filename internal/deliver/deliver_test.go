package deliver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slack-summarizer/internal/summary"
)

func TestWebhookDeliver(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/commands/T1/123/secret", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(time.Second)
	err := wh.Deliver(context.Background(), Message{Target: srv.URL + "/commands/T1/123/secret", Text: "*Summary:*\nhello"})
	require.NoError(t, err)
	assert.Equal(t, "ephemeral", got["response_type"])
	assert.Equal(t, "*Summary:*\nhello", got["text"])
	// slack.WebhookMessage also sends replace_original and delete_original, both false.
	for key, value := range got {
		if key != "response_type" && key != "text" {
			assert.Equal(t, false, value, key)
		}
	}
}

func TestWebhookDeliverFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		target string
	}{
		{"empty target", ""},
		{"non 2xx response", failing.URL + "/hook"},
		{"unreachable", closedURL + "/hook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWebhook(time.Second).Deliver(context.Background(), Message{Target: tt.target, Text: "x"})
			require.Error(t, err)
			assert.Equal(t, summary.DeliveryFailed, summary.KindOf(err))

			var derr *summary.Error
			require.ErrorAs(t, err, &derr)
			assert.NotContains(t, derr.Detail, "/hook")
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://hooks.slack.com", redact("https://hooks.slack.com/commands/T/1/abc"))
	assert.Equal(t, "callback", redact("::not a url"))
}

func TestSlackPoster(t *testing.T) {
	var posted struct {
		channel, text string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth.test":
			_, _ = w.Write([]byte(`{"ok":true,"user":"reminder-bot","team":"T1","user_id":"U1"}`))
		case "/chat.postMessage":
			require.NoError(t, r.ParseForm())
			posted.channel = r.PostForm.Get("channel")
			posted.text = r.PostForm.Get("text")
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
		}
	}))
	defer srv.Close()

	p := NewSlackPoster("xoxb-test", srv.URL+"/")

	user, err := p.AuthTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reminder-bot", user)

	require.NoError(t, p.Post(context.Background(), "C1", "Stay hydrated!"))
	assert.Equal(t, "C1", posted.channel)
	assert.Equal(t, "Stay hydrated!", posted.text)

	require.Error(t, p.Post(context.Background(), "", "x"))
}

func TestSlackPosterAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
	}))
	defer srv.Close()

	p := NewSlackPoster("xoxb-bad", srv.URL+"/")
	_, err := p.AuthTest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
	require.Error(t, p.Post(context.Background(), "C1", "x"))
}
