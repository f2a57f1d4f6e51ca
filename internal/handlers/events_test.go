package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/case-engine/internal/services/events"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type sseEvent struct {
	name string
	data string
}

// readEvent reads lines until a full event; keepalive comments are skipped.
func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			return ev
		}
	}
}

func TestEventsHandler_StreamsSessionEvents(t *testing.T) {
	client := setupTestRedis(t)
	server := httptest.NewServer(NewEventsHandler(client, testLogger()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events/session/s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	connected := readEvent(t, body)
	assert.Equal(t, "connected", connected.name)
	assert.Contains(t, connected.data, `"session_id":"s1"`)

	b := events.NewBroadcaster(client, testLogger())
	require.NoError(t, b.PublishDialogueEnded(ctx, "other", "cop2"))
	require.NoError(t, b.PublishVerdict(ctx, "s1", "cop2", "assault", true))

	ev := readEvent(t, body)
	assert.Equal(t, string(events.EventTypeVerdict), ev.name)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(ev.data), &data))
	assert.Equal(t, "cop2", data["suspect_id"])
	assert.Equal(t, true, data["correct"])
}

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(setupTestRedis(t), testLogger())

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"wrong method", http.MethodPost, "/v1/events/session/s1", http.StatusMethodNotAllowed},
		{"missing id", http.MethodGet, "/v1/events/session/", http.StatusBadRequest},
		{"wrong prefix", http.MethodGet, "/v1/events/gamestate/s1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}
