package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware("metrics-test"))
	r.Get("/api/live-interviews/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live-interviews/abc-123", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t)
	assert.Contains(t, body, `path="/api/live-interviews/{id}"`)
	assert.Contains(t, body, `status="418"`)
	assert.NotContains(t, body, "abc-123")
}

func TestDomainCounters(t *testing.T) {
	Transition("complete", "conflict")
	RoomOpened()
	SessionJoined()
	SignalRelayed("offer")
	MessageDropped("not_in_room")

	body := scrape(t)
	assert.Contains(t, body, `prepforge_live_lifecycle_transitions_total{outcome="conflict",transition="complete"}`)
	assert.Contains(t, body, `prepforge_live_signals_relayed_total{kind="offer"}`)
	assert.Contains(t, body, `prepforge_live_messages_dropped_total{reason="not_in_room"}`)
	assert.Contains(t, body, "prepforge_live_active_rooms 1")

	SessionLeft()
	RoomClosed()
	assert.Contains(t, scrape(t), "prepforge_live_active_rooms 0")
}

func TestResponseRecorderHijackUnsupported(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rec.Hijack()
	assert.Error(t, err)
}
