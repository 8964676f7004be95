package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"prepforge/interview/internal/handlers"
)

func newTestRouter() *chi.Mux {
	logger := zap.NewNop()
	return NewRouter(Handlers{
		Interview: handlers.NewInterviewHandler(nil, logger),
		Socket:    handlers.NewSocketHandler(nil, "secret", 8, []string{"*"}, logger),
		Health:    handlers.NewHealthHandler(nil, nil),
		WebRTC:    handlers.NewWebRTCHandler(webrtc.Configuration{}),
	}, Options{JWTSecret: "secret", CORSOrigins: []string{"http://localhost:5173"}, Logger: logger})
}

func TestNewRouterRegistersEndpoints(t *testing.T) {
	router := newTestRouter()

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}

	expected := []string{
		"GET /healthz",
		"GET /readyz",
		"GET /ws",
		"GET /api/webrtc/config",
		"POST /api/live-interviews/",
		"GET /api/live-interviews/",
		"GET /api/live-interviews/{id}",
		"POST /api/live-interviews/{id}/join",
		"POST /api/live-interviews/{id}/complete",
		"POST /api/live-interviews/{id}/cancel",
		"GET /api/dashboard/interviewer/requests/",
		"POST /api/dashboard/interviewer/requests/{id}/accept",
		"POST /api/dashboard/interviewer/requests/{id}/decline",
	}
	for _, route := range expected {
		if !paths[route] {
			t.Fatalf("expected route %s to be registered, have %v", route, paths)
		}
	}
}

func TestRouterAuthAndPublicRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/live-interviews", http.StatusUnauthorized},
		{http.MethodGet, "/api/webrtc/config", http.StatusUnauthorized},
		{http.MethodPost, "/api/dashboard/interviewer/requests/abc/accept", http.StatusUnauthorized},
		{http.MethodGet, "/ws", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
		}
	}
}
