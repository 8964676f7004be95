package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"prepforge/interview/internal/events"
	"prepforge/interview/internal/managers"
	"prepforge/interview/internal/middleware"
	"prepforge/interview/internal/models"
	"prepforge/interview/internal/repositories"
	"prepforge/interview/internal/session"
	"prepforge/interview/internal/testhelpers"
	"prepforge/interview/internal/utils"
)

const testSecret = "handler-secret"

var (
	candidate   = models.Principal{UserID: "cand-1", Role: models.RoleCandidate}
	interviewer = models.Principal{UserID: "int-1", Role: models.RoleInterviewer}
	stranger    = models.Principal{UserID: "someone", Role: models.RoleCandidate}
)

var iceServers = []webrtc.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}

type testEnv struct {
	db     *gorm.DB
	repo   *repositories.InterviewRepository
	hub    *session.Hub
	router *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	repo := &repositories.InterviewRepository{DB: db}
	logger := zap.NewNop()

	bus := events.NewBus(64, logger)
	mgr := managers.NewInterviewManager(repo, bus, managers.Options{ICEServers: iceServers, AllowAdminObservers: true}, logger)
	hub := session.NewHub(mgr, nil, session.HubOptions{Shards: 4}, logger)
	bus.Subscribe("session", hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bus.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	interviewHandler := NewInterviewHandler(mgr, logger)
	socketHandler := NewSocketHandler(hub, testSecret, 16, []string{"*"}, logger)

	router := chi.NewRouter()
	router.Get("/ws", socketHandler.InterviewSocket)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret, logger))
		r.With(middleware.ValidateRequest[*models.ScheduleRequest]()).Post("/api/live-interviews", interviewHandler.ScheduleHandler)
		r.Get("/api/live-interviews", interviewHandler.ListHandler)
		r.Get("/api/live-interviews/{id}", interviewHandler.GetHandler)
		r.Post("/api/live-interviews/{id}/join", interviewHandler.JoinHandler)
		r.Post("/api/live-interviews/{id}/complete", interviewHandler.CompleteHandler)
		r.Post("/api/live-interviews/{id}/cancel", interviewHandler.CancelHandler)
		r.Get("/api/dashboard/interviewer/requests", interviewHandler.PendingRequestsHandler)
		r.Post("/api/dashboard/interviewer/requests/{id}/accept", interviewHandler.AcceptHandler)
		r.Post("/api/dashboard/interviewer/requests/{id}/decline", interviewHandler.DeclineHandler)
	})

	return &testEnv{db: db, repo: repo, hub: hub, router: router}
}

func token(t *testing.T, p models.Principal) string {
	t.Helper()
	tok, err := utils.SignToken(p, testSecret, nil)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, p *models.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *p))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func scheduleBody(interviewerID string) map[string]any {
	body := map[string]any{
		"topic":         "Graphs",
		"interviewType": "technical",
		"scheduledAt":   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"duration":      60,
	}
	if interviewerID != "" {
		body["interviewerId"] = interviewerID
	}
	return body
}

// scheduleAccepted drives an interview to SCHEDULED over HTTP.
func (e *testEnv) scheduleAccepted(t *testing.T) models.Interview {
	t.Helper()
	rec := e.do(t, &candidate, http.MethodPost, "/api/live-interviews", scheduleBody(interviewer.UserID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	iv := decodeBody[models.Interview](t, rec)

	rec = e.do(t, &interviewer, http.MethodPost, "/api/dashboard/interviewer/requests/"+iv.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[models.Interview](t, rec)
}

func mustRaw(t *testing.T, rec *httptest.ResponseRecorder, field string) json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	raw, ok := body[field]
	require.True(t, ok, "missing field %s", field)
	return raw
}
