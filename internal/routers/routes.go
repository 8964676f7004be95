package routers

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"prepforge/interview/internal/handlers"
	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/middleware"
	"prepforge/interview/internal/models"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Interview *handlers.InterviewHandler
	Socket    *handlers.SocketHandler
	Health    *handlers.HealthHandler
	WebRTC    *handlers.WebRTCHandler
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewRouter(h Handlers, opts Options) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Logger, chimiddleware.Recoverer)
	router.Use(metrics.Middleware("live-interview"))

	HealthRoutes(router, h.Health)
	router.Handle("/metrics", metrics.Handler())

	// Socket connections are long lived, so only the REST routes get a request timeout.
	router.Get("/ws", h.Socket.InterviewSocket)

	router.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
		InterviewRoutes(r, h.Interview)
		DashboardRoutes(r, h.Interview)
		r.Get("/api/webrtc/config", h.WebRTC.ConfigHandler)
	})

	return router
}

func HealthRoutes(router chi.Router, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
}

func InterviewRoutes(router chi.Router, h *handlers.InterviewHandler) {
	router.Route("/api/live-interviews", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.ScheduleRequest]()).Post("/", h.ScheduleHandler)
		r.Get("/", h.ListHandler)
		r.Get("/{id}", h.GetHandler)
		r.Post("/{id}/join", h.JoinHandler)
		r.Post("/{id}/complete", h.CompleteHandler)
		r.Post("/{id}/cancel", h.CancelHandler)
	})
}

func DashboardRoutes(router chi.Router, h *handlers.InterviewHandler) {
	router.Route("/api/dashboard/interviewer/requests", func(r chi.Router) {
		r.Get("/", h.PendingRequestsHandler)
		r.Post("/{id}/accept", h.AcceptHandler)
		r.Post("/{id}/decline", h.DeclineHandler)
	})
}
