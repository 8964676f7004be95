package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"prepforge/interview/internal/config"
	"prepforge/interview/internal/events"
	"prepforge/interview/internal/handlers"
	"prepforge/interview/internal/jobs"
	"prepforge/interview/internal/managers"
	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/models"
	"prepforge/interview/internal/notifications"
	"prepforge/interview/internal/repositories"
	"prepforge/interview/internal/routers"
	"prepforge/interview/internal/session"
	"prepforge/interview/internal/utils"
)

var (
	newLogger = utils.NewLogger
	gormOpen  = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	runAutoMigrate = func(db *gorm.DB, dst ...interface{}) error {
		return db.AutoMigrate(dst...)
	}
	httpListenServe = func(server *http.Server) error {
		return server.ListenAndServe()
	}
	signalContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	}
	dbConnectTimeout = 30 * time.Second
	shutdownTimeout  = 30 * time.Second
	exitFunc         = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "live-interview: %v\n", err)
		exitFunc(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := connectWithRetry(cfg.Database.DSN(), dbConnectTimeout, logger)
	if err != nil {
		return err
	}
	if err := runAutoMigrate(db, &models.Interview{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	repo := &repositories.InterviewRepository{DB: db}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Info("REDIS_ADDR not set, cross-service fan-out disabled")
	}

	bus := events.NewBus(cfg.Events.BufferSize, logger)
	bus.OnDrop = func(subscriber string) { metrics.MessageDropped("event_" + subscriber) }

	peerConfig := utils.PeerConfiguration(cfg.WebRTC)
	manager := managers.NewInterviewManager(repo, bus, managers.Options{
		ICEServers:          peerConfig.ICEServers,
		AllowAdminObservers: cfg.Rooms.AllowAdminObservers,
	}, logger)

	var presence *session.Presence
	if rdb != nil {
		presence = session.NewPresence(rdb, uuid.NewString(), cfg.Events.BufferSize, logger)
	}
	hub := session.NewHub(manager, presence, session.HubOptions{
		Shards:              cfg.Rooms.Shards,
		MaxParticipants:     cfg.Rooms.MaxParticipants,
		AllowAdminObservers: cfg.Rooms.AllowAdminObservers,
	}, logger)

	bus.Subscribe("session", hub)
	bus.Subscribe("notifications", notifications.NewService(newMailer(cfg.SMTP, logger), newDirectory(cfg.UserServiceURL), cfg.FrontendURL, logger))
	if rdb != nil {
		bus.Subscribe("redis", events.NewRedisPublisher(rdb))
	}

	ctx, stop := signalContext()
	defer stop()

	// The bus is stopped only after the HTTP server has drained.
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	busDone := make(chan struct{})
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()
	go presence.Run(ctx)

	reminders := jobs.NewReminderJob(manager, jobs.ReminderConfig{
		Enabled:  cfg.Reminder.Enabled,
		Schedule: cfg.Reminder.Schedule,
		LeadTime: cfg.Reminder.LeadTime,
	}, logger)
	if err := reminders.Start(); err != nil {
		stopBus()
		<-busDone
		return err
	}

	router := routers.NewRouter(routers.Handlers{
		Interview: handlers.NewInterviewHandler(manager, logger),
		Socket:    handlers.NewSocketHandler(hub, cfg.Auth.JWTSecret, cfg.Rooms.SendBufferSize, cfg.CORSOrigins, logger),
		Health:    handlers.NewHealthHandler(repo, rdb),
		WebRTC:    handlers.NewWebRTCHandler(peerConfig),
	}, routers.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("live interview service starting", zap.String("addr", server.Addr))
		serveErr <- httpListenServe(server)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("live interview service shutting down")
	}

	reminders.Stop()
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	stopBus()
	<-busDone
	logger.Info("live interview service exited")
	return runErr
}

// connectWithRetry keeps dialing the database until it answers a ping or timeout elapses.
func connectWithRetry(dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := gormOpen(dsn)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if dbErr = sqlDB.Ping(); dbErr == nil {
					return db, nil
				}
			}
			err = dbErr
		}
		lastErr = err
		if time.Now().After(deadline) {
			break
		}
		logger.Warn("database not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(250 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to connect to database: %w", lastErr)
}

func newMailer(cfg config.SMTP, logger *zap.Logger) notifications.Mailer {
	if cfg.Enabled() {
		return notifications.NewSMTPMailer(cfg)
	}
	logger.Info("SMTP not configured, notifications will only be logged")
	return notifications.NewLogMailer(logger)
}

func newDirectory(userServiceURL string) notifications.Directory {
	if userServiceURL == "" {
		return notifications.StaticDirectory{}
	}
	return notifications.NewHTTPDirectory(userServiceURL)
}
