package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"prepforge/interview/internal/events"
	"prepforge/interview/internal/managers"
	"prepforge/interview/internal/models"
)

// Authorizer re-validates a room join against the durable interview record.
type Authorizer interface {
	AuthorizeRoom(ctx context.Context, caller models.Principal, roomID string) (*models.Interview, error)
}

type HubOptions struct {
	Shards              int
	MaxParticipants     int
	AllowAdminObservers bool
	AuthTimeout         time.Duration
}

// Hub routes inbound real-time frames to the registry, relay and broadcaster.
// Frames from one connection are handled in arrival order by that connection's reader.
type Hub struct {
	registry    *Registry
	relay       *Relay
	broadcaster *Broadcaster
	auth        Authorizer
	opts        HubOptions
	logger      *zap.Logger
	now         func() time.Time
}

func NewHub(auth Authorizer, presence *Presence, opts HubOptions, logger *zap.Logger) *Hub {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 5 * time.Second
	}
	logger = logger.Named("session")

	b := &Broadcaster{presence: presence, logger: logger}
	reg := NewRegistry(RegistryOptions{
		Shards:          opts.Shards,
		MaxParticipants: opts.MaxParticipants,
		Notifier:        b,
	})
	b.registry = reg

	return &Hub{
		registry:    reg,
		relay:       &Relay{registry: reg, logger: logger},
		broadcaster: b,
		auth:        auth,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

// HandleFrame processes one raw inbound frame from conn.
func (h *Hub) HandleFrame(ctx context.Context, conn *Connection, raw []byte) {
	msg, err := models.ParseInbound(raw)
	if err != nil {
		h.logger.Debug("rejected frame", zap.String("connection_id", conn.ID), zap.Error(err))
		h.replyError(conn, "bad_request", err.Error())
		return
	}

	switch m := msg.(type) {
	case models.JoinRoom:
		h.join(ctx, conn, m.RoomID)
	case models.LeaveRoom:
		h.leave(conn)
	case models.Signal:
		if err := h.relay.Forward(conn, m); errors.Is(err, ErrNotInRoom) {
			h.replyError(conn, "not_in_room", "join a room before signaling")
		}
	case models.ChatMessage:
		roomID, ok := h.registry.RoomOf(conn.ID)
		if !ok {
			h.replyError(conn, "not_in_room", "join a room before chatting")
			return
		}
		h.broadcaster.Chat(roomID, conn, m.Message, h.now())
	case models.ScreenShare:
		roomID, ok := h.registry.RoomOf(conn.ID)
		if !ok {
			h.replyError(conn, "not_in_room", "join a room before sharing a screen")
			return
		}
		h.broadcaster.ScreenShare(roomID, conn, m.Active)
	}
}

func (h *Hub) join(ctx context.Context, conn *Connection, roomID string) {
	actx, cancel := context.WithTimeout(ctx, h.opts.AuthTimeout)
	defer cancel()

	iv, err := h.auth.AuthorizeRoom(actx, conn.Principal, roomID)
	if err != nil {
		code, message := classify(err)
		if code == "internal" {
			h.logger.Error("room authorization failed", zap.String("room_id", roomID), zap.Error(err))
		}
		h.replyError(conn, code, message)
		return
	}

	exempt := conn.Principal.IsAdmin() && h.opts.AllowAdminObservers
	joined, err := h.registry.Register(conn, roomID, exempt)
	if errors.Is(err, ErrRoomFull) {
		h.replyError(conn, "room_full", "room has reached its participant limit")
		return
	}
	if !joined {
		return
	}
	h.logger.Info("joined room",
		zap.String("room_id", roomID),
		zap.String("user_id", conn.UserID()),
		zap.String("connection_id", conn.ID))

	// A completion committed between the check and Register was broadcast before this
	// connection was a member. Only complete leaves IN_PROGRESS, so the room has ended.
	if _, err := h.auth.AuthorizeRoom(actx, conn.Principal, roomID); errors.Is(err, managers.ErrConflict) {
		h.logger.Info("room ended while joining",
			zap.String("room_id", roomID),
			zap.String("connection_id", conn.ID))
		if frame, err := models.EncodeFrame(models.FrameInterviewEnded, models.InterviewStateEvent{
			InterviewID: iv.ID,
			RoomID:      roomID,
			Status:      models.StatusCompleted,
			Timestamp:   h.now(),
		}); err == nil {
			_ = conn.Send(frame)
		}
		h.leave(conn)
	}
}

func (h *Hub) leave(conn *Connection) {
	if roomID, ok := h.registry.Unregister(conn.ID); ok {
		h.logger.Info("left room",
			zap.String("room_id", roomID),
			zap.String("user_id", conn.UserID()),
			zap.String("connection_id", conn.ID))
	}
}

// Disconnect handles a transport close. It is idempotent with an earlier leave-room:
// whichever comes first produces the single user-left broadcast.
func (h *Hub) Disconnect(conn *Connection) {
	h.leave(conn)
	conn.Close()
}

// Shutdown closes every connection that is in a room.
func (h *Hub) Shutdown() {
	if n := h.registry.CloseAll(); n > 0 {
		h.logger.Info("closed live connections", zap.Int("count", n))
	}
}

// HandleEvent mirrors lifecycle transitions into the interview's room.
func (h *Hub) HandleEvent(_ context.Context, e events.Event) error {
	var frameType string
	switch e.Type {
	case events.InterviewStarted:
		frameType = models.FrameInterviewStarted
	case events.InterviewCompleted:
		frameType = models.FrameInterviewEnded
	case events.InterviewCancelled, events.InterviewDeclined:
		frameType = models.FrameInterviewCancelled
	default:
		return nil
	}
	h.broadcaster.InterviewState(frameType, models.InterviewStateEvent{
		InterviewID: e.InterviewID,
		RoomID:      e.RoomID,
		Status:      e.Status,
		Timestamp:   e.OccurredAt,
	})
	return nil
}

func (h *Hub) replyError(conn *Connection, code, message string) {
	frame, err := models.EncodeFrame(models.FrameError, models.ErrorEvent{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = conn.Send(frame)
}

func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, managers.ErrNotFound):
		return "not_found", "room not found"
	case errors.Is(err, managers.ErrUnauthorized):
		return "forbidden", "not a participant of this interview"
	case errors.Is(err, managers.ErrConflict):
		return "conflict", "interview is not in progress"
	default:
		return "internal", "could not verify room access"
	}
}
