package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prepforge/interview/internal/metrics"
)

// PresenceChannel mirrors join/leave activity so other instances and services can follow rooms.
const PresenceChannel = "live_interview_presence"

const (
	PresenceJoined = "user-joined"
	PresenceLeft   = "user-left"
)

type PresenceEvent struct {
	Type         string    `json:"type"`
	RoomID       string    `json:"roomId"`
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	InstanceID   string    `json:"instanceId"`
	Timestamp    time.Time `json:"timestamp"`
}

// Presence publishes local membership changes to redis and logs changes made on other
// instances. Room state stays per process; the mirror is informational. A nil *Presence
// is valid and does nothing.
type Presence struct {
	rdb        *redis.Client
	instanceID string
	queue      chan PresenceEvent
	logger     *zap.Logger
}

func NewPresence(rdb *redis.Client, instanceID string, bufferSize int, logger *zap.Logger) *Presence {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Presence{
		rdb:        rdb,
		instanceID: instanceID,
		queue:      make(chan PresenceEvent, bufferSize),
		logger:     logger.Named("presence"),
	}
}

func (p *Presence) InstanceID() string {
	if p == nil {
		return ""
	}
	return p.instanceID
}

// Publish queues a presence change without blocking.
func (p *Presence) Publish(eventType string, m *Member) {
	if p == nil {
		return
	}
	e := PresenceEvent{
		Type:         eventType,
		RoomID:       m.RoomID,
		UserID:       m.Conn.UserID(),
		ConnectionID: m.Conn.ID,
		InstanceID:   p.instanceID,
		Timestamp:    time.Now().UTC(),
	}
	select {
	case p.queue <- e:
	default:
		metrics.MessageDropped("presence_queue_full")
	}
}

// Run publishes queued events and follows the channel until ctx is cancelled.
func (p *Presence) Run(ctx context.Context) {
	if p == nil {
		return
	}
	pubsub := p.rdb.Subscribe(ctx, PresenceChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	p.logger.Info("presence mirror started", zap.String("instance_id", p.instanceID))
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			if err := p.publish(ctx, e); err != nil {
				p.logger.Warn("presence publish failed", zap.Error(err))
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			p.handleRemote(msg.Payload)
		}
	}
}

func (p *Presence) publish(ctx context.Context, e PresenceEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}
	return p.rdb.Publish(ctx, PresenceChannel, data).Err()
}

func (p *Presence) handleRemote(payload string) {
	var e PresenceEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		p.logger.Warn("invalid presence event", zap.Error(err))
		return
	}
	if e.InstanceID == p.instanceID {
		return
	}
	p.logger.Debug("remote presence",
		zap.String("instance_id", e.InstanceID),
		zap.String("type", e.Type),
		zap.String("room_id", e.RoomID),
		zap.String("user_id", e.UserID))
}
