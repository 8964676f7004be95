package session

import (
	"time"

	"go.uber.org/zap"

	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/models"
)

// Broadcaster fans presence, chat and screen-share events out to room members.
// Every send is a non-blocking enqueue; failures only degrade the live experience.
type Broadcaster struct {
	registry *Registry
	presence *Presence
	logger   *zap.Logger
}

func (b *Broadcaster) MemberJoined(m *Member, peers []*Member) {
	participants := make([]models.Participant, 0, len(peers))
	for _, p := range peers {
		participants = append(participants, p.Participant())
	}
	if frame, err := models.EncodeFrame(models.FrameRoomJoined, models.RoomJoinedEvent{
		RoomID:       m.RoomID,
		ConnectionID: m.Conn.ID,
		Participants: participants,
	}); err == nil {
		b.send(m.Conn, frame)
	}

	joined, err := models.EncodeFrame(models.FrameUserJoined, models.UserJoinedEvent{
		UserID:       m.Conn.UserID(),
		ConnectionID: m.Conn.ID,
	})
	if err != nil {
		b.logger.Error("encode user-joined", zap.Error(err))
		return
	}
	for _, p := range peers {
		b.send(p.Conn, joined)
	}
	b.presence.Publish(PresenceJoined, m)
}

func (b *Broadcaster) MemberLeft(m *Member, remaining []*Member) {
	left, err := models.EncodeFrame(models.FrameUserLeft, models.UserLeftEvent{
		UserID:       m.Conn.UserID(),
		ConnectionID: m.Conn.ID,
	})
	if err != nil {
		b.logger.Error("encode user-left", zap.Error(err))
		return
	}
	for _, p := range remaining {
		b.send(p.Conn, left)
	}
	b.presence.Publish(PresenceLeft, m)
}

// Chat goes to the whole room including the sender, stamped with the server time.
func (b *Broadcaster) Chat(roomID string, from *Connection, message string, at time.Time) int {
	frame, err := models.EncodeFrame(models.FrameChatMessage, models.ChatEvent{
		UserID:    from.UserID(),
		Message:   message,
		Timestamp: at.UTC(),
	})
	if err != nil {
		b.logger.Error("encode chat", zap.Error(err))
		return 0
	}
	return b.registry.Broadcast(roomID, "", frame)
}

// ScreenShare toggles go to everyone in the room but the sender.
func (b *Broadcaster) ScreenShare(roomID string, from *Connection, active bool) int {
	frameType := models.FrameScreenShareStopped
	if active {
		frameType = models.FrameScreenShareStarted
	}
	frame, err := models.EncodeFrame(frameType, models.ScreenShareEvent{UserID: from.UserID()})
	if err != nil {
		return 0
	}
	return b.registry.Broadcast(roomID, from.ID, frame)
}

// InterviewState announces a lifecycle change to everyone in the interview's room.
func (b *Broadcaster) InterviewState(frameType string, e models.InterviewStateEvent) int {
	frame, err := models.EncodeFrame(frameType, e)
	if err != nil {
		return 0
	}
	return b.registry.Broadcast(e.RoomID, "", frame)
}

func (b *Broadcaster) send(conn *Connection, frame []byte) {
	if err := conn.Send(frame); err != nil {
		metrics.MessageDropped("slow_consumer")
		b.logger.Debug("dropped frame", zap.String("connection_id", conn.ID), zap.Error(err))
	}
}
