package session

import (
	"fmt"

	"go.uber.org/zap"

	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/models"
)

// Relay forwards signaling payloads between two members of the same room.
// The payload is never inspected.
type Relay struct {
	registry *Registry
	logger   *zap.Logger
}

// Forward delivers sig from its sender to sig.To. A target that is not a member of the
// sender's room is dropped with ErrTransportDropped; callers log it and move on.
func (r *Relay) Forward(from *Connection, sig models.Signal) error {
	roomID, ok := r.registry.RoomOf(from.ID)
	if !ok {
		metrics.MessageDropped("sender_not_in_room")
		return ErrNotInRoom
	}
	if sig.To == from.ID {
		metrics.MessageDropped("self_addressed")
		return fmt.Errorf("%w: %s addressed to sender", ErrTransportDropped, sig.Kind)
	}

	frame, err := models.EncodeSignal(sig.Kind, from.ID, sig.Payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sig.Kind, err)
	}
	if err := r.registry.SendTo(roomID, sig.To, frame); err != nil {
		metrics.MessageDropped("target_unreachable")
		r.logger.Info("signal dropped",
			zap.String("kind", sig.Kind),
			zap.String("room_id", roomID),
			zap.String("from", from.ID),
			zap.String("to", sig.To),
			zap.Error(err))
		return ErrTransportDropped
	}
	metrics.SignalRelayed(sig.Kind)
	return nil
}
