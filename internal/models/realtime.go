package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Inbound frame types accepted on the real-time channel.
const (
	FrameJoinRoom         = "join-room"
	FrameLeaveRoom        = "leave-room"
	FrameOffer            = "offer"
	FrameAnswer           = "answer"
	FrameICECandidate     = "ice-candidate"
	FrameChatMessage      = "chat-message"
	FrameStartScreenShare = "start-screen-share"
	FrameStopScreenShare  = "stop-screen-share"
)

// Outbound-only frame types.
const (
	FrameRoomJoined         = "room-joined"
	FrameUserJoined         = "user-joined"
	FrameUserLeft           = "user-left"
	FrameScreenShareStarted = "screen-share-started"
	FrameScreenShareStopped = "screen-share-stopped"
	FrameInterviewStarted   = "interview-started"
	FrameInterviewEnded     = "interview-ended"
	FrameInterviewCancelled = "interview-cancelled"
	FrameError              = "error"
)

const (
	MaxChatLength = 2000
	MaxRoomIDLen  = 128
	MaxFrameBytes = 64 * 1024
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the envelope for every message in both directions.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is the closed set of client messages. Only types in this file implement it.
type Inbound interface {
	inbound()
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

// Signal is an offer, answer or ice-candidate addressed to one connection.
// Payload is opaque and forwarded verbatim.
type Signal struct {
	Kind    string
	To      string
	Payload json.RawMessage
}

type ChatMessage struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ScreenShare struct {
	RoomID string `json:"roomId"`
	Active bool   `json:"-"`
}

func (JoinRoom) inbound()    {}
func (LeaveRoom) inbound()   {}
func (Signal) inbound()      {}
func (ChatMessage) inbound() {}
func (ScreenShare) inbound() {}

// ParseInbound decodes and validates one client frame. Unknown types and missing
// fields are rejected with ErrMalformedFrame.
func ParseInbound(raw []byte) (Inbound, error) {
	if len(raw) > MaxFrameBytes {
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedFrame, MaxFrameBytes)
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch f.Type {
	case FrameJoinRoom:
		var m JoinRoom
		if err := decodeData(f, &m); err != nil {
			return nil, err
		}
		if err := checkRoomID(m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case FrameLeaveRoom:
		var m LeaveRoom
		if len(f.Data) > 0 {
			if err := decodeData(f, &m); err != nil {
				return nil, err
			}
		}
		return m, nil
	case FrameOffer, FrameAnswer, FrameICECandidate:
		return parseSignal(f)
	case FrameChatMessage:
		var m ChatMessage
		if err := decodeData(f, &m); err != nil {
			return nil, err
		}
		m.Message = strings.TrimSpace(m.Message)
		if m.Message == "" {
			return nil, fmt.Errorf("%w: empty chat message", ErrMalformedFrame)
		}
		if len(m.Message) > MaxChatLength {
			return nil, fmt.Errorf("%w: chat message exceeds %d bytes", ErrMalformedFrame, MaxChatLength)
		}
		return m, nil
	case FrameStartScreenShare, FrameStopScreenShare:
		var m ScreenShare
		if len(f.Data) > 0 {
			if err := decodeData(f, &m); err != nil {
				return nil, err
			}
		}
		m.Active = f.Type == FrameStartScreenShare
		return m, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, f.Type)
	}
}

func parseSignal(f Frame) (Inbound, error) {
	var body struct {
		To        string          `json:"to"`
		Offer     json.RawMessage `json:"offer"`
		Answer    json.RawMessage `json:"answer"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := decodeData(f, &body); err != nil {
		return nil, err
	}
	if body.To == "" {
		return nil, fmt.Errorf("%w: %s without target", ErrMalformedFrame, f.Type)
	}

	payload := body.Offer
	switch f.Type {
	case FrameAnswer:
		payload = body.Answer
	case FrameICECandidate:
		payload = body.Candidate
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil, fmt.Errorf("%w: %s without payload", ErrMalformedFrame, f.Type)
	}
	return Signal{Kind: f.Type, To: body.To, Payload: payload}, nil
}

func decodeData(f Frame, v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedFrame, f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedFrame, f.Type, err)
	}
	return nil
}

func checkRoomID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing roomId", ErrMalformedFrame)
	}
	if len(id) > MaxRoomIDLen {
		return fmt.Errorf("%w: roomId too long", ErrMalformedFrame)
	}
	return nil
}

// Outbound payloads.

type Participant struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type RoomJoinedEvent struct {
	RoomID       string        `json:"roomId"`
	ConnectionID string        `json:"connectionId"`
	Participants []Participant `json:"participants"`
}

type UserJoinedEvent struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type UserLeftEvent struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type ChatEvent struct {
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ScreenShareEvent struct {
	UserID string `json:"userId"`
}

type InterviewStateEvent struct {
	InterviewID string          `json:"interviewId"`
	RoomID      string          `json:"roomId"`
	Status      InterviewStatus `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeFrame marshals an outbound frame once so it can be shared across recipients.
func EncodeFrame(frameType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Data: raw})
}

// EncodeSignal builds the outbound offer/answer/ice-candidate frame, keeping the payload verbatim.
func EncodeSignal(kind, from string, payload json.RawMessage) ([]byte, error) {
	key := "offer"
	switch kind {
	case FrameAnswer:
		key = "answer"
	case FrameICECandidate:
		key = "candidate"
	}
	return EncodeFrame(kind, map[string]any{"from": from, key: payload})
}
