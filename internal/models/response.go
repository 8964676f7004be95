package models

import (
	"time"

	"github.com/pion/webrtc/v3"
)

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// JoinResponse carries the room credentials returned by a successful join.
type JoinResponse struct {
	InterviewID string             `json:"interviewId"`
	RoomID      string             `json:"roomId"`
	Status      InterviewStatus    `json:"status"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	ICEServers  []webrtc.ICEServer `json:"iceServers"`
}

type InterviewListResponse struct {
	Interviews []Interview `json:"interviews"`
	Total      int64       `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

type WebRTCConfigResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}
