package events

import (
	"time"

	"prepforge/interview/internal/models"
)

type Type string

const (
	InterviewScheduled Type = "interview.scheduled"
	InterviewAccepted  Type = "interview.accepted"
	InterviewDeclined  Type = "interview.declined"
	InterviewCancelled Type = "interview.cancelled"
	InterviewStarted   Type = "interview.started"
	InterviewCompleted Type = "interview.completed"
	InterviewReminder  Type = "interview.reminder"
)

// Event is a one-way notice that a lifecycle transition happened.
type Event struct {
	Type          Type                   `json:"type"`
	InterviewID   string                 `json:"interviewId"`
	RoomID        string                 `json:"roomId"`
	CandidateID   string                 `json:"candidateId"`
	InterviewerID string                 `json:"interviewerId,omitempty"`
	ActorID       string                 `json:"actorId,omitempty"`
	Status        models.InterviewStatus `json:"status"`
	Topic         string                 `json:"topic"`
	InterviewType models.InterviewType   `json:"interviewType"`
	ScheduledAt   time.Time              `json:"scheduledAt"`
	Duration      int                    `json:"duration"`
	Score         *int                   `json:"score,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
}

// FromInterview snapshots iv into an event of type t caused by actorID.
func FromInterview(t Type, iv *models.Interview, actorID string, at time.Time) Event {
	e := Event{
		Type:          t,
		InterviewID:   iv.ID,
		RoomID:        iv.RoomID,
		CandidateID:   iv.CandidateID,
		ActorID:       actorID,
		Status:        iv.Status,
		Topic:         iv.Topic,
		InterviewType: iv.InterviewType,
		ScheduledAt:   iv.ScheduledAt,
		Duration:      iv.Duration,
		Score:         iv.Score,
		OccurredAt:    at,
	}
	if iv.InterviewerID != nil {
		e.InterviewerID = *iv.InterviewerID
	}
	return e
}
