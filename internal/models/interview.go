package models

import (
	"time"

	"gorm.io/datatypes"
)

type InterviewStatus string

const (
	StatusPending    InterviewStatus = "PENDING"
	StatusScheduled  InterviewStatus = "SCHEDULED"
	StatusInProgress InterviewStatus = "IN_PROGRESS"
	StatusCompleted  InterviewStatus = "COMPLETED"
	StatusCancelled  InterviewStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s InterviewStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s InterviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type InterviewType string

const (
	TypeTechnical      InterviewType = "TECHNICAL"
	TypeHR             InterviewType = "HR"
	TypeAptitude       InterviewType = "APTITUDE"
	TypeBehavioral     InterviewType = "BEHAVIORAL"
	TypeDomainSpecific InterviewType = "DOMAIN_SPECIFIC"
	TypeCoding         InterviewType = "CODING"
	TypeSystemDesign   InterviewType = "SYSTEM_DESIGN"
)

var interviewTypes = map[InterviewType]struct{}{
	TypeTechnical:      {},
	TypeHR:             {},
	TypeAptitude:       {},
	TypeBehavioral:     {},
	TypeDomainSpecific: {},
	TypeCoding:         {},
	TypeSystemDesign:   {},
}

func (t InterviewType) Valid() bool {
	_, ok := interviewTypes[t]
	return ok
}

// Interview is the durable record of one live interview.
type Interview struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CandidateID    string          `gorm:"not null;index" json:"candidateId"`
	InterviewerID  *string         `gorm:"index" json:"interviewerId"`
	Topic          string          `gorm:"not null" json:"topic"`
	InterviewType  InterviewType   `gorm:"type:varchar(32);not null" json:"interviewType"`
	ScheduledAt    time.Time       `gorm:"not null;index" json:"scheduledAt"`
	Duration       int             `gorm:"not null" json:"duration"`
	RoomID         string          `gorm:"uniqueIndex;not null" json:"roomId"`
	Status         InterviewStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	CancelledAt    *time.Time      `json:"cancelledAt,omitempty"`
	ReminderSentAt *time.Time      `json:"-"`
	Score          *int            `json:"score,omitempty"`
	Feedback       string          `json:"feedback,omitempty"`
	Transcription  string          `json:"transcription,omitempty"`
	Analytics      datatypes.JSON  `json:"analytics,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (Interview) TableName() string {
	return "live_interviews"
}

// IsParty reports whether userID is the candidate or the assigned interviewer.
func (i *Interview) IsParty(userID string) bool {
	return i.CandidateID == userID || i.IsInterviewer(userID)
}

func (i *Interview) IsInterviewer(userID string) bool {
	return i.InterviewerID != nil && *i.InterviewerID == userID
}

// EndsAt is scheduledAt plus the advertised duration. Informational only.
func (i *Interview) EndsAt() time.Time {
	return i.ScheduledAt.Add(time.Duration(i.Duration) * time.Minute)
}
