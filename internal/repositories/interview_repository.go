package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"prepforge/interview/internal/models"
)

var ErrInterviewNotFound = errors.New("interview not found")

// InterviewRepository is the durable interview store. Every status change is a single
// conditional UPDATE gated on the stored status; callers learn whether they won from
// the returned bool.
type InterviewRepository struct {
	DB *gorm.DB
}

// ListFilter selects interviews for one party.
type ListFilter struct {
	CandidateID   string
	InterviewerID string
	Status        models.InterviewStatus
	Limit         int
	Offset        int
}

// CompletionResult carries the fields written by the COMPLETED transition.
type CompletionResult struct {
	Score         int
	Feedback      string
	Transcription string
	Analytics     datatypes.JSON
}

func (r *InterviewRepository) Create(ctx context.Context, interview *models.Interview) error {
	return r.DB.WithContext(ctx).Create(interview).Error
}

func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*models.Interview, error) {
	var interview models.Interview
	err := r.DB.WithContext(ctx).First(&interview, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *InterviewRepository) GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error) {
	var interview models.Interview
	err := r.DB.WithContext(ctx).First(&interview, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// List returns one page ordered by scheduled_at descending plus the total match count.
func (r *InterviewRepository) List(ctx context.Context, f ListFilter) ([]models.Interview, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Interview{})
	if f.CandidateID != "" {
		q = q.Where("candidate_id = ?", f.CandidateID)
	}
	if f.InterviewerID != "" {
		q = q.Where("interviewer_id = ?", f.InterviewerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	interviews := []models.Interview{}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Order("scheduled_at DESC").Find(&interviews).Error; err != nil {
		return nil, 0, err
	}
	return interviews, total, nil
}

// PendingForInterviewer returns future PENDING requests addressed to interviewerID or left open.
func (r *InterviewRepository) PendingForInterviewer(ctx context.Context, interviewerID string, now time.Time) ([]models.Interview, error) {
	interviews := []models.Interview{}
	err := r.DB.WithContext(ctx).
		Where("status = ? AND scheduled_at > ?", models.StatusPending, now).
		Where("interviewer_id = ? OR interviewer_id IS NULL", interviewerID).
		Order("scheduled_at ASC").
		Find(&interviews).Error
	return interviews, err
}

// Accept moves PENDING to SCHEDULED for interviewerID, claiming the request if it was open.
func (r *InterviewRepository) Accept(ctx context.Context, id, interviewerID string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Where("interviewer_id = ? OR interviewer_id IS NULL", interviewerID).
		Updates(map[string]any{
			"status":         models.StatusScheduled,
			"interviewer_id": interviewerID,
		})
	return res.RowsAffected == 1, res.Error
}

// Decline moves a PENDING request addressed to interviewerID to CANCELLED.
func (r *InterviewRepository) Decline(ctx context.Context, id, interviewerID string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND status = ? AND interviewer_id = ?", id, models.StatusPending, interviewerID).
		Updates(map[string]any{
			"status":       models.StatusCancelled,
			"cancelled_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

// Cancel moves the interview to CANCELLED if it is currently in one of from.
func (r *InterviewRepository) Cancel(ctx context.Context, id string, at time.Time, from ...models.InterviewStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":       models.StatusCancelled,
			"cancelled_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

// Start moves SCHEDULED to IN_PROGRESS and stamps started_at. Only the first caller wins.
func (r *InterviewRepository) Start(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND status = ? AND started_at IS NULL", id, models.StatusScheduled).
		Updates(map[string]any{
			"status":     models.StatusInProgress,
			"started_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

// Complete writes the results and moves IN_PROGRESS to COMPLETED exactly once.
func (r *InterviewRepository) Complete(ctx context.Context, id, interviewerID string, result CompletionResult, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":        models.StatusCompleted,
		"completed_at":  at,
		"score":         result.Score,
		"feedback":      result.Feedback,
		"transcription": result.Transcription,
	}
	if len(result.Analytics) > 0 {
		updates["analytics"] = result.Analytics
	}

	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND status = ? AND interviewer_id = ? AND completed_at IS NULL", id, models.StatusInProgress, interviewerID).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// DueForReminder returns SCHEDULED interviews starting in [from, to) that have not been reminded.
func (r *InterviewRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]models.Interview, error) {
	interviews := []models.Interview{}
	err := r.DB.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL", models.StatusScheduled).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at ASC").
		Find(&interviews).Error
	return interviews, err
}

// MarkReminderSent stamps reminder_sent_at once; false means another worker got there first.
func (r *InterviewRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Interview{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	return res.RowsAffected == 1, res.Error
}

// Ping checks the underlying connection for readiness probes.
func (r *InterviewRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
