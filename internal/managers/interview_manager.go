package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"prepforge/interview/internal/events"
	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/models"
	"prepforge/interview/internal/repositories"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store is the durable interview store the manager mutates.
type Store interface {
	Create(ctx context.Context, iv *models.Interview) error
	GetByID(ctx context.Context, id string) (*models.Interview, error)
	GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error)
	List(ctx context.Context, f repositories.ListFilter) ([]models.Interview, int64, error)
	PendingForInterviewer(ctx context.Context, interviewerID string, now time.Time) ([]models.Interview, error)
	Accept(ctx context.Context, id, interviewerID string) (bool, error)
	Decline(ctx context.Context, id, interviewerID string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id string, at time.Time, from ...models.InterviewStatus) (bool, error)
	Start(ctx context.Context, id string, at time.Time) (bool, error)
	Complete(ctx context.Context, id, interviewerID string, result repositories.CompletionResult, at time.Time) (bool, error)
	DueForReminder(ctx context.Context, from, to time.Time) ([]models.Interview, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
}

// Publisher receives one-way lifecycle events. It must not block.
type Publisher interface {
	Publish(e events.Event) bool
}

type Options struct {
	ICEServers          []webrtc.ICEServer
	AllowAdminObservers bool
}

// InterviewManager enforces the interview state machine and its authorization rules.
// It is the only writer of interview records.
type InterviewManager struct {
	store     Store
	publisher Publisher
	opts      Options
	logger    *zap.Logger

	now       func() time.Time
	newID     func() string
	newRoomID func() string
}

func NewInterviewManager(store Store, publisher Publisher, opts Options, logger *zap.Logger) *InterviewManager {
	return &InterviewManager{
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("lifecycle"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		newRoomID: func() string { return "room-" + uuid.NewString() },
	}
}

// ListOptions narrows List to one side of the caller's interviews.
type ListOptions struct {
	// As is "candidate" or "interviewer"; empty picks from the caller's role.
	As     string
	Status models.InterviewStatus
	Limit  int
	Offset int
}

// Normalized applies the default page size and clamps limit and offset.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Schedule creates a PENDING interview for the calling candidate.
func (m *InterviewManager) Schedule(ctx context.Context, caller models.Principal, req models.ScheduleRequest) (iv *models.Interview, err error) {
	defer func() { metrics.Transition("schedule", outcome(err)) }()

	if err := req.Validate(); err != nil {
		return nil, asValidationErr(err)
	}
	if req.InterviewerID != nil && *req.InterviewerID == caller.UserID {
		return nil, validationErr("invalid_interviewer", "interviewer must differ from the candidate", "interviewerId")
	}

	now := m.now()
	iv = &models.Interview{
		ID:            m.newID(),
		CandidateID:   caller.UserID,
		InterviewerID: req.InterviewerID,
		Topic:         req.Topic,
		InterviewType: req.InterviewType,
		ScheduledAt:   req.ScheduledAt.UTC(),
		Duration:      req.Duration,
		RoomID:        m.newRoomID(),
		Status:        models.StatusPending,
	}
	if err := m.store.Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	m.logger.Info("interview scheduled",
		zap.String("interview_id", iv.ID),
		zap.String("candidate_id", iv.CandidateID),
		zap.Bool("open_request", iv.InterviewerID == nil))
	m.emit(events.InterviewScheduled, iv, caller.UserID, now)
	return iv, nil
}

// Get returns the interview if the caller may see it.
func (m *InterviewManager) Get(ctx context.Context, caller models.Principal, id string) (*models.Interview, error) {
	iv, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.canView(caller, iv) {
		return nil, fmt.Errorf("%w: interview %s", ErrNotFound, id)
	}
	return iv, nil
}

// List pages through the caller's interviews, newest scheduledAt first.
func (m *InterviewManager) List(ctx context.Context, caller models.Principal, opts ListOptions) ([]models.Interview, int64, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, validationErr("invalid_status", "unknown status "+string(opts.Status), "status")
	}
	opts = opts.Normalized()

	f := repositories.ListFilter{Status: opts.Status, Limit: opts.Limit, Offset: opts.Offset}
	as := opts.As
	if as == "" {
		as = "candidate"
		if caller.Role == models.RoleInterviewer {
			as = "interviewer"
		}
	}
	switch as {
	case "candidate":
		f.CandidateID = caller.UserID
	case "interviewer":
		f.InterviewerID = caller.UserID
	default:
		return nil, 0, validationErr("invalid_role", "as must be candidate or interviewer", "as")
	}

	list, total, err := m.store.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list interviews: %w", err)
	}
	return list, total, nil
}

// PendingRequests is the interviewer dashboard: future PENDING requests for the caller or open to anyone.
func (m *InterviewManager) PendingRequests(ctx context.Context, caller models.Principal) ([]models.Interview, error) {
	if caller.Role != models.RoleInterviewer {
		return nil, fmt.Errorf("%w: only interviewers have pending requests", ErrUnauthorized)
	}
	list, err := m.store.PendingForInterviewer(ctx, caller.UserID, m.now())
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}
	return list, nil
}

// Accept confirms a PENDING interview. An open request is claimed by the accepting interviewer.
func (m *InterviewManager) Accept(ctx context.Context, caller models.Principal, id string) (iv *models.Interview, err error) {
	defer func() { metrics.Transition("accept", outcome(err)) }()

	iv, err = m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case iv.InterviewerID != nil && !iv.IsInterviewer(caller.UserID):
		return nil, fmt.Errorf("%w: only the assigned interviewer may accept", ErrUnauthorized)
	case iv.InterviewerID == nil && (caller.Role != models.RoleInterviewer || caller.UserID == iv.CandidateID):
		return nil, fmt.Errorf("%w: only an interviewer may claim an open request", ErrUnauthorized)
	}
	if iv.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot accept an interview that is %s", ErrConflict, iv.Status)
	}

	ok, err := m.store.Accept(ctx, id, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("accept interview: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview %s was changed concurrently", ErrConflict, id)
	}
	return m.after(ctx, events.InterviewAccepted, id, caller.UserID)
}

// Decline cancels a PENDING interview addressed to the caller.
func (m *InterviewManager) Decline(ctx context.Context, caller models.Principal, id string) (iv *models.Interview, err error) {
	defer func() { metrics.Transition("decline", outcome(err)) }()

	iv, err = m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !iv.IsInterviewer(caller.UserID) {
		return nil, fmt.Errorf("%w: only the assigned interviewer may decline", ErrUnauthorized)
	}
	if iv.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot decline an interview that is %s", ErrConflict, iv.Status)
	}

	ok, err := m.store.Decline(ctx, id, caller.UserID, m.now())
	if err != nil {
		return nil, fmt.Errorf("decline interview: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview %s was changed concurrently", ErrConflict, id)
	}
	return m.after(ctx, events.InterviewDeclined, id, caller.UserID)
}

// Cancel lets either party or an admin withdraw an interview that has not started.
func (m *InterviewManager) Cancel(ctx context.Context, caller models.Principal, id string) (iv *models.Interview, err error) {
	defer func() { metrics.Transition("cancel", outcome(err)) }()

	iv, err = m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !iv.IsParty(caller.UserID) && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only a party or an admin may cancel", ErrUnauthorized)
	}
	if iv.Status != models.StatusPending && iv.Status != models.StatusScheduled {
		return nil, fmt.Errorf("%w: cannot cancel an interview that is %s", ErrConflict, iv.Status)
	}

	ok, err := m.store.Cancel(ctx, id, m.now(), models.StatusPending, models.StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("cancel interview: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview %s was changed concurrently", ErrConflict, id)
	}
	return m.after(ctx, events.InterviewCancelled, id, caller.UserID)
}

// Join validates the caller and returns room credentials. The first join of a SCHEDULED
// interview moves it to IN_PROGRESS; later joins are read-only.
func (m *InterviewManager) Join(ctx context.Context, caller models.Principal, id string) (resp *models.JoinResponse, err error) {
	defer func() { metrics.Transition("join", outcome(err)) }()

	iv, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.mayJoin(caller, iv) {
		return nil, fmt.Errorf("%w: caller is not a party to interview %s", ErrUnauthorized, id)
	}

	switch iv.Status {
	case models.StatusInProgress:
	case models.StatusScheduled:
		started, err := m.store.Start(ctx, id, m.now())
		if err != nil {
			return nil, fmt.Errorf("start interview: %w", err)
		}
		if iv, err = m.load(ctx, id); err != nil {
			return nil, err
		}
		if started {
			m.logger.Info("interview started", zap.String("interview_id", id), zap.String("user_id", caller.UserID))
			m.emit(events.InterviewStarted, iv, caller.UserID, m.now())
		} else if iv.Status != models.StatusInProgress {
			return nil, fmt.Errorf("%w: interview is %s", ErrConflict, iv.Status)
		}
	case models.StatusPending:
		return nil, fmt.Errorf("%w: interview has not been accepted", ErrConflict)
	default:
		return nil, fmt.Errorf("%w: interview is %s", ErrConflict, iv.Status)
	}

	return &models.JoinResponse{
		InterviewID: iv.ID,
		RoomID:      iv.RoomID,
		Status:      iv.Status,
		StartedAt:   iv.StartedAt,
		ICEServers:  m.opts.ICEServers,
	}, nil
}

// Complete records results and moves IN_PROGRESS to COMPLETED exactly once.
func (m *InterviewManager) Complete(ctx context.Context, caller models.Principal, id string, req models.CompleteRequest) (iv *models.Interview, err error) {
	defer func() { metrics.Transition("complete", outcome(err)) }()

	iv, err = m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !iv.IsInterviewer(caller.UserID) {
		return nil, fmt.Errorf("%w: only the assigned interviewer may complete", ErrUnauthorized)
	}
	if err := req.Validate(); err != nil {
		return nil, asValidationErr(err)
	}
	if iv.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot complete an interview that is %s", ErrConflict, iv.Status)
	}

	result := repositories.CompletionResult{
		Score:         *req.Score,
		Feedback:      req.Feedback,
		Transcription: req.Transcription,
	}
	if len(req.Analytics) > 0 && string(req.Analytics) != "null" {
		result.Analytics = datatypes.JSON(req.Analytics)
	}

	ok, err := m.store.Complete(ctx, id, caller.UserID, result, m.now())
	if err != nil {
		return nil, fmt.Errorf("complete interview: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview %s was already completed or changed", ErrConflict, id)
	}
	return m.after(ctx, events.InterviewCompleted, id, caller.UserID)
}

// AuthorizeRoom re-validates a real-time room join against the durable record.
// It never mutates state.
func (m *InterviewManager) AuthorizeRoom(ctx context.Context, caller models.Principal, roomID string) (*models.Interview, error) {
	iv, err := m.store.GetByRoomID(ctx, roomID)
	if errors.Is(err, repositories.ErrInterviewNotFound) {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if !m.mayJoin(caller, iv) {
		return nil, fmt.Errorf("%w: caller is not a party to room %s", ErrUnauthorized, roomID)
	}
	if iv.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: interview is %s", ErrConflict, iv.Status)
	}
	return iv, nil
}

// SendReminders stamps and announces every SCHEDULED interview starting within lead.
// It returns how many reminders this call won.
func (m *InterviewManager) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := m.now()
	due, err := m.store.DueForReminder(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		iv := &due[i]
		ok, err := m.store.MarkReminderSent(ctx, iv.ID, now)
		if err != nil {
			m.logger.Error("failed to mark reminder", zap.String("interview_id", iv.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		m.emit(events.InterviewReminder, iv, "", now)
		sent++
	}
	return sent, nil
}

func (m *InterviewManager) load(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := m.store.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrInterviewNotFound) {
		return nil, fmt.Errorf("%w: interview %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load interview %s: %w", id, err)
	}
	return iv, nil
}

// after reloads a freshly transitioned record and emits its event.
func (m *InterviewManager) after(ctx context.Context, t events.Type, id, actorID string) (*models.Interview, error) {
	iv, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.logger.Info("interview transitioned",
		zap.String("interview_id", id),
		zap.String("event", string(t)),
		zap.String("status", string(iv.Status)),
		zap.String("actor_id", actorID))
	m.emit(t, iv, actorID, m.now())
	return iv, nil
}

func (m *InterviewManager) emit(t events.Type, iv *models.Interview, actorID string, at time.Time) {
	if m.publisher == nil {
		return
	}
	if !m.publisher.Publish(events.FromInterview(t, iv, actorID, at)) {
		metrics.MessageDropped("event_bus_full")
	}
}

func (m *InterviewManager) mayJoin(caller models.Principal, iv *models.Interview) bool {
	if iv.IsParty(caller.UserID) {
		return true
	}
	return caller.IsAdmin() && m.opts.AllowAdminObservers
}

func (m *InterviewManager) canView(caller models.Principal, iv *models.Interview) bool {
	if iv.IsParty(caller.UserID) || caller.IsAdmin() {
		return true
	}
	return iv.InterviewerID == nil && iv.Status == models.StatusPending && caller.Role == models.RoleInterviewer
}
