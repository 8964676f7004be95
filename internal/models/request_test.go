package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSchedule() ScheduleRequest {
	interviewer := "interviewer-1"
	return ScheduleRequest{
		InterviewerID: &interviewer,
		Topic:         "  Graphs  ",
		InterviewType: "technical",
		ScheduledAt:   time.Now().Add(time.Hour),
		Duration:      60,
	}
}

func TestScheduleRequestValidate_Normalizes(t *testing.T) {
	req := validSchedule()
	require.NoError(t, req.Validate())
	assert.Equal(t, "Graphs", req.Topic)
	assert.Equal(t, TypeTechnical, req.InterviewType)
}

func TestScheduleRequestValidate_BlankInterviewerBecomesOpen(t *testing.T) {
	req := validSchedule()
	blank := "   "
	req.InterviewerID = &blank
	require.NoError(t, req.Validate())
	assert.Nil(t, req.InterviewerID)
}

func TestScheduleRequestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScheduleRequest)
		field  string
	}{
		{"missing topic", func(r *ScheduleRequest) { r.Topic = "   " }, "topic"},
		{"long topic", func(r *ScheduleRequest) {
			b := make([]byte, MaxTopicLength+1)
			for i := range b {
				b[i] = 'a'
			}
			r.Topic = string(b)
		}, "topic"},
		{"unknown type", func(r *ScheduleRequest) { r.InterviewType = "PAIRING" }, "interviewType"},
		{"short duration", func(r *ScheduleRequest) { r.Duration = 29 }, "duration"},
		{"long duration", func(r *ScheduleRequest) { r.Duration = 181 }, "duration"},
		{"missing scheduledAt", func(r *ScheduleRequest) { r.ScheduledAt = time.Time{} }, "scheduledAt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validSchedule()
			tc.mutate(&req)
			err := req.Validate()
			require.Error(t, err)

			var resp *ErrorResponse
			require.ErrorAs(t, err, &resp)
			assert.Equal(t, "validation_error", resp.Code)
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tc.field, resp.Details[0].Field)
		})
	}
}

func TestCompleteRequestValidate(t *testing.T) {
	score := func(v int) *int { return &v }

	ok := CompleteRequest{Score: score(80), Feedback: "solid", Analytics: json.RawMessage(`{"talkRatio":0.4}`)}
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&CompleteRequest{}).Validate(), "score is required")
	assert.Error(t, (&CompleteRequest{Score: score(-1)}).Validate())
	assert.Error(t, (&CompleteRequest{Score: score(101)}).Validate())
	assert.NoError(t, (&CompleteRequest{Score: score(0)}).Validate())
	assert.Error(t, (&CompleteRequest{Score: score(50), Analytics: json.RawMessage(`[1,2]`)}).Validate())
	assert.NoError(t, (&CompleteRequest{Score: score(50), Analytics: json.RawMessage(`null`)}).Validate())
}

func TestInterviewHelpers(t *testing.T) {
	interviewer := "i1"
	iv := Interview{CandidateID: "c1", InterviewerID: &interviewer, ScheduledAt: time.Unix(0, 0), Duration: 45}

	assert.True(t, iv.IsParty("c1"))
	assert.True(t, iv.IsParty("i1"))
	assert.False(t, iv.IsParty("x"))
	assert.True(t, iv.IsInterviewer("i1"))
	assert.False(t, iv.IsInterviewer("c1"))
	assert.Equal(t, time.Unix(0, 0).Add(45*time.Minute), iv.EndsAt())

	open := Interview{CandidateID: "c1"}
	assert.False(t, open.IsInterviewer(""))

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("ROOT").Valid())
}
