package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReminders struct {
	mu    sync.Mutex
	leads []time.Duration
	sent  int
	err   error
}

func (f *fakeReminders) SendReminders(_ context.Context, lead time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, lead)
	return f.sent, f.err
}

func TestRunOnce(t *testing.T) {
	fake := &fakeReminders{sent: 2}
	job := NewReminderJob(fake, ReminderConfig{Enabled: true, Schedule: "* * * * *", LeadTime: 30 * time.Minute}, zap.NewNop())

	sent, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []time.Duration{30 * time.Minute}, fake.leads)
}

func TestRunOnce_Error(t *testing.T) {
	fake := &fakeReminders{err: errors.New("db down")}
	job := NewReminderJob(fake, ReminderConfig{LeadTime: time.Minute}, zap.NewNop())

	_, err := job.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestReminderStartStop(t *testing.T) {
	job := NewReminderJob(&fakeReminders{}, ReminderConfig{Enabled: true, Schedule: "0 3 * * *", LeadTime: time.Hour}, zap.NewNop())
	require.NoError(t, job.Start())
	assert.Len(t, job.cron.Entries(), 1)
	job.Stop()
}

func TestReminderStart_Disabled(t *testing.T) {
	job := NewReminderJob(&fakeReminders{}, ReminderConfig{Enabled: false, Schedule: "bogus"}, zap.NewNop())
	require.NoError(t, job.Start())
	assert.Empty(t, job.cron.Entries())
	job.Stop()
}

func TestReminderStart_InvalidSchedule(t *testing.T) {
	job := NewReminderJob(&fakeReminders{}, ReminderConfig{Enabled: true, Schedule: "not a cron"}, zap.NewNop())
	assert.Error(t, job.Start())
}
