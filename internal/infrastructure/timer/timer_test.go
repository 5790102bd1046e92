package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

type firedRecorder struct {
	mu    sync.Mutex
	fired []ArmedTimer
}

func (r *firedRecorder) callback(processID string, stage workflow.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, ArmedTimer{ProcessID: processID, Stage: stage})
}

func (r *firedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestArm_ParsesAdvisoryDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{Clock: func() time.Time { return now }})

	deadline := svc.Arm("proc-1", workflow.StageInvitationSent, "7 days")
	require.NotNil(t, deadline)
	assert.Equal(t, now.Add(7*24*time.Hour), *deadline)

	armed, ok := svc.Armed("proc-1")
	require.True(t, ok)
	assert.Equal(t, workflow.StageInvitationSent, armed.Stage)
}

func TestArm_UnparseableAdvisoryDisablesTimer(t *testing.T) {
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{})

	deadline := svc.Arm("proc-1", workflow.StageInvitationSent, "when convenient")
	assert.Nil(t, deadline)

	_, ok := svc.Armed("proc-1")
	assert.False(t, ok)
}

func TestArm_UnparseableAdvisoryClearsPreviousTimer(t *testing.T) {
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{})

	require.NotNil(t, svc.Arm("proc-1", workflow.StageInvitationSent, "7 days"))
	assert.Nil(t, svc.Arm("proc-1", workflow.StageTeacherInfoRequested, ""))

	_, ok := svc.Armed("proc-1")
	assert.False(t, ok)
}

func TestArm_ReplacesExistingTimer(t *testing.T) {
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{})

	svc.Arm("proc-1", workflow.StageInvitationSent, "7 days")
	svc.Arm("proc-1", workflow.StageTeacherInfoRequested, "14 days")

	armed, ok := svc.Armed("proc-1")
	require.True(t, ok)
	assert.Equal(t, workflow.StageTeacherInfoRequested, armed.Stage)
}

func TestDisarm(t *testing.T) {
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{})

	svc.Arm("proc-1", workflow.StageInvitationSent, "7 days")
	svc.Disarm("proc-1")

	_, ok := svc.Armed("proc-1")
	assert.False(t, ok)
}

func TestFireDue_FiresExpiredTimersOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{Clock: clock})

	svc.Arm("proc-due", workflow.StageInvitationSent, "1h")
	svc.Arm("proc-later", workflow.StageInvitationSent, "48h")

	now = now.Add(2 * time.Hour)
	svc.fireDue()
	svc.wg.Wait()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "proc-due", rec.fired[0].ProcessID)
	assert.Equal(t, workflow.StageInvitationSent, rec.fired[0].Stage)

	// Fired timers are gone; a second sweep fires nothing.
	svc.fireDue()
	svc.wg.Wait()
	assert.Equal(t, 1, rec.count())

	_, ok := svc.Armed("proc-later")
	assert.True(t, ok)
}

func TestStartStop(t *testing.T) {
	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{Resolution: 5 * time.Millisecond})

	svc.Start(context.Background())
	svc.Start(context.Background()) // second start is a no-op

	svc.Stop()
	svc.Stop() // second stop is a no-op
}

func TestRunLoop_FiresThroughTicker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	rec := &firedRecorder{}
	svc := NewService(rec.callback, Config{Resolution: 5 * time.Millisecond, Clock: clock})
	svc.Arm("proc-1", workflow.StageInvitationSent, "1h")

	svc.Start(context.Background())
	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	svc.Stop()
}
