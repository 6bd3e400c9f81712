package schedule

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodpulse/internal/database"
	"moodpulse/internal/model"
	"moodpulse/internal/notify"
	"moodpulse/internal/settings"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *fakeNotifier) SendNotification(_ context.Context, _ int64, notification notify.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return true
}

func (n *fakeNotifier) byKind(kind notify.NotificationKind) []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Notification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func newTestManager(t *testing.T, now time.Time) (*Manager, *database.DB, *fakeNotifier) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewMemory(&logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := settings.New(db, &logger).WithClock(func() time.Time { return now })
	notifier := &fakeNotifier{}
	mgr := NewManager(DefaultConfig(), db, st, notifier, &logger).WithClock(func() time.Time { return now })
	t.Cleanup(mgr.Stop)
	return mgr, db, notifier
}

func seedPending(t *testing.T, db *database.DB, userID int64, requestTime time.Time) {
	t.Helper()
	_, created := db.SaveActivityAndCreateMoodRequest(context.Background(), userID, "Reading", requestTime)
	require.True(t, created)
}

func TestSweepLeavesFreshRequestsAlone(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	seedPending(t, db, 100, now.Add(-30*time.Minute))
	mgr.Sweep(ctx)

	assert.Empty(t, notifier.sent)
	assert.Len(t, db.GetPendingRequests(ctx), 1)
}

func TestSweepSendsReminderInWindow(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	// 70 minutes old against a 60 minute interval: overdue but not timed out.
	seedPending(t, db, 100, now.Add(-70*time.Minute))
	mgr.Sweep(ctx)

	reminders := notifier.byKind(notify.NotificationReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, 60, reminders[0].IntervalMinutes)

	// Still pending; reminders are at-least-once, so a second sweep repeats.
	assert.Len(t, db.GetPendingRequests(ctx), 1)
	mgr.Sweep(ctx)
	assert.Len(t, notifier.byKind(notify.NotificationReminder), 2)
}

func TestSweepSkipsReminderWhenDisabled(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	logger := zerolog.New(io.Discard)
	disabled := false
	require.True(t, settings.New(db, &logger).Update(ctx, 100, settings.Patch{ReminderEnabled: &disabled}))

	seedPending(t, db, 100, now.Add(-70*time.Minute))
	mgr.Sweep(ctx)

	assert.Empty(t, notifier.sent)
	assert.Len(t, db.GetPendingRequests(ctx), 1)
}

func TestSweepTimesOutExpiredRequest(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	// 130 minutes old: past twice the 60 minute interval.
	seedPending(t, db, 100, now.Add(-130*time.Minute))
	mgr.Sweep(ctx)

	missed := notifier.byKind(notify.NotificationMissed)
	require.Len(t, missed, 1)
	assert.Equal(t, 120, missed[0].IntervalMinutes)
	assert.Empty(t, notifier.byKind(notify.NotificationReminder))
	assert.Empty(t, db.GetPendingRequests(ctx))

	// Terminal: the next sweep has nothing to do.
	mgr.Sweep(ctx)
	assert.Len(t, notifier.sent, 1)
}

func TestSweepBoundaryExactlyTwiceInterval(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	// Exactly 2I still gets a reminder, not a timeout.
	seedPending(t, db, 100, now.Add(-120*time.Minute))
	mgr.Sweep(ctx)

	assert.Len(t, notifier.byKind(notify.NotificationReminder), 1)
	assert.Empty(t, notifier.byKind(notify.NotificationMissed))
	assert.Len(t, db.GetPendingRequests(ctx), 1)
}

func TestSweepMixedUsers(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, notifier := newTestManager(t, now)
	ctx := context.Background()

	seedPending(t, db, 100, now.Add(-30*time.Minute))  // fresh
	seedPending(t, db, 200, now.Add(-90*time.Minute))  // reminder window
	seedPending(t, db, 300, now.Add(-240*time.Minute)) // timed out

	mgr.Sweep(ctx)

	assert.Len(t, notifier.byKind(notify.NotificationReminder), 1)
	assert.Len(t, notifier.byKind(notify.NotificationMissed), 1)
	assert.Len(t, db.GetPendingRequests(ctx), 2)
}

type fakeStarter struct {
	mu      sync.Mutex
	started []int64
}

func (s *fakeStarter) BeginCycle(_ context.Context, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, userID)
}

func (s *fakeStarter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

func TestArmNextCycleReplacesExistingTimer(t *testing.T) {
	mgr, _, _ := newTestManager(t, time.Now().UTC())

	mgr.ArmNextCycle(100, time.Hour)
	mgr.ArmNextCycle(100, 2*time.Hour)
	assert.Equal(t, 1, mgr.ArmedJobs(100))

	mgr.ArmNextCycle(200, time.Hour)
	assert.Equal(t, 1, mgr.ArmedJobs(200))
	assert.Equal(t, 1, mgr.ArmedJobs(100))
}

func TestCancelUserJobs(t *testing.T) {
	mgr, _, _ := newTestManager(t, time.Now().UTC())

	mgr.ArmNextCycle(100, time.Hour)
	mgr.ArmNextCycle(200, time.Hour)

	assert.Equal(t, 1, mgr.CancelUserJobs(100))
	assert.Equal(t, 0, mgr.ArmedJobs(100))
	assert.Equal(t, 1, mgr.ArmedJobs(200))
	assert.Equal(t, 0, mgr.CancelUserJobs(100))
}

func TestTimerFiresBeginCycle(t *testing.T) {
	mgr, db, _ := newTestManager(t, time.Now().UTC())
	starter := &fakeStarter{}
	mgr.SetStarter(starter)

	// No last event recorded, so the gate lets the cycle through.
	require.Nil(t, db.GetLastEvent(context.Background(), 100))

	mgr.ArmNextCycle(100, 10*time.Millisecond)
	require.Eventually(t, func() bool { return starter.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, mgr.ArmedJobs(100))
}

func TestTimerGatedOutReArms(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, _ := newTestManager(t, now)
	starter := &fakeStarter{}
	mgr.SetStarter(starter)

	// A recent event keeps the gate closed; the timer must re-arm instead
	// of starting a cycle.
	require.True(t, db.SaveLog(context.Background(), 100, model.EventAnswerPhysical, now.Add(-time.Minute), "Strong"))

	mgr.ArmNextCycle(100, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, starter.count())
	assert.Equal(t, 1, mgr.ArmedJobs(100))
}

func TestRescheduleAfterIntervalChangeArmsCatchUp(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, _ := newTestManager(t, now)
	ctx := context.Background()

	// Last event three hours ago: already due under any offered interval.
	require.True(t, db.SaveLog(ctx, 100, model.EventAnswerPhysical, now.Add(-3*time.Hour), "Strong"))

	mgr.ArmNextCycle(100, 24*time.Hour)
	mgr.RescheduleAfterIntervalChange(ctx, 100)
	assert.Equal(t, 1, mgr.ArmedJobs(100))
}

func TestRescheduleAfterIntervalChangeNotDue(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	mgr, db, _ := newTestManager(t, now)
	ctx := context.Background()

	require.True(t, db.SaveLog(ctx, 100, model.EventAnswerPhysical, now.Add(-10*time.Minute), "Strong"))

	mgr.ArmNextCycle(100, 24*time.Hour)
	mgr.RescheduleAfterIntervalChange(ctx, 100)
	assert.Equal(t, 0, mgr.ArmedJobs(100))
}

func TestRescheduleWithNoHistoryArmsNothing(t *testing.T) {
	mgr, _, _ := newTestManager(t, time.Now().UTC())

	mgr.RescheduleAfterIntervalChange(context.Background(), 100)
	assert.Equal(t, 0, mgr.ArmedJobs(100))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	mgr, _, _ := newTestManager(t, time.Now().UTC())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop on context cancel")
	}
}
