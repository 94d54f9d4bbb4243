package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
)

func newScheduler(t *testing.T) (*Scheduler, *ClockService, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	w := worker.New(16)
	w.Start(context.Background())
	t.Cleanup(w.Stop)
	svc := NewClockService(clock)
	return NewScheduler(svc, clock, w), svc, clock
}

func TestScheduler_OneShotFiresOnce(t *testing.T) {
	s, svc, clock := newScheduler(t)

	var fired atomic.Int32
	h, err := s.Create("exit", false, 0, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NotZero(t, h)

	require.NoError(t, s.StartAfter(h, 5*time.Second))
	assert.True(t, svc.Armed(h))

	clock.Advance(4 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, svc.Armed(h))
}

func TestScheduler_RepeatingFiresEveryInterval(t *testing.T) {
	s, _, clock := newScheduler(t)

	var fired atomic.Int32
	h, err := s.Create("recheck", true, time.Second, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, s.StartAfter(h, time.Second))

	for i := int32(1); i <= 3; i++ {
		require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
		clock.Advance(time.Second)
		want := i
		require.Eventually(t, func() bool { return fired.Load() == want }, time.Second, 5*time.Millisecond)
	}

	s.Stop(h)
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), fired.Load())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s, svc, _ := newScheduler(t)

	h, err := s.Create("exit", false, 0, func() {})
	require.NoError(t, err)

	s.Stop(h)
	s.Stop(h)
	s.Stop(0)
	assert.False(t, svc.Armed(h))
}

func TestScheduler_RestartReplacesDeadline(t *testing.T) {
	s, _, clock := newScheduler(t)

	var fired atomic.Int32
	h, err := s.Create("exit", false, 0, func() { fired.Add(1) })
	require.NoError(t, err)

	require.NoError(t, s.StartAfter(h, time.Second))
	require.NoError(t, s.StartAfter(h, 10*time.Second))

	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	clock.Advance(8 * time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StartErrors(t *testing.T) {
	s, _, _ := newScheduler(t)

	err := s.StartAfter(0, time.Second)
	require.Error(t, err)
	assert.True(t, serrors.Is(err, serrors.ErrCodeTimerStartFailed))

	h, err := s.Create("gone", false, 0, func() {})
	require.NoError(t, err)
	s.Destroy(h)

	err = s.StartAfter(h, time.Second)
	assert.True(t, serrors.Is(err, serrors.ErrCodeTimerStartFailed))
}

func TestClockService_CreateValidation(t *testing.T) {
	svc := NewClockService(clockwork.NewFakeClock())

	_, err := svc.CreateTimer(Spec{Name: "nil"}, nil)
	assert.True(t, serrors.Is(err, serrors.ErrCodeTimerCreateFailed))

	_, err = svc.CreateTimer(Spec{Name: "bad-repeat", Repeat: true}, func() {})
	assert.True(t, serrors.Is(err, serrors.ErrCodeTimerCreateFailed))

	id, err := svc.CreateTimer(Spec{Name: "ok"}, func() {})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Len())
	assert.True(t, svc.DestroyTimer(id))
	assert.False(t, svc.DestroyTimer(id))
	assert.Equal(t, 0, svc.Len())
}

// heldService accepts timers but never fires them; tests deliver fires by hand.
type heldService struct{ *ClockService }

func (h *heldService) StartTimer(ID, time.Time) bool { return true }

func TestScheduler_FireAfterStopIsDropped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := worker.New(1)
	w.Start(context.Background())
	t.Cleanup(w.Stop)
	s := NewScheduler(&heldService{NewClockService(clock)}, clock, w)

	var fired atomic.Int32
	task := func() { fired.Add(1) }
	h, err := s.Create("recheck", true, time.Second, task)
	require.NoError(t, err)
	require.NoError(t, s.StartAfter(h, time.Second))
	clock.Advance(time.Second)

	s.dispatch(h, task)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// a fire already released by the service when the worker stops the task
	clock.Advance(time.Second)
	s.Stop(h)
	s.dispatch(h, task)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_FireBeforeRestartedDeadlineIsDropped(t *testing.T) {
	s, _, clock := newScheduler(t)

	var fired atomic.Int32
	task := func() { fired.Add(1) }
	h, err := s.Create("exit", false, 0, task)
	require.NoError(t, err)
	require.NoError(t, s.StartAfter(h, time.Second))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// restarted while an old fire is still on its way
	require.NoError(t, s.StartAfter(h, 10*time.Second))
	s.dispatch(h, task)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 5*time.Millisecond)

	// a one-shot is consumed by its first fire
	s.dispatch(h, task)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
}
