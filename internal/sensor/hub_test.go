package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
)

func startedHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(8)
	h.Start(ctx)
	return h
}

func TestHub_DeliversOnlyWhileActive(t *testing.T) {
	h := startedHub(t)
	got := make(chan Event, 4)
	require.NoError(t, h.Subscribe(Accelerometer, func(ev Event) { got <- ev }))

	h.Inject(Event{Type: Accelerometer, Values: []float64{1, 2, 3}})
	select {
	case <-got:
		t.Fatal("inactive sensor must not deliver")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, h.Activate(Accelerometer))
	h.Inject(Event{Type: Accelerometer, Values: []float64{4, 5, 6}})
	select {
	case ev := <-got:
		assert.Equal(t, []float64{4, 5, 6}, ev.Values)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_IdempotentStop(t *testing.T) {
	h := startedHub(t)

	// deactivating and unsubscribing something never started is not an error
	assert.NoError(t, h.Deactivate(SignificantMotion))
	assert.NoError(t, h.Unsubscribe(SignificantMotion))

	require.NoError(t, h.Subscribe(SignificantMotion, func(Event) {}))
	require.NoError(t, h.Activate(SignificantMotion))
	assert.True(t, h.Active(SignificantMotion))

	assert.NoError(t, h.Deactivate(SignificantMotion))
	assert.NoError(t, h.Deactivate(SignificantMotion))
	assert.False(t, h.Active(SignificantMotion))
	assert.NoError(t, h.Unsubscribe(SignificantMotion))
	assert.NoError(t, h.Unsubscribe(SignificantMotion))
	assert.False(t, h.Subscribed(SignificantMotion))
}

func TestHub_ActivationFailures(t *testing.T) {
	h := startedHub(t)

	err := h.Activate(Accelerometer)
	assert.True(t, serrors.Is(err, serrors.ErrCodeSensorFailed), "activation without subscription fails")
	assert.True(t, serrors.Is(h.Subscribe(Accelerometer, nil), serrors.ErrCodeSensorFailed))

	require.NoError(t, h.Subscribe(Accelerometer, func(Event) {}))
	hal := errors.New("hal unavailable")
	h.FailActivation(Accelerometer, hal)
	err = h.Activate(Accelerometer)
	assert.True(t, serrors.Is(err, serrors.ErrCodeSensorFailed))
	assert.ErrorIs(t, err, hal)

	h.FailActivation(Accelerometer, nil)
	assert.NoError(t, h.Activate(Accelerometer))
}

func TestHub_SamplingRate(t *testing.T) {
	h := NewHub(1)
	assert.Error(t, h.SetSamplingRate(Accelerometer, time.Second), "not subscribed")
	require.NoError(t, h.Subscribe(Accelerometer, func(Event) {}))
	assert.True(t, serrors.Is(h.SetSamplingRate(Accelerometer, 0), serrors.ErrCodeSensorFailed))
	require.NoError(t, h.SetSamplingRate(Accelerometer, 100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, h.SamplingRate(Accelerometer))
}

func writeAxis(t *testing.T, dir string, x, y, z string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_accel_x_raw"), []byte(x+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_accel_y_raw"), []byte(y+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_accel_z_raw"), []byte(z+"\n"), 0o600))
}

func TestIIOSource_Read(t *testing.T) {
	dir := t.TempDir()
	writeAxis(t, dir, "10", "-20", "30")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_accel_scale"), []byte("0.5"), 0o600))

	s := NewIIOSource(dir, 0, NewHub(1), clockwork.NewFakeClock())
	values, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{5, -10, 15}, values)

	s.Scale = 2
	values, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{20, -40, 60}, values)
}

func TestIIOSource_RunFeedsActiveAccelerometer(t *testing.T) {
	dir := t.TempDir()
	writeAxis(t, dir, "1", "2", "3")

	h := startedHub(t)
	got := make(chan Event, 4)
	require.NoError(t, h.Subscribe(Accelerometer, func(ev Event) { got <- ev }))
	require.NoError(t, h.Activate(Accelerometer))

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := NewIIOSource(dir, 1, h, clock)
	go src.Run(ctx, 200*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(200 * time.Millisecond)

	select {
	case ev := <-got:
		assert.Equal(t, Accelerometer, ev.Type)
		assert.Equal(t, []float64{1, 2, 3}, ev.Values)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for polled sample")
	}
}
