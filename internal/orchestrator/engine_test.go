package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/control"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

const testParams = `{
  // long timeouts so nothing fires during a test
  "switches": {"night_condition_switch": false, "charge_constraint_switch": true},
  "parameters": {"dark_timeout": 600, "nap_timeout": 600, "maint_timeout": 30},
  "intervals": {"nap_maint_interval": [900], "sleep_maint_interval": [1800]},
}`

func testConfig(t *testing.T) *protocol.Config {
	t.Helper()
	dir := t.TempDir()
	params := filepath.Join(dir, "device_standby_config.json")
	require.NoError(t, os.WriteFile(params, []byte(testParams), 0o644))
	return &protocol.Config{
		Service: protocol.ServiceConfig{Name: "test-standbyd"},
		Standby: protocol.StandbyConfig{ParamsFile: params},
		Control: protocol.ControlConfig{SocketPath: filepath.Join(dir, "control.sock")},
	}
}

func newTestEngine(t *testing.T, cfg *protocol.Config) *Engine {
	t.Helper()
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)
	e, err := NewEngine(cfg, clockwork.NewFakeClockAt(noon))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Shutdown)
	return e
}

func TestNewEngine_MissingParams(t *testing.T) {
	cfg := testConfig(t)
	cfg.Standby.ParamsFile = filepath.Join(t.TempDir(), "absent.json")

	_, err := NewEngine(cfg, clockwork.NewFakeClock())
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigMissing))
}

func TestNewEngine_BadReportInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.ReportInterval = "soon"

	_, err := NewEngine(cfg, clockwork.NewFakeClock())
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigInvalid))
}

func TestNewEngine_DefaultsWithoutParamsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Standby.ParamsFile = ""

	e, err := NewEngine(cfg, clockwork.NewFakeClock())
	require.NoError(t, err)
	assert.Equal(t, consts.DefaultReportInterval, e.interval)
}

func TestEngine_StartsInWorking(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	snap, err := e.Dump(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "working", snap.State)
	assert.False(t, snap.Blocked)
	assert.Equal(t, "day", snap.Condition)
}

func TestEngine_ScreenOffEntersDark(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	require.NoError(t, e.Event(ctx, consts.EventScreenOff))
	snap, err := e.Dump(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", snap.State)
	assert.Equal(t, []string{"dark/transit-next-state"}, snap.Timers)

	require.NoError(t, e.Event(ctx, consts.EventScreenOn))
	snap, err = e.Dump(ctx)
	require.NoError(t, err)
	assert.Equal(t, "working", snap.State)
	assert.Empty(t, snap.Timers)
}

func TestEngine_UnknownEvent(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	err := e.Event(context.Background(), "lid-closed")
	assert.True(t, serrors.Is(err, serrors.ErrCodeInvalidTransition))
}

func TestEngine_ControlChannel(t *testing.T) {
	cfg := testConfig(t)
	newTestEngine(t, cfg)

	_, err := control.Request(cfg.Control.SocketPath, protocol.ControlRequest{Command: "event", Event: "screen-off"})
	require.NoError(t, err)

	resp, err := control.Request(cfg.Control.SocketPath, protocol.ControlRequest{Command: "dump"})
	require.NoError(t, err)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, "dark", resp.Snapshot.State)
}

func TestEngine_ShutdownRemovesSocket(t *testing.T) {
	cfg := testConfig(t)
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)
	e, err := NewEngine(cfg, clockwork.NewFakeClockAt(noon))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	e.Shutdown()
	_, err = os.Stat(cfg.Control.SocketPath)
	assert.True(t, os.IsNotExist(err))

	_, err = e.Dump(context.Background())
	assert.True(t, serrors.Is(err, serrors.ErrCodeWorkerStopped))
}
