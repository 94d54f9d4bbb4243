package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

func TestCommands(t *testing.T) {
	if rootCmd.Name() != "standbyd" {
		t.Errorf("Expected root command name standbyd, got %s", rootCmd.Name())
	}

	if len(rootCmd.Commands()) < 4 {
		t.Errorf("Expected at least 4 subcommands, got %d", len(rootCmd.Commands()))
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standbyd.yaml")
	data := `
service:
  name: standbyd
standby:
  params_file: /etc/standbyd/device_standby_config.json
  power_lock:
    enabled: true
    name: standbyd
notify:
  log: true
  nats:
    url: nats://127.0.0.1:4222
control:
  socket_path: /run/standbyd/control.sock
observability:
  report_interval: 30s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Service.Name != "standbyd" || !cfg.Standby.PowerLock.Enabled || !cfg.Notify.Log {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Notify.NATS.URL != "nats://127.0.0.1:4222" || cfg.Observability.ReportInterval != "30s" {
		t.Errorf("Unexpected notify/observability config: %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); !serrors.Is(err, serrors.ErrCodeConfigMissing) {
		t.Errorf("Expected ConfigMissing, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("service: [unclosed"), 0o644)
	if _, err := LoadConfig(path); !serrors.Is(err, serrors.ErrCodeConfigInvalid) {
		t.Errorf("Expected ConfigInvalid, got %v", err)
	}
}

func TestResolveSocket(t *testing.T) {
	defer func(c, s string) { cfgFile, socketPath = c, s }(cfgFile, socketPath)

	path := filepath.Join(t.TempDir(), "standbyd.yaml")
	os.WriteFile(path, []byte("control:\n  socket_path: /tmp/from-config.sock\n"), 0o644)
	cfgFile, socketPath = path, ""
	if got := resolveSocket(); got != "/tmp/from-config.sock" {
		t.Errorf("Expected socket from config, got %s", got)
	}

	socketPath = "/tmp/flag.sock"
	if got := resolveSocket(); got != "/tmp/flag.sock" {
		t.Errorf("Expected socket from flag, got %s", got)
	}
}

func TestPrintGraph(t *testing.T) {
	var buf bytes.Buffer
	printGraph(&buf)
	out := buf.String()

	if !strings.Contains(out, "nap") || !strings.Contains(out, "maintenance, sleep") {
		t.Errorf("Unexpected graph output:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 5 {
		t.Errorf("Expected one line per state, got %d", lines)
	}
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, &protocol.Snapshot{State: "sleep", Phase: "end"}); err != nil {
		t.Fatalf("printSnapshot failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"state": "sleep"`) {
		t.Errorf("Unexpected dump output: %s", buf.String())
	}
	if err := printSnapshot(&buf, nil); err == nil {
		t.Error("Expected error for a missing snapshot")
	}
}

func TestEventNames(t *testing.T) {
	names := strings.Join(eventNames(), " ")
	for _, want := range []string{"screen-off", "user-activity", "unblock"} {
		if !strings.Contains(names, want) {
			t.Errorf("Expected %s among event names, got %s", want, names)
		}
	}
}
