package constraint

import (
	"os"
	"path/filepath"
	"strings"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// ChargeSource reports whether the device is on external power.
type ChargeSource interface {
	Charging() (bool, error)
}

// ChargeMonitor lets a transition proceed only while the device is not charging.
// A charge source that cannot be read counts as a failed check.
type ChargeMonitor struct {
	source   ChargeSource
	reporter Reporter
	log      logger.Logger
}

func NewChargeMonitor(source ChargeSource, reporter Reporter) *ChargeMonitor {
	return &ChargeMonitor{source: source, reporter: reporter, log: logger.Component("charge")}
}

func (m *ChargeMonitor) Init() error {
	if m.source == nil {
		return serrors.New(serrors.ErrCodeConfigMissing, "ChargeMonitor.Init", "no charge source", nil)
	}
	return nil
}

func (m *ChargeMonitor) StartMonitoring(p EvalParam) {
	charging, err := m.source.Charging()
	if err != nil {
		m.log.Error("Cannot read charge state", "param", p.String(), "err", err)
		m.reporter.Report(false)
		return
	}
	if charging {
		m.log.Info("Device is charging, transition held", "param", p.String())
	}
	m.reporter.Report(!charging)
}

// StopMonitoring is a no-op: the check completes inside StartMonitoring.
func (m *ChargeMonitor) StopMonitoring() {}

// SysfsChargeSource reads the Linux power_supply class.
type SysfsChargeSource struct {
	Dir string // usually /sys/class/power_supply
}

func NewSysfsChargeSource(dir string) *SysfsChargeSource {
	if dir == "" {
		dir = "/sys/class/power_supply"
	}
	return &SysfsChargeSource{Dir: dir}
}

// Charging is true when any battery reports Charging or Full, or any mains/USB supply is online.
func (s *SysfsChargeSource) Charging() (bool, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return false, serrors.New(serrors.ErrCodeChargeReadFailed, "Charging", "cannot list "+s.Dir, err)
	}
	for _, e := range entries {
		supply := filepath.Join(s.Dir, e.Name())
		if status, ok := readAttr(supply, "status"); ok {
			if status == "Charging" || status == "Full" {
				return true, nil
			}
		}
		if online, ok := readAttr(supply, "online"); ok && online == "1" {
			if kind, _ := readAttr(supply, "type"); kind != "Battery" {
				return true, nil
			}
		}
	}
	return false, nil
}

func readAttr(dir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// StaticChargeSource is a fixed answer, used when no supply directory is configured.
type StaticChargeSource bool

func (s StaticChargeSource) Charging() (bool, error) {
	return bool(s), nil
}

// Personal.AI order the ending
