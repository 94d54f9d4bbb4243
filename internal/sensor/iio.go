package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// IIOSource polls a Linux industrial-I/O accelerometer and feeds the hub while the
// accelerometer channel is active.
type IIOSource struct {
	Dir   string  // e.g. /sys/bus/iio/devices/iio:device0
	Scale float64 // multiplier applied to raw readings; zero means read in_accel_scale
	hub   *Hub
	clock clockwork.Clock
	log   logger.Logger
}

func NewIIOSource(dir string, scale float64, hub *Hub, clock clockwork.Clock) *IIOSource {
	return &IIOSource{Dir: dir, Scale: scale, hub: hub, clock: clock, log: logger.Component("iio")}
}

// Read returns one three-axis sample.
func (s *IIOSource) Read() ([]float64, error) {
	scale := s.Scale
	if scale == 0 {
		v, err := readFloat(filepath.Join(s.Dir, "in_accel_scale"))
		if err != nil {
			scale = 1
		} else {
			scale = v
		}
	}
	out := make([]float64, 0, 3)
	for _, axis := range []string{"x", "y", "z"} {
		raw, err := readFloat(filepath.Join(s.Dir, "in_accel_"+axis+"_raw"))
		if err != nil {
			return nil, err
		}
		out = append(out, raw*scale)
	}
	return out, nil
}

// Run polls at the hub's accelerometer sampling rate until ctx is done.
func (s *IIOSource) Run(ctx context.Context, fallback time.Duration) {
	interval := s.interval(fallback)
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if want := s.interval(fallback); want != interval {
				interval = want
				ticker.Reset(interval)
			}
			if !s.hub.Active(Accelerometer) {
				continue
			}
			values, err := s.Read()
			if err != nil {
				s.log.Warn("Failed to read accelerometer", "dir", s.Dir, "err", err)
				continue
			}
			s.hub.Inject(Event{Type: Accelerometer, Timestamp: s.clock.Now(), Values: values})
		}
	}
}

func (s *IIOSource) interval(fallback time.Duration) time.Duration {
	if d := s.hub.SamplingRate(Accelerometer); d > 0 {
		return d
	}
	return fallback
}

func readFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// Personal.AI order the ending
