package constraint

import (
	"time"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/sensor"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timer"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// MotionConfig tunes a motion monitor.
type MotionConfig struct {
	Threshold        float64
	TotalTimeout     time.Duration
	DetectionTimeout time.Duration // periodic only
	RestTimeout      time.Duration // periodic only
	SamplingInterval time.Duration
	Periodic         bool
}

// MotionMonitor decides whether the device is still by accumulating accelerometer energy.
//
// One-shot mode fails as soon as the accumulated energy exceeds the threshold or significant
// motion is reported, and succeeds when TotalTimeout elapses. Periodic mode alternates
// detection windows and rest gaps; each window starts from zero energy and is compared
// against Threshold/PeriodicThresholdDivisor.
//
// Sample history is per instance. Sensor callbacks arrive on the sensor service goroutine
// and are re-posted to the worker before touching any field.
type MotionMonitor struct {
	cfg      MotionConfig
	sensors  sensor.Service
	sched    *timer.Scheduler
	poster   worker.Poster
	reporter Reporter
	log      logger.Logger

	totalTimer  timer.Handle
	windowTimer timer.Handle

	monitoring bool
	reported   bool
	detecting  bool
	sensorsOn  bool
	gen        uint64
	energy     float64
	prev       []float64
}

func NewMotionMonitor(cfg MotionConfig, sensors sensor.Service, sched *timer.Scheduler,
	poster worker.Poster, reporter Reporter) *MotionMonitor {
	name := "motion"
	if cfg.Periodic {
		name = "motion-periodic"
	}
	return &MotionMonitor{
		cfg:      cfg,
		sensors:  sensors,
		sched:    sched,
		poster:   poster,
		reporter: reporter,
		log:      logger.Component(name),
	}
}

// Init creates the monitor's timers.
func (m *MotionMonitor) Init() error {
	h, err := m.sched.Create(consts.TimerMotionTotal, false, 0, m.onTotalTimeout)
	if err != nil {
		return err
	}
	m.totalTimer = h
	if m.cfg.Periodic {
		h, err = m.sched.Create(consts.TimerMotionPeriodic, false, 0, m.onWindowTimeout)
		if err != nil {
			return err
		}
		m.windowTimer = h
	}
	return nil
}

// Energy returns the energy accumulated in the current window.
func (m *MotionMonitor) Energy() float64 {
	return m.energy
}

// Monitoring reports whether an evaluation is being watched.
func (m *MotionMonitor) Monitoring() bool {
	return m.monitoring
}

func (m *MotionMonitor) threshold() float64 {
	if m.cfg.Periodic {
		return m.cfg.Threshold / consts.PeriodicThresholdDivisor
	}
	return m.cfg.Threshold
}

func (m *MotionMonitor) StartMonitoring(p EvalParam) {
	if m.monitoring {
		m.StopMonitoring()
	}
	m.gen++
	m.monitoring = true
	m.reported = false
	m.log.Info("Motion monitoring started", "param", p.String(), "threshold", m.threshold())

	if err := m.sched.StartAfter(m.totalTimer, m.cfg.TotalTimeout); err != nil {
		m.log.Error("Cannot arm motion ceiling timer", "err", err)
		m.fail()
		return
	}
	m.startWindow()
}

func (m *MotionMonitor) StopMonitoring() {
	if !m.monitoring {
		return
	}
	m.gen++
	m.monitoring = false
	m.detecting = false
	m.sched.Stop(m.totalTimer)
	m.sched.Stop(m.windowTimer)
	m.stopSensors()
	m.log.Info("Motion monitoring stopped")
}

func (m *MotionMonitor) startWindow() {
	m.energy = 0
	m.prev = nil
	if err := m.startSensors(); err != nil {
		m.log.Error("Sensor activation failed", "err", err)
		m.fail()
		return
	}
	m.detecting = true
	if m.cfg.Periodic {
		if err := m.sched.StartAfter(m.windowTimer, m.cfg.DetectionTimeout); err != nil {
			m.log.Error("Cannot arm detection window timer", "err", err)
			m.fail()
		}
	}
}

// onWindowTimeout ends a detection window or a rest gap.
func (m *MotionMonitor) onWindowTimeout() {
	if !m.monitoring || m.reported {
		return
	}
	if m.detecting {
		m.log.Debug("Detection window passed", "energy", m.energy)
		m.detecting = false
		m.stopSensors()
		if err := m.sched.StartAfter(m.windowTimer, m.cfg.RestTimeout); err != nil {
			m.log.Error("Cannot arm rest timer", "err", err)
			m.fail()
		}
		return
	}
	m.startWindow()
}

func (m *MotionMonitor) onTotalTimeout() {
	if !m.monitoring || m.reported {
		return
	}
	m.log.Info("No motion within budget", "energy", m.energy)
	m.report(true)
}

func (m *MotionMonitor) fail() {
	m.report(false)
}

// report hands the verdict over once; cleanup happens in StopMonitoring.
func (m *MotionMonitor) report(success bool) {
	if !m.monitoring || m.reported {
		return
	}
	m.reported = true
	m.detecting = false
	m.reporter.Report(success)
}

func (m *MotionMonitor) startSensors() error {
	gen := m.gen
	onEvent := func(ev sensor.Event) {
		m.poster.Post(func() { m.onSensorEvent(gen, ev) })
	}
	m.sensorsOn = true
	if err := m.sensors.Subscribe(sensor.Accelerometer, onEvent); err != nil {
		return err
	}
	if m.cfg.SamplingInterval > 0 {
		if err := m.sensors.SetSamplingRate(sensor.Accelerometer, m.cfg.SamplingInterval); err != nil {
			return err
		}
	}
	if err := m.sensors.Subscribe(sensor.SignificantMotion, onEvent); err != nil {
		return err
	}
	if err := m.sensors.Activate(sensor.Accelerometer); err != nil {
		return err
	}
	return m.sensors.Activate(sensor.SignificantMotion)
}

func (m *MotionMonitor) stopSensors() {
	if !m.sensorsOn {
		return
	}
	m.sensorsOn = false
	for _, t := range []sensor.Type{sensor.Accelerometer, sensor.SignificantMotion} {
		if err := m.sensors.Deactivate(t); err != nil {
			m.log.Warn("Deactivate failed", "sensor", t, "err", err)
		}
		if err := m.sensors.Unsubscribe(t); err != nil {
			m.log.Warn("Unsubscribe failed", "sensor", t, "err", err)
		}
	}
}

func (m *MotionMonitor) onSensorEvent(gen uint64, ev sensor.Event) {
	if gen != m.gen || !m.monitoring || m.reported || !m.detecting {
		return
	}
	switch ev.Type {
	case sensor.SignificantMotion:
		m.log.Info("Significant motion detected")
		m.fail()
	case sensor.Accelerometer:
		m.accumulate(ev.Values)
		if m.energy > m.threshold() {
			m.log.Info("Motion threshold exceeded", "energy", m.energy, "threshold", m.threshold())
			m.fail()
		}
	}
}

// accumulate adds the squared distance to the previous sample. The first sample only
// becomes the reference.
func (m *MotionMonitor) accumulate(values []float64) {
	if len(values) < 3 {
		return
	}
	if m.prev != nil {
		for i := 0; i < 3; i++ {
			d := values[i] - m.prev[i]
			m.energy += d * d
		}
	}
	m.prev = append(m.prev[:0], values[:3]...)
}

// Personal.AI order the ending
