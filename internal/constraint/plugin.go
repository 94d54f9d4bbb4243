package constraint

import (
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/config"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/sensor"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timer"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
)

// Transitions guarded by the built-in monitors.
var (
	NapToSleep = EvalParam{
		FromState: consts.StateNap, FromPhase: consts.NapEnd,
		ToState: consts.StateSleep, ToPhase: consts.SleepSysResDeep,
	}
	SleepRecheck = EvalParam{
		FromState: consts.StateSleep, FromPhase: consts.SleepEnd,
		ToState: consts.StateSleep, ToPhase: consts.SleepEnd,
		Repeated: true,
	}
	DarkToNap = EvalParam{
		FromState: consts.StateDark, FromPhase: consts.PhaseDefault,
		ToState: consts.StateNap, ToPhase: consts.NapConnection,
	}
)

// Deps are the collaborators the built-in monitors need.
type Deps struct {
	Params    *config.Params
	Sensors   sensor.Service
	Scheduler *timer.Scheduler
	Poster    worker.Poster
	Charge    ChargeSource
}

// MotionConfigFrom reads motion tuning from the parameter store.
func MotionConfigFrom(p *config.Params, periodic bool) MotionConfig {
	return MotionConfig{
		Threshold:        float64(p.GetInt(consts.ParamMotionThreshold, consts.DefaultMotionThreshold)),
		TotalTimeout:     p.Millis(consts.ParamMotionTotalTimeout, consts.DefaultMotionTotalTimeout),
		DetectionTimeout: p.Millis(consts.ParamMotionDetectionTimeout, consts.DefaultMotionDetection),
		RestTimeout:      p.Millis(consts.ParamMotionRestTimeout, consts.DefaultMotionRest),
		SamplingInterval: p.Millis(consts.ParamAccelSamplingIntervalMs, consts.DefaultAccelSamplingInterval),
		Periodic:         periodic,
	}
}

// RegisterDefaults builds, initializes and registers the monitors enabled by the switches.
// It must run on the worker, or before the worker starts.
func RegisterDefaults(c *Coordinator, d Deps) error {
	type entry struct {
		param   EvalParam
		monitor Monitor
	}
	var entries []entry

	if d.Params.GetBool(consts.SwitchMotion, false) {
		m := NewMotionMonitor(MotionConfigFrom(d.Params, false), d.Sensors, d.Scheduler, d.Poster, c)
		entries = append(entries, entry{NapToSleep, m})
	}
	if d.Params.GetBool(consts.SwitchRepeatedMotion, false) {
		m := NewMotionMonitor(MotionConfigFrom(d.Params, true), d.Sensors, d.Scheduler, d.Poster, c)
		entries = append(entries, entry{SleepRecheck, m})
	}
	if d.Params.GetBool(consts.SwitchChargeConstraint, false) {
		entries = append(entries, entry{DarkToNap, NewChargeMonitor(d.Charge, c)})
	}

	for _, e := range entries {
		if err := e.monitor.Init(); err != nil {
			return err
		}
		c.RegisterConstraintCallback(e.param, e.monitor)
		c.log.Info("Constraint registered", "param", e.param.String())
	}
	return nil
}

// Personal.AI order the ending
