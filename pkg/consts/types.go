package consts

import (
	"strconv"
	"time"
)

// StandbyState is the coarse power-management mode of the device.
type StandbyState uint8

const (
	StateWorking StandbyState = iota
	StateDark
	StateNap
	StateMaintenance
	StateSleep
)

// AllStates lists every standby state in escalation order.
var AllStates = []StandbyState{StateWorking, StateDark, StateNap, StateMaintenance, StateSleep}

func (s StandbyState) String() string {
	switch s {
	case StateWorking:
		return "working"
	case StateDark:
		return "dark"
	case StateNap:
		return "nap"
	case StateMaintenance:
		return "maintenance"
	case StateSleep:
		return "sleep"
	default:
		return "state-" + strconv.Itoa(int(s))
	}
}

// ParseState converts a state name back to its identifier.
func ParseState(name string) (StandbyState, bool) {
	for _, s := range AllStates {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Phase is a sub-step inside a standby state. Its meaning depends on the state.
type Phase uint8

// Phase zero is the only phase of states without sub-phases.
const PhaseDefault Phase = 0

// Nap phases
const (
	NapConnection Phase = iota
	NapSysResLight
	NapAppResLight
	NapAppResHardware
	NapEnd
)

// Sleep phases
const (
	SleepSysResDeep Phase = iota
	SleepAppResDeep
	SleepEnd
)

// FinalPhase returns the last internal phase of a state.
func FinalPhase(s StandbyState) Phase {
	switch s {
	case StateNap:
		return NapEnd
	case StateSleep:
		return SleepEnd
	default:
		return PhaseDefault
	}
}

// PhaseName renders a phase in the context of its state.
func PhaseName(s StandbyState, p Phase) string {
	switch s {
	case StateNap:
		switch p {
		case NapConnection:
			return "connection"
		case NapSysResLight:
			return "sys-res-light"
		case NapAppResLight:
			return "app-res-light"
		case NapAppResHardware:
			return "app-res-hardware"
		case NapEnd:
			return "end"
		}
	case StateSleep:
		switch p {
		case SleepSysResDeep:
			return "sys-res-deep"
		case SleepAppResDeep:
			return "app-res-deep"
		case SleepEnd:
			return "end"
		}
	default:
		if p == PhaseDefault {
			return "default"
		}
	}
	return "phase-" + strconv.Itoa(int(p))
}

// Condition classifies the time of day used to scale timeouts.
type Condition uint8

const (
	ConditionDay   Condition = 1
	ConditionNight Condition = 1 << 1
)

func (c Condition) String() string {
	switch c {
	case ConditionDay:
		return "day"
	case ConditionNight:
		return "night"
	default:
		return "condition-" + strconv.Itoa(int(c))
	}
}

// SystemEvent is an external trigger that can force the machine back to working
// or let it leave working.
type SystemEvent string

const (
	EventScreenOn     SystemEvent = "screen-on"
	EventScreenOff    SystemEvent = "screen-off"
	EventCharging     SystemEvent = "charging"
	EventDischarging  SystemEvent = "discharging"
	EventUserActivity SystemEvent = "user-activity"
	// EventUnblock restarts a blocked state's entry actions in place.
	EventUnblock      SystemEvent = "unblock"
)

// Timer names used by the standby states and constraint monitors.
const (
	TimerTransitNext       = "transit-next-state"
	TimerMaintenance       = "maintenance"
	TimerRepeatedMotion    = "repeated-motion"
	TimerMotionTotal       = "motion-total"
	TimerMotionPeriodic    = "motion-periodic"
	TimerEvaluationCeiling = "evaluation-ceiling"
)

// Switch keys in the parameter store.
const (
	SwitchMotion           = "motion_switch"
	SwitchRepeatedMotion   = "repeated_motion_switch"
	SwitchChargeConstraint = "charge_constraint_switch"
	SwitchNightCondition   = "night_condition_switch"
)

// Parameter keys in the parameter store. Timeouts are in seconds, thresholds are raw units.
const (
	ParamDarkTimeout             = "dark_timeout"
	ParamNightDarkTimeout        = "night_dark_timeout"
	ParamNapTimeout              = "nap_timeout"
	ParamNightNapTimeout         = "night_nap_timeout"
	ParamMaintTimeout            = "maint_timeout"
	ParamMotionThreshold         = "motion_threshold"
	ParamMotionTotalTimeout      = "motion_total_timeout_ms"
	ParamMotionDetectionTimeout  = "motion_detection_timeout_ms"
	ParamMotionRestTimeout       = "motion_rest_timeout_ms"
	ParamRepeatedMotionInterval  = "repeated_motion_detection_interval"
	ParamAccelSamplingIntervalMs = "accel_sampling_interval_ms"
	ParamNightEntranceHour       = "night_entrance_hour"
	ParamNightEntranceMin        = "night_entrance_min"
	ParamDayEntranceHour         = "day_entrance_hour"
	ParamDayEntranceMin          = "day_entrance_min"
)

// Interval list keys in the parameter store.
const (
	IntervalNapMaint   = "nap_maint_interval"
	IntervalSleepMaint = "sleep_maint_interval"
)

// Defaults applied when the parameter store omits a key.
const (
	DefaultDarkTimeout           = 60 * time.Second
	DefaultNapTimeout            = 30 * time.Minute
	DefaultMaintTimeout          = 30 * time.Second
	DefaultMotionThreshold       = 100
	DefaultMotionTotalTimeout    = 10 * time.Second
	DefaultMotionDetection       = 410 * time.Millisecond
	DefaultMotionRest            = 60 * time.Second
	DefaultRepeatedMotion        = 420 * time.Second
	DefaultAccelSamplingInterval = 200 * time.Millisecond
	DefaultNightEntranceHour     = 23
	DefaultNightEntranceMin      = 45
	DefaultDayEntranceHour       = 6
	DefaultDayEntranceMin        = 0
)

// PeriodicThresholdDivisor relaxes the motion threshold for the short detection windows of
// periodic monitoring. It is an empirically tuned constant, not a derived one.
const PeriodicThresholdDivisor = 15

// Daemon defaults
const (
	DefaultControlSocket  = "/run/standbyd/control.sock"
	DefaultReportInterval = 60 * time.Second
	DefaultWorkerQueue    = 64
)

// Personal.AI order the ending
