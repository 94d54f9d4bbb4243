package standby

import (
	"time"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/constraint"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
)

// retryExit re-arms the exit timer after a rejected transit and lets the device sleep
// until it fires. If the timer cannot be armed the state is blocked.
func (b *baseState) retryExit(m *Manager, d time.Duration) {
	if err := b.startTimer(m, consts.TimerTransitNext, d); err != nil {
		b.log.Error("Cannot re-arm exit timer", "err", err)
		m.BlockCurrentState()
		return
	}
	m.settle()
}

// Working is the active state. It has no exit timer; screen-off leaves it.
type workingState struct {
	baseState
}

func newWorkingState(m *Manager) *workingState {
	return &workingState{baseState: newBaseState(m, consts.StateWorking, consts.StateDark)}
}

func (s *workingState) Create() error { return nil }

func (s *workingState) Init() error {
	s.curPhase = consts.PhaseDefault
	return nil
}

func (s *workingState) EndEvalCurrentState(p constraint.EvalParam, success bool) {
	s.withManager(func(m *Manager) {
		if success && p.ToState != s.curState {
			m.transitOrBlock(p.ToState)
			return
		}
		m.settle()
	})
}

// Dark waits dark_timeout with the screen off, then asks to enter Nap.
type darkState struct {
	baseState
}

func newDarkState(m *Manager) *darkState {
	return &darkState{baseState: newBaseState(m, consts.StateDark, consts.StateNap)}
}

func (s *darkState) Create() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	return s.createExitTimer(m, func() constraint.EvalParam { return s.exitParam(s.nextState) })
}

func (s *darkState) timeout(m *Manager) time.Duration {
	return m.timeout(consts.ParamDarkTimeout, consts.ParamNightDarkTimeout, consts.DefaultDarkTimeout)
}

func (s *darkState) Init() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	s.curPhase = consts.PhaseDefault
	return s.startTimer(m, consts.TimerTransitNext, s.timeout(m))
}

func (s *darkState) EndEvalCurrentState(p constraint.EvalParam, success bool) {
	s.withManager(func(m *Manager) {
		if success {
			m.transitOrBlock(p.ToState)
			return
		}
		s.log.Info("Transit rejected, retrying later", "to", p.ToState)
		s.retryExit(m, s.timeout(m))
	})
}

// Nap walks its phases right after entry. Once at the end phase it arms the exit timer
// toward Sleep and the maintenance timer.
type napState struct {
	baseState
	withMaint
	firstMaint bool
}

func newNapState(m *Manager) *napState {
	return &napState{
		baseState: newBaseState(m, consts.StateNap, consts.StateSleep),
		withMaint: withMaint{listKey: consts.IntervalNapMaint},
	}
}

func (s *napState) Create() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	if err := s.createExitTimer(m, func() constraint.EvalParam { return s.exitParam(s.nextState) }); err != nil {
		return err
	}
	_, err = s.createTimer(m, consts.TimerMaintenance, false, 0, func() {
		s.disarm(consts.TimerMaintenance)
		s.withManager(func(m *Manager) { m.startTimedTransit(s.exitParam(consts.StateMaintenance)) })
	})
	return err
}

func (s *napState) timeout(m *Manager) time.Duration {
	return m.timeout(consts.ParamNapTimeout, consts.ParamNightNapTimeout, consts.DefaultNapTimeout)
}

func (s *napState) Init() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	s.firstMaint = m.prevState != consts.StateMaintenance
	s.curPhase = consts.NapConnection
	return s.transitToPhase(m, consts.NapConnection, consts.NapConnection+1)
}

func (s *napState) armTimers(m *Manager) {
	if err := s.startTimer(m, consts.TimerTransitNext, s.timeout(m)); err != nil {
		s.log.Error("Cannot arm exit timer", "err", err)
		m.BlockCurrentState()
		return
	}
	if d := s.CalculateMaintTimeOut(m, s.firstMaint); d > 0 {
		if err := s.startTimer(m, consts.TimerMaintenance, d); err != nil {
			s.log.Error("Cannot arm maintenance timer", "err", err)
			m.BlockCurrentState()
			return
		}
	}
	m.settle()
}

func (s *napState) EndEvalCurrentState(p constraint.EvalParam, success bool) {
	s.withManager(func(m *Manager) {
		switch {
		case p.ToState == s.curState:
			if !success {
				s.log.Warn("Phase rejected", "phase", consts.PhaseName(s.curState, p.ToPhase))
				m.BlockCurrentState()
				return
			}
			if s.advancePhases(m, p) {
				s.armTimers(m)
			}
		case success:
			m.transitOrBlock(p.ToState)
		case p.ToState == consts.StateMaintenance:
			if d := s.CalculateMaintTimeOut(m, false); d > 0 {
				if err := s.startTimer(m, consts.TimerMaintenance, d); err != nil {
					m.BlockCurrentState()
					return
				}
			}
			m.settle()
		default:
			s.log.Info("Transit rejected, retrying later", "to", p.ToState)
			s.retryExit(m, s.timeout(m))
		}
	})
}

// Sleep walks its phases, then only leaves for maintenance windows. With repeated motion
// detection on, a periodic re-check sends it back to Nap when the device moves.
type sleepState struct {
	baseState
	withMaint
	firstMaint bool
	repeated   bool
}

func newSleepState(m *Manager) *sleepState {
	return &sleepState{
		baseState: newBaseState(m, consts.StateSleep, consts.StateMaintenance),
		withMaint: withMaint{listKey: consts.IntervalSleepMaint},
	}
}

func (s *sleepState) recheckInterval(m *Manager) time.Duration {
	return m.params.Seconds(consts.ParamRepeatedMotionInterval, consts.DefaultRepeatedMotion)
}

func (s *sleepState) Create() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = s.createTimer(m, consts.TimerMaintenance, false, 0, func() {
		s.disarm(consts.TimerMaintenance)
		s.withManager(func(m *Manager) { m.startTimedTransit(s.exitParam(s.nextState)) })
	})
	if err != nil {
		return err
	}

	s.repeated = m.params.GetBool(consts.SwitchRepeatedMotion, false)
	if !s.repeated {
		return nil
	}
	_, err = s.createTimer(m, consts.TimerRepeatedMotion, true, s.recheckInterval(m), func() {
		s.withManager(func(m *Manager) {
			m.startTimedTransit(constraint.EvalParam{
				FromState: consts.StateSleep, FromPhase: s.curPhase,
				ToState: consts.StateSleep, ToPhase: s.curPhase,
				Repeated: true,
			})
		})
	})
	return err
}

func (s *sleepState) Init() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	s.firstMaint = m.prevState != consts.StateMaintenance
	s.curPhase = consts.SleepSysResDeep
	return s.transitToPhase(m, consts.SleepSysResDeep, consts.SleepSysResDeep+1)
}

func (s *sleepState) armTimers(m *Manager) {
	if d := s.CalculateMaintTimeOut(m, s.firstMaint); d > 0 {
		if err := s.startTimer(m, consts.TimerMaintenance, d); err != nil {
			s.log.Error("Cannot arm maintenance timer", "err", err)
			m.BlockCurrentState()
			return
		}
	}
	if s.repeated {
		if err := s.startTimer(m, consts.TimerRepeatedMotion, s.recheckInterval(m)); err != nil {
			s.log.Error("Cannot arm motion re-check timer", "err", err)
			m.BlockCurrentState()
			return
		}
	}
	m.settle()
}

func (s *sleepState) EndEvalCurrentState(p constraint.EvalParam, success bool) {
	s.withManager(func(m *Manager) {
		switch {
		case p.Repeated:
			if success {
				m.settle()
				return
			}
			s.log.Info("Motion detected during sleep, back to nap")
			m.transitOrBlock(consts.StateNap)
		case p.ToState == s.curState:
			if !success {
				s.log.Warn("Phase rejected", "phase", consts.PhaseName(s.curState, p.ToPhase))
				m.BlockCurrentState()
				return
			}
			if s.advancePhases(m, p) {
				s.armTimers(m)
			}
		case success:
			m.transitOrBlock(p.ToState)
		default:
			if d := s.CalculateMaintTimeOut(m, false); d > 0 {
				if err := s.startTimer(m, consts.TimerMaintenance, d); err != nil {
					m.BlockCurrentState()
					return
				}
			}
			m.settle()
		}
	})
}

// Maintenance opens a short window for deferred work, then returns to the state it came from.
type maintenanceState struct {
	baseState
	returnTo consts.StandbyState
}

func newMaintenanceState(m *Manager) *maintenanceState {
	return &maintenanceState{
		baseState: newBaseState(m, consts.StateMaintenance, consts.StateNap),
		returnTo:  consts.StateNap,
	}
}

func (s *maintenanceState) Create() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	return s.createExitTimer(m, func() constraint.EvalParam { return s.exitParam(s.returnTo) })
}

func (s *maintenanceState) timeout(m *Manager) time.Duration {
	return m.params.Seconds(consts.ParamMaintTimeout, consts.DefaultMaintTimeout)
}

func (s *maintenanceState) Init() error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	switch m.prevState {
	case consts.StateNap, consts.StateSleep:
		s.returnTo = m.prevState
	default:
		s.returnTo = s.nextState
	}
	s.curPhase = consts.PhaseDefault
	return s.startTimer(m, consts.TimerTransitNext, s.timeout(m))
}

func (s *maintenanceState) EndEvalCurrentState(p constraint.EvalParam, success bool) {
	s.withManager(func(m *Manager) {
		if success {
			m.transitOrBlock(p.ToState)
			return
		}
		s.retryExit(m, s.timeout(m))
	})
}

// Personal.AI order the ending
