package standby

import (
	"sort"
	"time"
	"weak"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/constraint"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timer"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// State is one standby state variant. States are built once by the manager and
// switched between; Init runs on every entry and UnInit on every exit.
// All methods run on the worker.
type State interface {
	State() consts.StandbyState
	Phase() consts.Phase
	IsInFinalPhase() bool

	// Create allocates the state's timers. It runs once at manager start.
	Create() error
	Init() error
	UnInit()
	Destroy()

	// EndEvalCurrentState receives the verdict of an evaluation the state requested.
	EndEvalCurrentState(p constraint.EvalParam, success bool)

	// StopTimers disarms every timer of the state without leaving it.
	StopTimers()
	ArmedTimers() []string

	restorePhase(p consts.Phase)
}

type namedTimer struct {
	handle timer.Handle
	armed  bool
}

// baseState carries what every variant shares. The manager is reached through a weak
// pointer; a state never keeps its owner alive.
type baseState struct {
	curState  consts.StandbyState
	nextState consts.StandbyState
	curPhase  consts.Phase

	namedTimers map[string]*namedTimer

	mgr weak.Pointer[Manager]
	log logger.Logger
}

func newBaseState(m *Manager, cur, next consts.StandbyState) baseState {
	return baseState{
		curState:    cur,
		nextState:   next,
		namedTimers: make(map[string]*namedTimer),
		mgr:         weak.Make(m),
		log:         logger.Component("state").With("state", cur.String()),
	}
}

func (b *baseState) State() consts.StandbyState { return b.curState }
func (b *baseState) Phase() consts.Phase { return b.curPhase }

// restorePhase puts back a phase cleared by UnInit when a transition out is rolled back.
func (b *baseState) restorePhase(p consts.Phase) { b.curPhase = p }

func (b *baseState) IsInFinalPhase() bool {
	return b.curPhase == consts.FinalPhase(b.curState)
}

// manager returns the owner, or StateAbsent once it has been collected.
func (b *baseState) manager() (*Manager, error) {
	m := b.mgr.Value()
	if m == nil {
		return nil, serrors.New(serrors.ErrCodeStateAbsent, b.curState.String(), "state manager is gone", nil)
	}
	return m, nil
}

// withManager runs fn with the owner, logging instead when it is gone.
func (b *baseState) withManager(fn func(m *Manager)) {
	m, err := b.manager()
	if err != nil {
		b.log.Error("Dropping callback", "err", err)
		return
	}
	fn(m)
}

func (b *baseState) createTimer(m *Manager, name string, repeat bool, interval time.Duration, task func()) (timer.Handle, error) {
	h, err := m.sched.Create(b.curState.String()+"/"+name, repeat, interval, task)
	if err != nil {
		return 0, err
	}
	b.namedTimers[name] = &namedTimer{handle: h}
	return h, nil
}

// createExitTimer creates the timer that starts a timed transit toward param.ToState.
func (b *baseState) createExitTimer(m *Manager, param func() constraint.EvalParam) error {
	_, err := b.createTimer(m, consts.TimerTransitNext, false, 0, func() {
		b.disarm(consts.TimerTransitNext)
		b.withManager(func(m *Manager) { m.startTimedTransit(param()) })
	})
	return err
}

func (b *baseState) startTimer(m *Manager, name string, d time.Duration) error {
	t, ok := b.namedTimers[name]
	if !ok {
		return serrors.New(serrors.ErrCodeTimerStartFailed, b.curState.String(), "timer "+name+" was never created", nil)
	}
	if err := m.sched.StartAfter(t.handle, d); err != nil {
		return err
	}
	t.armed = true
	b.log.Debug("Timer armed", "timer", name, "after", d)
	return nil
}

func (b *baseState) disarm(name string) {
	if t, ok := b.namedTimers[name]; ok {
		t.armed = false
	}
}

func (b *baseState) StopTimers() {
	m, err := b.manager()
	if err != nil {
		return
	}
	for _, t := range b.namedTimers {
		m.sched.Stop(t.handle)
		t.armed = false
	}
}

func (b *baseState) ArmedTimers() []string {
	var out []string
	for name, t := range b.namedTimers {
		if t.armed {
			out = append(out, b.curState.String()+"/"+name)
		}
	}
	sort.Strings(out)
	return out
}

func (b *baseState) UnInit() {
	b.StopTimers()
	b.curPhase = consts.PhaseDefault
}

func (b *baseState) Destroy() {
	m, err := b.manager()
	if err != nil {
		return
	}
	for name, t := range b.namedTimers {
		m.sched.Destroy(t.handle)
		delete(b.namedTimers, name)
	}
}

// transitToPhase asks the coordinator to evaluate the phase boundary. The verdict comes
// back through EndEvalCurrentState.
func (b *baseState) transitToPhase(m *Manager, cur, next consts.Phase) error {
	return m.StartEvalCurrentState(constraint.EvalParam{
		FromState: b.curState, FromPhase: cur,
		ToState: b.curState, ToPhase: next,
	})
}

// TransitToPhaseInner commits a phase and tells the strategies.
func (b *baseState) TransitToPhaseInner(m *Manager, prev, next consts.Phase) {
	b.curPhase = next
	m.notifyPhase(b.curState, prev, next)
}

// exitParam describes leaving this state for to.
func (b *baseState) exitParam(to consts.StandbyState) constraint.EvalParam {
	return constraint.EvalParam{
		FromState: b.curState, FromPhase: b.curPhase,
		ToState: to, ToPhase: firstPhase(to),
	}
}

func firstPhase(s consts.StandbyState) consts.Phase {
	switch s {
	case consts.StateNap:
		return consts.NapConnection
	case consts.StateSleep:
		return consts.SleepSysResDeep
	default:
		return consts.PhaseDefault
	}
}

// advancePhases drives the phase chain after a successful phase verdict: commit, then either
// request the next boundary or report that the final phase is reached.
func (b *baseState) advancePhases(m *Manager, p constraint.EvalParam) (final bool) {
	b.TransitToPhaseInner(m, p.FromPhase, p.ToPhase)
	if b.IsInFinalPhase() {
		return true
	}
	if err := b.transitToPhase(m, b.curPhase, b.curPhase+1); err != nil {
		b.log.Error("Cannot evaluate next phase", "phase", consts.PhaseName(b.curState, b.curPhase), "err", err)
		m.BlockCurrentState()
	}
	return false
}

// withMaint selects maintenance wake intervals from a configured list.
type withMaint struct {
	listKey    string
	maintIndex int
}

// CalculateMaintTimeOut returns the delay before the next maintenance window. The first
// interval restarts the list; later calls advance and stay on the last entry once the list
// is exhausted. A wake time inside the night window is pushed by the time left until the
// next day/night switch. An empty list yields zero and must not be armed.
func (w *withMaint) CalculateMaintTimeOut(m *Manager, isFirstInterval bool) time.Duration {
	list := m.params.GetList(w.listKey)
	if len(list) == 0 {
		m.log.Error("Maintenance interval list is empty", "key", w.listKey)
		return 0
	}
	if isFirstInterval {
		w.maintIndex = 0
	} else if w.maintIndex < len(list)-1 {
		w.maintIndex++
	}

	timeout := time.Duration(list[w.maintIndex]) * time.Second
	if m.nightAware() {
		now := m.sched.Now()
		if m.times.ConditionAfter(now, timeout) == consts.ConditionNight {
			timeout += m.times.UntilNextSwitch(now)
		}
	}
	return timeout
}

// Personal.AI order the ending
