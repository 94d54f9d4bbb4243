package standby

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/config"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/constraint"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/monitor"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/runninglock"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timeprovider"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timer"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/fsm"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

// Dispatcher receives notifications for strategy collaborators.
type Dispatcher interface {
	DispatchEvent(msg protocol.Message)
}

// Options are the collaborators of a Manager. Sink may be nil.
type Options struct {
	Params      *config.Params
	Scheduler   *timer.Scheduler
	Coordinator *constraint.Coordinator
	Lock        *runninglock.Lock
	Times       *timeprovider.Provider
	Sink        Dispatcher
}

// Graph returns the valid destinations between standby states.
func Graph() *fsm.Graph[consts.StandbyState] {
	return fsm.New[consts.StandbyState]().
		AddTransition(consts.StateWorking, consts.StateDark).
		AddTransition(consts.StateDark, consts.StateNap).
		AddTransition(consts.StateNap, consts.StateSleep).
		AddTransition(consts.StateNap, consts.StateMaintenance).
		AddTransition(consts.StateMaintenance, consts.StateNap).
		AddTransition(consts.StateMaintenance, consts.StateSleep).
		AddTransition(consts.StateSleep, consts.StateMaintenance).
		AddTransition(consts.StateSleep, consts.StateNap).
		AddReset(consts.StateWorking)
}

// Manager owns the current standby state and drives every transition. It is not safe for
// concurrent use: every method runs on the worker.
type Manager struct {
	params *config.Params
	sched  *timer.Scheduler
	coord  *constraint.Coordinator
	lock   *runninglock.Lock
	times  *timeprovider.Provider
	sink   Dispatcher
	graph  *fsm.Graph[consts.StandbyState]
	log    logger.Logger

	states    map[consts.StandbyState]State
	cur       State
	curState  consts.StandbyState
	prevState consts.StandbyState

	blocked   bool
	evalParam constraint.EvalParam
	evalID    string
	screenOn  bool
	charging  bool
}

func NewManager(opts Options) *Manager {
	times := opts.Times
	if times == nil {
		times = timeprovider.Default()
	}
	params := opts.Params
	if params == nil {
		params = config.Empty()
	}
	return &Manager{
		params:   params,
		sched:    opts.Scheduler,
		coord:    opts.Coordinator,
		lock:     opts.Lock,
		times:    times,
		sink:     opts.Sink,
		graph:    Graph(),
		log:      logger.Component("standby"),
		states:   make(map[consts.StandbyState]State),
		screenOn: true,
	}
}

// Init builds the states, creates their timers and enters Working. A timer that cannot be
// created here is fatal to the caller.
func (m *Manager) Init() error {
	for _, s := range []State{
		newWorkingState(m),
		newDarkState(m),
		newNapState(m),
		newMaintenanceState(m),
		newSleepState(m),
	} {
		if err := s.Create(); err != nil {
			m.log.Error("Cannot create state timers", "state", s.State(), "err", err)
			return err
		}
		m.states[s.State()] = s
	}
	m.coord.SetSink(m)

	m.curState = consts.StateWorking
	m.prevState = consts.StateWorking
	m.cur = m.states[consts.StateWorking]
	if err := m.cur.Init(); err != nil {
		return err
	}
	monitor.CurrentState.Set(float64(m.curState))
	m.log.Info("State manager initialized", "state", m.curState)
	return nil
}

// UnInit stops evaluation and releases every timer.
func (m *Manager) UnInit() {
	if m.coord.IsEvaluating() {
		_ = m.coord.StopEvalution()
	}
	for _, s := range m.states {
		s.UnInit()
		s.Destroy()
	}
	m.releaseLock()
}

// CurrentState returns the authoritative current state.
func (m *Manager) CurrentState() consts.StandbyState {
	return m.curState
}

// Current returns the active state object.
func (m *Manager) Current() State {
	return m.cur
}

// PreviousState returns the state the machine came from.
func (m *Manager) PreviousState() consts.StandbyState {
	return m.prevState
}

// Blocked reports whether the machine is halted until an external trigger.
func (m *Manager) Blocked() bool {
	return m.blocked
}

// TransitToState leaves the current state for next. On failure the current state is unchanged;
// the caller decides whether to block.
func (m *Manager) TransitToState(next consts.StandbyState) error {
	if m.coord.IsEvaluating() {
		return serrors.New(serrors.ErrCodeEvalInProgress, "TransitToState", "evaluation in progress", nil)
	}
	if err := m.graph.Check(m.curState, next); err != nil {
		return serrors.New(serrors.ErrCodeInvalidTransition, "TransitToState",
			m.curState.String()+" -> "+next.String(), err)
	}
	target, ok := m.states[next]
	if !ok {
		return serrors.New(serrors.ErrCodeStateAbsent, "TransitToState", next.String()+" is not built", nil)
	}

	old, oldState, oldPrev := m.cur, m.curState, m.prevState
	oldPhase := old.Phase()
	old.UnInit()

	m.prevState = oldState
	m.cur = target
	m.curState = next
	m.blocked = false
	if err := target.Init(); err != nil {
		m.log.Error("Cannot enter state", "from", oldState, "to", next, "err", err)
		if m.coord.IsEvaluating() {
			_ = m.coord.StopEvalution()
		}
		target.UnInit()
		m.cur, m.curState, m.prevState = old, oldState, oldPrev
		old.restorePhase(oldPhase)
		return err
	}

	m.log.Info("State transited", "from", oldState, "to", next)
	monitor.StateTransitions.WithLabelValues(oldState.String(), next.String()).Inc()
	monitor.CurrentState.Set(float64(next))
	m.dispatch(protocol.NewMessage(protocol.EventStateTransit, m.sched.Now()).
		With(protocol.ParamPreviousState, oldState.String()).
		With(protocol.ParamCurrentState, next.String()).
		With(protocol.ParamPreviousPhase, consts.PhaseName(oldState, oldPhase)).
		With(protocol.ParamCurrentPhase, consts.PhaseName(next, target.Phase())))

	if !m.coord.IsEvaluating() {
		m.settle()
	}
	return nil
}

// transitOrBlock commits a transition and halts in place if that fails.
func (m *Manager) transitOrBlock(next consts.StandbyState) {
	if err := m.TransitToState(next); err != nil {
		m.log.Error("Transit failed", "to", next, "err", err)
		m.BlockCurrentState()
	}
}

// startTimedTransit runs when an exit timer fires: hold the CPU awake, cancel whatever was
// being evaluated and ask the coordinator about the candidate transition.
func (m *Manager) startTimedTransit(p constraint.EvalParam) {
	m.acquireLock()
	if m.IsEvalution() {
		m.log.Info("Preempting evaluation", "evaluating", m.evalParam.String(), "for", p.String())
		_ = m.StopEvalution()
	}
	if err := m.StartEvalCurrentState(p); err != nil {
		m.log.Error("Cannot start evaluation", "param", p.String(), "err", err)
		m.BlockCurrentState()
	}
}

// StartEvalCurrentState begins an evaluation cycle. The lock is held until the verdict is handled.
func (m *Manager) StartEvalCurrentState(p constraint.EvalParam) error {
	m.acquireLock()
	if err := m.coord.StartEvalution(p); err != nil {
		return err
	}
	m.evalParam = p
	m.evalID = uuid.NewString()
	m.log.Debug("Evaluation started", "param", p.String(), "eval_id", m.evalID)
	return nil
}

// EndEvalCurrentState hands the verdict to the state that asked for it.
func (m *Manager) EndEvalCurrentState(success bool) {
	p, id := m.evalParam, m.evalID
	m.evalParam, m.evalID = constraint.EvalParam{}, ""

	verdict := "failure"
	if success {
		verdict = "success"
	}
	monitor.Evaluations.WithLabelValues(verdict).Inc()
	m.log.Info("Evaluation ended", "param", p.String(), "eval_id", id, "verdict", verdict)
	m.dispatch(protocol.NewMessage(protocol.EventEvalResult, m.sched.Now()).
		With(protocol.ParamEvalID, id).
		With(protocol.ParamVerdict, verdict).
		With(protocol.ParamCurrentState, p.ToState.String()).
		With(protocol.ParamPreviousState, p.FromState.String()))

	if p.FromState != m.curState {
		m.log.Warn("Verdict for a state no longer current", "param", p.String(), "state", m.curState)
		m.settle()
		return
	}
	m.cur.EndEvalCurrentState(p, success)
}

// IsEvalution reports whether a constraint evaluation is in flight.
func (m *Manager) IsEvalution() bool {
	return m.coord.IsEvaluating()
}

// StopEvalution cancels the in-flight evaluation.
func (m *Manager) StopEvalution() error {
	if err := m.coord.StopEvalution(); err != nil {
		return err
	}
	m.evalParam, m.evalID = constraint.EvalParam{}, ""
	return nil
}

// BlockCurrentState halts in the current state: no evaluation, no timers, no lock.
// Only an external trigger moves the machine again.
func (m *Manager) BlockCurrentState() {
	if m.IsEvalution() {
		_ = m.StopEvalution()
	}
	m.cur.StopTimers()
	m.blocked = true
	m.releaseLock()

	m.log.Warn("State blocked", "state", m.curState, "phase", consts.PhaseName(m.curState, m.cur.Phase()))
	monitor.Blocked.WithLabelValues(m.curState.String()).Inc()
	m.dispatch(protocol.NewMessage(protocol.EventStateBlocked, m.sched.Now()).
		With(protocol.ParamCurrentState, m.curState.String()).
		With(protocol.ParamCurrentPhase, consts.PhaseName(m.curState, m.cur.Phase())))
}

// UnblockCurrentState restarts the current state's entry actions after a block.
func (m *Manager) UnblockCurrentState() error {
	if !m.blocked {
		return nil
	}
	m.blocked = false
	m.cur.UnInit()
	if err := m.cur.Init(); err != nil {
		m.log.Error("Cannot restart state", "state", m.curState, "err", err)
		m.BlockCurrentState()
		return err
	}
	if !m.IsEvalution() {
		m.settle()
	}
	m.log.Info("State unblocked", "state", m.curState)
	return nil
}

// ResetToWorking forces the machine back to Working from anywhere.
func (m *Manager) ResetToWorking(reason string) error {
	if m.IsEvalution() {
		_ = m.StopEvalution()
	}
	m.blocked = false
	if m.curState == consts.StateWorking {
		m.settle()
		return nil
	}
	m.log.Info("Resetting to working", "from", m.curState, "reason", reason)
	return m.TransitToState(consts.StateWorking)
}

// HandleSystemEvent applies an external trigger.
func (m *Manager) HandleSystemEvent(ev consts.SystemEvent) error {
	switch ev {
	case consts.EventScreenOn:
		m.screenOn = true
		return m.ResetToWorking(string(ev))
	case consts.EventCharging:
		m.charging = true
		return m.ResetToWorking(string(ev))
	case consts.EventUserActivity:
		return m.ResetToWorking(string(ev))
	case consts.EventUnblock:
		return m.UnblockCurrentState()
	case consts.EventScreenOff:
		m.screenOn = false
	case consts.EventDischarging:
		m.charging = false
	default:
		return serrors.New(serrors.ErrCodeInvalidTransition, "HandleSystemEvent", "unknown event "+string(ev), nil)
	}

	if m.curState != consts.StateWorking || m.screenOn || m.charging {
		return nil
	}
	if m.IsEvalution() {
		_ = m.StopEvalution()
	}
	if err := m.TransitToState(consts.StateDark); err != nil {
		m.BlockCurrentState()
		return err
	}
	return nil
}

// Snapshot describes the machine for dumps.
func (m *Manager) Snapshot() protocol.Snapshot {
	now := m.sched.Now()
	snap := protocol.Snapshot{
		State:         m.curState.String(),
		PreviousState: m.prevState.String(),
		Evaluating:    m.IsEvalution(),
		EvalID:        m.evalID,
		Blocked:       m.blocked,
		LockHeld:      m.lock.Held(),
		ScreenOn:      m.screenOn,
		Charging:      m.charging,
		Condition:     m.times.ConditionAt(now).String(),
		Taken:         now,
	}
	if m.cur != nil {
		snap.Phase = consts.PhaseName(m.curState, m.cur.Phase())
		snap.Timers = m.cur.ArmedTimers()
	}
	return snap
}

// StatusMessage is the periodic status notification.
func (m *Manager) StatusMessage() protocol.Message {
	snap := m.Snapshot()
	return protocol.NewMessage(protocol.EventStatus, snap.Taken).
		With(protocol.ParamCurrentState, snap.State).
		With(protocol.ParamCurrentPhase, snap.Phase).
		With("blocked", strconv.FormatBool(snap.Blocked)).
		With("lockHeld", strconv.FormatBool(snap.LockHeld))
}

func (m *Manager) notifyPhase(s consts.StandbyState, prev, next consts.Phase) {
	m.log.Info("Phase transited", "state", s, "from", consts.PhaseName(s, prev), "to", consts.PhaseName(s, next))
	m.dispatch(protocol.NewMessage(protocol.EventPhaseTransit, m.sched.Now()).
		With(protocol.ParamCurrentState, s.String()).
		With(protocol.ParamPreviousPhase, consts.PhaseName(s, prev)).
		With(protocol.ParamCurrentPhase, consts.PhaseName(s, next)))
}

func (m *Manager) dispatch(msg protocol.Message) {
	if m.sink != nil {
		m.sink.DispatchEvent(msg)
	}
}

// settle lets the device sleep once the current state has armed what it needs.
func (m *Manager) settle() {
	m.releaseLock()
}

func (m *Manager) acquireLock() {
	m.lock.Acquire()
	monitor.SetLockHeld(true)
}

func (m *Manager) releaseLock() {
	m.lock.Release()
	monitor.SetLockHeld(false)
}

// nightAware reports whether night-condition scaling is enabled.
func (m *Manager) nightAware() bool {
	return m.params.GetBool(consts.SwitchNightCondition, true)
}

// timeout picks the night variant of a timeout parameter while the night condition holds.
func (m *Manager) timeout(dayKey, nightKey string, def time.Duration) time.Duration {
	d := m.params.Seconds(dayKey, def)
	if m.nightAware() && m.times.ConditionAt(m.sched.Now()) == consts.ConditionNight {
		return m.params.Seconds(nightKey, d)
	}
	return d
}

// Personal.AI order the ending
