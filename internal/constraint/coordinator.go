package constraint

import (
	"fmt"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// EvalParam describes a candidate transition. Repeated marks periodic re-checks inside a state.
type EvalParam struct {
	FromState consts.StandbyState
	FromPhase consts.Phase
	ToState   consts.StandbyState
	ToPhase   consts.Phase
	Repeated  bool
}

// Key is the registry key. It depends only on the four identifying fields.
func (p EvalParam) Key() uint32 {
	return uint32(p.FromState)<<24 | uint32(p.FromPhase)<<16 | uint32(p.ToState)<<8 | uint32(p.ToPhase)
}

func (p EvalParam) String() string {
	s := fmt.Sprintf("%s/%s->%s/%s", p.FromState, consts.PhaseName(p.FromState, p.FromPhase),
		p.ToState, consts.PhaseName(p.ToState, p.ToPhase))
	if p.Repeated {
		s += " (repeated)"
	}
	return s
}

// Monitor watches one external condition for a transition and reports its verdict
// through the Reporter it was built with. All methods run on the worker.
type Monitor interface {
	Init() error
	StartMonitoring(p EvalParam)
	StopMonitoring()
}

// Reporter receives a monitor's verdict.
type Reporter interface {
	Report(success bool)
}

// Verdict is told how an evaluation ended.
type Verdict interface {
	EndEvalCurrentState(success bool)
}

// Coordinator runs at most one evaluation at a time: Idle -> Evaluating -> Idle.
// It is owned by the worker; none of its methods are safe to call from other goroutines.
type Coordinator struct {
	poster   worker.Poster
	monitors map[uint32]Monitor
	sink     Verdict
	log      logger.Logger

	evaluating bool
	current    EvalParam
	active     Monitor
	seq        uint64
}

func NewCoordinator(poster worker.Poster) *Coordinator {
	return &Coordinator{
		poster:   poster,
		monitors: make(map[uint32]Monitor),
		log:      logger.Component("constraint"),
	}
}

// SetSink sets where verdicts go. Usually the state manager.
func (c *Coordinator) SetSink(v Verdict) {
	c.sink = v
}

// RegisterConstraintCallback associates a transition with a monitor. The last registration wins.
func (c *Coordinator) RegisterConstraintCallback(p EvalParam, m Monitor) {
	if _, ok := c.monitors[p.Key()]; ok {
		c.log.Warn("Replacing constraint monitor", "param", p.String())
	}
	c.monitors[p.Key()] = m
}

// Lookup returns the monitor registered for p.
func (c *Coordinator) Lookup(p EvalParam) (Monitor, bool) {
	m, ok := c.monitors[p.Key()]
	return m, ok
}

// StartEvalution begins evaluating p. Without a registered monitor the evaluation ends with
// success on a later worker turn.
func (c *Coordinator) StartEvalution(p EvalParam) error {
	if c.evaluating {
		return serrors.New(serrors.ErrCodeEvalInProgress, "StartEvalution",
			"evaluation of "+c.current.String()+" already in progress", nil)
	}
	c.seq++
	c.evaluating = true
	c.current = p

	m, ok := c.monitors[p.Key()]
	if !ok {
		c.log.Debug("No constraint registered, proceeding", "param", p.String())
		c.Report(true)
		return nil
	}
	c.log.Info("Constraint evaluation started", "param", p.String())
	c.active = m
	m.StartMonitoring(p)
	return nil
}

// StopEvalution cancels the running evaluation and stops its monitor.
func (c *Coordinator) StopEvalution() error {
	if !c.evaluating {
		return serrors.New(serrors.ErrCodeNotEvaluating, "StopEvalution", "no evaluation in progress", nil)
	}
	c.log.Info("Constraint evaluation stopped", "param", c.current.String())
	c.reset()
	return nil
}

// IsEvaluating reports whether an evaluation is in progress.
func (c *Coordinator) IsEvaluating() bool {
	return c.evaluating
}

// Current returns the transition being evaluated.
func (c *Coordinator) Current() (EvalParam, bool) {
	return c.current, c.evaluating
}

// Active returns the monitor of the running evaluation, if any.
func (c *Coordinator) Active() Monitor {
	return c.active
}

// Report queues the verdict for the running evaluation. Reports arriving when nothing is
// being evaluated are dropped.
func (c *Coordinator) Report(success bool) {
	if !c.evaluating {
		c.log.Warn("Verdict without evaluation dropped", "success", success)
		return
	}
	seq := c.seq
	if !c.poster.Post(func() { c.finish(seq, success) }) {
		c.log.Warn("Worker stopped, verdict dropped", "success", success)
	}
}

func (c *Coordinator) finish(seq uint64, success bool) {
	if !c.evaluating || c.seq != seq {
		return
	}
	c.log.Info("Constraint evaluation finished", "param", c.current.String(), "success", success)
	c.reset()
	if c.sink != nil {
		c.sink.EndEvalCurrentState(success)
	}
}

func (c *Coordinator) reset() {
	if c.active != nil {
		c.active.StopMonitoring()
	}
	c.active = nil
	c.evaluating = false
	c.current = EvalParam{}
	c.seq++
}

// Personal.AI order the ending
