package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
)

// ID identifies a timer created by a Service. Zero is never issued.
type ID uint64

// Spec describes a timer.
type Spec struct {
	Name     string
	Repeat   bool
	Interval time.Duration // period of a repeating timer
	Exact    bool          // fire at the exact time rather than within a batching window
	Idle     bool          // allowed to fire while the device is idle
}

// Service is the platform timer service contract.
// Callbacks run on a goroutine owned by the service.
type Service interface {
	CreateTimer(spec Spec, callback func()) (ID, error)
	StartTimer(id ID, at time.Time) bool
	StopTimer(id ID) bool
	DestroyTimer(id ID) bool
}

type entry struct {
	spec     Spec
	callback func()
	armed    clockwork.Timer
	gen      uint64
}

// ClockService implements Service on top of a clockwork clock, so the real clock
// drives production and a fake clock drives tests.
type ClockService struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	nextID ID
	timers map[ID]*entry
}

func NewClockService(clock clockwork.Clock) *ClockService {
	return &ClockService{
		clock:  clock,
		timers: make(map[ID]*entry),
	}
}

func (s *ClockService) CreateTimer(spec Spec, callback func()) (ID, error) {
	if callback == nil {
		return 0, serrors.New(serrors.ErrCodeTimerCreateFailed, "CreateTimer", "nil callback for "+spec.Name, nil)
	}
	if spec.Repeat && spec.Interval <= 0 {
		return 0, serrors.New(serrors.ErrCodeTimerCreateFailed, "CreateTimer", "repeating timer "+spec.Name+" needs a positive interval", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.timers[id] = &entry{spec: spec, callback: callback}
	return id, nil
}

// StartTimer arms the timer for an absolute time. Restarting an armed timer replaces its deadline.
func (s *ClockService) StartTimer(id ID, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return false
	}
	s.disarm(e)
	d := at.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	gen := e.gen
	// fire takes mu, so it must never run on the arming goroutine
	e.armed = s.clock.AfterFunc(d, func() { go s.fire(id, gen) })
	return true
}

func (s *ClockService) fire(id ID, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	if e.spec.Repeat {
		e.armed = s.clock.AfterFunc(e.spec.Interval, func() { go s.fire(id, gen) })
	} else {
		e.armed = nil
	}
	callback := e.callback
	s.mu.Unlock()

	callback()
}

// disarm stops the clock timer and invalidates callbacks already in flight. Caller holds mu.
func (s *ClockService) disarm(e *entry) {
	if e.armed != nil {
		e.armed.Stop()
		e.armed = nil
	}
	e.gen++
}

func (s *ClockService) StopTimer(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return false
	}
	s.disarm(e)
	return true
}

func (s *ClockService) DestroyTimer(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return false
	}
	s.disarm(e)
	delete(s.timers, id)
	return true
}

// Armed reports whether the timer currently has a pending deadline.
func (s *ClockService) Armed(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	return ok && e.armed != nil
}

// Len returns the number of created timers.
func (s *ClockService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Personal.AI order the ending
