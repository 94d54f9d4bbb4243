package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// Handle identifies a scheduled task. Zero means unarmed / not created.
type Handle = ID

// Scheduler creates named timed tasks whose callbacks run on the serialized worker.
// A fire is honored only if the task is still armed and its deadline has passed when the fire
// reaches the scheduler; a task stopped or restarted after that, but before the worker ran it,
// is dropped too.
type Scheduler struct {
	svc    Service
	clock  clockwork.Clock
	poster worker.Poster
	log    logger.Logger

	mu    sync.Mutex
	slots map[Handle]*slot
}

// slot is the scheduler's view of one task. gen changes on every start and stop.
type slot struct {
	name  string
	every time.Duration // period of a repeating task, zero for one-shots
	gen   uint64
	armed bool
	due   time.Time
}

func NewScheduler(svc Service, clock clockwork.Clock, poster worker.Poster) *Scheduler {
	return &Scheduler{
		svc:    svc,
		clock:  clock,
		poster: poster,
		log:    logger.Component("timer"),
		slots:  make(map[Handle]*slot),
	}
}

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Create registers a task. A repeating task fires every interval once started.
func (s *Scheduler) Create(name string, repeat bool, interval time.Duration, task func()) (Handle, error) {
	var h Handle
	id, err := s.svc.CreateTimer(Spec{
		Name:     name,
		Repeat:   repeat,
		Interval: interval,
		Exact:    true,
		Idle:     true,
	}, func() { s.dispatch(h, task) })
	if err != nil {
		s.log.Error("Failed to create timer", "name", name, "err", err)
		if serrors.CodeOf(err) == serrors.ErrCodeUnknown {
			err = serrors.New(serrors.ErrCodeTimerCreateFailed, "Create", "cannot create timer "+name, err)
		}
		return 0, err
	}
	h = id

	sl := &slot{name: name}
	if repeat {
		sl.every = interval
	}
	s.mu.Lock()
	s.slots[h] = sl
	s.mu.Unlock()
	return h, nil
}

// dispatch runs on the timer service goroutine and hands the task to the worker.
func (s *Scheduler) dispatch(h Handle, task func()) {
	now := s.clock.Now()
	s.mu.Lock()
	sl, ok := s.slots[h]
	if !ok || !sl.armed || now.Before(sl.due) {
		s.mu.Unlock()
		return
	}
	gen := sl.gen
	if sl.every > 0 {
		sl.due = sl.due.Add(sl.every)
	} else {
		sl.armed = false
	}
	s.mu.Unlock()

	if !s.poster.Post(func() {
		s.mu.Lock()
		current, alive := s.slots[h]
		fresh := alive && current.gen == gen
		s.mu.Unlock()
		if !fresh {
			return
		}
		task()
	}) {
		s.log.Warn("Worker stopped, timer callback dropped", "name", s.name(h))
	}
}

func (s *Scheduler) name(h Handle) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[h]; ok {
		return sl.name
	}
	return ""
}

// StartAfter arms the task to fire after d. Restarting replaces any pending deadline.
func (s *Scheduler) StartAfter(h Handle, d time.Duration) error {
	if h == 0 {
		return serrors.New(serrors.ErrCodeTimerStartFailed, "StartAfter", "timer was never created", nil)
	}
	at := s.clock.Now().Add(d)
	s.mu.Lock()
	if sl, ok := s.slots[h]; ok {
		sl.gen++
		sl.armed = true
		sl.due = at
	}
	s.mu.Unlock()
	if !s.svc.StartTimer(h, at) {
		s.disarm(h)
		return serrors.New(serrors.ErrCodeTimerStartFailed, "StartAfter", "cannot start timer "+s.name(h), nil)
	}
	return nil
}

// Stop disarms the task. Stopping an unarmed task is a no-op.
func (s *Scheduler) Stop(h Handle) {
	if h == 0 {
		return
	}
	s.disarm(h)
	s.svc.StopTimer(h)
}

// Destroy releases the task.
func (s *Scheduler) Destroy(h Handle) {
	if h == 0 {
		return
	}
	s.mu.Lock()
	delete(s.slots, h)
	s.mu.Unlock()
	s.svc.DestroyTimer(h)
}

func (s *Scheduler) disarm(h Handle) {
	s.mu.Lock()
	if sl, ok := s.slots[h]; ok {
		sl.gen++
		sl.armed = false
	}
	s.mu.Unlock()
}

// Personal.AI order the ending
