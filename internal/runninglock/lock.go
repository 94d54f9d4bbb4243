package runninglock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// Backend is the platform power-lock service. Lock keeps the CPU awake until Unlock.
type Backend interface {
	Lock() error
	Unlock() error
}

// Lock is the process-wide running lock. It is a boolean, not a counter:
// acquiring a held lock and releasing a free lock are no-ops.
// The state machine only touches it from the worker; the mutex protects readers such as dumps.
type Lock struct {
	mu      sync.Mutex
	held    bool
	backend Backend
	log     logger.Logger
}

// New creates a lock. A nil backend means the platform has no power management.
func New(backend Backend) *Lock {
	return &Lock{backend: backend, log: logger.Component("runninglock")}
}

// Acquire takes the lock if not already held.
func (l *Lock) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return
	}
	if l.backend != nil {
		if err := l.backend.Lock(); err != nil {
			l.log.Warn("Power lock backend failed", "err", err)
		}
	}
	l.held = true
	l.log.Debug("Running lock acquired")
}

// Release drops the lock if held.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	if l.backend != nil {
		if err := l.backend.Unlock(); err != nil {
			l.log.Warn("Power unlock backend failed", "err", err)
		}
	}
	l.held = false
	l.log.Debug("Running lock released")
}

// Held reports whether the lock is currently held.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// SysfsBackend drives the kernel wakelock interface: writing a name to wake_lock
// holds a wakelock, writing it to wake_unlock drops it.
type SysfsBackend struct {
	Name string
	Dir  string // usually /sys/power
}

func NewSysfsBackend(name, dir string) *SysfsBackend {
	if dir == "" {
		dir = "/sys/power"
	}
	return &SysfsBackend{Name: name, Dir: dir}
}

func (b *SysfsBackend) Lock() error {
	return b.write("wake_lock")
}

func (b *SysfsBackend) Unlock() error {
	return b.write("wake_unlock")
}

func (b *SysfsBackend) write(file string) error {
	path := filepath.Join(b.Dir, file)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.Name); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Personal.AI order the ending
