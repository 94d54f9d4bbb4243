package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// Type identifies a sensor.
type Type int

const (
	Accelerometer Type = iota + 1
	SignificantMotion
)

func (t Type) String() string {
	switch t {
	case Accelerometer:
		return "accelerometer"
	case SignificantMotion:
		return "significant-motion"
	default:
		return fmt.Sprintf("sensor-%d", int(t))
	}
}

// Event is one sensor report. Accelerometer events carry three axis values.
type Event struct {
	Type      Type
	Timestamp time.Time
	Values    []float64
}

// Callback receives events on the sensor service's delivery goroutine, never on the caller's.
type Callback func(Event)

// Service is the sensor subscription contract.
type Service interface {
	Subscribe(t Type, cb Callback) error
	SetSamplingRate(t Type, interval time.Duration) error
	Activate(t Type) error
	Deactivate(t Type) error
	Unsubscribe(t Type) error
}

type channel struct {
	cb       Callback
	active   bool
	interval time.Duration
}

// Hub is an in-process sensor service. Sources such as the IIO poller, the control
// socket or tests feed it through Inject; subscribers receive events on the hub's
// own delivery goroutine.
type Hub struct {
	mu        sync.Mutex
	channels  map[Type]*channel
	failures  map[Type]error
	queue     chan Event
	startOnce sync.Once
	log       logger.Logger
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		channels: make(map[Type]*channel),
		failures: make(map[Type]error),
		queue:    make(chan Event, buffer),
		log:      logger.Component("sensor"),
	}
}

// Start launches the delivery goroutine. It stops with ctx.
func (h *Hub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-h.queue:
					h.deliver(ev)
				}
			}
		}()
	})
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	ch, ok := h.channels[ev.Type]
	var cb Callback
	if ok && ch.active {
		cb = ch.cb
	}
	h.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

// Inject queues an event for delivery. Events for inactive sensors are discarded at delivery.
func (h *Hub) Inject(ev Event) bool {
	select {
	case h.queue <- ev:
		return true
	default:
		h.log.Warn("Sensor queue full, dropping event", "sensor", ev.Type)
		return false
	}
}

// FailActivation makes Activate return err for the sensor until cleared with nil.
func (h *Hub) FailActivation(t Type, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failures, t)
		return
	}
	h.failures[t] = err
}

func (h *Hub) Subscribe(t Type, cb Callback) error {
	if cb == nil {
		return serrors.New(serrors.ErrCodeSensorFailed, "Subscribe", t.String()+": nil callback", nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[t]
	if !ok {
		ch = &channel{}
		h.channels[t] = ch
	}
	ch.cb = cb
	return nil
}

func (h *Hub) SetSamplingRate(t Type, interval time.Duration) error {
	if interval <= 0 {
		return serrors.New(serrors.ErrCodeSensorFailed, "SetSamplingRate", t.String()+": interval must be positive", nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[t]
	if !ok {
		return serrors.New(serrors.ErrCodeSensorFailed, "SetSamplingRate", t.String()+" is not subscribed", nil)
	}
	ch.interval = interval
	return nil
}

func (h *Hub) Activate(t Type) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures[t]; err != nil {
		return serrors.New(serrors.ErrCodeSensorFailed, "Activate", t.String()+" cannot be activated", err)
	}
	ch, ok := h.channels[t]
	if !ok {
		return serrors.New(serrors.ErrCodeSensorFailed, "Activate", t.String()+" is not subscribed", nil)
	}
	ch.active = true
	return nil
}

// Deactivate stops delivery. Deactivating an inactive or unknown sensor is a no-op.
func (h *Hub) Deactivate(t Type) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.channels[t]; ok {
		ch.active = false
	}
	return nil
}

// Unsubscribe drops the subscriber. Unsubscribing twice is a no-op.
func (h *Hub) Unsubscribe(t Type) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels, t)
	return nil
}

// Active reports whether a sensor is subscribed and active.
func (h *Hub) Active(t Type) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[t]
	return ok && ch.active
}

// Subscribed reports whether a sensor has a subscriber.
func (h *Hub) Subscribed(t Type) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.channels[t]
	return ok
}

// SamplingRate returns the configured interval, or zero if unset.
func (h *Hub) SamplingRate(t Type) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.channels[t]; ok {
		return ch.interval
	}
	return 0
}

// Personal.AI order the ending
