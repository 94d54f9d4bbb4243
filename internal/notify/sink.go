package notify

import (
	"context"
	"sync"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

// Sink is a strategy collaborator that receives standby notifications.
type Sink interface {
	DispatchEvent(msg protocol.Message)
}

// LogSink writes every notification to the structured log.
type LogSink struct {
	log logger.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.Component("notify")}
}

func (s *LogSink) DispatchEvent(msg protocol.Message) {
	args := make([]any, 0, 2+2*len(msg.Params))
	args = append(args, "kind", string(msg.Kind))
	for k, v := range msg.Params {
		args = append(args, k, v)
	}
	s.log.Info("Standby event", args...)
}

// Async fans notifications out to its sinks on a separate goroutine, so the state machine
// never waits on a slow collaborator. Messages are dropped when the queue is full.
type Async struct {
	sinks []Sink
	queue chan protocol.Message
	log   logger.Logger

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewAsync(buffer int, sinks ...Sink) *Async {
	if buffer <= 0 {
		buffer = 128
	}
	return &Async{
		sinks: sinks,
		queue: make(chan protocol.Message, buffer),
		log:   logger.Component("notify"),
		done:  make(chan struct{}),
	}
}

// Start launches delivery. It stops when ctx is cancelled or Close is called.
func (a *Async) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-a.done:
					a.drain()
					return
				case msg := <-a.queue:
					a.deliver(msg)
				}
			}
		}()
	})
}

func (a *Async) drain() {
	for {
		select {
		case msg := <-a.queue:
			a.deliver(msg)
		default:
			return
		}
	}
}

func (a *Async) deliver(msg protocol.Message) {
	for _, s := range a.sinks {
		s.DispatchEvent(msg)
	}
}

func (a *Async) DispatchEvent(msg protocol.Message) {
	select {
	case <-a.done:
		return
	default:
	}
	select {
	case a.queue <- msg:
	default:
		a.log.Warn("Notification queue full, dropping event", "kind", msg.Kind)
	}
}

// Close delivers what is queued and stops.
func (a *Async) Close() {
	a.closeOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

// Personal.AI order the ending
