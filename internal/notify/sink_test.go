package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

type collector struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *collector) DispatchEvent(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// slowSink blocks until released.
type slowSink struct {
	release chan struct{}
}

func (s *slowSink) DispatchEvent(protocol.Message) { <-s.release }

func message(kind protocol.EventKind) protocol.Message {
	return protocol.NewMessage(kind, time.Now()).With(protocol.ParamCurrentState, "nap")
}

func TestAsync_FansOutInOrder(t *testing.T) {
	a, b := &collector{}, &collector{}
	async := NewAsync(8, a, b, NewLogSink())
	async.Start(context.Background())

	async.DispatchEvent(message(protocol.EventStateTransit))
	async.DispatchEvent(message(protocol.EventPhaseTransit))
	async.Close()

	require.Equal(t, 2, a.len())
	require.Equal(t, 2, b.len())
	assert.Equal(t, protocol.EventStateTransit, a.msgs[0].Kind)
	assert.Equal(t, protocol.EventPhaseTransit, a.msgs[1].Kind)
}

func TestAsync_NeverBlocksCaller(t *testing.T) {
	slow := &slowSink{release: make(chan struct{})}
	async := NewAsync(1, slow)
	async.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			async.DispatchEvent(message(protocol.EventStatus))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DispatchEvent blocked on a slow sink")
	}
	close(slow.release)
	async.Close()

	// dispatching after close is dropped silently
	async.DispatchEvent(message(protocol.EventStatus))
}

func TestRedisSink_Unreachable(t *testing.T) {
	s := NewRedisSink(protocol.RedisConfig{Addr: "127.0.0.1:1"})
	defer s.Close()

	err := s.Connect(context.Background())
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigInvalid))

	// publishing to a dead server only logs
	s.DispatchEvent(message(protocol.EventStateTransit))
}

func TestNATSSink_Unreachable(t *testing.T) {
	_, err := NewNATSSink(protocol.NATSConfig{URL: "nats://127.0.0.1:1"})
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigInvalid))
}

func TestNATSSink_Subject(t *testing.T) {
	s := &NATSSink{subject: "standby"}
	assert.Equal(t, "standby.phase-transit", s.Subject(protocol.EventPhaseTransit))
}
