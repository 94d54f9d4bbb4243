package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

const redisTimeout = 2 * time.Second

// RedisSink publishes every notification on a channel and mirrors the current state into a hash.
type RedisSink struct {
	client   *redis.Client
	channel  string
	stateKey string
	log      logger.Logger
}

func NewRedisSink(cfg protocol.RedisConfig) *RedisSink {
	channel, key := cfg.Channel, cfg.StateKey
	if channel == "" {
		channel = "standby"
	}
	if key == "" {
		key = "standby"
	}
	return &RedisSink{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		channel:  channel,
		stateKey: key,
		log:      logger.Component("notify-redis"),
	}
}

// Connect checks the server is reachable.
func (s *RedisSink) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return serrors.New(serrors.ErrCodeConfigInvalid, "RedisSink.Connect", "redis unreachable at "+s.client.Options().Addr, err)
	}
	s.log.Info("Connected to Redis", "addr", s.client.Options().Addr)
	return nil
}

func (s *RedisSink) DispatchEvent(msg protocol.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Cannot encode event", "kind", msg.Kind, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	if state, ok := msg.Params[protocol.ParamCurrentState]; ok && msg.Kind != protocol.EventEvalResult {
		fields := map[string]any{
			"state":           state,
			"state:timestamp": msg.Timestamp.UnixMilli(),
		}
		if phase, ok := msg.Params[protocol.ParamCurrentPhase]; ok {
			fields["phase"] = phase
		}
		pipe.HSet(ctx, s.stateKey, fields)
	}
	pipe.Publish(ctx, s.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("Failed to publish event", "kind", msg.Kind, "err", err)
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Personal.AI order the ending
