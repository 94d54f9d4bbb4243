package notify

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

// NATSSink publishes notifications on <subject>.<kind>.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	log     logger.Logger
}

func NewNATSSink(cfg protocol.NATSConfig) (*NATSSink, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("standbyd"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "NewNATSSink", "cannot connect to "+cfg.URL, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "standby"
	}
	s := &NATSSink{conn: conn, subject: subject, log: logger.Component("notify-nats")}
	s.log.Info("NATS sink connected", "url", cfg.URL, "subject", subject)
	return s, nil
}

// Subject returns the subject a message is published on.
func (s *NATSSink) Subject(kind protocol.EventKind) string {
	return s.subject + "." + string(kind)
}

func (s *NATSSink) DispatchEvent(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Cannot encode event", "kind", msg.Kind, "err", err)
		return
	}
	if err := s.conn.Publish(s.Subject(msg.Kind), data); err != nil {
		s.log.Warn("Failed to publish event", "kind", msg.Kind, "err", err)
	}
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
}

// Personal.AI order the ending
