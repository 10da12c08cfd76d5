package transport

import (
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/pkg/timestamp"
)

// NATSDialer exposes a NATS server as a message feed. Subjects map onto
// slash topics so the rest of the pipeline sees one address scheme.
// NATS-level reconnects stay off for the same reason as the MQTT adapter.
type NATSDialer struct {
	ConnectTimeout time.Duration
}

func (d *NATSDialer) connectTimeout() time.Duration {
	if d.ConnectTimeout > 0 {
		return d.ConnectTimeout
	}
	return 10 * time.Second
}

func (d *NATSDialer) Dial(ctx context.Context, profile ServerProfile, h Handler) (Session, error) {
	opts := []nats.Option{
		nats.Name(clientID(profile)),
		nats.Timeout(d.connectTimeout()),
		nats.NoReconnect(),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if h.OnDisconnect != nil {
				h.OnDisconnect(nc.LastError())
			}
		}),
	}
	if profile.Username != "" {
		opts = append(opts, nats.UserInfo(profile.Username, profile.Password))
	}

	conn, err := nats.Connect(profile.BrokerURL(), opts...)
	if err != nil {
		if err == nats.ErrAuthorization || errors.IsFatal(err) {
			return nil, errors.WrapFatal(err, "transport", "NATSDialer.Dial", "authenticate with "+profile.BrokerURL())
		}
		return nil, errors.WrapTransient(err, "transport", "NATSDialer.Dial", "connect to "+profile.BrokerURL())
	}
	if ctx.Err() != nil {
		conn.Close()
		return nil, errors.WrapTransient(ctx.Err(), "transport", "NATSDialer.Dial", "connect cancelled")
	}

	return &natsSession{conn: conn, handler: h}, nil
}

type natsSession struct {
	conn    *nats.Conn
	handler Handler
}

func (s *natsSession) Subscribe(pattern string) error {
	_, err := s.conn.Subscribe(subjectFromPattern(pattern), func(m *nats.Msg) {
		if s.handler.OnMessage != nil {
			s.handler.OnMessage(InboundMessage{
				Topic:      topicFromSubject(m.Subject),
				Payload:    m.Data,
				QoS:        0,
				ReceivedAt: timestamp.Now(),
			})
		}
	})
	if err != nil {
		return errors.WrapTransient(err, "transport", "natsSession.Subscribe", "subscribe "+pattern)
	}
	return nil
}

func (s *natsSession) Close(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		_ = s.conn.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.conn.Close()
	}
	return nil
}

// subjectFromPattern converts topic wildcard syntax to NATS subject syntax.
func subjectFromPattern(pattern string) string {
	r := strings.NewReplacer("/", ".", "+", "*", "#", ">")
	return r.Replace(pattern)
}

func topicFromSubject(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
