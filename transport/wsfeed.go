package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/pkg/timestamp"
)

// WebsocketDialer consumes a relay that forwards broker traffic as JSON
// frames over a websocket. Each inbound frame is one already-decoded message
// event; subscriptions are forwarded as control frames.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// wsFrame is the relay wire format for both directions.
type wsFrame struct {
	Action  string `json:"action,omitempty"` // "subscribe" on the way out
	Pattern string `json:"pattern,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Payload string `json:"payload,omitempty"`
	QoS     byte   `json:"qos,omitempty"`
	Retain  bool   `json:"retain,omitempty"`
}

func (d *WebsocketDialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *WebsocketDialer) Dial(ctx context.Context, profile ServerProfile, h Handler) (Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, resp, err := dialer.DialContext(ctx, profile.BrokerURL(), nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			return nil, errors.WrapFatal(errors.ErrAuthFailed, "transport", "WebsocketDialer.Dial", "authenticate with "+profile.BrokerURL())
		}
		return nil, errors.WrapTransient(err, "transport", "WebsocketDialer.Dial", "connect to "+profile.BrokerURL())
	}

	sess := &wsSession{conn: conn, handler: h, logger: d.logger(), done: make(chan struct{})}
	go sess.readLoop()
	return sess, nil
}

type wsSession struct {
	conn    *websocket.Conn
	handler Handler
	logger  *slog.Logger
	done    chan struct{}
}

// readLoop decodes frames until the connection drops. A malformed frame is
// logged and skipped; only transport errors end the session.
func (s *wsSession) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally, not a connection loss
			default:
				if s.handler.OnDisconnect != nil {
					s.handler.OnDisconnect(err)
				}
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Topic == "" {
			s.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		if s.handler.OnMessage != nil {
			s.handler.OnMessage(InboundMessage{
				Topic:      frame.Topic,
				Payload:    []byte(frame.Payload),
				QoS:        frame.QoS,
				Retain:     frame.Retain,
				ReceivedAt: timestamp.Now(),
			})
		}
	}
}

func (s *wsSession) Subscribe(pattern string) error {
	frame := wsFrame{Action: "subscribe", Pattern: pattern}
	if err := s.conn.WriteJSON(frame); err != nil {
		return errors.WrapTransient(err, "transport", "wsSession.Subscribe", "subscribe "+pattern)
	}
	return nil
}

func (s *wsSession) Close(timeout time.Duration) error {
	close(s.done)
	deadline := time.Now().Add(timeout)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}
