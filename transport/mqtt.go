package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/pkg/timestamp"
)

// MQTTDialer adapts the paho client to the Session interface. Paho owns wire
// framing and keep-alive; its auto-reconnect stays off so the supervisor's
// state machine is the only reconnect authority.
type MQTTDialer struct {
	ConnectTimeout time.Duration
}

func (d *MQTTDialer) connectTimeout() time.Duration {
	if d.ConnectTimeout > 0 {
		return d.ConnectTimeout
	}
	return 10 * time.Second
}

// Dial connects to the broker described by the profile. Auth refusals come
// back fatal; network failures come back transient.
func (d *MQTTDialer) Dial(ctx context.Context, profile ServerProfile, h Handler) (Session, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(profile.BrokerURL()).
		SetClientID(clientID(profile)).
		SetKeepAlive(profile.KeepAliveOrDefault()).
		SetConnectTimeout(d.connectTimeout()).
		SetAutoReconnect(false).
		SetCleanSession(true)

	if profile.Username != "" {
		opts.SetUsername(profile.Username)
		opts.SetPassword(profile.Password)
	}
	if profile.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if h.OnDisconnect != nil {
			h.OnDisconnect(err)
		}
	})
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
		if h.OnMessage != nil {
			h.OnMessage(InboundMessage{
				Topic:      m.Topic(),
				Payload:    m.Payload(),
				QoS:        m.Qos(),
				Retain:     m.Retained(),
				ReceivedAt: timestamp.Now(),
			})
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, errors.WrapTransient(ctx.Err(), "transport", "MQTTDialer.Dial", "connect cancelled")
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		if errors.IsFatal(err) {
			return nil, errors.WrapFatal(err, "transport", "MQTTDialer.Dial", "authenticate with "+profile.BrokerURL())
		}
		return nil, errors.WrapTransient(err, "transport", "MQTTDialer.Dial", "connect to "+profile.BrokerURL())
	}

	return &mqttSession{client: client}, nil
}

type mqttSession struct {
	client mqtt.Client
}

func (s *mqttSession) Subscribe(pattern string) error {
	token := s.client.Subscribe(pattern, 0, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.WrapTransient(err, "transport", "mqttSession.Subscribe", "subscribe "+pattern)
	}
	return nil
}

func (s *mqttSession) Close(timeout time.Duration) error {
	s.client.Disconnect(uint(timeout.Milliseconds()))
	return nil
}

func clientID(profile ServerProfile) string {
	if profile.ClientID != "" {
		return profile.ClientID
	}
	return fmt.Sprintf("mqtop-%d", time.Now().UnixNano()%1_000_000)
}
