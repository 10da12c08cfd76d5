package transport

import (
	"fmt"
	"time"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/topics"
)

// Protocols a profile can select. MQTT is the default.
const (
	ProtocolMQTT      = "mqtt"
	ProtocolNATS      = "nats"
	ProtocolWebsocket = "ws"
)

// ServerProfile describes one broker endpoint. Supplied externally and read
// only by the supervisor; switching profiles goes through Connect.
type ServerProfile struct {
	Name          string        `yaml:"name" json:"name"`
	Protocol      string        `yaml:"protocol" json:"protocol"`
	Host          string        `yaml:"host" json:"host"`
	Port          int           `yaml:"port" json:"port"`
	TLS           bool          `yaml:"tls" json:"tls"`
	Username      string        `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string        `yaml:"password,omitempty" json:"-"`
	ClientID      string        `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	Subscriptions []string      `yaml:"subscriptions,omitempty" json:"subscriptions,omitempty"`
	KeepAlive     time.Duration `yaml:"keep_alive,omitempty" json:"keep_alive,omitempty"`
}

// Validate checks the profile before any dial attempt. Failures are invalid,
// not transient: retrying a bad profile can never succeed.
func (p ServerProfile) Validate() error {
	if p.Host == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "transport", "Validate", "host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "transport", "Validate",
			fmt.Sprintf("port %d out of range", p.Port))
	}
	switch p.Protocol {
	case "", ProtocolMQTT, ProtocolNATS, ProtocolWebsocket:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "transport", "Validate",
			fmt.Sprintf("unknown protocol %q", p.Protocol))
	}
	for _, sub := range p.Subscriptions {
		if err := topics.ValidatePattern(sub); err != nil {
			return err
		}
	}
	return nil
}

// BrokerURL renders the dial address for the profile's protocol.
func (p ServerProfile) BrokerURL() string {
	scheme := "tcp"
	switch p.Protocol {
	case ProtocolNATS:
		scheme = "nats"
		if p.TLS {
			scheme = "tls"
		}
	case ProtocolWebsocket:
		scheme = "ws"
		if p.TLS {
			scheme = "wss"
		}
	default:
		if p.TLS {
			scheme = "ssl"
		}
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

// Patterns returns the subscribe patterns, defaulting to everything.
func (p ServerProfile) Patterns() []string {
	if len(p.Subscriptions) == 0 {
		return []string{"#"}
	}
	return p.Subscriptions
}

// KeepAliveOrDefault returns the keep-alive interval, defaulting to 30s.
func (p ServerProfile) KeepAliveOrDefault() time.Duration {
	if p.KeepAlive > 0 {
		return p.KeepAlive
	}
	return 30 * time.Second
}
