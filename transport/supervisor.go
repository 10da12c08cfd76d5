package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/metric"
	"github.com/frahlg/mqtop/pkg/retry"
	"github.com/frahlg/mqtop/pkg/timestamp"
)

// Supervisor defaults.
const (
	DefaultStabilityThreshold = 30 * time.Second
	DefaultCloseTimeout       = 5 * time.Second
	DefaultEventBuffer        = 1024
)

// Health counts connection lifecycle outcomes since supervisor start.
type Health struct {
	TotalConnections    uint64 `json:"total_connections"`
	TotalReconnects     uint64 `json:"total_reconnects"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// Status is the supervisor's queryable view.
type Status struct {
	State   StateInfo `json:"state"`
	Profile string    `json:"profile,omitempty"`
	Health  Health    `json:"health"`
}

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdReconnectNow
	cmdStatus
)

type command struct {
	kind    commandKind
	profile ServerProfile
	errc    chan error
	status  chan Status
}

// Supervisor owns at most one live session and drives the reconnect state
// machine around it. All state lives inside Run's goroutine; the public
// methods communicate over channels only.
type Supervisor struct {
	dialer  Dialer
	logger  *slog.Logger
	metrics *metric.Metrics

	events chan Event
	cmds   chan command
	done   chan struct{}

	retryCfg     retry.Config
	stability    time.Duration
	closeTimeout time.Duration
	now          func() time.Time
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches ops metric recording.
func WithMetrics(m *metric.Metrics) SupervisorOption {
	return func(s *Supervisor) { s.metrics = m }
}

// WithRetryConfig overrides the backoff schedule.
func WithRetryConfig(cfg retry.Config) SupervisorOption {
	return func(s *Supervisor) { s.retryCfg = cfg }
}

// WithStabilityThreshold sets how long a connection must hold before the
// backoff attempt counter resets to base.
func WithStabilityThreshold(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.stability = d
		}
	}
}

// WithCloseTimeout bounds graceful session teardown.
func WithCloseTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.closeTimeout = d
		}
	}
}

// WithEventBuffer sets the outbound event channel capacity.
func WithEventBuffer(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.events = make(chan Event, n)
		}
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) SupervisorOption {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSupervisor creates a supervisor around a dialer. Run must be called
// before any command takes effect.
func NewSupervisor(dialer Dialer, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		dialer:       dialer,
		logger:       slog.Default(),
		events:       make(chan Event, DefaultEventBuffer),
		cmds:         make(chan command),
		done:         make(chan struct{}),
		retryCfg:     retry.Reconnect(),
		stability:    DefaultStabilityThreshold,
		closeTimeout: DefaultCloseTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events is the outbound stream. Closed when Run returns.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Connect dials a profile, switching away from any current session first.
func (s *Supervisor) Connect(profile ServerProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	return s.send(command{kind: cmdConnect, profile: profile})
}

// Disconnect tears the current session down and goes idle.
func (s *Supervisor) Disconnect() error {
	return s.send(command{kind: cmdDisconnect})
}

// ReconnectNow cancels a pending backoff timer and dials immediately.
func (s *Supervisor) ReconnectNow() error {
	return s.send(command{kind: cmdReconnectNow})
}

// Status returns the current state and health counters.
func (s *Supervisor) Status() (Status, error) {
	cmd := command{kind: cmdStatus, status: make(chan Status, 1)}
	if err := s.send(cmd); err != nil {
		return Status{}, err
	}
	select {
	case st := <-cmd.status:
		return st, nil
	case <-s.done:
		return Status{}, errors.ErrShuttingDown
	}
}

func (s *Supervisor) send(cmd command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return errors.ErrShuttingDown
	}
}

// loopState is the single-goroutine state behind Run.
type loopState struct {
	state       ConnectionState
	profile     ServerProfile
	hasProfile  bool
	session     Session
	attempt     int
	connectedAt time.Time
	backoff     *time.Timer
	backoffC    <-chan time.Time
	lost        chan error
	health      Health
}

// Run executes the state machine until ctx is cancelled. The events channel
// is closed on return.
func (s *Supervisor) Run(ctx context.Context) {
	st := &loopState{state: Disconnected}
	defer func() {
		st.stopBackoff()
		s.closeSession(st)
		close(s.done)
		close(s.events)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor stopping", "state", st.state.String())
			return

		case err := <-st.lost:
			s.onConnectionLost(st, err)

		case <-st.backoffC:
			st.backoffC = nil
			s.dial(ctx, st)

		case cmd := <-s.cmds:
			s.handleCommand(ctx, st, cmd)
		}
	}
}

func (s *Supervisor) handleCommand(ctx context.Context, st *loopState, cmd command) {
	switch cmd.kind {
	case cmdConnect:
		s.closeSession(st)
		st.stopBackoff()
		st.profile = cmd.profile
		st.hasProfile = true
		st.attempt = 0
		s.dial(ctx, st)

	case cmdDisconnect:
		s.closeSession(st)
		st.stopBackoff()
		st.hasProfile = false
		st.attempt = 0
		s.setState(st, StateInfo{State: Disconnected})

	case cmdReconnectNow:
		if !st.hasProfile {
			return
		}
		// Cancel any pending backoff and go straight to dialing
		st.stopBackoff()
		s.dial(ctx, st)

	case cmdStatus:
		status := Status{State: s.stateInfo(st), Health: st.health}
		if st.hasProfile {
			status.Profile = st.profile.Name
		}
		cmd.status <- status
	}
}

// dial performs one synchronous connect attempt and transitions on the result.
func (s *Supervisor) dial(ctx context.Context, st *loopState) {
	if !st.hasProfile || st.session != nil {
		return
	}
	s.setState(st, StateInfo{State: Connecting, Server: st.profile.Name})
	s.logger.Info("connecting", "server", st.profile.Name, "url", st.profile.BrokerURL(), "attempt", st.attempt)

	st.lost = make(chan error, 1)
	lost := st.lost
	handler := Handler{
		OnMessage: func(msg InboundMessage) {
			select {
			case s.events <- Event{Type: EventMessageReceived, Message: msg}:
			case <-s.done:
			}
		},
		OnDisconnect: func(err error) {
			select {
			case lost <- err:
			default:
			}
		},
	}

	session, err := s.dialer.Dial(ctx, st.profile, handler)
	if err != nil {
		s.onDialFailure(st, err)
		return
	}

	// Subscribes right after a connect can hit a broker that is still
	// settling; retry briefly before treating the dial as failed.
	subCfg := retry.DefaultConfig()
	for _, pattern := range st.profile.Patterns() {
		subErr := retry.Do(ctx, subCfg, func() error {
			if err := session.Subscribe(pattern); err != nil {
				if errors.IsFatal(err) {
					return retry.NonRetryable(err)
				}
				return err
			}
			return nil
		})
		if subErr != nil {
			s.logger.Error("subscribe failed", "pattern", pattern, "error", subErr)
			_ = session.Close(s.closeTimeout)
			if errors.IsFatal(subErr) {
				s.onDialFailure(st, subErr)
			} else {
				s.onDialFailure(st, errors.WrapTransient(subErr, "transport", "dial", "subscribe "+pattern))
			}
			return
		}
	}

	st.session = session
	st.connectedAt = s.now()
	st.health.TotalConnections++
	if st.health.ConsecutiveFailures > 0 || st.health.TotalConnections > 1 {
		st.health.TotalReconnects++
		s.metrics.RecordReconnect()
	}
	st.health.ConsecutiveFailures = 0
	st.health.LastError = ""
	s.setState(st, StateInfo{State: Connected, Server: st.profile.Name})
	s.logger.Info("connected", "server", st.profile.Name)
}

func (s *Supervisor) onDialFailure(st *loopState, err error) {
	st.health.ConsecutiveFailures++
	st.health.LastError = err.Error()
	s.emitError(err)

	if errors.IsFatal(err) {
		// Auth and config failures are terminal; retrying cannot help and
		// must not happen silently.
		s.logger.Error("terminal connection failure", "server", st.profile.Name, "error", err)
		st.hasProfile = false
		st.attempt = 0
		s.setState(st, StateInfo{State: Disconnected})
		return
	}

	s.scheduleReconnect(st)
}

func (s *Supervisor) onConnectionLost(st *loopState, err error) {
	if st.session == nil {
		return
	}
	_ = st.session.Close(s.closeTimeout)
	st.session = nil

	held := s.now().Sub(st.connectedAt)
	if held >= s.stability {
		// Stable connection: the next outage starts back at base delay
		st.attempt = 0
	}
	st.health.ConsecutiveFailures++
	if err != nil {
		st.health.LastError = err.Error()
		s.emitError(errors.WrapTransient(err, "transport", "session", "connection lost"))
	}
	s.logger.Warn("connection lost", "server", st.profile.Name, "held", held.String(), "error", err)
	s.scheduleReconnect(st)
}

func (s *Supervisor) scheduleReconnect(st *loopState) {
	st.attempt++
	delay := s.retryCfg.DelayForAttempt(st.attempt)
	if s.retryCfg.AddJitter {
		delay = retry.Jitter(delay)
	}

	nextAt := timestamp.ToUnixMs(s.now().Add(delay))
	s.setState(st, StateInfo{
		State:         Reconnecting,
		Server:        st.profile.Name,
		Attempt:       st.attempt,
		NextAttemptAt: nextAt,
	})
	s.logger.Info("reconnect scheduled", "server", st.profile.Name, "attempt", st.attempt, "delay", delay.String())

	st.stopBackoff()
	st.backoff = time.NewTimer(delay)
	st.backoffC = st.backoff.C
}

func (s *Supervisor) closeSession(st *loopState) {
	if st.session == nil {
		return
	}
	if err := st.session.Close(s.closeTimeout); err != nil {
		s.logger.Warn("session close failed", "error", err)
	}
	st.session = nil
	st.lost = nil
}

func (st *loopState) stopBackoff() {
	if st.backoff != nil {
		st.backoff.Stop()
		st.backoff = nil
	}
	st.backoffC = nil
}

func (s *Supervisor) setState(st *loopState, info StateInfo) {
	st.state = info.State
	s.metrics.SetConnectionState(int(info.State))
	select {
	case s.events <- Event{Type: EventStateChanged, State: info}:
	case <-s.done:
	}
}

func (s *Supervisor) stateInfo(st *loopState) StateInfo {
	info := StateInfo{State: st.state}
	if st.hasProfile {
		info.Server = st.profile.Name
	}
	if st.state == Reconnecting {
		info.Attempt = st.attempt
	}
	return info
}

func (s *Supervisor) emitError(err error) {
	select {
	case s.events <- Event{Type: EventError, Err: err}:
	case <-s.done:
	}
}
