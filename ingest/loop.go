package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/metric"
	"github.com/frahlg/mqtop/persist"
	"github.com/frahlg/mqtop/schema"
	"github.com/frahlg/mqtop/stats"
	"github.com/frahlg/mqtop/store"
	"github.com/frahlg/mqtop/topics"
	"github.com/frahlg/mqtop/tracker"
	"github.com/frahlg/mqtop/transport"
)

// DefaultInboundBuffer is the bounded inbound message channel capacity.
const DefaultInboundBuffer = 4096

type request struct {
	fn   func()
	done chan struct{}
}

// Loop is the single owner of all core mutable state. Transport events,
// user commands, and snapshot queries all serialize through its goroutine,
// which is what lets the stateful components stay lock-free.
type Loop struct {
	logger  *slog.Logger
	metrics *metric.Metrics
	sup     *transport.Supervisor

	index   *topics.Index
	store   *store.Store
	stats   *stats.Engine
	tracker *tracker.Tracker
	schema  *schema.Tracker

	events   <-chan transport.Event
	inbound  chan transport.InboundMessage
	control  chan transport.Event
	requests chan request
	done     chan struct{}

	// dropped is written by the pump goroutine and read by the update loop.
	dropped atomic.Uint64

	filter    string
	connState transport.StateInfo
	lastTopic string

	// Durable preferences with no live model of their own; carried here so
	// the next export round-trips them.
	bookmarks      []persist.Bookmark
	starredDevices []string
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics attaches ops metric recording.
func WithMetrics(m *metric.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithSupervisor lets connection commands delegate to a supervisor.
func WithSupervisor(sup *transport.Supervisor) Option {
	return func(l *Loop) { l.sup = sup }
}

// WithStore overrides the message store.
func WithStore(s *store.Store) Option {
	return func(l *Loop) {
		if s != nil {
			l.store = s
		}
	}
}

// WithStatsEngine overrides the statistics engine.
func WithStatsEngine(e *stats.Engine) Option {
	return func(l *Loop) {
		if e != nil {
			l.stats = e
		}
	}
}

// WithTracker overrides the metric tracker.
func WithTracker(t *tracker.Tracker) Option {
	return func(l *Loop) {
		if t != nil {
			l.tracker = t
		}
	}
}

// WithSchemaTracker overrides the schema tracker.
func WithSchemaTracker(t *schema.Tracker) Option {
	return func(l *Loop) {
		if t != nil {
			l.schema = t
		}
	}
}

// WithInboundBuffer sets the bounded inbound channel capacity.
func WithInboundBuffer(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.inbound = make(chan transport.InboundMessage, n)
		}
	}
}

// New creates a loop consuming a transport event stream.
func New(events <-chan transport.Event, opts ...Option) *Loop {
	l := &Loop{
		logger:   slog.Default(),
		index:    topics.NewIndex(),
		store:    store.New(),
		stats:    stats.NewEngine(),
		tracker:  tracker.New(),
		schema:   schema.New(),
		events:   events,
		inbound:  make(chan transport.InboundMessage, DefaultInboundBuffer),
		control:  make(chan transport.Event, 64),
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the update loop until ctx is cancelled. It starts the pump
// that bridges transport events onto the bounded inbound channel.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	go l.pump()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ingestion loop stopping",
				"total_messages", l.stats.Snapshot().TotalCount,
				"dropped", l.dropped.Load())
			return
		case msg := <-l.inbound:
			l.apply(msg)
		case ev := <-l.control:
			l.applyControl(ev)
		case req := <-l.requests:
			req.fn()
			close(req.done)
		}
	}
}

// pump moves transport events onto the loop's channels. Message events land
// on the bounded inbound channel; on saturation the oldest unconsumed event
// is dropped and counted, so the network side never blocks on a slow loop
// and memory stays bounded.
func (l *Loop) pump() {
	for ev := range l.events {
		switch ev.Type {
		case transport.EventMessageReceived:
			for {
				select {
				case l.inbound <- ev.Message:
				default:
					select {
					case <-l.inbound:
						l.dropped.Add(1)
						l.metrics.RecordMessageDropped()
					default:
					}
					continue
				}
				break
			}
		default:
			select {
			case l.control <- ev:
			case <-l.done:
				return
			}
		}
	}
}

// apply fans one message out to every stateful component. Each stage failure
// is isolated: a message the index rejects is discarded without touching the
// store or stats, and never halts ingestion of the next message.
func (l *Loop) apply(raw transport.InboundMessage) {
	l.metrics.RecordMessageReceived(len(raw.Payload))

	msg := store.NewMessage(raw.Topic, raw.Payload, raw.QoS, raw.Retain, raw.ReceivedAt)

	if _, err := l.index.Insert(raw.Topic, msg.Size, raw.ReceivedAt); err != nil {
		l.logger.Debug("discarding message", "topic", raw.Topic, "error", err)
		l.metrics.RecordDiscarded("index")
		return
	}

	truncatedBefore := l.store.Truncated()
	if l.store.Append(msg) {
		l.metrics.RecordEviction()
	}
	if l.store.Truncated() > truncatedBefore {
		l.metrics.RecordTruncation()
	}

	l.stats.RecordMessage(raw.Topic, msg.Size, raw.ReceivedAt, msg.ClaimedAt)
	l.tracker.Sample(raw.Topic, raw.Payload)
	l.schema.Observe(raw.Topic, raw.Payload)
	l.metrics.SetTopicCount(l.index.TopicCount())
}

func (l *Loop) applyControl(ev transport.Event) {
	switch ev.Type {
	case transport.EventStateChanged:
		l.connState = ev.State
		l.logger.Info("connection state", "state", ev.State.State.String(), "server", ev.State.Server)
	case transport.EventError:
		l.logger.Error("transport error", "error", ev.Err, "fatal", errors.IsFatal(ev.Err))
	}
}

// do runs fn inside the update loop and waits for it to finish.
func (l *Loop) do(fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case l.requests <- req:
	case <-l.done:
		return errors.ErrShuttingDown
	}
	select {
	case <-req.done:
		return nil
	case <-l.done:
		return errors.ErrShuttingDown
	}
}
