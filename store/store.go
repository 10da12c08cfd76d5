package store

// Overflow and payload-cap defaults.
const (
	DefaultCapacity   = 100
	DefaultPayloadCap = 1 << 20 // 1 MiB
)

// ring is a fixed-capacity FIFO over Messages. It is deliberately
// unsynchronized: the ingestion loop is the single owner of all store state.
type ring struct {
	items []Message
	head  int // next write position
	tail  int // oldest element
	size  int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]Message, capacity)}
}

// push appends a message, evicting exactly the oldest entry when full.
// Returns true when an eviction occurred.
func (r *ring) push(msg Message) bool {
	evicted := false
	if r.size == len(r.items) {
		r.items[r.tail] = Message{} // release payload for GC
		r.tail = (r.tail + 1) % len(r.items)
		r.size--
		evicted = true
	}
	r.items[r.head] = msg
	r.head = (r.head + 1) % len(r.items)
	r.size++
	return evicted
}

// oldestFirst copies out up to n messages in arrival order. n <= 0 means all.
func (r *ring) oldestFirst(n int) []Message {
	if n <= 0 || n > r.size {
		n = r.size
	}
	if n == 0 {
		return nil
	}
	out := make([]Message, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.items[(r.tail+start+i)%len(r.items)]
	}
	return out
}

func (r *ring) latest() (Message, bool) {
	if r.size == 0 {
		return Message{}, false
	}
	idx := (r.head - 1 + len(r.items)) % len(r.items)
	return r.items[idx], true
}

// Store keeps a bounded ring of recent messages per topic. Appends and
// evictions are amortized O(1); eviction is strict FIFO per topic.
type Store struct {
	buffers    map[string]*ring
	capacity   int
	payloadCap int

	totalStored int
	evicted     uint64
	truncated   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the per-topic message capacity.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithPayloadCap sets the maximum retained payload size in bytes.
func WithPayloadCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.payloadCap = n
		}
	}
}

// New creates an empty message store.
func New(opts ...Option) *Store {
	s := &Store{
		buffers:    make(map[string]*ring),
		capacity:   DefaultCapacity,
		payloadCap: DefaultPayloadCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a message under its topic. An oversized payload is truncated
// to the payload cap and flagged rather than rejected, so a single large
// message never stalls ingestion. Returns true when the append evicted an
// older message.
func (s *Store) Append(msg Message) bool {
	if len(msg.Payload) > s.payloadCap {
		msg.Payload = msg.Payload[:s.payloadCap]
		msg.Truncated = true
		s.truncated++
	}

	buf, ok := s.buffers[msg.Topic]
	if !ok {
		buf = newRing(s.capacity)
		s.buffers[msg.Topic] = buf
	}

	evicted := buf.push(msg)
	if evicted {
		s.evicted++
	} else {
		s.totalStored++
	}
	return evicted
}

// Recent returns up to n messages for a topic, oldest first.
func (s *Store) Recent(topic string, n int) []Message {
	buf, ok := s.buffers[topic]
	if !ok {
		return nil
	}
	return buf.oldestFirst(n)
}

// Latest returns the most recent message for a topic.
func (s *Store) Latest(topic string) (Message, bool) {
	buf, ok := s.buffers[topic]
	if !ok {
		return Message{}, false
	}
	return buf.latest()
}

// Count returns the number of retained messages for a topic.
func (s *Store) Count(topic string) int {
	if buf, ok := s.buffers[topic]; ok {
		return buf.size
	}
	return 0
}

// TotalStored returns the number of messages currently retained.
func (s *Store) TotalStored() int {
	return s.totalStored
}

// TopicCount returns the number of topics holding at least one message.
func (s *Store) TopicCount() int {
	return len(s.buffers)
}

// Evicted returns the lifetime count of FIFO evictions. Eviction is expected
// bounded-retention behavior, observable here for diagnostics only.
func (s *Store) Evicted() uint64 {
	return s.evicted
}

// Truncated returns the lifetime count of payload truncations.
func (s *Store) Truncated() uint64 {
	return s.truncated
}

// Clear drops all messages for one topic.
func (s *Store) Clear(topic string) {
	if buf, ok := s.buffers[topic]; ok {
		s.totalStored -= buf.size
		delete(s.buffers, topic)
	}
}

// ClearAll drops every retained message.
func (s *Store) ClearAll() {
	s.buffers = make(map[string]*ring)
	s.totalStored = 0
}
