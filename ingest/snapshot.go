package ingest

import (
	"github.com/frahlg/mqtop/persist"
	"github.com/frahlg/mqtop/schema"
	"github.com/frahlg/mqtop/stats"
	"github.com/frahlg/mqtop/store"
	"github.com/frahlg/mqtop/topics"
	"github.com/frahlg/mqtop/tracker"
	"github.com/frahlg/mqtop/transport"
)

// TreeSnapshot is the topic index view handed to the render side.
type TreeSnapshot struct {
	Visible       []topics.Info `json:"visible"`
	TopicCount    int           `json:"topic_count"`
	TotalMessages uint64        `json:"total_messages"`
	Starred       []string      `json:"starred,omitempty"`
	Filter        string        `json:"filter,omitempty"`
	FilterMatches []string      `json:"filter_matches,omitempty"`
}

// StatsSnapshot combines engine statistics with pipeline counters.
type StatsSnapshot struct {
	Stats          stats.Snapshot      `json:"stats"`
	Connection     transport.StateInfo `json:"connection"`
	Dropped        uint64              `json:"dropped"`
	Evicted        uint64              `json:"evicted"`
	Truncated      uint64              `json:"truncated"`
	StoredMessages int                 `json:"stored_messages"`
	StoredTopics   int                 `json:"stored_topics"`
}

// TopicTree returns the flattened visible tree plus filter results.
func (l *Loop) TopicTree() (TreeSnapshot, error) {
	var snap TreeSnapshot
	err := l.do(func() {
		snap.Visible = l.index.Visible()
		snap.TopicCount = l.index.TopicCount()
		snap.TotalMessages = l.index.TotalMessages()
		snap.Starred = l.index.Starred()
		snap.Filter = l.filter
		if l.filter != "" {
			// Filter was validated on SetFilter; an error here means the
			// tree is empty, which matches nil
			snap.FilterMatches, _ = l.index.MatchFilterPaths(l.filter)
		}
	})
	return snap, err
}

// MessagesFor returns up to n retained messages for a topic, oldest first.
func (l *Loop) MessagesFor(topic string, n int) ([]store.Message, error) {
	var msgs []store.Message
	err := l.do(func() { msgs = l.store.Recent(topic, n) })
	return msgs, err
}

// LatestMessage returns the most recent message for a topic.
func (l *Loop) LatestMessage(topic string) (store.Message, bool, error) {
	var (
		msg store.Message
		ok  bool
	)
	err := l.do(func() { msg, ok = l.store.Latest(topic) })
	return msg, ok, err
}

// Stats returns engine statistics plus pipeline counters and the last seen
// connection state.
func (l *Loop) Stats() (StatsSnapshot, error) {
	var snap StatsSnapshot
	err := l.do(func() {
		snap.Stats = l.stats.Snapshot()
		snap.Connection = l.connState
		snap.Dropped = l.dropped.Load()
		snap.Evicted = l.store.Evicted()
		snap.Truncated = l.store.Truncated()
		snap.StoredMessages = l.store.TotalStored()
		snap.StoredTopics = l.store.TopicCount()
	})
	return snap, err
}

// TrackedMetrics returns all tracked metric snapshots.
func (l *Loop) TrackedMetrics() ([]tracker.Snapshot, error) {
	var snaps []tracker.Snapshot
	err := l.do(func() { snaps = l.tracker.Snapshots() })
	return snaps, err
}

// SchemaChanges returns the bounded schema change log, oldest first.
func (l *Loop) SchemaChanges() ([]schema.Change, error) {
	var changes []schema.Change
	err := l.do(func() { changes = l.schema.RecentChanges() })
	return changes, err
}

// Search runs a fuzzy topic search inside the update loop.
func (l *Loop) Search(query string, limit int) ([]topics.SearchResult, error) {
	var results []topics.SearchResult
	err := l.do(func() { results = l.index.Search(query, limit) })
	return results, err
}

// Bookmarks returns the named topic shortcuts.
func (l *Loop) Bookmarks() ([]persist.Bookmark, error) {
	var bms []persist.Bookmark
	err := l.do(func() { bms = append([]persist.Bookmark(nil), l.bookmarks...) })
	return bms, err
}

// StarredDevices returns the starred device ids.
func (l *Loop) StarredDevices() ([]string, error) {
	var ids []string
	err := l.do(func() { ids = append([]string(nil), l.starredDevices...) })
	return ids, err
}

// Dropped returns the saturation drop counter.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}
