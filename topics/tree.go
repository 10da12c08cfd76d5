package topics

import (
	"sort"
	"strings"

	"github.com/frahlg/mqtop/errors"
)

// NodeID addresses a node in the index arena. The root is always RootID.
type NodeID int

// RootID is the synthetic root anchoring all topic paths.
const RootID NodeID = 0

// node is one path segment. Nodes live in the Index arena and reference
// children by arena index, so the tree has no pointer cycles to manage.
type node struct {
	name     string
	parent   NodeID
	children map[string]NodeID

	// isTopic marks nodes that have received at least one message, as
	// opposed to pure intermediate segments.
	isTopic      bool
	messageCount uint64
	subtreeCount uint64
	bytesTotal   uint64
	lastSeen     int64 // unix millis, 0 = never

	starred  bool
	expanded bool
}

// Info describes one topic node for external consumers (render surface,
// query snapshots). It carries no references into the arena.
type Info struct {
	Path         string `json:"path"`
	Segment      string `json:"segment"`
	Depth        int    `json:"depth"`
	IsTopic      bool   `json:"is_topic"`
	HasChildren  bool   `json:"has_children"`
	Expanded     bool   `json:"expanded"`
	Starred      bool   `json:"starred"`
	MessageCount uint64 `json:"message_count"`
	SubtreeCount uint64 `json:"subtree_count"`
	BytesTotal   uint64 `json:"bytes_total"`
	LastSeen     int64  `json:"last_seen"`
}

// Index is a segment tree over discovered topics. Insertion is O(depth) and
// filter evaluation walks only the matched subtree. The Index is not
// goroutine-safe; all mutation is funneled through the ingestion loop.
type Index struct {
	nodes      []node
	topicCount int
}

// NewIndex creates an empty index containing only the root node.
func NewIndex() *Index {
	return &Index{
		nodes: []node{{
			parent:   -1,
			children: make(map[string]NodeID),
			expanded: true, // root children are always visible
		}},
	}
}

// Insert records a sighting of topic with the given payload size at
// receivedAt (unix millis). Intermediate nodes are created lazily; nodes are
// never removed during a session. Returns the id of the topic's leaf node.
func (ix *Index) Insert(topic string, payloadSize int, receivedAt int64) (NodeID, error) {
	if topic == "" {
		return 0, errors.WrapInvalid(errors.ErrInvalidTopic, "Index", "Insert", "empty topic")
	}
	if strings.ContainsAny(topic, "+#") {
		return 0, errors.WrapInvalid(errors.ErrInvalidTopic, "Index", "Insert", "wildcard in concrete topic")
	}

	current := RootID
	for _, segment := range strings.Split(topic, "/") {
		child, ok := ix.nodes[current].children[segment]
		if !ok {
			child = NodeID(len(ix.nodes))
			ix.nodes = append(ix.nodes, node{
				name:     segment,
				parent:   current,
				children: make(map[string]NodeID),
			})
			ix.nodes[current].children[segment] = child
		}
		current = child
	}

	n := &ix.nodes[current]
	if !n.isTopic {
		n.isTopic = true
		ix.topicCount++
	}
	n.messageCount++
	n.bytesTotal += uint64(payloadSize)
	n.lastSeen = receivedAt

	// Subtree rollups along the path back to root
	for id := current; id != -1; id = ix.nodes[id].parent {
		ix.nodes[id].subtreeCount++
	}

	return current, nil
}

// Lookup returns the node id for an exact topic path.
func (ix *Index) Lookup(topic string) (NodeID, bool) {
	current := RootID
	for _, segment := range strings.Split(topic, "/") {
		child, ok := ix.nodes[current].children[segment]
		if !ok {
			return 0, false
		}
		current = child
	}
	return current, true
}

// Path reconstructs the full topic string for a node by walking to the root.
// For any inserted topic T, Path(id) == T exactly.
func (ix *Index) Path(id NodeID) string {
	if id == RootID {
		return ""
	}
	var segments []string
	for cur := id; cur != RootID; cur = ix.nodes[cur].parent {
		segments = append(segments, ix.nodes[cur].name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

// TopicCount returns the number of distinct topics that received messages.
func (ix *Index) TopicCount() int {
	return ix.topicCount
}

// NodeCount returns the total number of nodes including intermediates and root.
func (ix *Index) NodeCount() int {
	return len(ix.nodes)
}

// TotalMessages returns the message count across all topics.
func (ix *Index) TotalMessages() uint64 {
	return ix.nodes[RootID].subtreeCount
}

// InfoFor returns display info for an exact topic.
func (ix *Index) InfoFor(topic string) (Info, bool) {
	id, ok := ix.Lookup(topic)
	if !ok {
		return Info{}, false
	}
	return ix.info(id, ix.depth(id)), true
}

// SetStarred flags a topic; the flag is inert to matching logic.
// Returns false if the topic is unknown.
func (ix *Index) SetStarred(topic string, starred bool) bool {
	id, ok := ix.Lookup(topic)
	if !ok {
		return false
	}
	ix.nodes[id].starred = starred
	return true
}

// SetExpanded flags a topic subtree as expanded for display flattening.
func (ix *Index) SetExpanded(topic string, expanded bool) bool {
	id, ok := ix.Lookup(topic)
	if !ok {
		return false
	}
	ix.nodes[id].expanded = expanded
	return true
}

// Starred returns all starred topic paths, sorted.
func (ix *Index) Starred() []string {
	var out []string
	for id := range ix.nodes {
		if ix.nodes[id].starred {
			out = append(out, ix.Path(NodeID(id)))
		}
	}
	sort.Strings(out)
	return out
}

// Visible flattens the tree into display order, recursing only into
// expanded nodes. Children sort lexically for stable rendering.
func (ix *Index) Visible() []Info {
	var out []Info
	ix.collectVisible(RootID, 0, &out)
	return out
}

func (ix *Index) collectVisible(id NodeID, depth int, out *[]Info) {
	names := make([]string, 0, len(ix.nodes[id].children))
	for name := range ix.nodes[id].children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		child := ix.nodes[id].children[name]
		*out = append(*out, ix.info(child, depth))
		if ix.nodes[child].expanded {
			ix.collectVisible(child, depth+1, out)
		}
	}
}

func (ix *Index) info(id NodeID, depth int) Info {
	n := &ix.nodes[id]
	return Info{
		Path:         ix.Path(id),
		Segment:      n.name,
		Depth:        depth,
		IsTopic:      n.isTopic,
		HasChildren:  len(n.children) > 0,
		Expanded:     n.expanded,
		Starred:      n.starred,
		MessageCount: n.messageCount,
		SubtreeCount: n.subtreeCount,
		BytesTotal:   n.bytesTotal,
		LastSeen:     n.lastSeen,
	}
}

func (ix *Index) depth(id NodeID) int {
	d := -1
	for cur := id; cur != RootID; cur = ix.nodes[cur].parent {
		d++
	}
	return d
}
