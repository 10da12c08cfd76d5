package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahlg/mqtop/persist"
	"github.com/frahlg/mqtop/transport"
)

func msgEvent(topic, payload string, at int64) transport.Event {
	return transport.Event{
		Type: transport.EventMessageReceived,
		Message: transport.InboundMessage{
			Topic:      topic,
			Payload:    []byte(payload),
			ReceivedAt: at,
		},
	}
}

func startLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop in time")
		}
	})
}

func TestMessageFanOut(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	events <- msgEvent("sensors/room1/temp", `{"v": 21.5, "timestamp": 1700000000000}`, 1700000000100)
	events <- msgEvent("sensors/room1/temp", `{"v": 22.0}`, 1700000001000)
	events <- msgEvent("sensors/room2/temp", `{"v": 19.0}`, 1700000002000)

	require.Eventually(t, func() bool {
		tree, err := l.TopicTree()
		return err == nil && tree.TopicCount == 2
	}, 2*time.Second, 5*time.Millisecond)

	msgs, err := l.MessagesFor("sensors/room1/temp", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte(`{"v": 21.5, "timestamp": 1700000000000}`), msgs[0].Payload)

	snap, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Stats.TotalCount)
	assert.Equal(t, 3, snap.StoredMessages)

	tree, err := l.TopicTree()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tree.TotalMessages)
}

func TestInvalidTopicIsolated(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	// Wildcards are filter syntax, never valid in a published topic
	events <- msgEvent("bad/+/topic", `{}`, 1000)
	events <- msgEvent("good/topic", `{}`, 2000)

	require.Eventually(t, func() bool {
		tree, err := l.TopicTree()
		return err == nil && tree.TopicCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	msgs, err := l.MessagesFor("good/topic", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "ingestion must continue past a rejected message")
}

func TestSaturationDropsOldest(t *testing.T) {
	events := make(chan transport.Event)
	l := New(events, WithInboundBuffer(2))

	// Run only the pump: the update loop is deliberately not draining, so
	// the bounded channel saturates.
	go l.pump()

	for i := 1; i <= 4; i++ {
		events <- msgEvent("t", string(rune('0'+i)), int64(i))
	}
	close(events)

	require.Eventually(t, func() bool {
		return l.Dropped() == 2
	}, 2*time.Second, time.Millisecond)

	// The two newest survive, in order
	first := <-l.inbound
	second := <-l.inbound
	assert.Equal(t, int64(3), first.ReceivedAt)
	assert.Equal(t, int64(4), second.ReceivedAt)
}

func TestDroppedCounterInSnapshot(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	l.dropped.Store(7)
	startLoop(t, l)

	snap, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), snap.Dropped)

	require.NoError(t, l.ClearStats())
	snap, err = l.Stats()
	require.NoError(t, err)
	assert.Zero(t, snap.Dropped)
}

func TestConnectionStateTracked(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	events <- transport.Event{
		Type:  transport.EventStateChanged,
		State: transport.StateInfo{State: transport.Connected, Server: "test"},
	}

	require.Eventually(t, func() bool {
		snap, err := l.Stats()
		return err == nil && snap.Connection.State == transport.Connected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTrackThroughLoop(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	id, err := l.Track("Power", "telemetry/+/meter", "L1_W")
	require.NoError(t, err)

	events <- msgEvent("telemetry/d1/meter", `{"L1_W": 1523.5}`, 1000)
	events <- msgEvent("telemetry/d1/meter", `{"L1_W": "bad"}`, 2000)
	events <- msgEvent("telemetry/d1/meter", `{"L1_W": 1600}`, 3000)

	require.Eventually(t, func() bool {
		snaps, err := l.TrackedMetrics()
		return err == nil && len(snaps) == 1 && snaps[0].Count == 2
	}, 2*time.Second, 5*time.Millisecond)

	snaps, err := l.TrackedMetrics()
	require.NoError(t, err)
	require.Len(t, snaps[0].History, 2)
	assert.Equal(t, 1523.5, snaps[0].History[0].Value)
	assert.Equal(t, 1600.0, snaps[0].History[1].Value)

	require.NoError(t, l.Untrack(id))
	snaps, err = l.TrackedMetrics()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestFilterAndSearch(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	events <- msgEvent("sensors/room1/temp", `{}`, 1)
	events <- msgEvent("sensors/room2/temp", `{}`, 2)
	events <- msgEvent("devices/d1/status", `{}`, 3)

	require.Eventually(t, func() bool {
		tree, err := l.TopicTree()
		return err == nil && tree.TopicCount == 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Error(t, l.SetFilter("a/#/b"), "invalid patterns are rejected up front")

	require.NoError(t, l.SetFilter("sensors/+/temp"))
	tree, err := l.TopicTree()
	require.NoError(t, err)
	assert.Equal(t, "sensors/+/temp", tree.Filter)
	assert.ElementsMatch(t, []string{"sensors/room1/temp", "sensors/room2/temp"}, tree.FilterMatches)

	require.NoError(t, l.SetFilter(""))
	tree, err = l.TopicTree()
	require.NoError(t, err)
	assert.Empty(t, tree.FilterMatches)

	results, err := l.Search("room1", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sensors/room1/temp", results[0].Path)
}

func TestStarAndUserDataRoundTrip(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	events <- msgEvent("sensors/temp", `{}`, 1)
	require.Eventually(t, func() bool {
		tree, err := l.TopicTree()
		return err == nil && tree.TopicCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l.Star("sensors/temp", true))
	require.NoError(t, l.SelectTopic("sensors/temp"))
	_, err := l.Track("Power", "telemetry/#", "W")
	require.NoError(t, err)

	data, err := l.ExportUserData(persist.DefaultHistoryTail)
	require.NoError(t, err)
	assert.Equal(t, []string{"sensors/temp"}, data.StarredTopics)
	assert.Equal(t, "sensors/temp", data.LastTopic)
	require.Len(t, data.TrackedMetrics, 1)
	assert.Equal(t, "Power", data.TrackedMetrics[0].Label)

	// A fresh loop restores the definitions
	events2 := make(chan transport.Event, 16)
	l2 := New(events2)
	startLoop(t, l2)

	events2 <- msgEvent("sensors/temp", `{}`, 1)
	require.Eventually(t, func() bool {
		tree, err := l2.TopicTree()
		return err == nil && tree.TopicCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l2.ApplyUserData(data))
	snaps, err := l2.TrackedMetrics()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Power", snaps[0].Label)

	tree, err := l2.TopicTree()
	require.NoError(t, err)
	assert.Equal(t, []string{"sensors/temp"}, tree.Starred)
}

func TestBookmarksAndDeviceStarsSurviveRoundTrip(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	loaded := persist.UserData{
		StarredDevices: []string{"dev-1"},
		Bookmarks:      []persist.Bookmark{{Name: "meter", Topic: "telemetry/dev-1/meter"}},
	}
	require.NoError(t, l.ApplyUserData(loaded))

	// Mutations layer on top of the restored state
	require.NoError(t, l.StarDevice("dev-2", true))
	require.NoError(t, l.AddBookmark("meter", "telemetry/dev-9/meter"))
	require.NoError(t, l.AddBookmark("status", "devices/dev-1/status"))

	data, err := l.ExportUserData(persist.DefaultHistoryTail)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dev-1", "dev-2"}, data.StarredDevices)
	require.Len(t, data.Bookmarks, 2, "same-name bookmark replaces, not duplicates")
	assert.Contains(t, data.Bookmarks, persist.Bookmark{Name: "meter", Topic: "telemetry/dev-9/meter"})
	assert.Contains(t, data.Bookmarks, persist.Bookmark{Name: "status", Topic: "devices/dev-1/status"})

	require.NoError(t, l.StarDevice("dev-1", false))
	require.NoError(t, l.RemoveBookmark("status"))

	ids, err := l.StarredDevices()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-2"}, ids)

	bms, err := l.Bookmarks()
	require.NoError(t, err)
	require.Len(t, bms, 1)
	assert.Equal(t, "meter", bms[0].Name)
}

func TestClearMessages(t *testing.T) {
	events := make(chan transport.Event, 16)
	l := New(events)
	startLoop(t, l)

	events <- msgEvent("a/b", `{}`, 1)
	events <- msgEvent("c/d", `{}`, 2)
	require.Eventually(t, func() bool {
		snap, err := l.Stats()
		return err == nil && snap.StoredMessages == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, l.ClearMessages("a/b"))
	snap, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.StoredMessages)

	require.NoError(t, l.ClearMessages(""))
	snap, err = l.Stats()
	require.NoError(t, err)
	assert.Zero(t, snap.StoredMessages)
}

func TestCommandsAfterShutdown(t *testing.T) {
	events := make(chan transport.Event)
	l := New(events)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	_, err := l.Stats()
	assert.Error(t, err)
}
