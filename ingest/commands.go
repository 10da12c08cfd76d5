package ingest

import (
	"slices"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/persist"
	"github.com/frahlg/mqtop/topics"
	"github.com/frahlg/mqtop/transport"
)

// Connect dials a server profile through the attached supervisor.
func (l *Loop) Connect(profile transport.ServerProfile) error {
	if l.sup == nil {
		return errors.ErrNoConnection
	}
	return l.sup.Connect(profile)
}

// Disconnect tears down the active session.
func (l *Loop) Disconnect() error {
	if l.sup == nil {
		return errors.ErrNoConnection
	}
	return l.sup.Disconnect()
}

// ReconnectNow cancels any pending backoff and dials immediately.
func (l *Loop) ReconnectNow() error {
	if l.sup == nil {
		return errors.ErrNoConnection
	}
	return l.sup.ReconnectNow()
}

// SetFilter sets the active topic filter pattern. Empty clears it.
func (l *Loop) SetFilter(pattern string) error {
	if pattern != "" {
		if err := topics.ValidatePattern(pattern); err != nil {
			return err
		}
	}
	return l.do(func() { l.filter = pattern })
}

// Track registers a tracked metric and returns its id.
func (l *Loop) Track(label, pattern, fieldPath string) (string, error) {
	var (
		id  string
		err error
	)
	if doErr := l.do(func() {
		id, err = l.tracker.Track(label, pattern, fieldPath)
	}); doErr != nil {
		return "", doErr
	}
	return id, err
}

// Untrack removes a tracked metric.
func (l *Loop) Untrack(id string) error {
	var err error
	if doErr := l.do(func() { err = l.tracker.Untrack(id) }); doErr != nil {
		return doErr
	}
	return err
}

// Star marks or unmarks a topic. Unknown topics are not an error; the flag
// simply has nothing to attach to yet.
func (l *Loop) Star(topic string, starred bool) error {
	return l.do(func() { l.index.SetStarred(topic, starred) })
}

// SetExpanded flips a topic's expanded flag for tree flattening.
func (l *Loop) SetExpanded(topic string, expanded bool) error {
	return l.do(func() { l.index.SetExpanded(topic, expanded) })
}

// SelectTopic records the last selected topic for session restore.
func (l *Loop) SelectTopic(topic string) error {
	return l.do(func() { l.lastTopic = topic })
}

// StarDevice marks or unmarks a device id.
func (l *Loop) StarDevice(id string, starred bool) error {
	return l.do(func() {
		i := slices.Index(l.starredDevices, id)
		switch {
		case starred && i < 0:
			l.starredDevices = append(l.starredDevices, id)
		case !starred && i >= 0:
			l.starredDevices = slices.Delete(l.starredDevices, i, i+1)
		}
	})
}

// AddBookmark names a topic shortcut, replacing any bookmark with the same name.
func (l *Loop) AddBookmark(name, topic string) error {
	return l.do(func() {
		l.bookmarks = slices.DeleteFunc(l.bookmarks, func(b persist.Bookmark) bool { return b.Name == name })
		l.bookmarks = append(l.bookmarks, persist.Bookmark{Name: name, Topic: topic})
	})
}

// RemoveBookmark deletes a named shortcut. Unknown names are a no-op.
func (l *Loop) RemoveBookmark(name string) error {
	return l.do(func() {
		l.bookmarks = slices.DeleteFunc(l.bookmarks, func(b persist.Bookmark) bool { return b.Name == name })
	})
}

// ClearStats resets counters, windows, devices, and the schema change log.
// Topic tree, retained messages, and tracked metrics stay.
func (l *Loop) ClearStats() error {
	return l.do(func() {
		l.stats.Reset()
		l.schema.ClearChanges()
		l.dropped.Store(0)
	})
}

// ClearMessages drops retained messages for one topic, or all when empty.
func (l *Loop) ClearMessages(topic string) error {
	return l.do(func() {
		if topic == "" {
			l.store.ClearAll()
		} else {
			l.store.Clear(topic)
		}
	})
}

// ExportUserData assembles the durable preferences blob from live state.
func (l *Loop) ExportUserData(historyTail int) (persist.UserData, error) {
	var data persist.UserData
	err := l.do(func() {
		data.StarredTopics = l.index.Starred()
		data.StarredDevices = append([]string(nil), l.starredDevices...)
		data.Bookmarks = append([]persist.Bookmark(nil), l.bookmarks...)
		data.LastTopic = l.lastTopic
		for _, snap := range l.tracker.Snapshots() {
			data.TrackedMetrics = append(data.TrackedMetrics, persist.DefinitionFrom(snap, historyTail))
		}
	})
	return data, err
}

// ApplyUserData restores starred topics and tracked definitions from a
// previous session. Stars for topics not yet discovered are skipped; they
// reattach when the caller re-applies after discovery.
func (l *Loop) ApplyUserData(data persist.UserData) error {
	return l.do(func() {
		for _, topic := range data.StarredTopics {
			l.index.SetStarred(topic, true)
		}
		for _, id := range data.StarredDevices {
			if !slices.Contains(l.starredDevices, id) {
				l.starredDevices = append(l.starredDevices, id)
			}
		}
		for _, b := range data.Bookmarks {
			name := b.Name
			l.bookmarks = slices.DeleteFunc(l.bookmarks, func(x persist.Bookmark) bool { return x.Name == name })
			l.bookmarks = append(l.bookmarks, b)
		}
		if data.LastTopic != "" {
			l.lastTopic = data.LastTopic
		}
		for _, def := range data.TrackedMetrics {
			if _, err := l.tracker.Track(def.Label, def.Pattern, def.FieldPath); err != nil {
				l.logger.Warn("skipping saved tracked metric", "label", def.Label, "error", err)
			}
		}
	})
}
