package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/tracker"
)

// DefaultHistoryTail bounds how many samples a tracked definition carries
// when serialized.
const DefaultHistoryTail = 20

// TrackedDefinition is the durable part of a tracked metric: enough to
// recreate it next session, plus a bounded tail of recent samples.
type TrackedDefinition struct {
	Label     string          `json:"label"`
	Pattern   string          `json:"topic_pattern"`
	FieldPath string          `json:"field_path"`
	History   []tracker.Point `json:"history,omitempty"`
}

// Bookmark is a named topic shortcut.
type Bookmark struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// UserData is the cross-session preferences blob. The engine produces and
// consumes it as plain data; where it lives on disk is the caller's choice.
type UserData struct {
	StarredTopics  []string            `json:"starred_topics,omitempty"`
	StarredDevices []string            `json:"starred_devices,omitempty"`
	Bookmarks      []Bookmark          `json:"bookmarks,omitempty"`
	LastTopic      string              `json:"last_topic,omitempty"`
	TrackedMetrics []TrackedDefinition `json:"tracked_metrics,omitempty"`
}

// Marshal renders the user data as indented JSON.
func (u UserData) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "persist", "Marshal", "encode user data")
	}
	return data, nil
}

// Unmarshal parses user data from JSON.
func Unmarshal(data []byte) (UserData, error) {
	var u UserData
	if err := json.Unmarshal(data, &u); err != nil {
		return UserData{}, errors.WrapInvalid(err, "persist", "Unmarshal", "decode user data")
	}
	return u, nil
}

// IsStarred reports whether a topic is in the starred set.
func (u UserData) IsStarred(topic string) bool {
	return slices.Contains(u.StarredTopics, topic)
}

// ToggleStar flips a topic's starred state and reports the new state.
func (u *UserData) ToggleStar(topic string) bool {
	if i := slices.Index(u.StarredTopics, topic); i >= 0 {
		u.StarredTopics = slices.Delete(u.StarredTopics, i, i+1)
		return false
	}
	u.StarredTopics = append(u.StarredTopics, topic)
	return true
}

// ToggleDeviceStar flips a device's starred state and reports the new state.
func (u *UserData) ToggleDeviceStar(id string) bool {
	if i := slices.Index(u.StarredDevices, id); i >= 0 {
		u.StarredDevices = slices.Delete(u.StarredDevices, i, i+1)
		return false
	}
	u.StarredDevices = append(u.StarredDevices, id)
	return true
}

// AddBookmark records a named topic, replacing any bookmark with the same name.
func (u *UserData) AddBookmark(name, topic string) {
	u.Bookmarks = slices.DeleteFunc(u.Bookmarks, func(b Bookmark) bool { return b.Name == name })
	u.Bookmarks = append(u.Bookmarks, Bookmark{Name: name, Topic: topic})
}

// AddTracked records a tracked definition, replacing any with the same label.
func (u *UserData) AddTracked(def TrackedDefinition) {
	u.TrackedMetrics = slices.DeleteFunc(u.TrackedMetrics, func(d TrackedDefinition) bool {
		return d.Label == def.Label
	})
	u.TrackedMetrics = append(u.TrackedMetrics, def)
}

// DefinitionFrom converts a live tracked-metric snapshot into its durable
// form, keeping at most tail samples from the end of the history.
func DefinitionFrom(snap tracker.Snapshot, tail int) TrackedDefinition {
	if tail <= 0 {
		tail = DefaultHistoryTail
	}
	history := snap.History
	if len(history) > tail {
		history = history[len(history)-tail:]
	}
	return TrackedDefinition{
		Label:     snap.Label,
		Pattern:   snap.Pattern,
		FieldPath: snap.FieldPath,
		History:   append([]tracker.Point(nil), history...),
	}
}

// DefaultPath is the conventional on-disk location for user data.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mqtop", "userdata.json")
}

// Save writes user data to a path, creating parent directories as needed.
func Save(u UserData, path string) error {
	data, err := u.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "persist", "Save", "create config directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "persist", "Save", "write "+path)
	}
	return nil
}

// Load reads user data from a path. A missing file is an empty UserData,
// not an error.
func Load(path string) (UserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UserData{}, nil
		}
		return UserData{}, errors.Wrap(err, "persist", "Load", "read "+path)
	}
	return Unmarshal(data)
}
