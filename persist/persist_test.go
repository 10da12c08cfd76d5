package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahlg/mqtop/tracker"
)

func TestMarshalRoundTrip(t *testing.T) {
	u := UserData{
		StarredTopics:  []string{"sensors/temp", "devices/d1/status"},
		StarredDevices: []string{"d1"},
		Bookmarks:      []Bookmark{{Name: "main meter", Topic: "telemetry/m1/meter"}},
		LastTopic:      "sensors/temp",
		TrackedMetrics: []TrackedDefinition{
			{Label: "Power", Pattern: "telemetry/+/meter", FieldPath: "W",
				History: []tracker.Point{{At: 1000, Value: 1500}}},
		},
	}

	data, err := u.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := Unmarshal([]byte(`{broken`))
	assert.Error(t, err)
}

func TestToggleStar(t *testing.T) {
	var u UserData

	assert.True(t, u.ToggleStar("a/b"))
	assert.True(t, u.IsStarred("a/b"))

	assert.False(t, u.ToggleStar("a/b"))
	assert.False(t, u.IsStarred("a/b"))

	assert.True(t, u.ToggleDeviceStar("dev1"))
	assert.False(t, u.ToggleDeviceStar("dev1"))
	assert.Empty(t, u.StarredDevices)
}

func TestAddBookmarkReplacesByName(t *testing.T) {
	var u UserData

	u.AddBookmark("meter", "telemetry/a/meter")
	u.AddBookmark("meter", "telemetry/b/meter")

	require.Len(t, u.Bookmarks, 1)
	assert.Equal(t, "telemetry/b/meter", u.Bookmarks[0].Topic)
}

func TestAddTrackedReplacesByLabel(t *testing.T) {
	var u UserData

	u.AddTracked(TrackedDefinition{Label: "Power", Pattern: "a/#", FieldPath: "W"})
	u.AddTracked(TrackedDefinition{Label: "Power", Pattern: "b/#", FieldPath: "W"})

	require.Len(t, u.TrackedMetrics, 1)
	assert.Equal(t, "b/#", u.TrackedMetrics[0].Pattern)
}

func TestDefinitionFromBoundsHistory(t *testing.T) {
	snap := tracker.Snapshot{Label: "P", Pattern: "#", FieldPath: "v"}
	for i := 0; i < 50; i++ {
		snap.History = append(snap.History, tracker.Point{At: int64(i), Value: float64(i)})
	}

	def := DefinitionFrom(snap, 10)
	require.Len(t, def.History, 10)
	assert.Equal(t, 40.0, def.History[0].Value, "keeps the tail, not the head")
	assert.Equal(t, 49.0, def.History[9].Value)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "userdata.json")

	u := UserData{StarredTopics: []string{"x/y"}, LastTopic: "x/y"}
	require.NoError(t, Save(u, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestLoadMissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, UserData{}, got)
}
