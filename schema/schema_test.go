package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	tr := New()

	tr.Observe("topic", []byte(`{"name": "test", "value": 42, "active": true, "data": {"nested": "v"}, "list": [1, 2]}`))

	s, ok := tr.SchemaFor("topic")
	require.True(t, ok)
	assert.Equal(t, String, s["name"])
	assert.Equal(t, Number, s["value"])
	assert.Equal(t, Boolean, s["active"])
	assert.Equal(t, Object, s["data"])
	assert.Equal(t, String, s["data.nested"])
	assert.Equal(t, Array, s["list"])
	assert.Equal(t, Number, s["list[0]"])
}

func TestFirstMessageEstablishesBaseline(t *testing.T) {
	tr := New()

	changes := tr.Observe("topic", []byte(`{"name": "test", "value": 42}`))
	assert.Empty(t, changes)

	// Same shape, different values: still no change
	changes = tr.Observe("topic", []byte(`{"name": "other", "value": 100}`))
	assert.Empty(t, changes)
}

func TestFieldAdded(t *testing.T) {
	tr := New()

	tr.Observe("topic", []byte(`{"name": "test"}`))
	changes := tr.Observe("topic", []byte(`{"name": "test", "extra": "hello"}`))

	require.Len(t, changes, 1)
	assert.Equal(t, FieldAdded, changes[0].Type)
	assert.Equal(t, "extra", changes[0].FieldPath)
	assert.Equal(t, String, changes[0].NewType)
}

func TestFieldRemoved(t *testing.T) {
	tr := New()

	tr.Observe("topic", []byte(`{"a": 1, "b": 2}`))
	changes := tr.Observe("topic", []byte(`{"a": 1}`))

	require.Len(t, changes, 1)
	assert.Equal(t, FieldRemoved, changes[0].Type)
	assert.Equal(t, "b", changes[0].FieldPath)
	assert.Equal(t, Number, changes[0].OldType)
}

func TestTypeChanged(t *testing.T) {
	tr := New()

	tr.Observe("topic", []byte(`{"value": 42}`))
	changes := tr.Observe("topic", []byte(`{"value": "forty-two"}`))

	require.Len(t, changes, 1)
	assert.Equal(t, TypeChanged, changes[0].Type)
	assert.Equal(t, Number, changes[0].OldType)
	assert.Equal(t, String, changes[0].NewType)
}

func TestTopicsIndependent(t *testing.T) {
	tr := New()

	tr.Observe("a", []byte(`{"x": 1}`))
	changes := tr.Observe("b", []byte(`{"x": "s"}`))
	assert.Empty(t, changes, "different topics never compare against each other")
	assert.Equal(t, 2, tr.TopicCount())
}

func TestNonJSONIgnored(t *testing.T) {
	tr := New()

	assert.Empty(t, tr.Observe("topic", []byte(`not json`)))
	assert.Equal(t, 0, tr.TopicCount())
}

func TestChangeLogBounded(t *testing.T) {
	tr := New(WithMaxChanges(3))

	tr.Observe("topic", []byte(`{"f0": 1}`))
	payloads := []string{
		`{"f1": 1}`, `{"f2": 1}`, `{"f3": 1}`, `{"f4": 1}`,
	}
	for _, p := range payloads {
		tr.Observe("topic", []byte(p))
	}

	// Each step adds one field and removes one: 8 changes through a log of 3
	changes := tr.RecentChanges()
	assert.Len(t, changes, 3)

	tr.ClearChanges()
	assert.Empty(t, tr.RecentChanges())
	assert.Equal(t, 1, tr.TopicCount())
}
