package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqerrors "github.com/frahlg/mqtop/errors"
)

func TestInsertAndCount(t *testing.T) {
	ix := NewIndex()

	_, err := ix.Insert("sensors/temp/living_room", 10, 1000)
	require.NoError(t, err)
	_, err = ix.Insert("sensors/temp/bedroom", 15, 1001)
	require.NoError(t, err)
	_, err = ix.Insert("sensors/humidity/living_room", 8, 1002)
	require.NoError(t, err)

	assert.Equal(t, 3, ix.TopicCount())
	assert.Equal(t, uint64(3), ix.TotalMessages())
}

func TestInsertSameTopicAccumulates(t *testing.T) {
	ix := NewIndex()

	id1, err := ix.Insert("sensors/temp", 10, 1000)
	require.NoError(t, err)
	id2, err := ix.Insert("sensors/temp", 12, 2000)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	assert.Equal(t, 1, ix.TopicCount())

	info, ok := ix.InfoFor("sensors/temp")
	require.True(t, ok)
	assert.Equal(t, uint64(2), info.MessageCount)
	assert.Equal(t, uint64(22), info.BytesTotal)
	assert.Equal(t, int64(2000), info.LastSeen)
}

func TestInsertRejectsInvalidTopics(t *testing.T) {
	ix := NewIndex()

	_, err := ix.Insert("", 0, 0)
	assert.ErrorIs(t, err, mqerrors.ErrInvalidTopic)

	_, err = ix.Insert("sensors/+/temp", 0, 0)
	assert.ErrorIs(t, err, mqerrors.ErrInvalidTopic)
}

func TestPathReconstruction(t *testing.T) {
	ix := NewIndex()

	topicList := []string{
		"sensors/device-1/temp",
		"a//b", // empty middle segment is preserved
		"single",
		"deep/1/2/3/4/5",
	}
	for _, topic := range topicList {
		id, err := ix.Insert(topic, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, topic, ix.Path(id), "path round-trip for %q", topic)
	}
}

func TestSubtreeCounts(t *testing.T) {
	ix := NewIndex()

	for i := 0; i < 3; i++ {
		_, err := ix.Insert("fleet/a/temp", 1, 1)
		require.NoError(t, err)
	}
	_, err := ix.Insert("fleet/b/temp", 1, 1)
	require.NoError(t, err)

	info, ok := ix.InfoFor("fleet/a/temp")
	require.True(t, ok)
	assert.Equal(t, uint64(3), info.MessageCount)

	// Intermediate node carries the subtree rollup
	id, ok := ix.Lookup("fleet")
	require.True(t, ok)
	assert.Equal(t, uint64(4), ix.info(id, 0).SubtreeCount)
}

func TestStarredAndExpandedFlags(t *testing.T) {
	ix := NewIndex()

	_, err := ix.Insert("a/b/c", 1, 1)
	require.NoError(t, err)
	_, err = ix.Insert("a/d", 1, 1)
	require.NoError(t, err)

	assert.True(t, ix.SetStarred("a/b/c", true))
	assert.False(t, ix.SetStarred("unknown/topic", true))
	assert.Equal(t, []string{"a/b/c"}, ix.Starred())

	// Only the top level is visible while nothing is expanded
	visible := ix.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "a", visible[0].Path)
	assert.True(t, visible[0].HasChildren)

	assert.True(t, ix.SetExpanded("a", true))
	visible = ix.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, []string{"a", "a/b", "a/d"}, []string{visible[0].Path, visible[1].Path, visible[2].Path})

	// Starring never affects visibility or matching
	ids, err := ix.MatchFilter("a/#")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
