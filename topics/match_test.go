package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqerrors "github.com/frahlg/mqtop/errors"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"#", "any/topic/here", true},
		{"#", "single", true},
		{"sensors/+/temp", "sensors/device-1/temp", true},
		{"sensors/+/temp", "sensors/device-1/sub/temp", false},
		{"sensors/+/temp", "sensors/temp", false},
		{"sensors/#", "sensors", true},
		{"sensors/#", "sensors/a", true},
		{"sensors/#", "sensors/a/b", true},
		{"sensors/#", "actuators/a", false},
		{"exact/match", "exact/match", true},
		{"exact/match", "exact/other", false},
		{"exact/match", "exact/match/deeper", false},
		{"+", "one", true},
		{"+", "one/two", false},
		{"+/+", "one/two", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" vs "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.topic))
		})
	}
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("#"))
	assert.NoError(t, ValidatePattern("a/+/b"))
	assert.NoError(t, ValidatePattern("a/b/#"))

	assert.ErrorIs(t, ValidatePattern(""), mqerrors.ErrInvalidPattern)
	assert.ErrorIs(t, ValidatePattern("a/#/b"), mqerrors.ErrInvalidPattern)
	assert.ErrorIs(t, ValidatePattern("a/b+c"), mqerrors.ErrInvalidPattern)
	assert.ErrorIs(t, ValidatePattern("a#"), mqerrors.ErrInvalidPattern)
}

func TestMatchFilterEveryInsertedTopicMatchesItself(t *testing.T) {
	ix := NewIndex()
	topicList := []string{
		"sensors/device-1/temp",
		"sensors/device-2/temp",
		"sensors/device-1/humidity",
		"actuators/valve-9/state",
	}
	for _, topic := range topicList {
		_, err := ix.Insert(topic, 1, 1)
		require.NoError(t, err)
	}

	for _, topic := range topicList {
		paths, err := ix.MatchFilterPaths(topic)
		require.NoError(t, err)
		assert.Equal(t, []string{topic}, paths, "exact pattern %q", topic)
	}

	// '#' matches every topic
	ids, err := ix.MatchFilter("#")
	require.NoError(t, err)
	assert.Len(t, ids, len(topicList))
}

func TestMatchFilterSingleLevel(t *testing.T) {
	ix := NewIndex()
	for _, topic := range []string{
		"sensors/device-1/temp",
		"sensors/device-2/temp",
		"sensors/device-1/sub/temp",
	} {
		_, err := ix.Insert(topic, 1, 1)
		require.NoError(t, err)
	}

	paths, err := ix.MatchFilterPaths("sensors/+/temp")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sensors/device-1/temp", "sensors/device-2/temp"}, paths)
}

func TestMatchFilterMultiLevelIncludesParent(t *testing.T) {
	ix := NewIndex()
	for _, topic := range []string{"sensors", "sensors/a", "sensors/a/b", "other"} {
		_, err := ix.Insert(topic, 1, 1)
		require.NoError(t, err)
	}

	paths, err := ix.MatchFilterPaths("sensors/#")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sensors", "sensors/a", "sensors/a/b"}, paths)
}

func TestMatchFilterRejectsInvalidPattern(t *testing.T) {
	ix := NewIndex()
	_, err := ix.MatchFilter("a/#/b")
	assert.ErrorIs(t, err, mqerrors.ErrInvalidPattern)
}
