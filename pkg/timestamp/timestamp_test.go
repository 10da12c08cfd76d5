package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{"nil", nil, 0},
		{"zero int64", int64(0), 0},
		{"epoch seconds", int64(1672574400), 1672574400000},
		{"epoch millis", int64(1672574400000), 1672574400000},
		{"float seconds", float64(1672574400.5), 1672574400500},
		{"float millis", float64(1672574400000), 1672574400000},
		{"int seconds", 1672574400, 1672574400000},
		{"rfc3339", "2023-01-01T12:00:00Z", 1672574400000},
		{"numeric string seconds", "1672574400", 1672574400000},
		{"numeric string millis", "1672574400000", 1672574400000},
		{"garbage string", "not a time", 0},
		{"empty string", "", 0},
		{"bool unsupported", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParseTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now.UnixMilli(), Parse(now))
	assert.Equal(t, int64(0), Parse(time.Time{}))
}

func TestRoundTrip(t *testing.T) {
	ms := Now()
	assert.Equal(t, ms, ToUnixMs(FromUnixMs(ms)))
	assert.True(t, FromUnixMs(0).IsZero())
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))
}

func TestBetween(t *testing.T) {
	start := int64(1672574400000)
	end := start + 1500

	assert.Equal(t, 1500*time.Millisecond, Between(start, end))
	assert.Equal(t, time.Duration(0), Between(0, end))
	assert.Equal(t, time.Duration(0), Between(start, 0))
	assert.Equal(t, -time.Second, Between(start+1000, start))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(0))
	assert.Equal(t, "2023-01-01T12:00:00Z", Format(1672574400000))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Now()))
	assert.NoError(t, Validate(0))
	assert.Error(t, Validate(-1))
	assert.Error(t, Validate(time.Now().UnixNano()))
}
