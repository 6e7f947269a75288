package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastTimestamp(t *testing.T) {
	lines := []string{
		"[01/02/25, 09:00:00] Maria: uno",
		"continuation",
		"[01/02/25, 18:30:05] Jose: dos",
		"trailing continuation",
	}

	assert.Equal(t, "25/02/01 18:30:05", LastTimestamp(lines))
}

func TestLastTimestampNoHeaders(t *testing.T) {
	assert.Equal(t, "", LastTimestamp([]string{"just text", "more text"}))
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		want  string
	}{
		{name: "two digit year", date: "31/12/24", clock: "21:05:11", want: "24/12/31 21:05:11"},
		{name: "one digit day and month", date: "1/2/25", clock: "09:00:00", want: "25/02/01 09:00:00"},
		{name: "four digit year", date: "01/02/2025", clock: "09:00:00", want: "25/02/01 09:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTimestamp(tt.date, tt.clock))
		})
	}
}

func TestNormalizedOrderingIsChronological(t *testing.T) {
	// Lexicographic compare on the normalized form must equal chronological
	// compare across a year boundary.
	older := NormalizeTimestamp("31/12/24", "23:59:59")
	newer := NormalizeTimestamp("01/01/25", "00:00:01")
	assert.Less(t, older, newer)
}

func TestAlreadyProcessed(t *testing.T) {
	assert.True(t, AlreadyProcessed("25/02/01 09:00:00", "25/02/01 09:00:00"))
	assert.True(t, AlreadyProcessed("25/02/01 09:00:00", "25/02/01 10:00:00"))
	assert.False(t, AlreadyProcessed("25/02/01 11:00:00", "25/02/01 10:00:00"))
	assert.False(t, AlreadyProcessed("", "25/02/01 10:00:00"))
	assert.False(t, AlreadyProcessed("25/02/01 09:00:00", ""))
}
