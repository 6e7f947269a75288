package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(lines []string) []Message {
	var out []Message
	for msg := range Messages(lines) {
		out = append(out, msg)
	}
	return out
}

func TestMessagesSegmentation(t *testing.T) {
	lines := []string{
		"[01/02/25, 09:15:32] Maria: Grupo: LOS PINOS ID 000045",
		"Pago: $500.00",
		"Ahorro: $50.00",
		"[01/02/25, 10:00:00] Jose: hola",
	}

	msgs := collect(lines)
	require.Len(t, msgs, 2)

	assert.Equal(t, "01/02/25", msgs[0].Date)
	assert.Equal(t, "09:15:32", msgs[0].Time)
	assert.Equal(t, "Maria", msgs[0].Sender)
	assert.Equal(t, "Grupo: LOS PINOS ID 000045\nPago: $500.00\nAhorro: $50.00", msgs[0].Body)

	assert.Equal(t, "hola", msgs[1].Body)
	assert.Equal(t, 10, msgs[1].Hour())
}

func TestMessagesDropsLeadingBodyLines(t *testing.T) {
	lines := []string{
		"orphan line with no header",
		"[01/02/25, 09:00:00] Maria: first",
	}

	msgs := collect(lines)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Body)
}

func TestMessagesOneDigitHourAndMeridiem(t *testing.T) {
	tests := []struct {
		name string
		line string
		time string
	}{
		{name: "one digit hour", line: "[1/2/25, 9:05:11] Ana: pago", time: "09:05:11"},
		{name: "pm marker stripped", line: "[01/02/25, 9:05 p.m.] Ana: pago", time: "09:05:00"},
		{name: "am marker stripped", line: "[01/02/25, 9:05:11 a.m.] Ana: pago", time: "09:05:11"},
		{name: "narrow nbsp before marker", line: "[01/02/25, 9:05:11 p.m.] Ana: pago", time: "09:05:11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := collect([]string{tt.line})
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.time, msgs[0].Time)
		})
	}
}

func TestMessagesIsRestartable(t *testing.T) {
	lines := []string{
		"[01/02/25, 09:00:00] Maria: uno",
		"[01/02/25, 10:00:00] Maria: dos",
	}

	seq := Messages(lines)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}

	assert.Equal(t, 2, first)
	assert.Equal(t, first, second)
}

func TestMessagesEarlyBreak(t *testing.T) {
	lines := []string{
		"[01/02/25, 09:00:00] Maria: uno",
		"[01/02/25, 10:00:00] Maria: dos",
		"[01/02/25, 11:00:00] Maria: tres",
	}

	count := 0
	for range Messages(lines) {
		count++
		if count == 1 {
			break
		}
	}
	assert.Equal(t, 1, count)
}

func TestHourMalformed(t *testing.T) {
	msg := Message{Time: "bad"}
	assert.Equal(t, -1, msg.Hour())
}
