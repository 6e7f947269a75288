// Package chat segments exported transcript text into discrete messages and
// tracks the ingestion watermark derived from message timestamps.
package chat

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// headerRe matches the line that opens a new message:
//
//	[31/12/24, 21:05:11] Sender: body
//
// Hours may be one or two digits and may carry an a.m./p.m. marker, which is
// stripped before downstream use. WhatsApp pads the marker with narrow
// no-break spaces on some platforms.
var headerRe = regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2,4}),[\s\x{00a0}\x{202f}]*(\d{1,2}:\d{2}(?::\d{2})?)[\s\x{00a0}\x{202f}]*(?:(?i:[ap])\.?[\s\x{00a0}\x{202f}]?(?i:m)\.?)?\][\s\x{00a0}\x{202f}]*([^:]+): (.*)$`)

// Message is one sender turn in a transcript: a header line plus any
// continuation lines joined with newlines.
type Message struct {
	Date   string // as exported, DD/MM/YY
	Time   string // normalized HH:MM:SS
	Sender string
	Body   string
}

// Hour returns the message hour, or -1 when the time is malformed.
func (m Message) Hour() int {
	idx := strings.IndexByte(m.Time, ':')
	if idx <= 0 {
		return -1
	}
	hour, err := strconv.Atoi(m.Time[:idx])
	if err != nil {
		return -1
	}
	return hour
}

// Messages returns a lazy, restartable sequence of messages segmented from
// raw transcript lines. Lines before the first header are dropped;
// non-header lines are appended to the current message body.
func Messages(lines []string) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		var current *Message
		var body []string

		flush := func() bool {
			if current == nil {
				return true
			}
			current.Body = strings.Join(body, "\n")
			ok := yield(*current)
			current = nil
			body = nil
			return ok
		}

		for _, line := range lines {
			match := headerRe.FindStringSubmatch(line)
			if match == nil {
				if current != nil {
					body = append(body, strings.TrimSpace(line))
				}
				continue
			}

			if !flush() {
				return
			}

			current = &Message{
				Date:   match[1],
				Time:   normalizeTime(match[2]),
				Sender: strings.TrimSpace(match[3]),
			}
			body = []string{match[4]}
		}

		flush()
	}
}

// normalizeTime pads a 1-digit hour and appends seconds when missing, so all
// downstream timestamps are HH:MM:SS.
func normalizeTime(t string) string {
	parts := strings.Split(t, ":")
	if len(parts[0]) == 1 {
		parts[0] = "0" + parts[0]
	}
	if len(parts) == 2 {
		parts = append(parts, "00")
	}
	return strings.Join(parts, ":")
}
