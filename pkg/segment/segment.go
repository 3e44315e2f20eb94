// Package segment turns raw generator output into an ordered list of
// delayed text segments. The generator may interleave control lines of the
// exact form "-#N#-" (alone on their line) to split the reply and space the
// parts over time, mimicking a person typing multiple messages.
package segment

import (
	"regexp"
	"strconv"
	"strings"
)

// Segment is one unit of delayed text output: wait DelaySeconds after the
// previous segment was sent, then send Text.
type Segment struct {
	DelaySeconds int
	Text         string
}

// markerPattern matches a control line: "-#<digits>#-", nothing else on the
// line. Any other line is literal content.
var markerPattern = regexp.MustCompile(`^-#(\d+)#-$`)

// Split parses raw text into ordered segments. Delay attaches to the segment
// that follows the marker(s), not the one before; consecutive markers
// accumulate. Each marker contributes its declared N seconds plus
// len(markerLine)*7/10 to approximate typing time (~85 chars/minute).
// If nothing survives (empty or all-whitespace input), the whole raw text is
// returned as a single zero-delay segment so a response is never dropped.
func Split(raw string) []Segment {
	var segments []Segment
	pendingDelay := 0
	var current []string

	flush := func() {
		text := strings.Join(current, "\n")
		current = current[:0]
		if strings.TrimSpace(text) != "" {
			segments = append(segments, Segment{DelaySeconds: pendingDelay, Text: text})
		}
		pendingDelay = 0
	}

	for _, line := range strings.Split(raw, "\n") {
		if m := markerPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if len(current) > 0 {
				flush()
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				// Digits too large to fit an int; treat as plain text.
				current = append(current, line)
				continue
			}
			pendingDelay += n + typingDelay(line)
			continue
		}
		current = append(current, line)
	}

	if len(current) > 0 {
		flush()
	}

	if len(segments) == 0 {
		return []Segment{{DelaySeconds: 0, Text: raw}}
	}
	return segments
}

// typingDelay approximates the seconds spent "typing" the marker line at
// roughly 85 characters per minute: floor(len * 0.7).
func typingDelay(markerLine string) int {
	return len(markerLine) * 7 / 10
}
