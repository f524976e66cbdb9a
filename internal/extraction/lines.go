package extraction

import "strings"

// noiseFloor is the shortest trimmed line that carries any signal.
const noiseFloor = 3

// lineCursor walks the usable lines of a text with one line of look-ahead.
type lineCursor struct {
	lines []string
	pos   int
}

func newLineCursor(text string) *lineCursor {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if runeLen(line) < noiseFloor {
			continue
		}
		lines = append(lines, line)
	}
	return &lineCursor{lines: lines}
}

func (c *lineCursor) next() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.pos]
	c.pos++
	return line, true
}

func (c *lineCursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return c.lines[c.pos], true
}

// skip drops the line peek returned.
func (c *lineCursor) skip() {
	if c.pos < len(c.lines) {
		c.pos++
	}
}
