package cli

import (
	"strings"

	"github.com/voxdeck/voxdeck/pkg/buffer"
)

// Feed is a bounded line sink for dashboard panes: it keeps the most
// recent lines and evicts the rest. It doubles as an io.Writer so the
// process logger can be pointed at a pane while a dashboard owns the
// terminal.
type Feed struct {
	ring *buffer.Ring[string]
}

// NewFeed creates a feed keeping at most maxLines lines.
func NewFeed(maxLines int) *Feed {
	return &Feed{ring: buffer.NewRing[string](maxLines)}
}

// Add records one line.
func (f *Feed) Add(line string) {
	f.ring.Add(line)
}

// Write records each line of p, without its trailing newline. It never
// fails; a full feed evicts from the front.
func (f *Feed) Write(p []byte) (int, error) {
	text := strings.TrimSuffix(string(p), "\n")
	if text == "" {
		return len(p), nil
	}
	for line := range strings.SplitSeq(text, "\n") {
		f.ring.Add(line)
	}
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (f *Feed) Lines() []string {
	return f.ring.Items()
}
