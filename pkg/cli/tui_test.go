package cli

import (
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestFrameRender(t *testing.T) {
	f := Frame{
		Styles: NewStyles(DefaultTheme),
		Title:  "VOXDECK // USAGE",
		Status: "live",
		Sections: []Section{
			{Label: "Totals", Content: func() []string { return []string{"3 events"} }},
			{Label: "Activity", Content: func() []string { return []string{"a", "b", "c"} }},
		},
		Help: "Ctrl+C=quit",
	}

	out := f.Render(60, 20)
	for _, want := range []string{"VOXDECK // USAGE", "[live]", "Totals", "Activity", "3 events", "Ctrl+C=quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q", want)
		}
	}
}

func TestFrameRenderTailsContent(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = strings.Repeat("x", i+1)
	}
	f := Frame{
		Styles:   NewStyles(DefaultTheme),
		Sections: []Section{{Label: "Feed", Content: func() []string { return lines }}},
	}

	out := f.Render(60, 12)
	if strings.Contains(out, "│ x ") {
		t.Error("oldest line should have been dropped")
	}
	if !strings.Contains(out, strings.Repeat("x", 30)) {
		t.Error("newest line missing")
	}
}

func TestFrameRenderTiny(t *testing.T) {
	var f Frame
	if got := f.Render(0, 0); got != "Loading..." {
		t.Errorf("Render(0, 0) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 5); got != "hello" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("héllo", 3); got != "hél" {
		t.Errorf("truncate multibyte = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate zero width = %q", got)
	}
}

func TestFeedWrite(t *testing.T) {
	f := NewFeed(8)
	if _, err := f.Write([]byte("one\ntwo\n")); err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("three"))
	f.Write([]byte("\n"))

	if got := f.Lines(); !slices.Equal(got, []string{"one", "two", "three"}) {
		t.Errorf("Lines = %v", got)
	}
}

func TestFeedAsLogSink(t *testing.T) {
	f := NewFeed(8)
	log := slog.New(slog.NewTextHandler(f, nil))
	log.Warn("cache reopen", "attempt", 2)

	lines := f.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "cache reopen") {
		t.Errorf("Lines = %v", lines)
	}
}

func TestFeedBounded(t *testing.T) {
	f := NewFeed(2)
	f.Add("a")
	f.Write([]byte("b\nc"))

	if got := f.Lines(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Lines = %v", got)
	}
}
