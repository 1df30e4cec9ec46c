package usage

import (
	"slices"
	"time"
)

// Window bounds a summary in time. A zero From or To leaves that side
// open; To is exclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// LastDays returns a window covering the n UTC days ending now.
func LastDays(n int) Window {
	to := time.Now().UTC()
	return Window{From: to.AddDate(0, 0, -n), To: to}
}

// Totals is the aggregate over a set of events. Sessions counts
// distinct session ids, not rows.
type Totals struct {
	Events       int
	Sessions     int
	InputTokens  int64
	OutputTokens int64
	AudioSeconds float64
	Cost         float64
}

// DayTotals is the aggregate of one UTC day.
type DayTotals struct {
	Day    time.Time
	Totals Totals
}

// Summary is the dashboard shape: overall totals plus per-kind,
// per-preset, and per-day breakdowns.
type Summary struct {
	Window   Window
	Totals   Totals
	ByKind   map[string]Totals
	ByPreset map[string]Totals
	ByDay    []DayTotals
}

type accumulator struct {
	totals   Totals
	sessions map[string]struct{}
}

func (a *accumulator) add(e *Event) {
	a.totals.Events++
	a.totals.InputTokens += e.InputTokens
	a.totals.OutputTokens += e.OutputTokens
	a.totals.AudioSeconds += e.AudioSeconds
	a.totals.Cost += e.Cost
	if e.SessionID != "" {
		if a.sessions == nil {
			a.sessions = make(map[string]struct{})
		}
		a.sessions[e.SessionID] = struct{}{}
	}
}

func (a *accumulator) done() Totals {
	a.totals.Sessions = len(a.sessions)
	return a.totals
}

// Summarize aggregates the events that fall inside w. Undated events
// match only a window with an open From, and never appear on the day
// timeline.
func Summarize(events []*Event, w Window) *Summary {
	overall := &accumulator{}
	byKind := make(map[string]*accumulator)
	byPreset := make(map[string]*accumulator)
	byDay := make(map[time.Time]*accumulator)

	for _, e := range events {
		if !w.Contains(e.At) {
			continue
		}
		overall.add(e)
		bucket(byKind, e.Kind).add(e)
		bucket(byPreset, e.PresetID).add(e)
		if !e.At.IsZero() {
			bucket(byDay, e.At.UTC().Truncate(24*time.Hour)).add(e)
		}
	}

	s := &Summary{
		Window:   w,
		Totals:   overall.done(),
		ByKind:   finish(byKind),
		ByPreset: finish(byPreset),
	}
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	slices.SortFunc(days, time.Time.Compare)
	for _, day := range days {
		s.ByDay = append(s.ByDay, DayTotals{Day: day, Totals: byDay[day].done()})
	}
	return s
}

func bucket[K comparable](m map[K]*accumulator, key K) *accumulator {
	a, ok := m[key]
	if !ok {
		a = &accumulator{}
		m[key] = a
	}
	return a
}

func finish(m map[string]*accumulator) map[string]Totals {
	out := make(map[string]Totals, len(m))
	for k, a := range m {
		out[k] = a.done()
	}
	return out
}
