package domain

import (
	"fmt"
	"time"
)

// DefaultSlots is the fixed daily slot table shared by every weekday.
var DefaultSlots = []string{"08:00", "09:30", "11:00", "12:30", "14:00", "15:30", "17:00"}

// TimeGrid maps start times onto the fixed weekly slot table.
type TimeGrid struct {
	slots []string
	index map[string]int
}

var defaultGrid = mustTimeGrid(DefaultSlots...)

// DefaultGrid returns the grid built from DefaultSlots.
func DefaultGrid() *TimeGrid {
	return defaultGrid
}

// NewTimeGrid builds a grid from HH:MM slot labels. Slots must be strictly increasing.
func NewTimeGrid(slots ...string) (*TimeGrid, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("time grid needs at least one slot")
	}
	g := &TimeGrid{
		slots: make([]string, len(slots)),
		index: make(map[string]int, len(slots)),
	}
	var prev time.Time
	for i, s := range slots {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return nil, fmt.Errorf("slot %d: invalid time %q (expected HH:MM)", i, s)
		}
		if i > 0 && !t.After(prev) {
			return nil, fmt.Errorf("slot %d: %q is not after %q", i, s, slots[i-1])
		}
		prev = t
		g.slots[i] = s
		g.index[s] = i
	}
	return g, nil
}

func mustTimeGrid(slots ...string) *TimeGrid {
	g, err := NewTimeGrid(slots...)
	if err != nil {
		panic(err)
	}
	return g
}

// Slots returns a copy of the slot labels in order.
func (g *TimeGrid) Slots() []string {
	out := make([]string, len(g.slots))
	copy(out, g.slots)
	return out
}

// Len returns the number of slots per day.
func (g *TimeGrid) Len() int {
	return len(g.slots)
}

// SlotIndexOf returns the index of the slot whose label exactly matches the
// minute-truncated time. Irregular times report false.
func (g *TimeGrid) SlotIndexOf(t string) (int, bool) {
	i, ok := g.index[NormalizeTime(t)]
	return i, ok
}

// LabSlotSpan returns the slots a lab starting at start occupies: its own slot
// and the next one. When the start is irregular or in the last slot, the span
// holds only the truncated start time itself.
func (g *TimeGrid) LabSlotSpan(start string) []string {
	norm := NormalizeTime(start)
	i, ok := g.index[norm]
	if !ok || i+1 >= len(g.slots) {
		return []string{norm}
	}
	return []string{g.slots[i], g.slots[i+1]}
}

// NormalizeTime truncates a time-of-day string such as "09:30:00" to "09:30".
// Shorter strings are returned unchanged.
func NormalizeTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// ParseClock reads "HH:MM" or "HH:MM:SS" as an offset from midnight.
func ParseClock(t string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if p, err := time.Parse(layout, t); err == nil {
			return time.Duration(p.Hour())*time.Hour +
				time.Duration(p.Minute())*time.Minute +
				time.Duration(p.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q (expected HH:MM or HH:MM:SS)", t)
}
