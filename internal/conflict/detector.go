// Package conflict finds weekly time collisions between selected sections.
//
// Classes occupy exactly the slot at their start time. Labs occupy their
// start slot and the following slot of the fixed time grid, regardless of the
// declared end time. Two classes collide only when their literal start times
// are identical; partially overlapping ranges are not detected.
package conflict

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// Marker flags one section's meeting at one (day, slot) as conflicted.
type Marker struct {
	SectionID int
	Kind      domain.MeetingKind
	Day       domain.Weekday
	Slot      string
}

// Key renders the marker the way grid cells look it up, e.g. "101-MONDAY-09:30"
// for a class and "101-lab-MONDAY-09:30" for a lab slot.
func (m Marker) Key() string {
	if m.Kind == domain.MeetingLab {
		return fmt.Sprintf("%d-lab-%s-%s", m.SectionID, m.Day, m.Slot)
	}
	return fmt.Sprintf("%d-%s-%s", m.SectionID, m.Day, m.Slot)
}

// Set is an unordered collection of markers.
type Set map[Marker]struct{}

func (s Set) Has(m Marker) bool {
	_, ok := s[m]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// HasSection reports whether any marker belongs to the section.
func (s Set) HasSection(sectionID int) bool {
	for m := range s {
		if m.SectionID == sectionID {
			return true
		}
	}
	return false
}

// SectionIDs returns the distinct conflicted section identifiers, ascending.
func (s Set) SectionIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for m := range s {
		if !seen[m.SectionID] {
			seen[m.SectionID] = true
			ids = append(ids, m.SectionID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Sorted returns markers ordered by section, day, slot and kind.
func (s Set) Sorted() []Marker {
	out := make([]Marker, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SectionID != b.SectionID {
			return a.SectionID < b.SectionID
		}
		if a.Day != b.Day {
			return a.Day.TimeWeekday() < b.Day.TimeWeekday()
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Kind < b.Kind
	})
	return out
}

// Detector evaluates conflicts against a time grid.
type Detector struct {
	grid *domain.TimeGrid
}

// NewDetector returns a Detector for grid; a nil grid uses the default slots.
func NewDetector(grid *domain.TimeGrid) *Detector {
	if grid == nil {
		grid = domain.DefaultGrid()
	}
	return &Detector{grid: grid}
}

var defaultDetector = NewDetector(nil)

// Detect returns every conflict marker for the default grid.
func Detect(sections []domain.Section) Set {
	return defaultDetector.Detect(sections)
}

// Collides reports whether candidate conflicts with any of existing on the default grid.
func Collides(existing []domain.Section, candidate domain.Section) bool {
	return defaultDetector.Collides(existing, candidate)
}

// Detect compares every unordered pair of sections and collects markers for
// both sides of each collision. It is a pure function of its input.
func (d *Detector) Detect(sections []domain.Section) Set {
	set := make(Set)
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			d.comparePair(sections[i], sections[j], func(a, b Marker) bool {
				set[a] = struct{}{}
				set[b] = struct{}{}
				return true
			})
		}
	}
	return set
}

// Collides stops at the first collision. Sections sharing the candidate's
// identifier are skipped.
func (d *Detector) Collides(existing []domain.Section, candidate domain.Section) bool {
	for _, other := range existing {
		if other.SectionID == candidate.SectionID {
			continue
		}
		found := false
		d.comparePair(candidate, other, func(Marker, Marker) bool {
			found = true
			return false
		})
		if found {
			return true
		}
	}
	return false
}

// comparePair reports each collision between a and b to emit. Returning false
// from emit stops the comparison.
func (d *Detector) comparePair(a, b domain.Section, emit func(Marker, Marker) bool) {
	// class vs class: identical literal start time.
	for _, ca := range a.ClassMeetings() {
		for _, cb := range b.ClassMeetings() {
			if ca.Day == cb.Day && ca.StartTime == cb.StartTime {
				if !emit(classMarker(a, ca), classMarker(b, cb)) {
					return
				}
			}
		}
	}

	// a's classes against b's lab spans.
	for _, ca := range a.ClassMeetings() {
		for _, lb := range b.LabMeetings() {
			if ca.Day != lb.Day {
				continue
			}
			for _, slot := range d.grid.LabSlotSpan(lb.StartTime) {
				if ca.Slot() == slot {
					if !emit(classMarker(a, ca), labMarker(b, lb, slot)) {
						return
					}
				}
			}
		}
	}

	// a's lab spans against b's classes and b's lab spans.
	for _, la := range a.LabMeetings() {
		for _, slotA := range d.grid.LabSlotSpan(la.StartTime) {
			for _, cb := range b.ClassMeetings() {
				if la.Day == cb.Day && slotA == cb.Slot() {
					if !emit(labMarker(a, la, slotA), classMarker(b, cb)) {
						return
					}
				}
			}
			for _, lb := range b.LabMeetings() {
				if la.Day != lb.Day {
					continue
				}
				for _, slotB := range d.grid.LabSlotSpan(lb.StartTime) {
					if slotA == slotB {
						if !emit(labMarker(a, la, slotA), labMarker(b, lb, slotB)) {
							return
						}
					}
				}
			}
		}
	}
}

func classMarker(s domain.Section, m domain.Meeting) Marker {
	return Marker{SectionID: s.SectionID, Kind: domain.MeetingClass, Day: m.Day, Slot: m.Slot()}
}

func labMarker(s domain.Section, m domain.Meeting, slot string) Marker {
	return Marker{SectionID: s.SectionID, Kind: domain.MeetingLab, Day: m.Day, Slot: slot}
}
