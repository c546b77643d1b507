// Package routine holds the user's working set of selected sections.
//
// The Store is a plain container with change notification. Persistence,
// conflict recomputation and share propagation are performed by listeners,
// never by the store itself.
package routine

import (
	"sync"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// ChangeKind names the operation that produced a Change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeCleared  ChangeKind = "cleared"
	ChangeReplaced ChangeKind = "replaced"
)

// Origin tells listeners who caused a change. Only OriginLocal counts as a
// user mutation for share synchronization.
type Origin string

const (
	OriginLocal   Origin = "local"
	OriginRemote  Origin = "remote"
	OriginStorage Origin = "storage"
	OriginRefresh Origin = "refresh"
)

// Change describes one applied mutation. Sections is a snapshot of the
// routine after the change.
type Change struct {
	Kind     ChangeKind
	Origin   Origin
	Sections []domain.Section
}

// Listener observes applied changes. Listeners run synchronously after the
// store lock is released and may read the store.
type Listener func(Change)

// Store is an ordered set of sections keyed by section identifier.
type Store struct {
	mu        sync.RWMutex
	sections  []domain.Section
	listeners []Listener
}

// NewStore returns a store seeded with sections. Duplicate identifiers keep
// their first occurrence.
func NewStore(sections []domain.Section) *Store {
	s := &Store{}
	s.sections = dedupe(sections)
	return s
}

// OnChange registers a listener. It returns a function that unregisters it.
func (s *Store) OnChange(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// Add appends section unless one with the same identifier is present.
// A duplicate add is a no-op and reports false.
func (s *Store) Add(section domain.Section) bool {
	s.mu.Lock()
	if s.indexOf(section.SectionID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.sections = append(s.sections, section)
	change, ls := s.changeLocked(ChangeAdded, OriginLocal)
	s.mu.Unlock()

	s.notify(change, ls)
	return true
}

// Remove drops the section with the given identifier. Absent identifiers
// are ignored and report false.
func (s *Store) Remove(sectionID int) bool {
	s.mu.Lock()
	i := s.indexOf(sectionID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.sections = append(s.sections[:i:i], s.sections[i+1:]...)
	change, ls := s.changeLocked(ChangeRemoved, OriginLocal)
	s.mu.Unlock()

	s.notify(change, ls)
	return true
}

// Clear empties the routine. Clearing an empty routine still notifies so
// listeners can detach share state idempotently.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sections = nil
	change, ls := s.changeLocked(ChangeCleared, OriginLocal)
	s.mu.Unlock()

	s.notify(change, ls)
}

// Replace swaps the whole routine for sections, tagging the change with
// origin. Used for remote snapshots, cross-process reconciliation and seat
// refreshes.
func (s *Store) Replace(sections []domain.Section, origin Origin) {
	s.mu.Lock()
	s.sections = dedupe(sections)
	change, ls := s.changeLocked(ChangeReplaced, origin)
	s.mu.Unlock()

	s.notify(change, ls)
}

// Sections returns a copy of the routine in insertion order.
func (s *Store) Sections() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// IDs returns the section identifiers in insertion order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SectionIDs(s.sections)
}

func (s *Store) Has(sectionID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(sectionID) >= 0
}

func (s *Store) Get(sectionID int) (domain.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(sectionID)
	if i < 0 {
		return domain.Section{}, false
	}
	return s.sections[i], true
}

func (s *Store) TotalCredits() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalCredits(s.sections)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sections)
}

// Signature is the order-insensitive identity of the current routine.
func (s *Store) Signature() string {
	return domain.Signature(s.IDs())
}

func (s *Store) indexOf(sectionID int) int {
	for i, sec := range s.sections {
		if sec.SectionID == sectionID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []domain.Section {
	out := make([]domain.Section, len(s.sections))
	copy(out, s.sections)
	return out
}

func (s *Store) changeLocked(kind ChangeKind, origin Origin) (Change, []Listener) {
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return Change{Kind: kind, Origin: origin, Sections: s.snapshotLocked()}, ls
}

func (s *Store) notify(change Change, listeners []Listener) {
	for _, l := range listeners {
		l(change)
	}
}

func dedupe(sections []domain.Section) []domain.Section {
	seen := make(map[int]bool, len(sections))
	out := make([]domain.Section, 0, len(sections))
	for _, sec := range sections {
		if seen[sec.SectionID] {
			continue
		}
		seen[sec.SectionID] = true
		out = append(out, sec)
	}
	return out
}
