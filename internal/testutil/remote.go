package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// ErrForbidden is returned by FakeRemote.Update on a session mismatch.
var ErrForbidden = errors.New("fake remote: session mismatch")

// UpdateCall records one FakeRemote.Update invocation.
type UpdateCall struct {
	ShortCode  string
	SectionIDs []int
	SessionID  string
}

// FakeRemote is an in-memory shared-routine store with a section catalog.
// Hooks run without the fake's lock held, so they may mutate a routine
// store or call back into the fake.
type FakeRemote struct {
	CreateErr error
	GetErr    error
	UpdateErr error

	// OnGet runs before Get resolves its snapshot.
	OnGet func(code string)
	// OnUpdate runs before Update records its call.
	OnUpdate func(code string, ids []int)

	mu       sync.Mutex
	catalog  map[int]domain.Section
	routines map[string]*fakeRoutine
	creates  [][]int
	gets     []string
	updates  []UpdateCall
	lookups  [][]int
	next     int
}

type fakeRoutine struct {
	ids       []int
	sessionID string
	accesses  int
	created   time.Time
}

func NewFakeRemote(catalog ...domain.Section) *FakeRemote {
	f := &FakeRemote{
		catalog:  make(map[int]domain.Section),
		routines: make(map[string]*fakeRoutine),
	}
	f.AddSections(catalog...)
	return f
}

// AddSections makes sections resolvable by identifier.
func (f *FakeRemote) AddSections(sections ...domain.Section) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range sections {
		f.catalog[s.SectionID] = s
	}
}

// Seed stores a routine under code as if another session created it.
func (f *FakeRemote) Seed(code, sessionID string, ids ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routines[code] = &fakeRoutine{ids: append([]int(nil), ids...), sessionID: sessionID, created: time.Now()}
}

// Publish overwrites the routine's sections as its creator would.
func (f *FakeRemote) Publish(code string, ids ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.routines[code]; ok {
		r.ids = append([]int(nil), ids...)
	}
}

func (f *FakeRemote) Create(_ context.Context, ids []int, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.next++
	code := fmt.Sprintf("CODE%d", f.next)
	f.routines[code] = &fakeRoutine{ids: append([]int(nil), ids...), sessionID: sessionID, created: time.Now()}
	f.creates = append(f.creates, append([]int(nil), ids...))
	return code, nil
}

func (f *FakeRemote) Get(_ context.Context, code string) (*domain.SharedRoutine, error) {
	if f.OnGet != nil {
		f.OnGet(code)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, code)
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	r, ok := f.routines[code]
	if !ok {
		return nil, sharesync.ErrShareNotFound
	}
	r.accesses++
	out := &domain.SharedRoutine{
		RoutineID:   "routine-" + code,
		ShortCode:   code,
		SectionIDs:  append([]int(nil), r.ids...),
		CreatedAt:   r.created,
		UpdatedAt:   r.created,
		AccessCount: r.accesses,
	}
	for _, id := range r.ids {
		if s, ok := f.catalog[id]; ok {
			out.Sections = append(out.Sections, s)
		}
	}
	return out, nil
}

func (f *FakeRemote) Update(_ context.Context, code string, ids []int, sessionID string) error {
	if f.OnUpdate != nil {
		f.OnUpdate(code, ids)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, UpdateCall{ShortCode: code, SectionIDs: append([]int(nil), ids...), SessionID: sessionID})
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	r, ok := f.routines[code]
	if !ok {
		return sharesync.ErrShareNotFound
	}
	if r.sessionID != sessionID {
		return ErrForbidden
	}
	r.ids = append([]int(nil), ids...)
	return nil
}

// SetErrors replaces the injected errors under the fake's lock.
func (f *FakeRemote) SetErrors(create, get, update error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateErr, f.GetErr, f.UpdateErr = create, get, update
}

func (f *FakeRemote) Creates() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int(nil), f.creates...)
}

func (f *FakeRemote) Gets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.gets...)
}

func (f *FakeRemote) Updates() []UpdateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UpdateCall(nil), f.updates...)
}

// StoredIDs returns the section ids currently stored under code.
func (f *FakeRemote) StoredIDs(code string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.routines[code]; ok {
		return append([]int(nil), r.ids...)
	}
	return nil
}

// ListCourses returns one summary per course code in the catalog, sorted by code.
func (f *FakeRemote) ListCourses(context.Context) ([]domain.CourseSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []domain.CourseSummary
	for _, s := range f.catalog {
		if seen[s.CourseCode] {
			continue
		}
		seen[s.CourseCode] = true
		out = append(out, domain.CourseSummary{CourseCode: s.CourseCode, CourseName: s.CourseName, CourseCredit: s.CourseCredit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

// ListSections returns the catalog sections of one course ordered by id.
func (f *FakeRemote) ListSections(_ context.Context, code string) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Section
	for _, s := range f.catalog {
		if s.CourseCode == code {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out, nil
}

// SectionsByIDs resolves ids in request order, skipping unknown ones.
func (f *FakeRemote) SectionsByIDs(_ context.Context, ids []int) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, append([]int(nil), ids...))
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	var out []domain.Section
	for _, id := range ids {
		if s, ok := f.catalog[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Lookups returns the id lists passed to SectionsByIDs.
func (f *FakeRemote) Lookups() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int(nil), f.lookups...)
}
