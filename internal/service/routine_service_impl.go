package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/repository"
	"github.com/alexanderramin/routinebuzz/internal/routine"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// Persistent store keys.
const (
	KeyRoutineCourses = "routinebuzz_routine_courses"
	KeySharedRoutine  = "routinebuzz_shared_routine"
	KeySessionID      = "routinebuzz_session_id"
)

// RoutineOptions configures a RoutineService.
type RoutineOptions struct {
	// PublicURL prefixes share links, e.g. "https://routine.example".
	PublicURL string
	Logger    *slog.Logger
	// Machine options are appended after the service's own.
	Machine []sharesync.Option
}

type routineService struct {
	kv        repository.KVRepo
	catalog   CatalogSource
	store     *routine.Store
	machine   *sharesync.Machine
	sessionID string
	publicURL string
	logger    *slog.Logger
	observer  UseCaseObserver
	unlisten  func()
}

// NewRoutineService loads the persisted routine, share link and session id
// and attaches a sync machine to the routine. Unreadable persisted values
// fall back to their defaults.
func NewRoutineService(
	ctx context.Context,
	kv repository.KVRepo,
	catalog CatalogSource,
	remote sharesync.RemoteStore,
	opts RoutineOptions,
	observers ...UseCaseObserver,
) (RoutineService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sessionID, err := loadSessionID(ctx, kv)
	if err != nil {
		return nil, err
	}

	s := &routineService{
		kv:        kv,
		catalog:   catalog,
		store:     routine.NewStore(loadJSON[[]domain.Section](ctx, kv, KeyRoutineCourses, logger)),
		sessionID: sessionID,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		logger:    logger,
		observer:  combineObservers(observers),
	}
	s.unlisten = s.store.OnChange(s.persistRoutine)

	machineOpts := append([]sharesync.Option{
		sharesync.WithLogger(logger),
		sharesync.WithLinkStore(s),
	}, opts.Machine...)
	s.machine = sharesync.New(s.store, remote, sessionID, machineOpts...)
	s.machine.Restore(loadLink(ctx, kv, logger))
	return s, nil
}

func (s *routineService) Sections() []domain.Section { return s.store.Sections() }
func (s *routineService) Store() *routine.Store      { return s.store }
func (s *routineService) SessionID() string          { return s.sessionID }
func (s *routineService) TotalCredits() float64      { return s.store.TotalCredits() }

// Add looks the section up in the catalog and adds it. Adding a section
// that is already present is a no-op and never contacts the catalog.
func (s *routineService) Add(ctx context.Context, sectionID int) (AddResult, error) {
	if s.store.Has(sectionID) {
		return AddResult{}, nil
	}
	found, err := s.catalog.SectionsByIDs(ctx, []int{sectionID})
	if err != nil {
		return AddResult{}, fmt.Errorf("looking up section %d: %w", sectionID, err)
	}
	for _, sec := range found {
		if sec.SectionID == sectionID {
			return s.AddSection(sec), nil
		}
	}
	return AddResult{}, fmt.Errorf("section %d: %w", sectionID, ErrSectionNotFound)
}

func (s *routineService) AddSection(section domain.Section) AddResult {
	collides := conflict.Collides(s.store.Sections(), section)
	if !s.store.Add(section) {
		return AddResult{}
	}
	return AddResult{Added: true, HasConflict: collides}
}

func (s *routineService) Remove(sectionID int) bool {
	return s.store.Remove(sectionID)
}

// Clear empties the routine and detaches any share link.
func (s *routineService) Clear() {
	s.store.Clear()
}

func (s *routineService) Conflicts() conflict.Set {
	return conflict.Detect(s.store.Sections())
}

func (s *routineService) Share(ctx context.Context) (code string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"section_count": s.store.Count()}
	defer func() {
		fields["short_code"] = code
		s.observe(ctx, "share-routine", startedAt, err, fields)
	}()

	code, err = s.machine.Share(ctx)
	if err != nil {
		return "", fmt.Errorf("sharing routine: %w", err)
	}
	return code, nil
}

func (s *routineService) ShareURL(shortCode string) string {
	return s.publicURL + "/?r=" + url.QueryEscape(shortCode)
}

func (s *routineService) Open(ctx context.Context, shortCode string) (shared *domain.SharedRoutine, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"short_code": shortCode}
	defer func() {
		if shared != nil {
			fields["section_count"] = len(shared.Sections)
		}
		fields["status"] = string(s.machine.Status())
		s.observe(ctx, "open-shared-routine", startedAt, err, fields)
	}()

	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return nil, fmt.Errorf("opening shared routine: %w", sharesync.ErrShareNotFound)
	}
	shared, err = s.machine.Open(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("opening shared routine %s: %w", shortCode, err)
	}
	return shared, nil
}

func (s *routineService) SyncState() sharesync.Snapshot {
	return s.machine.Snapshot()
}

// Follow starts realtime following for a passive viewer link.
func (s *routineService) Follow() error {
	return s.machine.Start()
}

// RefreshSeats replaces sections whose seat counts changed in the catalog.
// The routine order is kept and the change is not a user mutation.
func (s *routineService) RefreshSeats(ctx context.Context) (updated int, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observe(ctx, "refresh-seats", startedAt, err, map[string]any{"updated": updated})
	}()

	ids := s.store.IDs()
	if len(ids) == 0 {
		return 0, nil
	}
	fresh, err := s.catalog.SectionsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("refreshing seats: %w", err)
	}
	byID := make(map[int]domain.Section, len(fresh))
	for _, sec := range fresh {
		byID[sec.SectionID] = sec
	}

	current := s.store.Sections()
	for i, sec := range current {
		f, ok := byID[sec.SectionID]
		if !ok || (f.Capacity == sec.Capacity && f.ConsumedSeat == sec.ConsumedSeat) {
			continue
		}
		current[i] = f
		updated++
	}
	if updated > 0 {
		s.store.Replace(current, routine.OriginRefresh)
	}
	return updated, nil
}

// ReconcileFromStorage adopts routine and link changes written by another
// process sharing the same persistent store.
func (s *routineService) ReconcileFromStorage(ctx context.Context) {
	sections := loadJSON[[]domain.Section](ctx, s.kv, KeyRoutineCourses, s.logger)
	if !slices.Equal(domain.SectionIDs(sections), s.store.IDs()) {
		s.store.Replace(sections, routine.OriginStorage)
	}
	s.machine.Reconcile(loadLink(ctx, s.kv, s.logger))
}

// Close delivers any pending creator push and stops the sync machine.
func (s *routineService) Close(ctx context.Context) error {
	flushErr := s.machine.Flush(ctx)
	if err := s.machine.Close(); err != nil {
		return err
	}
	s.unlisten()
	return flushErr
}

// SaveLink persists the share link. A nil link removes it.
func (s *routineService) SaveLink(link *domain.SharedRoutineLink) error {
	ctx := context.Background()
	if link == nil {
		if err := s.kv.Delete(ctx, KeySharedRoutine); err != nil {
			return fmt.Errorf("clearing share link: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encoding share link: %w", err)
	}
	if err := s.kv.Set(ctx, KeySharedRoutine, string(data)); err != nil {
		return fmt.Errorf("saving share link: %w", err)
	}
	return nil
}

// LoadLink reads the share link currently in storage.
func (s *routineService) LoadLink() (*domain.SharedRoutineLink, error) {
	raw, err := s.kv.Get(context.Background(), KeySharedRoutine)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading share link: %w", err)
	}
	var link *domain.SharedRoutineLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("decoding share link: %w", err)
	}
	return link, nil
}

func (s *routineService) persistRoutine(c routine.Change) {
	if c.Origin == routine.OriginStorage {
		return
	}
	sections := c.Sections
	if sections == nil {
		sections = []domain.Section{}
	}
	data, err := json.Marshal(sections)
	if err == nil {
		err = s.kv.Set(context.Background(), KeyRoutineCourses, string(data))
	}
	if err != nil {
		s.logger.Warn("routine_persist_failed", "origin", string(c.Origin), "error", err.Error())
	}
}

func loadSessionID(ctx context.Context, kv repository.KVRepo) (string, error) {
	id, err := kv.Get(ctx, KeySessionID)
	if err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("loading session id: %w", err)
	}
	id = uuid.New().String()
	if err := kv.Set(ctx, KeySessionID, id); err != nil {
		return "", fmt.Errorf("saving session id: %w", err)
	}
	return id, nil
}

func loadLink(ctx context.Context, kv repository.KVRepo, logger *slog.Logger) *domain.SharedRoutineLink {
	link := loadJSON[*domain.SharedRoutineLink](ctx, kv, KeySharedRoutine, logger)
	if link != nil && strings.TrimSpace(link.ShortCode) == "" {
		logger.Warn("persisted_state_malformed", "key", KeySharedRoutine, "error", "empty short code")
		return nil
	}
	return link
}

// loadJSON reads and decodes key, returning the zero value when the key is
// missing or unreadable.
func loadJSON[T any](ctx context.Context, kv repository.KVRepo, key string, logger *slog.Logger) T {
	var zero T
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("persisted_state_unreadable", "key", key, "error", err.Error())
		}
		return zero
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn("persisted_state_malformed", "key", key, "error", err.Error())
		return zero
	}
	return out
}
