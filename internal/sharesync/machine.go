// Package sharesync keeps a local routine in step with its shared copy.
//
// A Machine owns the single SyncStatus of one routine. Creators push their
// edits upstream after a quiet period; viewers follow the creator's pushes
// until their first local edit, after which they are permanently forked.
// Every asynchronous result is tagged with the link generation it started
// under and dropped when that generation is no longer current.
package sharesync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/debounce"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/routine"
)

const (
	DefaultPushDelay    = 2 * time.Second
	DefaultRefreshDelay = 500 * time.Millisecond
)

// Option configures a Machine.
type Option func(*Machine)

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithScheduler(s debounce.Scheduler) Option {
	return func(m *Machine) { m.sched = s }
}

func WithPushDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.pushDelay = d
		}
	}
}

func WithRefreshDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.refreshDelay = d
		}
	}
}

// WithNotifier enables realtime following for viewers. Without one a viewer
// stays in viewer_connecting.
func WithNotifier(n Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

func WithLinkStore(ls LinkStore) Option {
	return func(m *Machine) { m.links = ls }
}

// WithSpawn replaces the goroutine launcher used for network calls. Tests
// pass a synchronous launcher.
func WithSpawn(spawn func(func())) Option {
	return func(m *Machine) {
		if spawn != nil {
			m.spawn = spawn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// Snapshot is a point-in-time view of the machine for display.
type Snapshot struct {
	Status          domain.SyncStatus
	Link            *domain.SharedRoutineLink
	LastUpdated     time.Time
	LastPushError   error
	ConnectionError error
	PushPending     bool
	Subscribed      bool
}

// Machine drives share synchronization for one routine.Store.
//
// Store listeners other than the machine's own must not call back into the
// Machine: remote snapshots are applied while the machine lock is held so
// that the divergence check and the replacement happen atomically.
type Machine struct {
	store     *routine.Store
	remote    RemoteStore
	notifier  Notifier
	links     LinkStore
	sessionID string

	logger       *slog.Logger
	sched        debounce.Scheduler
	pushDelay    time.Duration
	refreshDelay time.Duration
	spawn        func(func())
	now          func() time.Time

	pushDeb    *debounce.Debouncer
	refreshDeb *debounce.Debouncer

	ctx      context.Context
	cancel   context.CancelFunc
	unlisten func()

	mu          sync.Mutex
	status      domain.SyncStatus
	link        *domain.SharedRoutineLink
	gen         uint64
	sub         Subscription
	started     bool
	closed      bool
	pushing     bool
	pushIdle    chan struct{}
	pushQueued  bool
	lastSynced  string
	lastApplied string
	lastUpdated time.Time
	pushErr     error
	connErr     error
}

// New returns an unshared Machine observing store. Call Restore to attach a
// persisted link and Start to begin realtime following.
func New(store *routine.Store, remote RemoteStore, sessionID string, opts ...Option) *Machine {
	m := &Machine{
		store:        store,
		remote:       remote,
		sessionID:    sessionID,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pushDelay:    DefaultPushDelay,
		refreshDelay: DefaultRefreshDelay,
		spawn:        func(f func()) { go f() },
		now:          time.Now,
		status:       domain.SyncUnshared,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pushDeb = debounce.New(m.sched, m.pushDelay)
	m.refreshDeb = debounce.New(m.sched, m.refreshDelay)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.unlisten = store.OnChange(m.onStoreChange)
	return m
}

// Status returns the current sync status.
func (m *Machine) Status() domain.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Link returns a copy of the attached link, or nil.
func (m *Machine) Link() *domain.SharedRoutineLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyLink(m.link)
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Status:          m.status,
		Link:            copyLink(m.link),
		LastUpdated:     m.lastUpdated,
		LastPushError:   m.pushErr,
		ConnectionError: m.connErr,
		PushPending:     m.pushDeb.Pending() || m.pushing,
		Subscribed:      m.sub != nil,
	}
}

// Restore attaches a persisted link without touching the network or the
// routine. It is meant for session start-up.
func (m *Machine) Restore(link *domain.SharedRoutineLink) {
	m.mu.Lock()
	sub := m.restoreLocked(link)
	m.mu.Unlock()
	closeSub(sub)
}

// Start begins realtime following when the attached link is a passive
// viewer link. It is idempotent.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	follow := m.status.IsPassiveViewer() && m.sub == nil
	gen, code := m.gen, m.shortCodeLocked()
	m.mu.Unlock()

	if follow {
		m.subscribe(gen, code)
	}
	return nil
}

// Share publishes the routine and makes this session its creator. A session
// that already created the attached share gets the existing code back.
func (m *Machine) Share(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	if m.status.IsCreator() {
		code := m.link.ShortCode
		m.mu.Unlock()
		return code, nil
	}
	ids := m.store.IDs()
	m.mu.Unlock()

	if len(ids) == 0 {
		return "", ErrEmptyRoutine
	}
	code, err := m.remote.Create(ctx, ids, m.sessionID)
	if err != nil {
		return "", fmt.Errorf("creating shared routine: %w", err)
	}

	m.mu.Lock()
	sub := m.teardownLocked()
	m.link = &domain.SharedRoutineLink{ShortCode: code, IsCreator: true}
	m.apply(EventShare)
	m.lastSynced = domain.Signature(ids)
	m.lastApplied = ""
	m.lastUpdated = m.now()
	m.pushErr, m.connErr = nil, nil
	m.saveLinkLocked()
	// Edits made while the create call was in flight still need a push.
	behind := m.store.Signature() != m.lastSynced
	if behind {
		m.apply(EventLocalMutation)
	}
	gen := m.gen
	m.mu.Unlock()

	closeSub(sub)
	m.logger.Info("share_created", "short_code", code, "section_count", len(ids))
	if behind {
		m.pushDeb.Trigger(func() { m.push(gen) })
	}
	return code, nil
}

// Open loads the shared routine behind code into the local routine. The
// session stays creator only when the attached link already records this
// code as its own. On failure the routine and link are left untouched.
func (m *Machine) Open(ctx context.Context, code string) (*domain.SharedRoutine, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrShareNotFound
	}
	if m.ownsCode(code) {
		// Unpushed edits go out first so they are part of the snapshot.
		if err := m.Flush(ctx); err != nil {
			return nil, fmt.Errorf("opening shared routine %s: %w", code, err)
		}
	}
	shared, err := m.remote.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("opening shared routine %s: %w", code, err)
	}
	if shared == nil || len(shared.Sections) == 0 {
		return nil, fmt.Errorf("opening shared routine %s: %w", code, ErrShareNotFound)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	isCreator := m.link != nil && m.link.ShortCode == code && m.link.IsCreator
	sub := m.teardownLocked()
	m.link = &domain.SharedRoutineLink{ShortCode: code, IsCreator: isCreator}
	sig := shared.Signature()
	// A creator whose last push failed keeps its own routine and pushes again.
	keepLocal := isCreator && m.store.Signature() != sig
	if isCreator {
		m.apply(EventOpenAsCreator)
		m.lastSynced, m.lastApplied = sig, ""
	} else {
		m.apply(EventOpenAsViewer)
		m.lastSynced, m.lastApplied = "", sig
	}
	m.lastUpdated = m.now()
	m.pushErr, m.connErr = nil, nil
	m.saveLinkLocked()
	if keepLocal {
		m.apply(EventLocalMutation)
		shared.Sections = m.store.Sections()
		shared.SectionIDs = m.store.IDs()
	} else {
		m.store.Replace(shared.Sections, routine.OriginRemote)
	}
	follow := !isCreator && m.started
	gen := m.gen
	m.mu.Unlock()

	closeSub(sub)
	m.logger.Info("share_opened", "short_code", code, "is_creator", isCreator, "section_count", len(shared.Sections))
	if keepLocal {
		m.pushDeb.Trigger(func() { m.push(gen) })
	}
	if follow {
		m.subscribe(gen, code)
	}
	return shared, nil
}

func (m *Machine) ownsCode(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link != nil && m.link.ShortCode == code && m.link.IsCreator
}

// NoteLocalMutation reacts to a user edit of the routine. Creators schedule
// a debounced push; passive viewers diverge.
func (m *Machine) NoteLocalMutation() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	switch {
	case m.status.IsCreator():
		m.apply(EventLocalMutation)
		gen := m.gen
		m.mu.Unlock()
		m.pushDeb.Trigger(func() { m.push(gen) })
	case m.status.IsPassiveViewer():
		sub := m.divergeLocked()
		code := m.link.ShortCode
		m.mu.Unlock()
		closeSub(sub)
		m.logger.Info("share_diverged", "short_code", code)
	default:
		m.mu.Unlock()
	}
}

// Detach drops the link and returns to unshared. Pending pushes and
// refreshes are discarded. Detaching an unshared machine is a no-op.
func (m *Machine) Detach() {
	m.mu.Lock()
	if m.link == nil && m.status == domain.SyncUnshared {
		m.mu.Unlock()
		return
	}
	code := m.shortCodeLocked()
	sub := m.detachLocked()
	m.saveLinkLocked()
	m.mu.Unlock()

	closeSub(sub)
	m.logger.Info("share_detached", "short_code", code)
}

// Reconcile adopts a link that another process wrote to persistent storage.
func (m *Machine) Reconcile(link *domain.SharedRoutineLink) {
	m.mu.Lock()
	var sub Subscription
	follow := false
	switch {
	case link == nil:
		if m.link != nil {
			sub = m.detachLocked()
		}
	case m.link != nil && m.link.ShortCode == link.ShortCode && m.link.IsCreator == link.IsCreator:
		if link.Diverged && m.status.IsPassiveViewer() {
			sub = m.divergeLocked()
		}
	default:
		sub = m.restoreLocked(link)
		follow = m.started && m.status.IsPassiveViewer()
	}
	gen, code := m.gen, m.shortCodeLocked()
	m.mu.Unlock()

	closeSub(sub)
	if follow {
		m.subscribe(gen, code)
	}
}

// Flush fires any pending creator push now and waits until no push is in
// flight, including one queued behind it.
func (m *Machine) Flush(ctx context.Context) error {
	m.pushDeb.Flush()

	for {
		m.mu.Lock()
		if !m.pushing {
			m.mu.Unlock()
			return nil
		}
		idle := m.pushIdle
		m.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return fmt.Errorf("flushing share push: %w", ctx.Err())
		}
	}
}

// Close stops timers, closes the subscription and cancels in-flight calls.
// The persisted link is kept. Call Flush first to deliver pending edits.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sub := m.teardownLocked()
	m.mu.Unlock()

	m.unlisten()
	m.cancel()
	closeSub(sub)
	return nil
}

func (m *Machine) onStoreChange(c routine.Change) {
	if c.Origin != routine.OriginLocal {
		return
	}
	if c.Kind == routine.ChangeCleared {
		m.Detach()
		return
	}
	m.NoteLocalMutation()
}

func (m *Machine) push(gen uint64) {
	m.mu.Lock()
	run := m.startPushLocked(gen)
	m.mu.Unlock()
	if run != nil {
		m.spawn(run)
	}
}

// startPushLocked marks a push in flight and returns the work to spawn
// outside the lock, or nil when there is nothing to send.
func (m *Machine) startPushLocked(gen uint64) func() {
	if gen != m.gen || !m.status.IsCreator() || m.closed {
		return nil
	}
	if m.pushing {
		m.pushQueued = true
		return nil
	}
	ids := m.store.IDs()
	sig := domain.Signature(ids)
	if sig == m.lastSynced {
		m.apply(EventPushSettled)
		return nil
	}
	code := m.link.ShortCode
	m.pushing = true
	m.pushIdle = make(chan struct{})

	return func() {
		err := m.remote.Update(m.ctx, code, ids, m.sessionID)

		m.mu.Lock()
		var next func()
		if gen == m.gen {
			if err != nil {
				// The signature stays unchanged so the next edit retries.
				m.pushErr = err
				m.logger.Error("share_push_failed", "short_code", code, "section_count", len(ids), "error", err.Error())
			} else {
				m.lastSynced = sig
				m.pushErr = nil
				m.lastUpdated = m.now()
				m.logger.Info("share_pushed", "short_code", code, "section_count", len(ids))
			}
		}
		again := m.pushQueued
		m.pushQueued = false
		m.pushing = false
		close(m.pushIdle)
		if again {
			// Started before the lock is released so Flush never sees a gap.
			next = m.startPushLocked(m.gen)
		} else if gen == m.gen && !m.pushDeb.Pending() {
			m.apply(EventPushSettled)
		}
		m.mu.Unlock()

		if next != nil {
			m.spawn(next)
		}
	}
}

func (m *Machine) subscribe(gen uint64, code string) {
	if m.notifier == nil {
		m.logger.Debug("share_realtime_disabled", "short_code", code)
		return
	}
	m.spawn(func() {
		sub, err := m.notifier.Subscribe(m.ctx, Topic(code), func() { m.onRemoteNotification(gen) })

		m.mu.Lock()
		if gen != m.gen || !m.status.IsPassiveViewer() || m.closed {
			m.mu.Unlock()
			// Confirmed too late: divergence or detach already happened.
			closeSub(sub)
			return
		}
		if err != nil {
			m.connErr = err
			m.mu.Unlock()
			m.logger.Warn("share_subscribe_failed", "short_code", code, "error", err.Error())
			return
		}
		m.sub = sub
		m.connErr = nil
		m.apply(EventSubscribed)
		m.mu.Unlock()

		m.logger.Info("share_subscribed", "short_code", code, "status", string(domain.SyncViewerLive))
		// Catch up on anything published before the subscription existed.
		m.refreshDeb.Trigger(func() { m.refresh(gen) })
	})
}

func (m *Machine) onRemoteNotification(gen uint64) {
	m.mu.Lock()
	ok := gen == m.gen && m.status == domain.SyncViewerLive && !m.closed
	if ok {
		m.apply(EventRemoteNotification)
	}
	m.mu.Unlock()

	if ok {
		m.refreshDeb.Trigger(func() { m.refresh(gen) })
	}
}

func (m *Machine) refresh(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.status.IsPassiveViewer() || m.closed {
		m.mu.Unlock()
		return
	}
	code := m.link.ShortCode
	m.mu.Unlock()

	m.spawn(func() {
		shared, err := m.remote.Get(m.ctx, code)

		m.mu.Lock()
		// Checked at apply time: a local edit may have landed during the fetch.
		if gen != m.gen || !m.status.IsPassiveViewer() || m.closed {
			m.logger.Debug("share_refresh_discarded", "short_code", code, "status", string(m.status))
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.connErr = err
			m.mu.Unlock()
			m.logger.Warn("share_refresh_failed", "short_code", code, "error", err.Error())
			return
		}
		// Another process on the same store may have forked the routine.
		if m.storedForkLocked() {
			sub := m.divergeLocked()
			m.mu.Unlock()
			closeSub(sub)
			m.logger.Info("share_diverged", "short_code", code, "source", "storage")
			return
		}
		sig := shared.Signature()
		if sig == m.lastApplied {
			m.mu.Unlock()
			return
		}
		m.lastApplied = sig
		m.lastUpdated = m.now()
		m.connErr = nil
		m.store.Replace(shared.Sections, routine.OriginRemote)
		m.mu.Unlock()
		m.logger.Info("share_snapshot_applied", "short_code", code, "section_count", len(shared.Sections))
	})
}

// storedForkLocked reports whether the persisted link says this viewer link
// was already forked by another process.
func (m *Machine) storedForkLocked() bool {
	if m.links == nil || m.link == nil {
		return false
	}
	stored, err := m.links.LoadLink()
	if err != nil {
		m.logger.Warn("share_link_load_failed", "error", err.Error())
		return false
	}
	return stored != nil && stored.Diverged && !stored.IsCreator && stored.ShortCode == m.link.ShortCode
}

func (m *Machine) apply(ev Event) {
	next, err := Transition(m.status, ev)
	if err != nil {
		m.logger.Debug("share_transition_ignored", "status", string(m.status), "event", string(ev))
		return
	}
	m.status = next
}

// teardownLocked invalidates in-flight work for the current link and hands
// back the subscription for the caller to close outside the lock.
func (m *Machine) teardownLocked() Subscription {
	m.gen++
	m.pushDeb.Cancel()
	m.refreshDeb.Cancel()
	m.pushQueued = false
	sub := m.sub
	m.sub = nil
	return sub
}

func (m *Machine) detachLocked() Subscription {
	sub := m.teardownLocked()
	m.link = nil
	m.apply(EventDetach)
	m.lastSynced, m.lastApplied = "", ""
	m.pushErr, m.connErr = nil, nil
	return sub
}

func (m *Machine) divergeLocked() Subscription {
	sub := m.teardownLocked()
	m.apply(EventLocalMutation)
	m.link.Diverged = true
	m.saveLinkLocked()
	return sub
}

func (m *Machine) restoreLocked(link *domain.SharedRoutineLink) Subscription {
	sub := m.teardownLocked()
	m.link = copyLink(link)
	m.status = initialStatus(link)
	m.lastSynced = ""
	m.lastApplied = ""
	if m.status.IsPassiveViewer() {
		m.lastApplied = m.store.Signature()
	}
	m.pushErr, m.connErr = nil, nil
	return sub
}

func (m *Machine) saveLinkLocked() {
	if m.links == nil {
		return
	}
	if err := m.links.SaveLink(copyLink(m.link)); err != nil {
		m.logger.Warn("share_link_persist_failed", "error", err.Error())
	}
}

func (m *Machine) shortCodeLocked() string {
	if m.link == nil {
		return ""
	}
	return m.link.ShortCode
}

func copyLink(l *domain.SharedRoutineLink) *domain.SharedRoutineLink {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func closeSub(sub Subscription) {
	if sub != nil {
		_ = sub.Close()
	}
}
