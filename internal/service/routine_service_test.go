package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/repository"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
	"github.com/alexanderramin/routinebuzz/internal/testutil"
)

var catalog = []domain.Section{
	testutil.NewTestSection(1, "CSE110", testutil.WithClass(domain.Sunday, "08:00:00"), testutil.WithSeats(30, 10)),
	testutil.NewTestSection(2, "MAT110", testutil.WithClass(domain.Monday, "09:30:00")),
	testutil.NewTestSection(3, "PHY111", testutil.WithClass(domain.Sunday, "08:00:00")),
	testutil.NewTestSection(4, "ENG101", testutil.WithLab(domain.Wednesday, "12:30:00")),
}

type routineFixture struct {
	kv       *memoryKV
	remote   *testutil.FakeRemote
	notifier *testutil.FakeNotifier
	sched    *testutil.ManualScheduler
	logs     *bytes.Buffer
}

func newRoutineFixture() *routineFixture {
	return &routineFixture{
		kv:       newMemoryKV(),
		remote:   testutil.NewFakeRemote(catalog...),
		notifier: testutil.NewFakeNotifier(),
		sched:    testutil.NewManualScheduler(),
		logs:     &bytes.Buffer{},
	}
}

func (f *routineFixture) open(t *testing.T, observers ...UseCaseObserver) RoutineService {
	t.Helper()
	svc, err := NewRoutineService(context.Background(), f.kv, f.remote, f.remote, RoutineOptions{
		PublicURL: "https://routine.example/",
		Logger:    slog.New(slog.NewTextHandler(f.logs, nil)),
		Machine: []sharesync.Option{
			sharesync.WithScheduler(f.sched),
			sharesync.WithNotifier(f.notifier),
			sharesync.WithSpawn(func(fn func()) { fn() }),
		},
	}, observers...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func (f *routineFixture) storedIDs(t *testing.T) []int {
	t.Helper()
	raw, ok := f.kv.raw(KeyRoutineCourses)
	require.True(t, ok, "routine should be persisted")
	var sections []domain.Section
	require.NoError(t, json.Unmarshal([]byte(raw), &sections))
	return domain.SectionIDs(sections)
}

func (f *routineFixture) storedLink(t *testing.T) *domain.SharedRoutineLink {
	t.Helper()
	raw, ok := f.kv.raw(KeySharedRoutine)
	if !ok {
		return nil
	}
	var link *domain.SharedRoutineLink
	require.NoError(t, json.Unmarshal([]byte(raw), &link))
	return link
}

func (f *routineFixture) seedRoutine(t *testing.T, ids ...int) {
	t.Helper()
	var sections []domain.Section
	for _, id := range ids {
		sections = append(sections, catalog[id-1])
	}
	data, err := json.Marshal(sections)
	require.NoError(t, err)
	f.kv.put(KeyRoutineCourses, string(data))
}

func TestRoutineService_SessionIDGeneratedOnceAndReused(t *testing.T) {
	f := newRoutineFixture()

	first := f.open(t)
	require.NotEmpty(t, first.SessionID())
	stored, ok := f.kv.raw(KeySessionID)
	require.True(t, ok)
	assert.Equal(t, first.SessionID(), stored)

	second := f.open(t)
	assert.Equal(t, first.SessionID(), second.SessionID())
	assert.Equal(t, 1, f.kv.writeCount(KeySessionID))
}

func TestRoutineService_SessionIDStorageFailure(t *testing.T) {
	f := newRoutineFixture()
	f.kv.getErr = errors.New("disk gone")

	_, err := NewRoutineService(context.Background(), f.kv, f.remote, f.remote, RoutineOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading session id")
}

func TestRoutineService_LoadsPersistedRoutine(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 2, 1)

	svc := f.open(t)

	assert.Equal(t, []int{2, 1}, domain.SectionIDs(svc.Sections()))
	assert.Equal(t, domain.SyncUnshared, svc.SyncState().Status)
}

func TestRoutineService_MalformedStateFallsBackToDefaults(t *testing.T) {
	f := newRoutineFixture()
	f.kv.put(KeyRoutineCourses, "{not json")
	f.kv.put(KeySharedRoutine, `{"shortCode":""}`)

	svc := f.open(t)

	assert.Empty(t, svc.Sections())
	assert.Equal(t, domain.SyncUnshared, svc.SyncState().Status)
	assert.Contains(t, f.logs.String(), "persisted_state_malformed")
	assert.Contains(t, f.logs.String(), KeyRoutineCourses)
}

func TestRoutineService_AddLooksUpCatalogAndPersists(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)
	ctx := context.Background()

	res, err := svc.Add(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, AddResult{Added: true}, res)
	assert.Equal(t, []int{2}, f.storedIDs(t))
	assert.Equal(t, 3.0, svc.TotalCredits())

	res, err = svc.Add(ctx, 2)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Len(t, f.remote.Lookups(), 1, "duplicate add should not hit the catalog")
}

func TestRoutineService_AddUnknownSection(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)

	_, err := svc.Add(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Empty(t, svc.Sections())
}

func TestRoutineService_AddCatalogFailure(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)
	f.remote.SetErrors(nil, errors.New("catalog offline"), nil)

	_, err := svc.Add(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog offline")
	assert.Empty(t, svc.Sections())
}

func TestRoutineService_AddReportsConflict(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1)
	require.NoError(t, err)
	res, err := svc.Add(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, AddResult{Added: true, HasConflict: true}, res)
	conflicts := svc.Conflicts()
	assert.True(t, conflicts.HasSection(1))
	assert.True(t, conflicts.HasSection(3))

	require.True(t, svc.Remove(3))
	assert.Equal(t, 0, svc.Conflicts().Len())
	assert.Equal(t, []int{1}, f.storedIDs(t))
}

func TestRoutineService_ShareAndPushAfterQuietPeriod(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1, 2)
	svc := f.open(t)
	ctx := context.Background()

	code, err := svc.Share(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.SharedRoutineLink{ShortCode: code, IsCreator: true}, f.storedLink(t))
	assert.Equal(t, "https://routine.example/?r="+code, svc.ShareURL(code))

	_, err = svc.Add(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCreatorSyncing, svc.SyncState().Status)

	f.sched.Advance(sharesync.DefaultPushDelay)
	require.Len(t, f.remote.Updates(), 1)
	assert.Equal(t, []int{1, 2, 4}, f.remote.StoredIDs(code))
	assert.Equal(t, svc.SessionID(), f.remote.Updates()[0].SessionID)
	assert.Equal(t, domain.SyncCreatorSynced, svc.SyncState().Status)
}

func TestRoutineService_ShareEmptyRoutine(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)

	_, err := svc.Share(context.Background())
	assert.ErrorIs(t, err, sharesync.ErrEmptyRoutine)
	assert.Nil(t, f.storedLink(t))
}

func TestRoutineService_ClearDetachesAndForgetsLink(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1)
	svc := f.open(t)
	_, err := svc.Share(context.Background())
	require.NoError(t, err)

	svc.Clear()

	assert.Empty(t, svc.Sections())
	assert.Empty(t, f.storedIDs(t))
	assert.Nil(t, f.storedLink(t))
	assert.Equal(t, domain.SyncUnshared, svc.SyncState().Status)
}

func TestRoutineService_OpenReplacesRoutineAndPersists(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 4)
	f.remote.Seed("SHARED", "someone-else", 1, 2)
	svc := f.open(t)
	require.NoError(t, svc.Follow())

	shared, err := svc.Open(context.Background(), " SHARED ")
	require.NoError(t, err)

	assert.Equal(t, "1,2", shared.Signature())
	assert.Equal(t, []int{1, 2}, f.storedIDs(t))
	assert.Equal(t, &domain.SharedRoutineLink{ShortCode: "SHARED"}, f.storedLink(t))
	assert.Equal(t, domain.SyncViewerLive, svc.SyncState().Status)
	assert.Equal(t, 1, f.notifier.Active(sharesync.Topic("SHARED")))
}

func TestRoutineService_OpenUnknownCodeLeavesRoutine(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 4)
	svc := f.open(t)

	_, err := svc.Open(context.Background(), "MISSING")
	assert.ErrorIs(t, err, sharesync.ErrShareNotFound)
	assert.Equal(t, []int{4}, domain.SectionIDs(svc.Sections()))

	_, err = svc.Open(context.Background(), "   ")
	assert.ErrorIs(t, err, sharesync.ErrShareNotFound)
}

func TestRoutineService_ViewerForkSurvivesRestart(t *testing.T) {
	f := newRoutineFixture()
	f.remote.Seed("SHARED", "someone-else", 1, 2)
	svc := f.open(t)
	ctx := context.Background()
	_, err := svc.Open(ctx, "SHARED")
	require.NoError(t, err)

	_, err = svc.Add(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncViewerDiverged, svc.SyncState().Status)
	assert.Equal(t, &domain.SharedRoutineLink{ShortCode: "SHARED", Diverged: true}, f.storedLink(t))
	require.NoError(t, svc.Close(ctx))

	restarted := f.open(t)
	require.NoError(t, restarted.Follow())
	assert.Equal(t, domain.SyncViewerDiverged, restarted.SyncState().Status)
	assert.Equal(t, 0, f.notifier.Active(sharesync.Topic("SHARED")))
	assert.Equal(t, []int{1, 2, 4}, domain.SectionIDs(restarted.Sections()))
}

func TestRoutineService_RefreshSeatsIsNotAnEdit(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1, 2)
	svc := f.open(t)
	ctx := context.Background()
	code, err := svc.Share(ctx)
	require.NoError(t, err)

	fuller := catalog[0]
	fuller.ConsumedSeat = 29
	f.remote.AddSections(fuller)

	updated, err := svc.RefreshSeats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, svc.Sections()[0].AvailableSeats())
	assert.Equal(t, []int{1, 2}, domain.SectionIDs(svc.Sections()))

	f.sched.Advance(time.Hour)
	assert.Empty(t, f.remote.Updates())
	assert.Equal(t, domain.SyncCreatorSynced, svc.SyncState().Status)
	assert.Equal(t, []int{1, 2}, f.remote.StoredIDs(code))

	updated, err = svc.RefreshSeats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestRoutineService_RefreshSeatsEmptyRoutine(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t)

	updated, err := svc.RefreshSeats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, f.remote.Lookups())
}

func TestRoutineService_ReconcileFromStorage(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1)
	svc := f.open(t)
	other := f.open(t)

	_, err := other.Add(context.Background(), 2)
	require.NoError(t, err)
	code, err := other.Share(context.Background())
	require.NoError(t, err)

	svc.ReconcileFromStorage(context.Background())

	assert.Equal(t, []int{1, 2}, domain.SectionIDs(svc.Sections()))
	state := svc.SyncState()
	assert.Equal(t, domain.SyncCreatorSynced, state.Status)
	assert.Equal(t, code, state.Link.ShortCode)

	other.Clear()
	svc.ReconcileFromStorage(context.Background())
	assert.Empty(t, svc.Sections())
	assert.Equal(t, domain.SyncUnshared, svc.SyncState().Status)
}

func TestRoutineService_ForkByAnotherSessionSurvivesCreatorPush(t *testing.T) {
	f := newRoutineFixture()
	f.remote.Seed("SHARED1", "creator-session", 1)
	ctx := context.Background()
	watcher := f.open(t)
	_, err := watcher.Open(ctx, "SHARED1")
	require.NoError(t, err)
	require.NoError(t, watcher.Follow())
	require.Equal(t, domain.SyncViewerLive, watcher.SyncState().Status)

	editor := f.open(t)
	_, err = editor.Add(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, f.storedIDs(t))

	f.remote.Publish("SHARED1", 1, 2)
	f.notifier.Notify(sharesync.Topic("SHARED1"))
	f.sched.Advance(sharesync.DefaultRefreshDelay)

	assert.Equal(t, domain.SyncViewerDiverged, watcher.SyncState().Status)
	assert.Equal(t, []int{1, 3}, f.storedIDs(t))
	assert.Equal(t, &domain.SharedRoutineLink{ShortCode: "SHARED1", Diverged: true}, f.storedLink(t))

	watcher.ReconcileFromStorage(ctx)
	assert.Equal(t, []int{1, 3}, domain.SectionIDs(watcher.Sections()))
}

func TestRoutineService_LoadLink(t *testing.T) {
	f := newRoutineFixture()
	svc := f.open(t).(*routineService)

	link, err := svc.LoadLink()
	require.NoError(t, err)
	assert.Nil(t, link)

	f.kv.put(KeySharedRoutine, `{"shortCode":"ABC","diverged":true}`)
	link, err = svc.LoadLink()
	require.NoError(t, err)
	assert.Equal(t, &domain.SharedRoutineLink{ShortCode: "ABC", Diverged: true}, link)

	f.kv.put(KeySharedRoutine, "{not json")
	_, err = svc.LoadLink()
	assert.Error(t, err)
}

func TestRoutineService_CloseFlushesPendingPush(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1)
	svc := f.open(t)
	ctx := context.Background()
	code, err := svc.Share(ctx)
	require.NoError(t, err)

	_, err = svc.Add(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, f.remote.Updates())

	require.NoError(t, svc.Close(ctx))
	assert.Equal(t, []int{1, 2}, f.remote.StoredIDs(code))
}

func TestRoutineService_ObservesShareUseCase(t *testing.T) {
	f := newRoutineFixture()
	f.seedRoutine(t, 1)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := f.open(t, NewLogUseCaseObserver(logger))

	code, err := svc.Share(context.Background())
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "routine_use_case")
	assert.Contains(t, out, "use_case=share-routine")
	assert.Contains(t, out, "short_code="+code)
}

func TestRoutineService_WithSQLiteStore(t *testing.T) {
	kv := repository.NewSQLiteKVRepo(testutil.NewTestDB(t))
	remote := testutil.NewFakeRemote(catalog...)
	ctx := context.Background()

	svc, err := NewRoutineService(ctx, kv, remote, remote, RoutineOptions{})
	require.NoError(t, err)
	_, err = svc.Add(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx))

	reopened, err := NewRoutineService(ctx, kv, remote, remote, RoutineOptions{})
	require.NoError(t, err)
	defer reopened.Close(ctx)
	assert.Equal(t, []int{2}, domain.SectionIDs(reopened.Sections()))
	assert.Equal(t, svc.SessionID(), reopened.SessionID())
}
