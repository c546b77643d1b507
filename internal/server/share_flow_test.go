package server_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/realtime"
	"github.com/alexanderramin/routinebuzz/internal/remote"
	"github.com/alexanderramin/routinebuzz/internal/repository"
	"github.com/alexanderramin/routinebuzz/internal/server"
	"github.com/alexanderramin/routinebuzz/internal/service"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
	"github.com/alexanderramin/routinebuzz/internal/testutil"
)

type client struct {
	svc   service.RoutineService
	sched *testutil.ManualScheduler
}

func newClient(t *testing.T, api *remote.Client, hub *realtime.Hub) *client {
	t.Helper()
	sched := testutil.NewManualScheduler()
	kv := repository.NewSQLiteKVRepo(testutil.NewTestDB(t))
	svc, err := service.NewRoutineService(context.Background(), kv, api, service.NewRemoteStore(api), service.RoutineOptions{
		Machine: []sharesync.Option{
			sharesync.WithScheduler(sched),
			sharesync.WithNotifier(hub),
			sharesync.WithSpawn(func(f func()) { f() }),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return &client{svc: svc, sched: sched}
}

func ids(svc service.RoutineService) []int {
	return domain.SectionIDs(svc.Sections())
}

func TestShareFlow_CreatorEditsReachLiveViewerUntilFork(t *testing.T) {
	conn := testutil.NewTestDB(t)
	ctx := context.Background()
	sections := repository.NewSQLiteSectionRepo(conn)
	for _, s := range []domain.Section{
		testutil.NewTestSection(1, "CSE110", testutil.WithClass(domain.Sunday, "08:00:00")),
		testutil.NewTestSection(2, "MAT110", testutil.WithClass(domain.Monday, "09:30:00")),
		testutil.NewTestSection(3, "PHY111", testutil.WithLab(domain.Tuesday, "11:00:00")),
		testutil.NewTestSection(4, "ENG101", testutil.WithClass(domain.Sunday, "08:00:00")),
	} {
		require.NoError(t, sections.Upsert(ctx, s))
	}

	hub := realtime.NewHub()
	ts := httptest.NewServer(server.New(conn, server.Config{RateLimit: 1000}, server.WithPublisher(hub)).Handler())
	defer ts.Close()

	cfg := remote.DefaultConfig()
	cfg.Endpoint = ts.URL
	api := remote.NewClient(cfg, nil)

	creator := newClient(t, api, hub)
	viewer := newClient(t, api, hub)

	_, err := creator.svc.Add(ctx, 1)
	require.NoError(t, err)
	code, err := creator.svc.Share(ctx)
	require.NoError(t, err)

	require.NoError(t, viewer.svc.Follow())
	_, err = viewer.svc.Open(ctx, code)
	require.NoError(t, err)
	viewer.sched.Advance(sharesync.DefaultRefreshDelay)
	require.Equal(t, domain.SyncViewerLive, viewer.svc.SyncState().Status)
	assert.Equal(t, []int{1}, ids(viewer.svc))

	// Creator edit propagates after both quiet periods.
	_, err = creator.svc.Add(ctx, 2)
	require.NoError(t, err)
	creator.sched.Advance(sharesync.DefaultPushDelay)
	assert.Equal(t, domain.SyncCreatorSynced, creator.svc.SyncState().Status)
	assert.Equal(t, []int{1}, ids(viewer.svc), "viewer refresh is debounced")
	viewer.sched.Advance(sharesync.DefaultRefreshDelay)
	assert.Equal(t, []int{1, 2}, ids(viewer.svc))

	// The viewer forks; later creator edits no longer reach it.
	res, err := viewer.svc.Add(ctx, 4)
	require.NoError(t, err)
	assert.True(t, res.HasConflict)
	assert.Equal(t, domain.SyncViewerDiverged, viewer.svc.SyncState().Status)
	assert.Equal(t, 0, hub.Subscribers(sharesync.Topic(code)))

	_, err = creator.svc.Add(ctx, 3)
	require.NoError(t, err)
	creator.sched.Advance(sharesync.DefaultPushDelay)
	viewer.sched.Advance(sharesync.DefaultRefreshDelay)
	assert.Equal(t, []int{1, 2, 4}, ids(viewer.svc))

	// A diverged viewer can publish its fork under a new code.
	forkCode, err := viewer.svc.Share(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, code, forkCode)
	assert.Equal(t, domain.SyncCreatorSynced, viewer.svc.SyncState().Status)
}

func TestShareFlow_ViewerCannotPushToCreatorsCode(t *testing.T) {
	conn := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repository.NewSQLiteSectionRepo(conn).Upsert(ctx, testutil.NewTestSection(1, "CSE110")))

	ts := httptest.NewServer(server.New(conn, server.Config{}).Handler())
	defer ts.Close()
	cfg := remote.DefaultConfig()
	cfg.Endpoint = ts.URL
	api := remote.NewClient(cfg, nil)

	created, err := api.CreateRoutine(ctx, []int{1}, "creator-session")
	require.NoError(t, err)

	err = api.UpdateRoutine(ctx, created.ShortCode, []int{}, "someone-else")
	assert.ErrorIs(t, err, remote.ErrForbidden)

	_, err = service.NewRemoteStore(api).Get(ctx, "MISSING")
	assert.ErrorIs(t, err, sharesync.ErrShareNotFound)
}
