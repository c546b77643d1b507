package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
	"github.com/alexanderramin/routinebuzz/internal/teatest"
)

func newWatchDriver(t *testing.T, f *cliFixture) *teatest.Driver {
	t.Helper()
	m := newWatchModel(context.Background(), f.app.Routine, f.app.now)
	d := teatest.New(t, m, teatest.WithSize(120, 40))
	d.DrainInit()
	return d
}

func TestWatchModel_ShowsRoutineAndStatus(t *testing.T) {
	f := newCLIFixture(t)
	f.mustRun(t, "routine", "add", "1", "3")

	d := newWatchDriver(t, f)
	view := stripANSI(d.View())

	assert.Contains(t, view, "ROUTINEBUZZ WATCH")
	assert.Contains(t, view, "Not shared")
	assert.Contains(t, view, "CSE110-1")
	assert.Contains(t, view, "2 in conflict")
	assert.Contains(t, view, "q quit")
}

func TestWatchModel_EmptyRoutine(t *testing.T) {
	f := newCLIFixture(t)

	d := newWatchDriver(t, f)

	assert.Contains(t, stripANSI(d.View()), "Your routine is empty.")
}

func TestWatchModel_AppliesCreatorUpdates(t *testing.T) {
	f := newCLIFixture(t)
	f.remote.Seed("SHARED1", "other-session", 1)
	f.mustRun(t, "share", "open", "SHARED1")
	require.NoError(t, f.app.Routine.Follow())
	require.Equal(t, domain.SyncViewerLive, f.app.Routine.SyncState().Status)

	d := newWatchDriver(t, f)
	view := stripANSI(d.View())
	assert.Contains(t, view, "Live")
	assert.Contains(t, view, "SHARED1")
	assert.Contains(t, view, "https://routine.example/?r=SHARED1")
	assert.NotContains(t, view, "MAT110")

	f.remote.Publish("SHARED1", 1, 2)
	f.notifier.Notify(sharesync.Topic("SHARED1"))
	f.sched.Advance(sharesync.DefaultRefreshDelay)

	d.Send(watchTickMsg(fixedNow))
	assert.Contains(t, stripANSI(d.View()), "MAT110-2")
}

func TestWatchModel_RefreshSeatsKey(t *testing.T) {
	f := newCLIFixture(t)
	f.mustRun(t, "routine", "add", "1")
	changed := testCatalog[0]
	changed.ConsumedSeat = 30
	f.remote.AddSections(changed)

	d := newWatchDriver(t, f)
	d.PressKey('r')

	assert.Contains(t, stripANSI(d.View()), "Updated seat counts for 1 sections.")
	assert.Equal(t, 30, f.app.Routine.Sections()[0].ConsumedSeat)
}

func TestWatchModel_RefreshSeatsFailure(t *testing.T) {
	f := newCLIFixture(t)
	f.mustRun(t, "routine", "add", "1")
	d := newWatchDriver(t, f)

	d.Send(seatsRefreshedMsg{err: errors.New("catalog offline")})

	assert.Contains(t, stripANSI(d.View()), "Seat refresh failed: catalog offline")
}

func TestWatchModel_ShowsErrors(t *testing.T) {
	f := newCLIFixture(t)
	f.remote.Seed("SHARED1", "other-session", 1)
	f.mustRun(t, "share", "open", "SHARED1")
	f.notifier.FailWith(errors.New("redis down"))
	require.NoError(t, f.app.Routine.Follow())

	d := newWatchDriver(t, f)
	view := stripANSI(d.View())

	assert.Contains(t, view, "Connecting")
	assert.Contains(t, view, "Realtime unavailable: redis down")
}

func TestWatchModel_Quit(t *testing.T) {
	f := newCLIFixture(t)

	d := newWatchDriver(t, f)
	d.PressKey('q')
	assert.True(t, d.Quitting)

	d = newWatchDriver(t, f)
	d.PressCtrlC()
	assert.True(t, d.Quitting)
}

func TestWatchModel_TickReloadsAndPolls(t *testing.T) {
	f := newCLIFixture(t)
	d := newWatchDriver(t, f)

	f.mustRun(t, "routine", "add", "2")
	assert.NotContains(t, stripANSI(d.View()), "MAT110-2")

	d.Send(watchTickMsg(fixedNow.Add(time.Second)))

	assert.Contains(t, stripANSI(d.View()), "MAT110-2")
	assert.Equal(t, 120, teatest.Current[watchModel](d).width)
}

func TestWatchModel_TickAdoptsForkFromAnotherCommand(t *testing.T) {
	f := newCLIFixture(t)
	f.remote.Seed("SHARED1", "other-session", 1)
	f.mustRun(t, "share", "open", "SHARED1")
	require.NoError(t, f.app.Routine.Follow())
	d := newWatchDriver(t, f)
	require.Contains(t, stripANSI(d.View()), "Live")

	other := f.openRoutine(t)
	_, err := other.Add(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, domain.SyncViewerDiverged, other.SyncState().Status)

	d.Send(watchTickMsg(fixedNow.Add(time.Second)))
	view := stripANSI(d.View())
	assert.Contains(t, view, "Forked")
	assert.Contains(t, view, "MAT110-2")
	assert.Equal(t, domain.SyncViewerDiverged, f.app.Routine.SyncState().Status)

	f.remote.Publish("SHARED1", 1, 4)
	f.notifier.Notify(sharesync.Topic("SHARED1"))
	f.sched.Advance(sharesync.DefaultRefreshDelay)
	d.Send(watchTickMsg(fixedNow.Add(2 * time.Second)))

	assert.Equal(t, []int{1, 2}, domain.SectionIDs(f.app.Routine.Sections()))
	assert.NotContains(t, stripANSI(d.View()), "ENG101")
}
