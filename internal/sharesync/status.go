package sharesync

import (
	"fmt"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// Event is an input to the sync state machine.
type Event string

const (
	EventShare              Event = "share"
	EventOpenAsCreator      Event = "open_as_creator"
	EventOpenAsViewer       Event = "open_as_viewer"
	EventLocalMutation      Event = "local_mutation"
	EventPushSettled        Event = "push_settled"
	EventSubscribed         Event = "subscribed"
	EventRemoteNotification Event = "remote_notification"
	EventDetach             Event = "detach"
)

// Transition returns the state reached from `from` on ev. Combinations the
// machine must never perform return ErrIllegalTransition and leave the state
// unchanged.
func Transition(from domain.SyncStatus, ev Event) (domain.SyncStatus, error) {
	switch ev {
	case EventDetach:
		return domain.SyncUnshared, nil
	case EventOpenAsCreator:
		return domain.SyncCreatorSynced, nil
	case EventOpenAsViewer:
		return domain.SyncViewerConnecting, nil
	case EventShare:
		if from == domain.SyncCreatorSyncing {
			return from, nil
		}
		return domain.SyncCreatorSynced, nil
	case EventLocalMutation:
		switch {
		case from == domain.SyncUnshared:
			return from, nil
		case from.IsCreator():
			return domain.SyncCreatorSyncing, nil
		default:
			// Divergence is one-way: every viewer state ends here.
			return domain.SyncViewerDiverged, nil
		}
	case EventPushSettled:
		if from.IsCreator() {
			return domain.SyncCreatorSynced, nil
		}
	case EventSubscribed:
		if from == domain.SyncViewerConnecting || from == domain.SyncViewerLive {
			return domain.SyncViewerLive, nil
		}
	case EventRemoteNotification:
		if from == domain.SyncViewerLive {
			return from, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
}

// initialStatus maps a persisted link to the state a new session starts in.
func initialStatus(link *domain.SharedRoutineLink) domain.SyncStatus {
	switch {
	case link == nil:
		return domain.SyncUnshared
	case link.IsCreator:
		return domain.SyncCreatorSynced
	case link.Diverged:
		return domain.SyncViewerDiverged
	default:
		return domain.SyncViewerConnecting
	}
}
