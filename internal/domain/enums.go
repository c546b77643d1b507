package domain

type SyncStatus string

const (
	SyncUnshared         SyncStatus = "unshared"
	SyncCreatorSynced    SyncStatus = "creator_synced"
	SyncCreatorSyncing   SyncStatus = "creator_syncing"
	SyncViewerConnecting SyncStatus = "viewer_connecting"
	SyncViewerLive       SyncStatus = "viewer_live"
	SyncViewerDiverged   SyncStatus = "viewer_diverged"
)

// IsCreator reports whether local edits are authoritative and pushed upstream.
func (s SyncStatus) IsCreator() bool {
	return s == SyncCreatorSynced || s == SyncCreatorSyncing
}

// IsPassiveViewer reports whether the routine is still following a creator.
func (s SyncStatus) IsPassiveViewer() bool {
	return s == SyncViewerConnecting || s == SyncViewerLive
}

// HasLink reports whether a SharedRoutineLink is attached in this status.
func (s SyncStatus) HasLink() bool {
	return s != SyncUnshared && s != ""
}

type MeetingKind string

const (
	MeetingClass     MeetingKind = "class"
	MeetingLab       MeetingKind = "lab"
	MeetingMidExam   MeetingKind = "mid_exam"
	MeetingFinalExam MeetingKind = "final_exam"
)
