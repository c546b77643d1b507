package domain

import "time"

// SharedRoutineLink associates the local routine with a remote share.
// Diverged is only meaningful for viewers and records a local fork.
type SharedRoutineLink struct {
	ShortCode string `json:"shortCode"`
	IsCreator bool   `json:"isCreator"`
	Diverged  bool   `json:"diverged,omitempty"`
}

// SharedRoutine is a remote snapshot of a published routine.
type SharedRoutine struct {
	RoutineID   string    `json:"routineId"`
	ShortCode   string    `json:"shortCode,omitempty"`
	SectionIDs  []int     `json:"sectionIds"`
	Sections    []Section `json:"sections"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	AccessCount int       `json:"accessCount"`
}

// Signature returns the snapshot's sorted identifier signature.
func (r *SharedRoutine) Signature() string {
	return Signature(SectionIDs(r.Sections))
}

// StoredRoutine is the server-side record behind a short code. The creator
// session id authorizes updates and is never sent to viewers.
type StoredRoutine struct {
	ID               string
	ShortCode        string
	SectionIDs       []int
	CreatorSessionID string
	AccessCount      int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastAccessedAt   *time.Time
}
