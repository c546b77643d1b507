package sharesync

import (
	"context"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// RemoteStore is the shared-routine collaborator.
type RemoteStore interface {
	Create(ctx context.Context, sectionIDs []int, sessionID string) (string, error)
	Get(ctx context.Context, shortCode string) (*domain.SharedRoutine, error)
	// Update must be rejected when sessionID is not the creator's session.
	Update(ctx context.Context, shortCode string, sectionIDs []int, sessionID string) error
}

// Subscription is a live realtime subscription. Close is idempotent.
type Subscription interface {
	Close() error
}

// Notifier delivers payload-free "something changed" events for a topic.
// Subscribe returns once the subscription is confirmed.
type Notifier interface {
	Subscribe(ctx context.Context, topic string, onEvent func()) (Subscription, error)
}

// LinkStore persists the current share link. A nil link clears it.
// LoadLink returns what is stored now, which another process sharing the
// store may have changed.
type LinkStore interface {
	SaveLink(link *domain.SharedRoutineLink) error
	LoadLink() (*domain.SharedRoutineLink, error)
}

// Topic is the realtime channel carrying updates for a short code.
func Topic(shortCode string) string {
	return "shared-routine:" + shortCode
}
