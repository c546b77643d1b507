package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/remote"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

type remoteStore struct {
	api RoutineAPI
}

// NewRemoteStore adapts the HTTP routine API to the sync machine's store port.
func NewRemoteStore(client RoutineAPI) sharesync.RemoteStore {
	return &remoteStore{api: client}
}

func (r *remoteStore) Create(ctx context.Context, sectionIDs []int, sessionID string) (string, error) {
	resp, err := r.api.CreateRoutine(ctx, sectionIDs, sessionID)
	if err != nil {
		return "", err
	}
	if resp.ShortCode == "" {
		return "", fmt.Errorf("creating routine: server returned no short code")
	}
	return resp.ShortCode, nil
}

func (r *remoteStore) Get(ctx context.Context, shortCode string) (*domain.SharedRoutine, error) {
	routine, err := r.api.GetRoutine(ctx, shortCode)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", sharesync.ErrShareNotFound, err)
	}
	return routine, err
}

func (r *remoteStore) Update(ctx context.Context, shortCode string, sectionIDs []int, sessionID string) error {
	err := r.api.UpdateRoutine(ctx, shortCode, sectionIDs, sessionID)
	if errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("%w: %w", sharesync.ErrShareNotFound, err)
	}
	return err
}
