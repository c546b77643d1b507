package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/alexanderramin/routinebuzz/internal/api"
	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/repository"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
	"github.com/alexanderramin/routinebuzz/internal/validate"
)

const maxBodyBytes = 1 << 20

var errSessionMismatch = errors.New("session is not the routine creator")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.sections.ListCourses(r.Context())
	if err != nil {
		s.internalError(w, "list_courses", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(courses))
}

func (s *Server) handleCourseData(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("courseCode"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "courseCode is required")
		return
	}
	sections, err := s.sections.ListByCourse(r.Context(), code)
	if err != nil {
		s.internalError(w, "course_data", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(sections))
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sections, err := s.sections.GetByIDs(r.Context(), ids)
	if err != nil {
		s.internalError(w, "sections_by_ids", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(sections))
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRoutineRequest
	if !s.decode(w, r, &req) {
		return
	}

	now := s.now()
	stored := &domain.StoredRoutine{
		ID:               uuid.New().String(),
		SectionIDs:       req.SectionIDs,
		CreatorSessionID: req.SessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		stored.ShortCode = s.newCode()
		err = s.routines.Create(r.Context(), stored)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		s.logger.Warn("short_code_collision", "short_code", stored.ShortCode, "attempt", attempt+1)
	}
	if err != nil {
		s.internalError(w, "create_routine", err)
		return
	}

	s.logger.Info("routine_created", "short_code", stored.ShortCode, "section_count", len(stored.SectionIDs))
	writeJSON(w, http.StatusOK, api.CreateRoutineResponse{RoutineID: stored.ID, ShortCode: stored.ShortCode})
}

// handleGetRoutine counts the access and resolves the stored ids against
// the catalog in one transaction.
func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	var out *domain.SharedRoutine
	err := s.uow.WithinTx(r.Context(), func(ctx context.Context, tx db.DBTX) error {
		routines := repository.NewSQLiteSharedRoutineRepo(tx)
		if err := routines.RecordAccess(ctx, code, s.now()); err != nil {
			return err
		}
		stored, err := routines.GetByShortCode(ctx, code)
		if err != nil {
			return err
		}
		sections, err := repository.NewSQLiteSectionRepo(tx).GetByIDs(ctx, stored.SectionIDs)
		if err != nil {
			return err
		}
		out = &domain.SharedRoutine{
			RoutineID:   stored.ID,
			ShortCode:   stored.ShortCode,
			SectionIDs:  nonNilSlice(stored.SectionIDs),
			Sections:    nonNilSlice(sections),
			CreatedAt:   stored.CreatedAt,
			UpdatedAt:   stored.UpdatedAt,
			AccessCount: stored.AccessCount,
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	if err != nil {
		s.internalError(w, "get_routine", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateRoutine(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRoutineRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.uow.WithinTx(r.Context(), func(ctx context.Context, tx db.DBTX) error {
		routines := repository.NewSQLiteSharedRoutineRepo(tx)
		stored, err := routines.GetByShortCode(ctx, req.ShortCode)
		if err != nil {
			return err
		}
		if stored.CreatorSessionID != req.SessionID {
			return errSessionMismatch
		}
		return routines.UpdateSections(ctx, req.ShortCode, nonNilSlice(req.SectionIDs), s.now())
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "routine not found")
		return
	case errors.Is(err, errSessionMismatch):
		s.logger.Warn("routine_update_forbidden", "short_code", req.ShortCode)
		writeError(w, http.StatusForbidden, errSessionMismatch.Error())
		return
	case err != nil:
		s.internalError(w, "update_routine", err)
		return
	}

	topic := sharesync.Topic(req.ShortCode)
	if err := s.publisher.Publish(r.Context(), topic); err != nil {
		s.logger.Warn("routine_notify_failed", "topic", topic, "error", err.Error())
	}
	s.logger.Info("routine_updated", "short_code", req.ShortCode, "section_count", len(req.SectionIDs))
	writeJSON(w, http.StatusOK, api.UpdateRoutineResponse{Success: true})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validate.FirstError(err))
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("handler_failed", "op", op, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseIDs accepts a comma-separated list of positive integers.
func parseIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid section id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("ids is required")
	}
	return ids, nil
}

func nonNilSlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
