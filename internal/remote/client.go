// Package remote talks to the share server: the course catalog and the
// shared-routine endpoints.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/alexanderramin/routinebuzz/internal/api"
	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// Client is an HTTP client for the share server. Safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewClient creates a Client. A nil observer discards call events.
func NewClient(cfg Config, observer Observer) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

// ListCourses returns every course in the catalog.
func (c *Client) ListCourses(ctx context.Context) ([]domain.CourseSummary, error) {
	var out []domain.CourseSummary
	if err := c.call(ctx, "list_courses", http.MethodGet, api.PathCourses, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSections returns the sections of one course.
func (c *Client) ListSections(ctx context.Context, courseCode string) ([]domain.Section, error) {
	q := url.Values{"courseCode": {courseCode}}
	var out []domain.Section
	if err := c.call(ctx, "list_sections", http.MethodGet, api.PathCourseData, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SectionsByIDs returns the current catalog state of the given sections.
// Unknown ids are skipped by the server.
func (c *Client) SectionsByIDs(ctx context.Context, ids []int) ([]domain.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	q := url.Values{"ids": {strings.Join(parts, ",")}}
	var out []domain.Section
	if err := c.call(ctx, "sections_by_ids", http.MethodGet, api.PathSections, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRoutine publishes a new shared routine and returns its short code.
func (c *Client) CreateRoutine(ctx context.Context, sectionIDs []int, sessionID string) (*api.CreateRoutineResponse, error) {
	body := api.CreateRoutineRequest{SectionIDs: nonNil(sectionIDs), SessionID: sessionID}
	var out api.CreateRoutineResponse
	if err := c.call(ctx, "create_routine", http.MethodPost, api.PathRoutineCreate, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoutine fetches the shared routine behind a short code.
func (c *Client) GetRoutine(ctx context.Context, shortCode string) (*domain.SharedRoutine, error) {
	q := url.Values{"code": {shortCode}}
	var out domain.SharedRoutine
	if err := c.call(ctx, "get_routine", http.MethodGet, api.PathRoutineGet, q, nil, &out); err != nil {
		return nil, err
	}
	if out.ShortCode == "" {
		out.ShortCode = shortCode
	}
	return &out, nil
}

// UpdateRoutine replaces the section list of a routine the session created.
func (c *Client) UpdateRoutine(ctx context.Context, shortCode string, sectionIDs []int, sessionID string) error {
	body := api.UpdateRoutineRequest{ShortCode: shortCode, SectionIDs: nonNil(sectionIDs), SessionID: sessionID}
	var out api.UpdateRoutineResponse
	return c.call(ctx, "update_routine", http.MethodPost, api.PathRoutineUpdate, nil, body, &out)
}

// Available checks whether the server answers its health probe.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+api.PathHealth, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// call runs one logical request with the configured timeout and retries.
// Only transient failures are retried; 4xx replies return immediately.
func (c *Client) call(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.timeoutMs())*time.Millisecond)
	defer cancel()

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		payload = data
	}

	target := c.cfg.Endpoint + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var lastErr error
	attempts := 0
	for i := 0; i < c.cfg.attempts(); i++ {
		attempts++
		err := c.doRequest(ctx, method, target, payload, out)
		if err == nil {
			c.observer.OnCallComplete(CallEvent{
				Op:        op,
				Attempts:  attempts,
				LatencyMs: time.Since(start).Milliseconds(),
				Success:   true,
			})
			return nil
		}
		lastErr = err

		// Don't retry on context cancellation/timeout or a definitive reply.
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}

	err := classify(ctx, lastErr)
	c.observer.OnCallComplete(CallEvent{
		Op:        op,
		Attempts:  attempts,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   false,
		ErrorCode: errorCode(err),
	})
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) doRequest(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &statusError{Code: resp.StatusCode, Body: errorMessage(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage extracts api.ErrorResponse.Error, falling back to the raw body.
func errorMessage(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return err
	case ctx.Err() != nil:
		return ErrTimeout
	case isConnectionError(err):
		return ErrUnavailable
	}
	var se *statusError
	if errors.As(err, &se) && !se.retryable() {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrRetryExhausted):
		return "RETRY_EXHAUSTED"
	default:
		return "REJECTED"
	}
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
