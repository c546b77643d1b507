// Package api holds the HTTP wire contract shared by the share server and
// its client.
package api

const (
	PathCourses       = "/api/courses"
	PathCourseData    = "/api/course-data"
	PathSections      = "/api/sections"
	PathRoutineCreate = "/api/routine/create"
	PathRoutineGet    = "/api/routine/get"
	PathRoutineUpdate = "/api/routine/update"
	PathHealth        = "/healthz"
)

type CreateRoutineRequest struct {
	SectionIDs []int  `json:"sectionIds" validate:"required,min=1,dive,gt=0"`
	SessionID  string `json:"sessionId" validate:"required"`
}

type CreateRoutineResponse struct {
	RoutineID string `json:"routineId"`
	ShortCode string `json:"shortCode"`
}

// UpdateRoutineRequest may carry an empty section list: a creator who
// removes every section still publishes that.
type UpdateRoutineRequest struct {
	ShortCode  string `json:"shortCode" validate:"required"`
	SectionIDs []int  `json:"sectionIds" validate:"dive,gt=0"`
	SessionID  string `json:"sessionId" validate:"required"`
}

type UpdateRoutineResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
