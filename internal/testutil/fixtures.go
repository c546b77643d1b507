package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

var testSectionCounter atomic.Int64

// Section options
type SectionOption func(*domain.Section)

// WithClass adds a class meeting. The end time mirrors the start; conflict
// detection never reads it.
func WithClass(day domain.Weekday, start string) SectionOption {
	return func(s *domain.Section) {
		s.Schedule.ClassSchedules = append(s.Schedule.ClassSchedules, domain.Meeting{
			Day: day, StartTime: start, EndTime: start,
		})
	}
}

// WithLab adds a lab meeting.
func WithLab(day domain.Weekday, start string) SectionOption {
	return func(s *domain.Section) {
		s.LabSchedules = append(s.LabSchedules, domain.Meeting{
			Day: day, StartTime: start, EndTime: start,
		})
	}
}

func WithCredit(c float64) SectionOption {
	return func(s *domain.Section) {
		s.CourseCredit = c
	}
}

func WithSeats(capacity, consumed int) SectionOption {
	return func(s *domain.Section) {
		s.Capacity = capacity
		s.ConsumedSeat = consumed
	}
}

func WithFaculties(f string) SectionOption {
	return func(s *domain.Section) {
		s.Faculties = f
	}
}

func WithSectionName(name string) SectionOption {
	return func(s *domain.Section) {
		s.SectionName = name
	}
}

func WithCourseName(name string) SectionOption {
	return func(s *domain.Section) {
		s.CourseName = name
	}
}

func WithRoom(room string) SectionOption {
	return func(s *domain.Section) {
		s.RoomName = room
	}
}

// WithSemester sets the class date range.
func WithSemester(start, end string) SectionOption {
	return func(s *domain.Section) {
		s.Schedule.ClassStartDate = start
		s.Schedule.ClassEndDate = end
	}
}

func WithMidExam(date, start, end string) SectionOption {
	return func(s *domain.Section) {
		s.Schedule.MidExamDate = date
		s.Schedule.MidExamStartTime = start
		s.Schedule.MidExamEndTime = end
	}
}

func WithFinalExam(date, start, end string) SectionOption {
	return func(s *domain.Section) {
		s.Schedule.FinalExamDate = date
		s.Schedule.FinalExamStartTime = start
		s.Schedule.FinalExamEndTime = end
	}
}

// NewTestSection builds a section with no meetings. A zero id allocates a
// fresh one from a process-wide counter.
func NewTestSection(id int, courseCode string, opts ...SectionOption) domain.Section {
	if id == 0 {
		id = int(10000 + testSectionCounter.Add(1))
	}
	s := domain.Section{
		SectionID:    id,
		CourseCode:   courseCode,
		CourseName:   courseCode + " Course",
		SectionName:  fmt.Sprintf("%d", id%100),
		CourseCredit: 3,
		Capacity:     30,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
