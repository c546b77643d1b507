package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Meeting is one recurring weekly time commitment.
type Meeting struct {
	Day       Weekday `json:"day" yaml:"day" validate:"required,weekday"`
	StartTime string  `json:"startTime" yaml:"startTime" validate:"required,clock"`
	EndTime   string  `json:"endTime" yaml:"endTime" validate:"omitempty,clock"`
}

// Slot returns the minute-truncated start time.
func (m Meeting) Slot() string {
	return NormalizeTime(m.StartTime)
}

// Schedule carries the class meetings, the semester date range and the exam
// fields exactly as the catalog delivers them.
type Schedule struct {
	ClassSchedules     []Meeting `json:"classSchedules" yaml:"classSchedules" validate:"dive"`
	ClassStartDate     string    `json:"classStartDate,omitempty" yaml:"classStartDate,omitempty"`
	ClassEndDate       string    `json:"classEndDate,omitempty" yaml:"classEndDate,omitempty"`
	MidExamDate        string    `json:"midExamDate,omitempty" yaml:"midExamDate,omitempty"`
	MidExamStartTime   string    `json:"midExamStartTime,omitempty" yaml:"midExamStartTime,omitempty"`
	MidExamEndTime     string    `json:"midExamEndTime,omitempty" yaml:"midExamEndTime,omitempty"`
	MidExamDetail      string    `json:"midExamDetail,omitempty" yaml:"midExamDetail,omitempty"`
	FinalExamDate      string    `json:"finalExamDate,omitempty" yaml:"finalExamDate,omitempty"`
	FinalExamStartTime string    `json:"finalExamStartTime,omitempty" yaml:"finalExamStartTime,omitempty"`
	FinalExamEndTime   string    `json:"finalExamEndTime,omitempty" yaml:"finalExamEndTime,omitempty"`
	FinalExamDetail    string    `json:"finalExamDetail,omitempty" yaml:"finalExamDetail,omitempty"`
}

// Exam is a single dated exam sitting.
type Exam struct {
	Kind      MeetingKind
	Date      string
	StartTime string
	EndTime   string
	Detail    string
}

// Section is one enrollable offering of a course.
type Section struct {
	SectionID      int       `json:"sectionId" yaml:"sectionId" validate:"required,gt=0"`
	CourseID       int       `json:"courseId,omitempty" yaml:"courseId,omitempty"`
	CourseCode     string    `json:"courseCode" yaml:"courseCode" validate:"required"`
	CourseName     string    `json:"courseName,omitempty" yaml:"courseName,omitempty"`
	SectionName    string    `json:"sectionName" yaml:"sectionName" validate:"required"`
	SectionType    string    `json:"sectionType,omitempty" yaml:"sectionType,omitempty"`
	CourseCredit   float64   `json:"courseCredit" yaml:"courseCredit" validate:"gte=0"`
	Capacity       int       `json:"capacity" yaml:"capacity" validate:"gte=0"`
	ConsumedSeat   int       `json:"consumedSeat" yaml:"consumedSeat" validate:"gte=0"`
	Faculties      string    `json:"faculties,omitempty" yaml:"faculties,omitempty"`
	RoomName       string    `json:"roomName,omitempty" yaml:"roomName,omitempty"`
	RoomNumber     string    `json:"roomNumber,omitempty" yaml:"roomNumber,omitempty"`
	AcademicDegree string    `json:"academicDegree,omitempty" yaml:"academicDegree,omitempty"`
	Prerequisites  string    `json:"prerequisiteCourses,omitempty" yaml:"prerequisiteCourses,omitempty"`
	Schedule       Schedule  `json:"sectionSchedule" yaml:"sectionSchedule"`
	LabSchedules   []Meeting `json:"labSchedules,omitempty" yaml:"labSchedules,omitempty" validate:"dive"`
	LabCourseCode  string    `json:"labCourseCode,omitempty" yaml:"labCourseCode,omitempty"`
	LabFaculties   string    `json:"labFaculties,omitempty" yaml:"labFaculties,omitempty"`
	LabRoomName    string    `json:"labRoomName,omitempty" yaml:"labRoomName,omitempty"`
}

// AvailableSeats is capacity minus consumed seats. It may be negative when a
// section is over-enrolled.
func (s Section) AvailableSeats() int {
	return s.Capacity - s.ConsumedSeat
}

func (s Section) ClassMeetings() []Meeting {
	return s.Schedule.ClassSchedules
}

func (s Section) LabMeetings() []Meeting {
	return s.LabSchedules
}

func (s Section) HasLab() bool {
	return len(s.LabSchedules) > 0
}

// MidExam returns the mid-term sitting, or nil when none is scheduled.
func (s Section) MidExam() *Exam {
	if s.Schedule.MidExamDate == "" {
		return nil
	}
	return &Exam{
		Kind:      MeetingMidExam,
		Date:      s.Schedule.MidExamDate,
		StartTime: s.Schedule.MidExamStartTime,
		EndTime:   s.Schedule.MidExamEndTime,
		Detail:    s.Schedule.MidExamDetail,
	}
}

// FinalExam returns the final sitting, or nil when none is scheduled.
func (s Section) FinalExam() *Exam {
	if s.Schedule.FinalExamDate == "" {
		return nil
	}
	return &Exam{
		Kind:      MeetingFinalExam,
		Date:      s.Schedule.FinalExamDate,
		StartTime: s.Schedule.FinalExamStartTime,
		EndTime:   s.Schedule.FinalExamEndTime,
		Detail:    s.Schedule.FinalExamDetail,
	}
}

// Summary renders the compact "sectionName-faculties-availableSeats" label.
func (s Section) Summary() string {
	return fmt.Sprintf("%s-%s-%d", s.SectionName, CoalesceStr(s.Faculties, "TBA"), s.AvailableSeats())
}

// FacultyList splits the comma-separated faculty initials.
func (s Section) FacultyList() []string {
	var out []string
	for _, f := range strings.Split(s.Faculties, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// CourseSummary is one entry of the course list.
type CourseSummary struct {
	CourseCode     string  `json:"courseCode" yaml:"courseCode"`
	CourseName     string  `json:"courseName" yaml:"courseName"`
	CourseCredit   float64 `json:"courseCredit" yaml:"courseCredit"`
	AcademicDegree string  `json:"academicDegree,omitempty" yaml:"academicDegree,omitempty"`
}

// SectionIDs returns the identifiers of sections in order.
func SectionIDs(sections []Section) []int {
	ids := make([]int, len(sections))
	for i, s := range sections {
		ids[i] = s.SectionID
	}
	return ids
}

// TotalCredits sums course credits.
func TotalCredits(sections []Section) float64 {
	var total float64
	for _, s := range sections {
		total += s.CourseCredit
	}
	return total
}

// Signature is the sorted, comma-joined identifier list used to tell two
// routine snapshots apart regardless of order.
func Signature(ids []int) string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
