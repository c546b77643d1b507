// Package export renders a routine as an iCalendar file: weekly recurring
// class and lab meetings plus single exam sittings.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

const (
	dateLayout      = "2006-01-02"
	productID       = "-//routinebuzz//routine export//EN"
	defaultDuration = 80 * time.Minute
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://routinebuzz/ics"))

// Stats summarizes an export.
type Stats struct {
	Recurring int
	Exams     int
	// Skipped lists meetings left out for lack of a usable date range or time.
	Skipped []string
}

// Write encodes the routine as iCalendar to w.
func Write(w io.Writer, sections []domain.Section, opts Options) (Stats, error) {
	cal, stats, err := Build(sections, opts)
	if err != nil {
		return stats, err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return stats, fmt.Errorf("encoding calendar: %w", err)
	}
	return stats, nil
}

// Build assembles the calendar without encoding it.
func Build(sections []domain.Section, opts Options) (*ical.Calendar, Stats, error) {
	var stats Stats
	if err := opts.validate(); err != nil {
		return nil, stats, err
	}
	if len(opts.TitleFields) == 0 {
		opts.TitleFields = DefaultOptions().TitleFields
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	b := builder{opts: opts, cal: cal, stats: &stats}
	for _, s := range sections {
		for _, m := range s.ClassMeetings() {
			b.recurring(s, m, domain.MeetingClass)
		}
		if opts.IncludeLabs {
			for _, m := range s.LabMeetings() {
				b.recurring(s, m, domain.MeetingLab)
			}
		}
		if opts.IncludeExams {
			for _, e := range []*domain.Exam{s.MidExam(), s.FinalExam()} {
				if e != nil {
					b.exam(s, *e)
				}
			}
		}
	}
	return cal, stats, nil
}

type builder struct {
	opts  Options
	cal   *ical.Calendar
	stats *Stats
}

func (b *builder) recurring(s domain.Section, m domain.Meeting, kind domain.MeetingKind) {
	label := fmt.Sprintf("%s %s %s %s", s.CourseCode, kind, m.Day.Short(), m.Slot())

	fromStr, toStr := s.Schedule.ClassStartDate, s.Schedule.ClassEndDate
	if b.opts.From != "" {
		fromStr, toStr = b.opts.From, b.opts.To
	}
	from, errFrom := time.ParseInLocation(dateLayout, fromStr, b.opts.Location)
	to, errTo := time.ParseInLocation(dateLayout, toStr, b.opts.Location)
	if errFrom != nil || errTo != nil {
		b.stats.Skipped = append(b.stats.Skipped, label+": no date range")
		return
	}
	startOff, endOff, ok := offsets(m.StartTime, m.EndTime)
	if !ok {
		b.stats.Skipped = append(b.stats.Skipped, label+": invalid time")
		return
	}

	first := firstOnOrAfter(from, m.Day.TimeWeekday())
	if first.After(to) {
		b.stats.Skipped = append(b.stats.Skipped, label+": no occurrence in range")
		return
	}
	until := to.Add(24*time.Hour - time.Second).UTC()

	ev := b.event(s, kind, label)
	ev.Props.SetDateTime(ical.PropDateTimeStart, first.Add(startOff))
	ev.Props.SetDateTime(ical.PropDateTimeEnd, first.Add(endOff))
	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.Value = fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;UNTIL=%s", byDay(m.Day), until.Format("20060102T150405Z"))
	ev.Props.Set(rule)

	b.finish(ev)
	b.stats.Recurring++
}

func (b *builder) exam(s domain.Section, e domain.Exam) {
	label := fmt.Sprintf("%s %s %s", s.CourseCode, e.Kind, e.Date)
	day, err := time.ParseInLocation(dateLayout, e.Date, b.opts.Location)
	if err != nil {
		b.stats.Skipped = append(b.stats.Skipped, label+": invalid date")
		return
	}
	startOff, endOff, ok := offsets(e.StartTime, e.EndTime)
	if !ok {
		b.stats.Skipped = append(b.stats.Skipped, label+": invalid time")
		return
	}

	ev := b.event(s, e.Kind, label)
	ev.Props.SetDateTime(ical.PropDateTimeStart, day.Add(startOff))
	ev.Props.SetDateTime(ical.PropDateTimeEnd, day.Add(endOff))
	if e.Detail != "" {
		ev.Props.SetText(ical.PropDescription, strings.TrimSpace(description(b.opts, s, e.Kind)+"\n"+e.Detail))
	}
	b.finish(ev)
	b.stats.Exams++
}

func (b *builder) event(s domain.Section, kind domain.MeetingKind, key string) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uuid.NewSHA1(uidNamespace, []byte(fmt.Sprintf("%d|%s", s.SectionID, key))).String())
	ev.Props.SetDateTime(ical.PropDateTimeStamp, b.opts.Now.UTC())
	ev.Props.SetText(ical.PropSummary, title(b.opts, s, kind))
	if desc := description(b.opts, s, kind); desc != "" {
		ev.Props.SetText(ical.PropDescription, desc)
	}
	if b.opts.IncludeRoom {
		if room := room(s, kind); room != "" {
			ev.Props.SetText(ical.PropLocation, room)
		}
	}
	return ev
}

func (b *builder) finish(ev *ical.Event) {
	if b.opts.ReminderMinutes > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = fmt.Sprintf("-PT%dM", b.opts.ReminderMinutes)
		alarm.Props.Set(trigger)
		alarm.Props.SetText(ical.PropDescription, "Reminder")
		ev.Children = append(ev.Children, alarm)
	}
	b.cal.Children = append(b.cal.Children, ev.Component)
}

func title(opts Options, s domain.Section, kind domain.MeetingKind) string {
	parts := make([]string, 0, len(opts.TitleFields))
	for _, f := range opts.TitleFields {
		var v string
		switch f {
		case FieldCode:
			v = s.CourseCode
			if kind == domain.MeetingLab && s.LabCourseCode != "" {
				v = s.LabCourseCode
			}
		case FieldName:
			v = s.CourseName
		case FieldSection:
			v = s.SectionName
		case FieldType:
			v = kindLabel(s, kind)
		}
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, opts.Separator)
}

func kindLabel(s domain.Section, kind domain.MeetingKind) string {
	switch kind {
	case domain.MeetingLab:
		return "Lab"
	case domain.MeetingMidExam:
		return "Mid Exam"
	case domain.MeetingFinalExam:
		return "Final Exam"
	}
	return domain.CoalesceStr(s.SectionType, "Class")
}

func description(opts Options, s domain.Section, kind domain.MeetingKind) string {
	if !opts.IncludeFaculty {
		return ""
	}
	faculty := s.Faculties
	if kind == domain.MeetingLab {
		faculty = domain.CoalesceStr(s.LabFaculties, s.Faculties)
	}
	if faculty == "" {
		return ""
	}
	return "Faculty: " + faculty
}

func room(s domain.Section, kind domain.MeetingKind) string {
	switch kind {
	case domain.MeetingLab:
		return domain.CoalesceStr(s.LabRoomName, s.RoomName)
	case domain.MeetingMidExam, domain.MeetingFinalExam:
		return ""
	}
	return domain.CoalesceStr(s.RoomName, s.RoomNumber)
}

// offsets parses start and end clocks. A missing or non-increasing end falls
// back to a fixed duration.
func offsets(start, end string) (time.Duration, time.Duration, bool) {
	s, err := domain.ParseClock(start)
	if err != nil {
		return 0, 0, false
	}
	e, err := domain.ParseClock(end)
	if err != nil || e <= s {
		e = s + defaultDuration
	}
	return s, e, true
}

func firstOnOrAfter(from time.Time, day time.Weekday) time.Time {
	diff := (int(day) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, diff)
}

func byDay(d domain.Weekday) string {
	return strings.ToUpper(string(d)[:2])
}
