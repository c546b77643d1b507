package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day name as delivered by the catalog, normalized to upper case.
type Weekday string

const (
	Sunday    Weekday = "SUNDAY"
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
)

// Weekdays lists the week in display order.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday accepts any casing of a full English day name.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

func (d Weekday) Valid() bool {
	for _, w := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// UnmarshalText normalizes casing so "Monday" and "MONDAY" compare equal.
func (d *Weekday) UnmarshalText(b []byte) error {
	*d = Weekday(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}

// Title returns the day as "Monday".
func (d Weekday) Title() string {
	s := string(d)
	if s == "" {
		return ""
	}
	return s[:1] + strings.ToLower(s[1:])
}

// Short returns a three-letter label such as "Mon".
func (d Weekday) Short() string {
	t := d.Title()
	if len(t) < 3 {
		return t
	}
	return t[:3]
}

// TimeWeekday converts to the standard library weekday. Unknown days map to Sunday.
func (d Weekday) TimeWeekday() time.Weekday {
	for i, w := range Weekdays {
		if w == d {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}
