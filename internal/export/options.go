package export

import (
	"fmt"
	"strings"
	"time"
)

// TitleField is one component of an event title.
type TitleField string

const (
	FieldCode    TitleField = "code"
	FieldName    TitleField = "name"
	FieldSection TitleField = "section"
	FieldType    TitleField = "type"
)

// Options controls what an export contains and how events are labelled.
type Options struct {
	TitleFields     []TitleField
	Separator       string
	IncludeLabs     bool
	IncludeExams    bool
	IncludeFaculty  bool
	IncludeRoom     bool
	ReminderMinutes int
	// From and To (YYYY-MM-DD) override each section's class date range.
	From string
	To   string
	// Location is the zone catalog times are expressed in.
	Location *time.Location
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

func DefaultOptions() Options {
	return Options{
		TitleFields:    []TitleField{FieldCode, FieldSection},
		Separator:      " - ",
		IncludeLabs:    true,
		IncludeExams:   true,
		IncludeFaculty: true,
		IncludeRoom:    true,
		Location:       time.UTC,
	}
}

// ParseTitleFields validates field names such as "code" or "name".
func ParseTitleFields(names []string) ([]TitleField, error) {
	out := make([]TitleField, 0, len(names))
	for _, n := range names {
		f := TitleField(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FieldCode, FieldName, FieldSection, FieldType:
			out = append(out, f)
		case "":
		default:
			return nil, fmt.Errorf("unknown title field %q (want code, name, section or type)", n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one title field is required")
	}
	return out, nil
}

func (o Options) validate() error {
	if o.ReminderMinutes < 0 {
		return fmt.Errorf("reminder minutes must not be negative")
	}
	if (o.From == "") != (o.To == "") {
		return fmt.Errorf("custom date range needs both from and to")
	}
	if o.From != "" {
		from, err := time.Parse(dateLayout, o.From)
		if err != nil {
			return fmt.Errorf("invalid from date %q (expected YYYY-MM-DD)", o.From)
		}
		to, err := time.Parse(dateLayout, o.To)
		if err != nil {
			return fmt.Errorf("invalid to date %q (expected YYYY-MM-DD)", o.To)
		}
		if to.Before(from) {
			return fmt.Errorf("to date %s is before from date %s", o.To, o.From)
		}
	}
	return nil
}
