package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/validate"
)

const dateLayout = "2006-01-02"

// ValidateCatalog checks the catalog before import. It returns every error
// found, one per offending section field.
func ValidateCatalog(cat *CatalogFile) []error {
	var errs []error
	if len(cat.Sections) == 0 {
		return []error{fmt.Errorf("catalog has no sections")}
	}

	seen := make(map[int]int, len(cat.Sections))
	for i := range cat.Sections {
		s := &cat.Sections[i]
		prefix := fmt.Sprintf("sections[%d]", i)

		if err := validate.Struct(s); err != nil {
			errs = append(errs, fmt.Errorf("%s.%s", prefix, validate.FirstError(err)))
		}
		if first, dup := seen[s.SectionID]; dup && s.SectionID != 0 {
			errs = append(errs, fmt.Errorf("%s: duplicate sectionId %d (first at sections[%d])", prefix, s.SectionID, first))
		} else {
			seen[s.SectionID] = i
		}
		errs = append(errs, validateDates(prefix, s.Schedule.ClassStartDate, s.Schedule.ClassEndDate, s.Schedule.MidExamDate, s.Schedule.FinalExamDate)...)

		if s.Schedule.ClassStartDate != "" && s.Schedule.ClassEndDate != "" {
			start, startErr := time.Parse(dateLayout, s.Schedule.ClassStartDate)
			end, endErr := time.Parse(dateLayout, s.Schedule.ClassEndDate)
			if startErr == nil && endErr == nil && end.Before(start) {
				errs = append(errs, fmt.Errorf("%s: classEndDate %q is before classStartDate %q", prefix, s.Schedule.ClassEndDate, s.Schedule.ClassStartDate))
			}
		}
	}
	return errs
}

func validateDates(prefix string, dates ...string) []error {
	var errs []error
	for _, d := range dates {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid date format %q (expected YYYY-MM-DD)", prefix, d))
		}
	}
	return errs
}
