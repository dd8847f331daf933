package engine

import (
	"time"

	"github.com/ukydev/freight-dispatch/internal/apperr"
)

// DateLayout is the calendar-day format accepted by ParseDateRange.
const DateLayout = "2006-01-02"

// DateRange is an inclusive filter on whole UTC days. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange builds a range from two optional YYYY-MM-DD strings.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if from != "" {
		start, err := time.Parse(DateLayout, from)
		if err != nil {
			return DateRange{}, apperr.E(apperr.Validation, "invalid start date %q", from)
		}
		r.Start = &start
	}
	if to != "" {
		end, err := time.Parse(DateLayout, to)
		if err != nil {
			return DateRange{}, apperr.E(apperr.Validation, "invalid end date %q", to)
		}
		r.End = &end
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return DateRange{}, apperr.E(apperr.Validation, "end date %s is before start date %s", to, from)
	}
	return r, nil
}

// Contains reports whether t falls between 00:00:00.000 UTC of the start day
// and 23:59:59.999 UTC of the end day.
func (r DateRange) Contains(t time.Time) bool {
	t = t.UTC()
	if r.Start != nil {
		y, m, d := r.Start.UTC().Date()
		if t.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	if r.End != nil {
		y, m, d := r.End.UTC().Date()
		if t.After(time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)) {
			return false
		}
	}
	return true
}
