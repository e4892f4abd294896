package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/libstats/internal/shared"
)

// Policy selects how records are bucketed.
type Policy string

const (
	ByDay     Policy = "day"
	ByMonth   Policy = "month"
	ByYear    Policy = "year"
	ByWeekday Policy = "weekday"
	ByGenre   Policy = "genre"
)

// Policies lists every policy in display order.
var Policies = []Policy{ByMonth, ByDay, ByYear, ByWeekday, ByGenre}

const (
	dayLayout   = "2-Jan-06"
	monthLayout = "Jan-06"
	yearLayout  = "2006"
)

// Weekdays are the weekday keys, Sunday first.
var Weekdays = []string{
	time.Sunday.String(),
	time.Monday.String(),
	time.Tuesday.String(),
	time.Wednesday.String(),
	time.Thursday.String(),
	time.Friday.String(),
	time.Saturday.String(),
}

// ParsePolicy returns the policy named s (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ByDay, ByMonth, ByYear, ByWeekday, ByGenre:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown policy %q (want day, month, year, weekday or genre)", shared.ErrInvalidArgument, s)
}

// Title is the chart heading for the policy.
func (p Policy) Title() string {
	switch p {
	case ByDay:
		return "Songs saved per day"
	case ByMonth:
		return "Songs saved per month"
	case ByYear:
		return "Songs saved per year"
	case ByWeekday:
		return "Songs saved per weekday"
	case ByGenre:
		return "Genres"
	default:
		return string(p)
	}
}

// Temporal reports whether the policy buckets by timestamp.
func (p Policy) Temporal() bool {
	return p != ByGenre
}

// Key formats t for a temporal policy in loc.
func (p Policy) Key(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	switch p {
	case ByDay:
		return t.Format(dayLayout)
	case ByMonth:
		return t.Format(monthLayout)
	case ByYear:
		return t.Format(yearLayout)
	case ByWeekday:
		return t.Weekday().String()
	default:
		return ""
	}
}
