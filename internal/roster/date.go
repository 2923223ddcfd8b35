package roster

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the month/day/year layout rosters are written in.
const DateLayout = "01/02/2006"

// FormatDate renders t in DateLayout using its wall-clock date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate strips leading zeros from the month and day of a
// month/day/year string and leaves the year as written, so "03/4/2025" and
// "3/04/2025" both become "3/4/2025". Input that is not three slash
// separated parts with numeric month and day is returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return s
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return s
	}
	return strconv.Itoa(month) + "/" + strconv.Itoa(day) + "/" + strings.TrimSpace(parts[2])
}

// Matcher decides whether a roster date falls on Today.
type Matcher struct {
	Today time.Time
	// IgnoreYear compares month and day only.
	IgnoreYear bool
}

func (m Matcher) Match(raw string) bool {
	want := NormalizeDate(FormatDate(m.Today))
	got := NormalizeDate(raw)
	if !m.IgnoreYear {
		return got == want
	}
	return monthDay(got) == monthDay(want)
}

func monthDay(normalized string) string {
	i := strings.LastIndex(normalized, "/")
	if i < 0 {
		return normalized
	}
	return normalized[:i]
}
