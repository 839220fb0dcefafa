// Package dateutils provides common date and time operations used throughout the application.
package dateutils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/textutils"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutBrazilian = "02/01/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
)

// CommonFormats is a list of standard formats to try when parsing exact dates
var CommonFormats = []string{
	DateLayoutBrazilian,
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02-01-2006",
	"02.01.2006",
	DateLayoutISO,
	DateLayoutFull,
}

// dayMonthFormats have no year; the year of the reference date is assumed
var dayMonthFormats = []string{"02/01", "2/1", "02-01", "2-1"}

var (
	spacePattern    = regexp.MustCompile(`\s+`)
	daysAgoPattern  = regexp.MustCompile(`^(?:ha|faz)\s+(\d{1,3})\s+dias?$|^(\d{1,3})\s+dias?\s+atras$`)
	dayOfMonthRegex = regexp.MustCompile(`^(?:no\s+)?dia\s+(\d{1,2})$`)
)

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

// ParseDate parses an exact or relative date phrase relative to now.
// The result is midnight of the resolved day in now's location.
//
// Relative phrases: hoje, ontem, anteontem, amanhã, "há 3 dias", "3 dias atrás",
// "semana passada", "mês passado", weekday names (most recent occurrence,
// today included) and "dia 15" (most recent 15th).
func ParseDate(dateStr string, now time.Time) (time.Time, error) {
	clean := CleanDateString(dateStr)
	if clean == "" {
		return time.Time{}, flowerror.NewInputError("date", dateStr, flowerror.ErrEmptyInput)
	}

	today := StartOfDay(now)

	if t, ok := parseRelative(textutils.Fold(clean), today); ok {
		return t, nil
	}

	for _, format := range CommonFormats {
		if t, err := time.ParseInLocation(format, clean, now.Location()); err == nil {
			return StartOfDay(t), nil
		}
	}

	for _, format := range dayMonthFormats {
		if t, err := time.ParseInLocation(format, clean, now.Location()); err == nil {
			d := time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
			if d.Month() != t.Month() {
				break
			}
			return d, nil
		}
	}

	return time.Time{}, flowerror.NewInputError("date", dateStr, fmt.Errorf("unrecognized date"))
}

func parseRelative(phrase string, today time.Time) (time.Time, bool) {
	phrase = strings.TrimPrefix(phrase, "foi ")
	switch phrase {
	case "hoje", "agora", "hj":
		return today, true
	case "ontem":
		return today.AddDate(0, 0, -1), true
	case "anteontem", "antes de ontem":
		return today.AddDate(0, 0, -2), true
	case "amanha":
		return today.AddDate(0, 0, 1), true
	case "semana passada":
		return today.AddDate(0, 0, -7), true
	case "mes passado":
		return AddMonthsClamped(today, -1), true
	}

	if m := daysAgoPattern.FindStringSubmatch(phrase); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		days, err := strconv.Atoi(n)
		if err != nil {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, -days), true
	}

	if m := dayOfMonthRegex.FindStringSubmatch(phrase); m != nil {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			return time.Time{}, false
		}
		candidate := clampDay(today.Year(), today.Month(), day, today.Location())
		if candidate.After(today) {
			prev := AddMonthsClamped(StartOfMonth(today), -1)
			candidate = clampDay(prev.Year(), prev.Month(), day, today.Location())
		}
		return candidate, true
	}

	name := strings.TrimSuffix(strings.TrimPrefix(phrase, "na "), "-feira")
	name = strings.TrimSuffix(name, " feira")
	name = strings.TrimPrefix(name, "no ")
	if wd, ok := weekdays[name]; ok {
		back := (int(today.Weekday()) - int(wd) + 7) % 7
		return today.AddDate(0, 0, -back), true
	}

	return time.Time{}, false
}

// LooksLikeDate reports whether text parses as a date phrase.
func LooksLikeDate(text string, now time.Time) bool {
	_, err := ParseDate(text, now)
	return err == nil
}

// NextDueDate returns the first day on or after from whose day of month is
// dueDay. Months shorter than dueDay use their last day.
func NextDueDate(dueDay int, from time.Time) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	if dueDay > 31 {
		dueDay = 31
	}
	start := StartOfDay(from)
	candidate := clampDay(start.Year(), start.Month(), dueDay, start.Location())
	if candidate.Before(start) {
		next := AddMonthsClamped(StartOfMonth(start), 1)
		candidate = clampDay(next.Year(), next.Month(), dueDay, start.Location())
	}
	return candidate
}

// AddMonthsClamped adds n months keeping the day of month when possible and
// clamping to the month's last day otherwise (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(date time.Time, n int) time.Time {
	first := time.Date(date.Year(), date.Month(), 1, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	target := first.AddDate(0, n, 0)
	t := clampDay(target.Year(), target.Month(), date.Day(), date.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func clampDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	last := EndOfMonth(time.Date(year, month, 1, 0, 0, 0, 0, loc)).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// FormatDate formats a date as DD/MM/YYYY
func FormatDate(date time.Time) string {
	return date.Format(DateLayoutBrazilian)
}

// DescribeDate renders a date for prompts: "hoje", "ontem" or DD/MM/YYYY.
func DescribeDate(date, now time.Time) string {
	d := StartOfDay(date.In(now.Location()))
	today := StartOfDay(now)
	switch {
	case d.Equal(today):
		return FormatDate(d) + " (hoje)"
	case d.Equal(today.AddDate(0, 0, -1)):
		return FormatDate(d) + " (ontem)"
	default:
		return FormatDate(d)
	}
}

// CleanDateString removes unwanted characters and normalizes a date string
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	return spacePattern.ReplaceAllString(dateStr, " ")
}

// StartOfDay returns midnight of date in its own location
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfMonth returns the first day of the month for a given date
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month for a given date
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}
