package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
)

// lastDayThreshold is the dayOfMonth from which a monthly pattern is read as "last day of the month".
const lastDayThreshold = 28

// TranslateRecurrence renders a recurrence pattern as a Todoist natural-language schedule,
// e.g. "every 2 weeks on Tuesday".
//
// Unknown pattern types log a warning and fall back to "every {interval} {type}".
func TranslateRecurrence(p models.RecurrencePattern) string {
	interval := p.EffectiveInterval()

	switch p.Kind() {
	case models.PatternDaily:
		return every(interval, "day", "days")
	case models.PatternWeekly:
		if len(p.DaysOfWeek) == 0 {
			return every(interval, "week", "weeks")
		}
		days := joinDays(p.DaysOfWeek)
		if interval == 1 {
			return "every " + days
		}
		return fmt.Sprintf("every %d weeks on %s", interval, days)
	case models.PatternAbsoluteMonthly:
		if p.DayOfMonth >= lastDayThreshold {
			return lastDayOfMonth(interval)
		}
		if interval == 1 {
			return fmt.Sprintf("every month on the %d", p.DayOfMonth)
		}
		return fmt.Sprintf("every %d months on the %d", interval, p.DayOfMonth)
	case models.PatternRelativeMonthly:
		if p.Index == "last" && len(p.DaysOfWeek) == 0 {
			return lastDayOfMonth(interval)
		}
		// interval is not rendered here: "every first Monday" regardless of interval.
		return fmt.Sprintf("every %s %s", p.Index, joinDays(p.DaysOfWeek))
	case models.PatternAbsoluteYearly, models.PatternRelativeYearly:
		return every(interval, "year", "years")
	case models.PatternUnrecognized:
		if p.Type != "" {
			log.Warn("unknown recurrence pattern", "type", p.Type)
		}
		return fallback(p, interval)
	default:
		return fallback(p, interval)
	}
}

func fallback(p models.RecurrencePattern, interval int) string {
	unit := p.Type
	if unit == "" {
		unit = "day"
	}
	return fmt.Sprintf("every %d %s", interval, unit)
}

func every(interval int, singular, plural string) string {
	if interval == 1 {
		return "every " + singular
	}
	return fmt.Sprintf("every %d %s", interval, plural)
}

func lastDayOfMonth(interval int) string {
	if interval == 1 {
		return "every month on the last day"
	}
	return fmt.Sprintf("every %d months on the last day", interval)
}

// joinDays capitalizes weekday names and joins them with " and ".
func joinDays(days []string) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = capitalize(d)
	}
	return strings.Join(names, " and ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
