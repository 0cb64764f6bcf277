package models

// PatternKind is the tagged form of a recurrence pattern type.
type PatternKind int

const (
	PatternUnrecognized PatternKind = iota
	PatternDaily
	PatternWeekly
	PatternAbsoluteMonthly
	PatternRelativeMonthly
	PatternAbsoluteYearly
	PatternRelativeYearly
)

// ParsePatternKind maps the remote pattern type string onto a [PatternKind].
func ParsePatternKind(s string) PatternKind {
	switch s {
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "absoluteMonthly":
		return PatternAbsoluteMonthly
	case "relativeMonthly":
		return PatternRelativeMonthly
	case "absoluteYearly":
		return PatternAbsoluteYearly
	case "relativeYearly":
		return PatternRelativeYearly
	default:
		return PatternUnrecognized
	}
}

func (k PatternKind) String() string {
	switch k {
	case PatternDaily:
		return "daily"
	case PatternWeekly:
		return "weekly"
	case PatternAbsoluteMonthly:
		return "absoluteMonthly"
	case PatternRelativeMonthly:
		return "relativeMonthly"
	case PatternAbsoluteYearly:
		return "absoluteYearly"
	case PatternRelativeYearly:
		return "relativeYearly"
	default:
		return ""
	}
}

// RecurrencePattern describes how often a task repeats.
//
// Type keeps the raw remote string so unknown patterns survive a JSON export unchanged.
type RecurrencePattern struct {
	Type           string   `json:"type,omitempty"`
	Interval       int      `json:"interval,omitempty"`
	DaysOfWeek     []string `json:"daysOfWeek,omitempty"`
	DayOfMonth     int      `json:"dayOfMonth,omitempty"`
	Index          string   `json:"index,omitempty"`
	Month          int      `json:"month,omitempty"`
	FirstDayOfWeek string   `json:"firstDayOfWeek,omitempty"`
}

// Kind returns the tagged pattern type.
func (p RecurrencePattern) Kind() PatternKind {
	return ParsePatternKind(p.Type)
}

// EffectiveInterval returns the interval, defaulting to 1 when unset.
func (p RecurrencePattern) EffectiveInterval() int {
	if p.Interval < 1 {
		return 1
	}
	return p.Interval
}

// RecurrenceRange bounds a recurrence. It is carried through to JSON exports only.
type RecurrenceRange struct {
	Type                string `json:"type,omitempty"`
	StartDate           string `json:"startDate,omitempty"`
	EndDate             string `json:"endDate,omitempty"`
	NumberOfOccurrences int    `json:"numberOfOccurrences,omitempty"`
	RecurrenceTimeZone  string `json:"recurrenceTimeZone,omitempty"`
}

// Recurrence is the remote recurrence envelope.
type Recurrence struct {
	Pattern RecurrencePattern `json:"pattern"`
	Range   *RecurrenceRange  `json:"range,omitempty"`
}
