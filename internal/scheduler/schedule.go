package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextRun computes when a recurring rule fires next, given its schedule
// string and a base time. Supported forms:
//
//	@daily            next midnight
//	@weekly           next Sunday at midnight
//	@monthly          first of the next month at midnight
//	@yearly           January 1 of the next year at midnight
//	@hourly           top of the next hour
//	@every <duration> base + duration ("d" suffix allowed for days)
func NextRun(schedule string, base time.Time) (time.Time, error) {
	schedule = strings.TrimSpace(schedule)

	switch {
	case schedule == "@yearly" || schedule == "@annually":
		return nextYear(base), nil
	case schedule == "@monthly":
		return nextMonth(base), nil
	case schedule == "@weekly":
		return nextWeek(base), nil
	case schedule == "@daily":
		return nextDay(base), nil
	case schedule == "@hourly":
		return nextHour(base), nil
	case strings.HasPrefix(schedule, "@every "):
		return nextEvery(strings.TrimPrefix(schedule, "@every "), base)
	default:
		return time.Time{}, fmt.Errorf("unsupported schedule: %q", schedule)
	}
}

// nextEvery parses intervals like "1h", "30m" or "7d". time.ParseDuration
// has no day unit, so that one is handled here.
func nextEvery(interval string, base time.Time) (time.Time, error) {
	interval = strings.TrimSpace(interval)
	if strings.HasSuffix(interval, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(interval, "d"))
		if err != nil || days <= 0 {
			return time.Time{}, fmt.Errorf("invalid interval: %q", interval)
		}
		return base.Add(time.Duration(days) * 24 * time.Hour), nil
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid interval: %q", interval)
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("interval must be positive: %q", interval)
	}
	return base.Add(d), nil
}

func nextYear(t time.Time) time.Time {
	return time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, t.Location())
}

func nextMonth(t time.Time) time.Time {
	year := t.Year()
	month := t.Month() + 1
	if month > 12 {
		month = 1
		year++
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

func nextWeek(t time.Time) time.Time {
	// Next Sunday at midnight.
	daysUntilSunday := (7 - int(t.Weekday())) % 7
	if daysUntilSunday == 0 {
		daysUntilSunday = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()+daysUntilSunday, 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

func nextHour(t time.Time) time.Time {
	return t.Add(time.Hour).Truncate(time.Hour)
}

// ValidateSchedule reports whether a schedule string is one this service
// can execute. The API layer calls it before persisting a rule.
func ValidateSchedule(schedule string) error {
	schedule = strings.TrimSpace(schedule)

	switch schedule {
	case "@yearly", "@annually", "@monthly", "@weekly", "@daily", "@hourly":
		return nil
	}

	if strings.HasPrefix(schedule, "@every ") {
		_, err := nextEvery(strings.TrimPrefix(schedule, "@every "), time.Now())
		return err
	}

	return fmt.Errorf("invalid schedule: %q (use @daily, @weekly, @monthly or @every <duration>)", schedule)
}
