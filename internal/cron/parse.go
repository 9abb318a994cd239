package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDuration handles "@every 5m" style interval schedules.
func parseDuration(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if !strings.HasPrefix(spec, "@every ") {
		return 0, fmt.Errorf("not an interval spec")
	}
	d, err := time.ParseDuration(strings.TrimPrefix(spec, "@every "))
	if err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, fmt.Errorf("interval %s too short, minimum 1s", d)
	}
	return d, nil
}

// cronFields is a parsed 5-field cron expression:
// minute, hour, day-of-month, month, day-of-week.
type cronFields struct {
	minutes    []int // 0-59
	hours      []int // 0-23
	daysOfMon  []int // 1-31
	months     []int // 1-12
	daysOfWeek []int // 0-6, 0=Sunday
}

func parseCronFields(spec string) (cronFields, error) {
	parts := strings.Fields(strings.TrimSpace(spec))
	if len(parts) != 5 {
		return cronFields{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}

	minutes, err := parseField(parts[0], 0, 59)
	if err != nil {
		return cronFields{}, fmt.Errorf("minute field: %w", err)
	}
	hours, err := parseField(parts[1], 0, 23)
	if err != nil {
		return cronFields{}, fmt.Errorf("hour field: %w", err)
	}
	dom, err := parseField(parts[2], 1, 31)
	if err != nil {
		return cronFields{}, fmt.Errorf("day-of-month field: %w", err)
	}
	months, err := parseField(parts[3], 1, 12)
	if err != nil {
		return cronFields{}, fmt.Errorf("month field: %w", err)
	}
	dow, err := parseField(parts[4], 0, 7)
	if err != nil {
		return cronFields{}, fmt.Errorf("day-of-week field: %w", err)
	}

	return cronFields{
		minutes:    minutes,
		hours:      hours,
		daysOfMon:  dom,
		months:     months,
		daysOfWeek: normalizeWeekdays(dow),
	}, nil
}

// normalizeWeekdays folds 7 (also Sunday) into 0 and dedups.
func normalizeWeekdays(vals []int) []int {
	seen := make(map[int]bool, len(vals))
	var out []int
	for _, v := range vals {
		if v == 7 {
			v = 0
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// parseField parses a single cron field: "*", "*/5", "1,3,5", "1-10/2".
func parseField(field string, min, max int) ([]int, error) {
	var result []int

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step := 1
		if idx := strings.Index(part, "/"); idx >= 0 {
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step in %q", field)
			}
			step = s
			part = part[:idx]
		}

		if part == "*" {
			for i := min; i <= max; i += step {
				result = append(result, i)
			}
			continue
		}

		if idx := strings.Index(part, "-"); idx > 0 {
			lo, err := strconv.Atoi(part[:idx])
			if err != nil {
				return nil, fmt.Errorf("invalid range in %q", field)
			}
			hi, err := strconv.Atoi(part[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid range in %q", field)
			}
			if lo < min || hi > max || lo > hi {
				return nil, fmt.Errorf("range %d-%d out of bounds [%d,%d]", lo, hi, min, max)
			}
			for i := lo; i <= hi; i += step {
				result = append(result, i)
			}
			continue
		}

		val, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		if val < min || val > max {
			return nil, fmt.Errorf("value %d out of bounds [%d,%d]", val, min, max)
		}
		result = append(result, val)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("empty field")
	}
	return result, nil
}

// nextAfter returns the first time strictly after t matching the fields.
func (cf cronFields) nextAfter(t time.Time) time.Time {
	t = t.Add(time.Minute).Truncate(time.Minute)

	// Four years of minutes bounds the scan for any valid expression.
	limit := t.Add(4 * 365 * 24 * time.Hour)
	for t.Before(limit) {
		if cf.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return t
}

func (cf cronFields) matches(t time.Time) bool {
	return contains(cf.minutes, t.Minute()) &&
		contains(cf.hours, t.Hour()) &&
		contains(cf.daysOfMon, t.Day()) &&
		contains(cf.months, int(t.Month())) &&
		contains(cf.daysOfWeek, int(t.Weekday()))
}

func contains(vals []int, v int) bool {
	for _, val := range vals {
		if val == v {
			return true
		}
	}
	return false
}
