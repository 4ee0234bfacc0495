package domain

import (
	"fmt"
	"sort"
	"time"
)

// ScheduleConfig is the validated, immutable recurrence policy.
type ScheduleConfig struct {
	triggerHours []int
	location     *time.Location
}

// NewScheduleConfig validates trigger hours and binds them to a location.
func NewScheduleConfig(hours []int, loc *time.Location) (ScheduleConfig, error) {
	if len(hours) == 0 {
		return ScheduleConfig{}, fmt.Errorf("%w: no trigger hours", ErrInvalidSchedule)
	}
	if loc == nil {
		return ScheduleConfig{}, fmt.Errorf("%w: timezone is not set", ErrInvalidSchedule)
	}

	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	for i, h := range sorted {
		if h < 0 || h > 23 {
			return ScheduleConfig{}, fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidSchedule, h)
		}
		if i > 0 && sorted[i-1] == h {
			return ScheduleConfig{}, fmt.Errorf("%w: duplicate hour %d", ErrInvalidSchedule, h)
		}
	}

	return ScheduleConfig{triggerHours: sorted, location: loc}, nil
}

// TriggerHours returns a copy of the sorted trigger hours.
func (c ScheduleConfig) TriggerHours() []int {
	return append([]int(nil), c.triggerHours...)
}

// Location is the timezone every trigger hour is expressed in.
func (c ScheduleConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Next satisfies cron.Schedule so the policy can drive a cron runner.
func (c ScheduleConfig) Next(t time.Time) time.Time {
	return c.NextRunAt(t)
}

// NextRunAt returns the first trigger instant strictly after now. When every
// trigger hour of today has passed it rolls over to the first hour of the
// next calendar day in the same location.
func (c ScheduleConfig) NextRunAt(now time.Time) time.Time {
	loc := c.Location()
	local := now.In(loc)
	y, m, d := local.Date()

	for _, h := range c.triggerHours {
		candidate := time.Date(y, m, d, h, 0, 0, 0, loc)
		if candidate.After(local) {
			return candidate
		}
	}

	first := 0
	if len(c.triggerHours) > 0 {
		first = c.triggerHours[0]
	}
	// time.Date normalises d+1 across month and year ends.
	return time.Date(y, m, d+1, first, 0, 0, 0, loc)
}
