package sla

import (
	"time"

	"github.com/rickar/cal/v2"
)

// DeadlineCalculator turns a minute budget into a concrete deadline.
type DeadlineCalculator interface {
	Add(start time.Time, minutes int) time.Time
}

// WallClockCalculator counts every minute, weekends included.
type WallClockCalculator struct{}

func (WallClockCalculator) Add(start time.Time, minutes int) time.Time {
	return start.Add(time.Duration(minutes) * time.Minute)
}

// BusinessHoursCalculator counts only working minutes, so a budget that
// starts Friday afternoon lands on Monday instead of burning over the
// weekend.
type BusinessHoursCalculator struct {
	calendar *cal.BusinessCalendar
}

// NewBusinessHoursCalculator builds a Monday-Friday calendar with the given
// working window (hours in local day time, e.g. 9 and 17).
func NewBusinessHoursCalculator(workStartHour, workEndHour int) *BusinessHoursCalculator {
	c := cal.NewBusinessCalendar()
	c.SetWorkHours(time.Duration(workStartHour)*time.Hour, time.Duration(workEndHour)*time.Hour)
	c.SetWorkday(time.Saturday, false)
	c.SetWorkday(time.Sunday, false)
	return &BusinessHoursCalculator{calendar: c}
}

func (b *BusinessHoursCalculator) Add(start time.Time, minutes int) time.Time {
	return b.calendar.AddWorkHours(start, time.Duration(minutes)*time.Minute)
}
