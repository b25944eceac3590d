package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/repositories"
)

// LaborCalendar is a read-only in-memory labor calendar keyed by date
type LaborCalendar struct {
	days map[time.Time]entities.LaborDay
}

// NewLaborCalendar creates a calendar from the given days. A date may
// appear only once.
func NewLaborCalendar(days []entities.LaborDay) (*LaborCalendar, error) {
	c := &LaborCalendar{days: make(map[time.Time]entities.LaborDay, len(days))}
	for _, d := range days {
		d.ApplyDefaults()
		if _, dup := c.days[d.Date]; dup {
			return nil, fmt.Errorf("labor calendar: duplicate entry for %s", d.Date.Format("2006-01-02"))
		}
		c.days[d.Date] = d
	}
	return c, nil
}

// Verify interface compliance
var _ repositories.LaborCalendar = (*LaborCalendar)(nil)

// GetLaborDay returns a copy of the entry for the date, if any
func (c *LaborCalendar) GetLaborDay(date time.Time) (*entities.LaborDay, bool) {
	d, ok := c.days[entities.Day(date)]
	if !ok {
		return nil, false
	}
	return &d, true
}

// Days returns every entry in date order
func (c *LaborCalendar) Days() []entities.LaborDay {
	out := make([]entities.LaborDay, 0, len(c.days))
	for _, d := range c.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// StandardWeek builds a calendar for [start, end] with fixed hours on
// weekdays and non-fixed weekends, using the same rates every week
func StandardWeek(start, end time.Time, fixedHours, regularRate, overtimeRate, nonFixedRate float64) *LaborCalendar {
	days := make([]entities.LaborDay, 0)
	for _, date := range entities.DateRange(start, end) {
		day := entities.LaborDay{
			Date:         date,
			RegularRate:  regularRate,
			OvertimeRate: overtimeRate,
			NonFixedRate: nonFixedRate,
		}
		if date.Weekday() != time.Saturday && date.Weekday() != time.Sunday {
			day.FixedHours = fixedHours
		}
		days = append(days, day)
	}
	cal, _ := NewLaborCalendar(days)
	return cal
}
