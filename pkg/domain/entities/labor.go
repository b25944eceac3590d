package entities

import (
	"fmt"
	"time"
)

const (
	DefaultOvertimeCap  = 2.0
	DefaultNonFixedCap  = 14.0
	DefaultMinimumHours = 4.0
)

// LaborDay is the labor calendar entry for one date
type LaborDay struct {
	Date         time.Time
	FixedHours   float64 // straight-time hours; 0 marks a non-fixed (premium) day
	RegularRate  float64
	OvertimeRate float64
	NonFixedRate float64
	MinimumHours float64 // minimum payable hours when producing on a non-fixed day
	OvertimeCap  float64 // overtime hours allowed on top of fixed hours
	NonFixedCap  float64 // total hours allowed on a non-fixed day
}

// NewLaborDay creates a validated LaborDay with default caps applied
func NewLaborDay(date time.Time, fixedHours, regularRate, overtimeRate, nonFixedRate, minimumHours float64) (*LaborDay, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("labor date cannot be empty")
	}
	for name, v := range map[string]float64{
		"fixed hours":    fixedHours,
		"regular rate":   regularRate,
		"overtime rate":  overtimeRate,
		"non-fixed rate": nonFixedRate,
		"minimum hours":  minimumHours,
	} {
		if v < 0 {
			return nil, fmt.Errorf("labor day %s: %s cannot be negative, got %g", date.Format("2006-01-02"), name, v)
		}
	}

	day := &LaborDay{
		Date:         Day(date),
		FixedHours:   fixedHours,
		RegularRate:  regularRate,
		OvertimeRate: overtimeRate,
		NonFixedRate: nonFixedRate,
		MinimumHours: minimumHours,
	}
	day.ApplyDefaults()
	return day, nil
}

// ApplyDefaults fills zero caps with the standard values
func (l *LaborDay) ApplyDefaults() {
	l.Date = Day(l.Date)
	if l.OvertimeCap == 0 {
		l.OvertimeCap = DefaultOvertimeCap
	}
	if l.NonFixedCap == 0 {
		l.NonFixedCap = DefaultNonFixedCap
	}
	if l.MinimumHours == 0 && l.FixedHours == 0 {
		l.MinimumHours = DefaultMinimumHours
	}
}

// IsFixedDay reports whether the date has straight-time hours
func (l LaborDay) IsFixedDay() bool {
	return l.FixedHours > 0
}

// MaxHours returns the hard ceiling of labor hours on the date
func (l LaborDay) MaxHours() float64 {
	if l.IsFixedDay() {
		return l.FixedHours + l.OvertimeCap
	}
	return l.NonFixedCap
}
