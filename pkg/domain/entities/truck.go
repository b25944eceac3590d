package entities

import (
	"fmt"
	"time"
)

// TruckSchedule is a recurring outbound truck
type TruckSchedule struct {
	ID             string
	Origin         NodeID // empty matches any origin
	Destination    NodeID
	DayOfWeek      *time.Weekday // nil = runs every day
	UnitCapacity   float64
	PalletCapacity int
	FixedCost      float64
	CostPerUnit    float64
}

// NewTruckSchedule creates a validated TruckSchedule
func NewTruckSchedule(id string, origin, destination NodeID, dayOfWeek *time.Weekday, unitCapacity float64, palletCapacity int) (*TruckSchedule, error) {
	if id == "" {
		return nil, fmt.Errorf("truck id cannot be empty")
	}
	if destination == "" {
		return nil, fmt.Errorf("truck %s: destination cannot be empty", id)
	}
	if unitCapacity <= 0 {
		return nil, fmt.Errorf("truck %s: unit capacity must be positive, got %g", id, unitCapacity)
	}
	if palletCapacity < 0 {
		return nil, fmt.Errorf("truck %s: pallet capacity cannot be negative, got %d", id, palletCapacity)
	}

	return &TruckSchedule{
		ID:             id,
		Origin:         origin,
		Destination:    destination,
		DayOfWeek:      dayOfWeek,
		UnitCapacity:   unitCapacity,
		PalletCapacity: palletCapacity,
	}, nil
}

// RunsOn reports whether the truck may be used on the given date
func (t TruckSchedule) RunsOn(date time.Time) bool {
	return t.DayOfWeek == nil || date.Weekday() == *t.DayOfWeek
}

// Serves reports whether the truck can carry goods along the route
func (t TruckSchedule) Serves(r Route) bool {
	return t.Destination == r.Destination && (t.Origin == "" || t.Origin == r.Origin)
}
