package repositories

import (
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

// LaborCalendar looks up labor availability by date. A date with no entry
// has zero production capacity.
type LaborCalendar interface {
	GetLaborDay(date time.Time) (*entities.LaborDay, bool)
}
