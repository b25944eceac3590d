package repositories

import (
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

// DemandRepository provides access to forecast demand
type DemandRepository interface {
	// GetDemand returns aggregated demand with dates inside [start, end]
	GetDemand(start, end time.Time) ([]entities.DemandEntry, error)
	LoadDemand(entries []entities.DemandEntry) error
}
