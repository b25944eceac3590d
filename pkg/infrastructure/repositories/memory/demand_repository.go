package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/repositories"
)

// DemandRepository provides in-memory demand storage, aggregated by
// (node, product, date)
type DemandRepository struct {
	demand map[entities.DemandKey]float64
	mutex  sync.RWMutex
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		demand: make(map[entities.DemandKey]float64),
	}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// LoadDemand adds entries to the repository; duplicates sum
func (r *DemandRepository) LoadDemand(entries []entities.DemandEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, e := range entries {
		if e.Quantity < 0 {
			return fmt.Errorf("demand entry %d: quantity cannot be negative, got %g", i, e.Quantity)
		}
		r.demand[e.Key()] += e.Quantity
	}
	return nil
}

// GetDemand returns aggregated demand dated inside [start, end]
func (r *DemandRepository) GetDemand(start, end time.Time) ([]entities.DemandEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	start, end = entities.Day(start), entities.Day(end)
	entries := make([]entities.DemandEntry, 0, len(r.demand))
	for k, qty := range r.demand {
		if k.Date.Before(start) || k.Date.After(end) {
			continue
		}
		entries = append(entries, entities.DemandEntry{Node: k.Node, Product: k.Product, Date: k.Date, Quantity: qty})
	}
	return entities.AggregateDemand(entries), nil
}

// Total returns the total demand held
func (r *DemandRepository) Total() float64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var total float64
	for _, qty := range r.demand {
		total += qty
	}
	return total
}
