package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/repositories"
)

// InventoryRepository holds the initial inventory snapshot in memory
type InventoryRepository struct {
	snapshot *entities.InventorySnapshot
	mutex    sync.RWMutex
}

// NewInventoryRepository creates a new empty inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadSnapshot stores the snapshot, merging duplicate (node, product, state)
// entries by summing their quantities
func (r *InventoryRepository) LoadSnapshot(snapshot entities.InventorySnapshot) error {
	type key struct {
		node     entities.NodeID
		product  entities.ProductID
		state    entities.State
		explicit bool
	}

	merged := make([]entities.InventoryEntry, 0, len(snapshot.Entries))
	positions := make(map[key]int, len(snapshot.Entries))
	for i, e := range snapshot.Entries {
		if e.Quantity < 0 {
			return fmt.Errorf("inventory entry %d: quantity cannot be negative, got %g", i, e.Quantity)
		}
		k := key{node: e.Node, product: e.Product}
		if e.State != nil {
			k.state, k.explicit = *e.State, true
		}
		if pos, ok := positions[k]; ok {
			merged[pos].Quantity += e.Quantity
			continue
		}
		positions[k] = len(merged)
		merged = append(merged, e)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	snapshot.SnapshotDate = entities.Day(snapshot.SnapshotDate)
	snapshot.Entries = merged
	r.snapshot = &snapshot
	return nil
}

// GetSnapshot returns the stored snapshot, or nil when none was loaded
func (r *InventoryRepository) GetSnapshot() (*entities.InventorySnapshot, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.snapshot == nil {
		return nil, nil
	}
	copied := *r.snapshot
	copied.Entries = append([]entities.InventoryEntry(nil), r.snapshot.Entries...)
	return &copied, nil
}
