package entities

import (
	"fmt"
	"time"
)

// InventoryEntry is the on-hand quantity of a product at a node
type InventoryEntry struct {
	Node     NodeID
	Product  ProductID
	Quantity float64
	State    *State // nil = inferred from the node's storage
}

// InventorySnapshot is the stock position as of SnapshotDate
type InventorySnapshot struct {
	SnapshotDate   time.Time
	AssumedAgeDays int // age of the stock on the snapshot date
	Entries        []InventoryEntry
}

// NewInventoryEntry creates a validated InventoryEntry
func NewInventoryEntry(node NodeID, product ProductID, quantity float64) (*InventoryEntry, error) {
	if node == "" {
		return nil, fmt.Errorf("inventory node cannot be empty")
	}
	if product == "" {
		return nil, fmt.Errorf("inventory product cannot be empty")
	}
	if quantity < 0 {
		return nil, fmt.Errorf("inventory quantity cannot be negative, got %g", quantity)
	}

	return &InventoryEntry{Node: node, Product: product, Quantity: quantity}, nil
}

// EffectiveProductionDate is the date the snapshot stock is assumed to have
// been produced: the snapshot date minus the assumed age
func (s InventorySnapshot) EffectiveProductionDate() time.Time {
	return AddDays(s.SnapshotDate, -s.AssumedAgeDays)
}

// InferState returns the state stock is held in at a node with the given storage
func InferState(storage StateSet) State {
	switch {
	case storage.Has(Frozen) && !storage.Has(Ambient) && !storage.Has(Thawed):
		return Frozen
	case !storage.Has(Ambient) && storage.Has(Thawed):
		return Thawed
	default:
		return Ambient
	}
}

// StateAt returns the entry's explicit state or the one inferred from storage
func (e InventoryEntry) StateAt(storage StateSet) State {
	if e.State != nil {
		return *e.State
	}
	return InferState(storage)
}
