package repositories

import "github.com/vsinha/distplan/pkg/domain/entities"

// InventoryRepository provides the initial stock position
type InventoryRepository interface {
	GetSnapshot() (*entities.InventorySnapshot, error)
	LoadSnapshot(snapshot entities.InventorySnapshot) error
}
