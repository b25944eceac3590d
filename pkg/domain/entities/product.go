package entities

import "fmt"

// ProductID identifies a product (SKU)
type ProductID string

// DefaultUnitsPerPallet applies when a product does not declare its own
const DefaultUnitsPerPallet = 320

// Product is a producible SKU
type Product struct {
	ID             ProductID
	Name           string
	MixSize        int // units per production batch
	UnitsPerPallet int
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, name string, mixSize, unitsPerPallet int) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if mixSize <= 0 {
		return nil, fmt.Errorf("product %s: mix size must be positive, got %d", id, mixSize)
	}
	if unitsPerPallet < 0 {
		return nil, fmt.Errorf("product %s: units per pallet cannot be negative, got %d", id, unitsPerPallet)
	}

	return &Product{
		ID:             id,
		Name:           name,
		MixSize:        mixSize,
		UnitsPerPallet: unitsPerPallet,
	}, nil
}

// PalletUnits returns the units per pallet with the default applied
func (p Product) PalletUnits() int {
	if p.UnitsPerPallet > 0 {
		return p.UnitsPerPallet
	}
	return DefaultUnitsPerPallet
}
