package entities

import "fmt"

// StorageRate holds the holding costs of one state
type StorageRate struct {
	PerUnitDay     float64 `yaml:"per_unit_day" json:"per_unit_day"`
	PerPalletFixed float64 `yaml:"per_pallet_fixed" json:"per_pallet_fixed"`
	PerPalletDay   float64 `yaml:"per_pallet_day" json:"per_pallet_day"`
}

// PalletBased reports whether the rate is charged per pallet
func (r StorageRate) PalletBased() bool {
	return r.PerPalletFixed > 0 || r.PerPalletDay > 0
}

// CostStructure holds every cost coefficient of the plan
type CostStructure struct {
	ProductionCostPerUnit  float64
	TransportCostPerUnit   float64
	Storage                map[State]StorageRate
	WasteMultiplier        float64 // applied to production cost of disposed / leftover stock
	ShortagePenaltyPerUnit float64
	ChangeoverCost         float64 // per product start
}

// Validate checks every coefficient is non-negative
func (c CostStructure) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"production cost per unit", c.ProductionCostPerUnit},
		{"transport cost per unit", c.TransportCostPerUnit},
		{"waste multiplier", c.WasteMultiplier},
		{"shortage penalty per unit", c.ShortagePenaltyPerUnit},
		{"changeover cost", c.ChangeoverCost},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("costs: %s cannot be negative, got %g", f.name, f.value)
		}
	}
	for state, rate := range c.Storage {
		if rate.PerUnitDay < 0 || rate.PerPalletFixed < 0 || rate.PerPalletDay < 0 {
			return fmt.Errorf("costs: %s storage rates cannot be negative", state)
		}
	}
	return nil
}

// StorageRateFor returns the storage rate of a state, zero if unset
func (c CostStructure) StorageRateFor(s State) StorageRate {
	if c.Storage == nil {
		return StorageRate{}
	}
	return c.Storage[s]
}

// TransportCost returns the per-unit cost of moving goods along a route
func (c CostStructure) TransportCost(r Route) float64 {
	if r.CostPerUnit > 0 {
		return r.CostPerUnit
	}
	return c.TransportCostPerUnit
}

// WasteCostPerUnit is the penalty for each unit written off or left over
func (c CostStructure) WasteCostPerUnit() float64 {
	return c.WasteMultiplier * c.ProductionCostPerUnit
}
