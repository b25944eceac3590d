package builder

import (
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/repositories"
)

// Default maximum ages in days
const (
	DefaultAmbientShelfLife = 17
	DefaultFrozenShelfLife  = 120
	DefaultThawedShelfLife  = 14
)

// Input is everything a model is built from. Labor may be nil, in which
// case no production is possible.
type Input struct {
	Nodes     []entities.Node
	Routes    []entities.Route
	Products  []entities.Product
	Demand    []entities.DemandEntry
	Labor     repositories.LaborCalendar
	Costs     entities.CostStructure
	Trucks    []entities.TruckSchedule
	Inventory *entities.InventorySnapshot
	Start     time.Time
	End       time.Time
}

// ShelfLife holds the maximum age per state; zero disables the window for
// that state
type ShelfLife struct {
	Ambient int `mapstructure:"ambient" yaml:"ambient" json:"ambient"`
	Frozen  int `mapstructure:"frozen" yaml:"frozen" json:"frozen"`
	Thawed  int `mapstructure:"thawed" yaml:"thawed" json:"thawed"`
}

// DefaultShelfLife returns the standard maximum ages
func DefaultShelfLife() ShelfLife {
	return ShelfLife{
		Ambient: DefaultAmbientShelfLife,
		Frozen:  DefaultFrozenShelfLife,
		Thawed:  DefaultThawedShelfLife,
	}
}

// Days returns the maximum age of a state
func (s ShelfLife) Days(state entities.State) int {
	switch state {
	case entities.Frozen:
		return s.Frozen
	case entities.Thawed:
		return s.Thawed
	default:
		return s.Ambient
	}
}

// Options are the formulation switches
type Options struct {
	AllowShortages         bool
	UsePalletTracking      bool
	UseTruckPalletTracking bool
	EnforceShelfLife       bool
	ShelfLife              ShelfLife
}

// DefaultOptions enables every formulation feature
func DefaultOptions() Options {
	return Options{
		AllowShortages:         true,
		UsePalletTracking:      true,
		UseTruckPalletTracking: true,
		EnforceShelfLife:       true,
		ShelfLife:              DefaultShelfLife(),
	}
}
