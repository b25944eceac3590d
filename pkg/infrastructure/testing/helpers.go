package testing

import (
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/infrastructure/repositories/memory"
)

// Monday is the first day of every fixture horizon
var Monday = time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC)

// Scenario is a complete planning input assembled from domain entities
type Scenario struct {
	Nodes     []entities.Node
	Routes    []entities.Route
	Products  []entities.Product
	Demand    []entities.DemandEntry
	Labor     *memory.LaborCalendar
	Costs     entities.CostStructure
	Trucks    []entities.TruckSchedule
	Inventory *entities.InventorySnapshot
	Start     time.Time
	End       time.Time
}

// Day returns the date n days after Monday
func Day(n int) time.Time {
	return entities.AddDays(Monday, n)
}

// mustNode is a helper for tests - panics on validation error
func mustNode(id string, roles entities.NodeRole, storage entities.StateSet, rate float64) entities.Node {
	n, err := entities.NewNode(entities.NodeID(id), id, roles, storage, rate)
	if err != nil {
		panic(err)
	}
	return *n
}

func mustRoute(origin, destination string, state entities.State, transitDays int) entities.Route {
	r, err := entities.NewRoute(entities.NodeID(origin), entities.NodeID(destination), state, transitDays, 0)
	if err != nil {
		panic(err)
	}
	return *r
}

func mustProduct(id string, mixSize int) entities.Product {
	p, err := entities.NewProduct(entities.ProductID(id), id, mixSize, 0)
	if err != nil {
		panic(err)
	}
	return *p
}

func mustDemand(node, product string, date time.Time, qty float64) entities.DemandEntry {
	d, err := entities.NewDemandEntry(entities.NodeID(node), entities.ProductID(product), date, qty)
	if err != nil {
		panic(err)
	}
	return *d
}

// BaseCosts are the cost coefficients shared by the fixtures
func BaseCosts() entities.CostStructure {
	return entities.CostStructure{
		ProductionCostPerUnit:  1,
		TransportCostPerUnit:   0.5,
		WasteMultiplier:        1,
		ShortagePenaltyPerUnit: 10,
		Storage: map[entities.State]entities.StorageRate{
			entities.Ambient: {PerUnitDay: 0.01},
			entities.Frozen:  {PerUnitDay: 0.02},
			entities.Thawed:  {PerUnitDay: 0.01},
		},
	}
}

// TwoNodeNetwork builds a manufacturing site shipping ambient goods to a
// store one day away, with one product made in mixes of 100 at 100 units
// per labor hour and a weekday calendar of 8 fixed hours
func TwoNodeNetwork(days int) Scenario {
	end := Day(days - 1)
	return Scenario{
		Nodes: []entities.Node{
			mustNode("MFG", entities.RoleManufacturing, entities.NewStateSet(entities.Ambient), 100),
			mustNode("STORE", entities.RoleDemand, entities.NewStateSet(entities.Ambient), 0),
		},
		Routes:   []entities.Route{mustRoute("MFG", "STORE", entities.Ambient, 1)},
		Products: []entities.Product{mustProduct("BREAD", 100)},
		Labor:    memory.StandardWeek(Monday, end, 8, 20, 30, 40),
		Costs:    BaseCosts(),
		Start:    Monday,
		End:      end,
	}
}

// ShortHorizonScenario has demand of 100 at the store on every day of a
// horizon of the given length; nothing can arrive on the first day
func ShortHorizonScenario(days int) Scenario {
	sc := TwoNodeNetwork(days)
	for d := 0; d < days; d++ {
		sc.Demand = append(sc.Demand, mustDemand("STORE", "BREAD", Day(d), 100))
	}
	return sc
}

// InitialInventoryScenario stocks 1000 units at a manufacturing site that
// also serves 500 units of local demand on the first day
func InitialInventoryScenario() Scenario {
	end := Day(2)
	return Scenario{
		Nodes: []entities.Node{
			mustNode("MFG", entities.RoleManufacturing|entities.RoleDemand, entities.NewStateSet(entities.Ambient), 100),
		},
		Products: []entities.Product{mustProduct("BREAD", 100)},
		Demand:   []entities.DemandEntry{mustDemand("MFG", "BREAD", Monday, 500)},
		Labor:    memory.StandardWeek(Monday, end, 8, 20, 30, 40),
		Costs:    BaseCosts(),
		Inventory: &entities.InventorySnapshot{
			SnapshotDate: Day(-1),
			Entries: []entities.InventoryEntry{
				{Node: "MFG", Product: "BREAD", Quantity: 1000},
			},
		},
		Start: Monday,
		End:   end,
	}
}

// WasteScenario asks for 150 units when production comes in mixes of 100;
// leftover stock is charged at the given waste multiplier. Labor and
// holding are free so only production, waste and shortage trade off.
func WasteScenario(multiplier float64) Scenario {
	end := Day(1)
	costs := entities.CostStructure{
		ProductionCostPerUnit:  1,
		WasteMultiplier:        multiplier,
		ShortagePenaltyPerUnit: 10,
	}
	return Scenario{
		Nodes: []entities.Node{
			mustNode("MFG", entities.RoleManufacturing|entities.RoleDemand, entities.NewStateSet(entities.Ambient), 100),
		},
		Products: []entities.Product{mustProduct("BREAD", 100)},
		Demand:   []entities.DemandEntry{mustDemand("MFG", "BREAD", Day(1), 150)},
		Labor:    memory.StandardWeek(Monday, end, 8, 0, 0, 0),
		Costs:    costs,
		Start:    Monday,
		End:      end,
	}
}

// MondayTruckScenario serves the store with a single truck that only runs
// on Mondays, over a full week
func MondayTruckScenario() Scenario {
	sc := ShortHorizonScenario(7)
	monday := time.Monday
	sc.Trucks = []entities.TruckSchedule{{
		ID:             "T-MON",
		Origin:         "MFG",
		Destination:    "STORE",
		DayOfWeek:      &monday,
		UnitCapacity:   640,
		PalletCapacity: 2,
		FixedCost:      50,
	}}
	return sc
}

// WeekendScenario needs one hour of production on a Saturday, a non-fixed
// day with a four hour minimum payment
func WeekendScenario() Scenario {
	saturday := Day(5)
	return Scenario{
		Nodes: []entities.Node{
			mustNode("MFG", entities.RoleManufacturing|entities.RoleDemand, entities.NewStateSet(entities.Ambient), 100),
		},
		Products: []entities.Product{mustProduct("BREAD", 100)},
		Demand:   []entities.DemandEntry{mustDemand("MFG", "BREAD", saturday, 100)},
		Labor:    memory.StandardWeek(saturday, saturday, 8, 20, 30, 40),
		Costs:    BaseCosts(),
		Start:    saturday,
		End:      saturday,
	}
}

// FrozenBufferScenario routes goods from the site through a frozen buffer
// to a store that thaws them on receipt
func FrozenBufferScenario() Scenario {
	end := Day(3)
	return Scenario{
		Nodes: []entities.Node{
			mustNode("MFG", entities.RoleManufacturing, entities.NewStateSet(entities.Ambient), 100),
			mustNode("BUFFER", entities.RoleStorage, entities.NewStateSet(entities.Ambient, entities.Frozen), 0),
			mustNode("STORE", entities.RoleDemand, entities.NewStateSet(entities.Thawed), 0),
		},
		Routes: []entities.Route{
			mustRoute("MFG", "BUFFER", entities.Ambient, 1),
			mustRoute("BUFFER", "STORE", entities.Frozen, 1),
		},
		Products: []entities.Product{mustProduct("BREAD", 100)},
		Demand:   []entities.DemandEntry{mustDemand("STORE", "BREAD", Day(3), 100)},
		Labor:    memory.StandardWeek(Monday, end, 8, 20, 30, 40),
		Costs:    BaseCosts(),
		Start:    Monday,
		End:      end,
	}
}

// PalletScenario is InitialInventoryScenario with ambient storage charged
// per pallet and a second day of demand, so stock sits on 320-unit pallets
// for the whole horizon
func PalletScenario() Scenario {
	sc := InitialInventoryScenario()
	sc.Demand = append(sc.Demand, mustDemand("MFG", "BREAD", Day(1), 300))
	sc.Costs.Storage = map[entities.State]entities.StorageRate{
		entities.Ambient: {PerPalletFixed: 2, PerPalletDay: 0.5},
	}
	return sc
}

// ChangeoverScenario is a single Monday at a site making the named
// products at 100 units per hour with one changeover hour between them.
// Each product has local demand for one mix of 100.
func ChangeoverScenario(products ...string) Scenario {
	site := mustNode("MFG", entities.RoleManufacturing|entities.RoleDemand, entities.NewStateSet(entities.Ambient), 100)
	site.ChangeoverHours = 1
	sc := Scenario{
		Nodes: []entities.Node{site},
		Labor: memory.StandardWeek(Monday, Monday, 8, 20, 30, 40),
		Costs: BaseCosts(),
		Start: Monday,
		End:   Monday,
	}
	for _, id := range products {
		sc.Products = append(sc.Products, mustProduct(id, 100))
		sc.Demand = append(sc.Demand, mustDemand("MFG", id, Monday, 100))
	}
	return sc
}
