// Package builder turns the planning domain into a mixed-integer program.
//
// Every index set is computed once up front: nodes and products are
// interned, a reachability pass finds the first day stock of each
// (node, product, state) can exist, and each variable family is then
// generated by iterating those explicit tuples. Variables never exist for
// days outside [start, end] and shipments never arrive after end.
package builder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/services"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// Cost categories of the objective
const (
	CostProduction = "production"
	CostLabor      = "labor"
	CostTransport  = "transport"
	CostHolding    = "holding"
	CostWaste      = "waste"
	CostShortage   = "shortage"
	CostChangeover = "changeover"
	CostTruck      = "truck"
)

// CostCategories lists every category in reporting order
var CostCategories = []string{
	CostProduction, CostLabor, CostTransport, CostHolding,
	CostWaste, CostShortage, CostChangeover, CostTruck,
}

// Model is a built program together with the index needed to decode it
type Model struct {
	LP       *milp.Model
	Index    *Index
	Options  Options
	Start    time.Time
	End      time.Time
	Costs    entities.CostStructure
	Products map[entities.ProductID]entities.Product
	Warnings []string
}

// Stats summarises the size of the model
type Stats struct {
	Variables   int                `json:"variables"`
	Integers    int                `json:"integers"`
	Constraints int                `json:"constraints"`
	Families    []milp.FamilyStats `json:"families"`
}

// Stats counts the model's variables, integer variables and constraints,
// with a per-family breakdown for logs and run events
func (m *Model) Stats() Stats {
	s := Stats{
		Variables:   m.LP.NumVars(),
		Constraints: m.LP.NumConstraints(),
		Families:    m.LP.Families(),
	}
	for _, f := range s.Families {
		s.Integers += f.Integers
	}
	return s
}

type transitRef struct {
	dep, arr int32
	v        milp.VarID
}

type builder struct {
	in   Input
	opts Options
	lp   *milp.Model
	idx  *Index

	caps       map[entities.NodeID]services.Capability
	nodes      []entities.Node
	nodeIdx    map[entities.NodeID]int32
	products   []entities.Product
	productIdx map[entities.ProductID]int32
	dates      []time.Time
	labor      []*entities.LaborDay
	routesFrom map[int32][]int
	gated      []bool
	initial    map[nps]float64
	initialDay int32
	demand     map[npt]float64
	demandKeys []npt
	earliest   map[nps]int32

	production map[npt]int
	labors     map[nt]int
	anyProd    map[nt]milp.VarID
	inventory  map[npst]milp.VarID
	transit    map[flowKey]milp.VarID
	inbound    map[nps][]transitRef
	arrivals   map[npst][]milp.VarID
	outbound   map[npst][]milp.VarID
	freeze     map[npt]milp.VarID
	thaw       map[npt]milp.VarID
	consumed   map[npst]milp.VarID
	disposal   map[npst]milp.VarID
	truckDays  []truckDayLoads
	shipLoads  map[flowKey][]milp.VarID
}

type truckDayLoads struct {
	k, t  int32
	used  milp.VarID
	loads []truckLoadRef
}

type truckLoadRef struct {
	r, p int32
	v    milp.VarID
}

// Build validates the input and constructs the program. A validation
// failure is returned as *services.ValidationError before any variable is
// created.
func Build(in Input, opts Options) (*Model, error) {
	warnings, err := validate(in, opts)
	if err != nil {
		return nil, err
	}

	b := newBuilder(in, opts)
	b.earliest = b.reachability()

	b.addProductionVars()
	b.addInventoryVars()
	b.addConversionVars()
	b.addShipmentVars()
	b.addTruckVars()
	b.addDemandVars()
	b.addDisposalVars()

	b.addProductionConstraints()
	b.addLaborConstraints()
	b.addBalanceConstraints()
	b.addShelfLifeConstraints()
	b.addDemandConstraints()
	b.addTruckConstraints()
	b.addPalletConstraints()

	products := make(map[entities.ProductID]entities.Product, len(b.products))
	for _, p := range b.products {
		products[p.ID] = p
	}
	return &Model{
		LP:       b.lp,
		Index:    b.idx,
		Options:  opts,
		Start:    b.dates[0],
		End:      b.dates[len(b.dates)-1],
		Costs:    in.Costs,
		Products: products,
		Warnings: warnings,
	}, nil
}

func validate(in Input, opts Options) ([]string, error) {
	result := services.NewNetworkValidator().Validate(services.NetworkData{
		Nodes:     in.Nodes,
		Routes:    in.Routes,
		Products:  in.Products,
		Demand:    in.Demand,
		Trucks:    in.Trucks,
		Inventory: in.Inventory,
		Costs:     in.Costs,
	})

	if in.Start.IsZero() {
		result.Errors = append(result.Errors, "start_date: cannot be empty")
	}
	if in.End.IsZero() {
		result.Errors = append(result.Errors, "end_date: cannot be empty")
	}
	start, end := entities.Day(in.Start), entities.Day(in.End)
	if !in.Start.IsZero() && !in.End.IsZero() && end.Before(start) {
		result.Errors = append(result.Errors, fmt.Sprintf("end_date: %s is before start_date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly)))
	}
	if in.Inventory != nil && !in.Inventory.SnapshotDate.IsZero() && !in.Start.IsZero() &&
		!entities.Day(in.Inventory.SnapshotDate).Before(start) {
		result.Errors = append(result.Errors, fmt.Sprintf("inventory.snapshot_date: %s must be before start_date %s",
			entities.Day(in.Inventory.SnapshotDate).Format(time.DateOnly), start.Format(time.DateOnly)))
	}
	for _, s := range entities.AllStates {
		if opts.ShelfLife.Days(s) < 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("shelf_life.%s: cannot be negative", s))
		}
	}
	return result.Warnings, result.Err()
}

func newBuilder(in Input, opts Options) *builder {
	b := &builder{
		in:         in,
		opts:       opts,
		lp:         milp.NewModel("production_distribution"),
		idx:        &Index{},
		caps:       services.ResolveCapabilities(in.Nodes),
		nodes:      in.Nodes,
		nodeIdx:    make(map[entities.NodeID]int32, len(in.Nodes)),
		products:   in.Products,
		productIdx: make(map[entities.ProductID]int32, len(in.Products)),
		dates:      entities.DateRange(in.Start, in.End),
		routesFrom: make(map[int32][]int),
		initial:    make(map[nps]float64),
		demand:     make(map[npt]float64),
		production: make(map[npt]int),
		labors:     make(map[nt]int),
		anyProd:    make(map[nt]milp.VarID),
		inventory:  make(map[npst]milp.VarID),
		transit:    make(map[flowKey]milp.VarID),
		inbound:    make(map[nps][]transitRef),
		arrivals:   make(map[npst][]milp.VarID),
		outbound:   make(map[npst][]milp.VarID),
		freeze:     make(map[npt]milp.VarID),
		thaw:       make(map[npt]milp.VarID),
		consumed:   make(map[npst]milp.VarID),
		disposal:   make(map[npst]milp.VarID),
		shipLoads:  make(map[flowKey][]milp.VarID),
	}
	b.idx.Dates = b.dates

	for i, n := range in.Nodes {
		b.nodeIdx[n.ID] = int32(i)
	}
	for i, p := range in.Products {
		b.productIdx[p.ID] = int32(i)
	}

	b.labor = make([]*entities.LaborDay, len(b.dates))
	if in.Labor != nil {
		for t, d := range b.dates {
			if l, ok := in.Labor.GetLaborDay(d); ok {
				day := *l
				day.ApplyDefaults()
				b.labor[t] = &day
			}
		}
	}

	b.gated = make([]bool, len(in.Routes))
	for ri, r := range in.Routes {
		b.routesFrom[b.nodeIdx[r.Origin]] = append(b.routesFrom[b.nodeIdx[r.Origin]], ri)
		for _, k := range in.Trucks {
			if k.Serves(r) {
				b.gated[ri] = true
				break
			}
		}
	}

	b.initialDay = -1
	if snap := in.Inventory; snap != nil {
		snapshot := *snap
		if snapshot.SnapshotDate.IsZero() {
			snapshot.SnapshotDate = entities.AddDays(in.Start, -1)
		}
		b.initialDay = int32(entities.DaysBetween(b.dates[0], snapshot.EffectiveProductionDate()))
		for _, e := range snapshot.Entries {
			n := b.nodeIdx[e.Node]
			state := e.StateAt(b.caps[e.Node].Storage)
			b.initial[nps{n, b.productIdx[e.Product], state}] += e.Quantity
		}
	}

	for _, d := range entities.AggregateDemand(in.Demand) {
		t := entities.DaysBetween(b.dates[0], d.Date)
		if t < 0 || t >= len(b.dates) || d.Quantity <= 0 {
			continue
		}
		k := npt{b.nodeIdx[d.Node], b.productIdx[d.Product], int32(t)}
		b.demand[k] = d.Quantity
		b.demandKeys = append(b.demandKeys, k)
	}
	return b
}

func (b *builder) horizon() int32 { return int32(len(b.dates)) }

func (b *builder) last() int32 { return int32(len(b.dates)) - 1 }

func (b *builder) unitsPerPallet(p int32) float64 {
	return float64(b.products[p].PalletUnits())
}

func (b *builder) usesPallets(n int32, s entities.State) bool {
	if !b.opts.UsePalletTracking {
		return false
	}
	return b.in.Costs.StorageRateFor(s).PalletBased() || b.nodes[n].PalletCapacity > 0
}

func date(t time.Time) string { return t.Format(time.DateOnly) }

func name(family string, parts ...string) string {
	return family + "_" + strings.Join(parts, "_")
}

var inf = math.Inf(1)
