package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

// NetworkData is the domain input checked before a model is built
type NetworkData struct {
	Nodes     []entities.Node
	Routes    []entities.Route
	Products  []entities.Product
	Demand    []entities.DemandEntry
	Trucks    []entities.TruckSchedule
	Inventory *entities.InventorySnapshot
	Costs     entities.CostStructure
}

// NetworkValidator checks the network for referential and physical consistency
type NetworkValidator struct{}

// NewNetworkValidator creates a new network validator
func NewNetworkValidator() *NetworkValidator {
	return &NetworkValidator{}
}

// ValidationResult contains the results of network validation
type ValidationResult struct {
	UnreachableDemand []entities.NodeID
	Errors            []string
	Warnings          []string
}

// ValidationError is returned when the input is rejected before model construction
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid planning input: %s", strings.Join(e.Errors, "; "))
}

// Err returns a *ValidationError when the result holds errors, nil otherwise
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate performs every check on the network data
func (v *NetworkValidator) Validate(data NetworkData) *ValidationResult {
	result := &ValidationResult{
		UnreachableDemand: make([]entities.NodeID, 0),
		Errors:            make([]string, 0),
		Warnings:          make([]string, 0),
	}

	caps := v.validateNodes(data.Nodes, result)
	products := v.validateProducts(data.Products, result)
	v.validateRoutes(data.Routes, caps, result)
	v.validateDemand(data.Demand, caps, products, result)
	v.validateTrucks(data.Trucks, data.Routes, caps, result)
	v.validateInventory(data.Inventory, caps, products, result)

	if err := data.Costs.Validate(); err != nil {
		result.errorf("%v", err)
	}

	if len(result.Errors) == 0 {
		result.UnreachableDemand = v.detectUnreachableDemand(data, caps)
		for _, id := range result.UnreachableDemand {
			result.warnf("demand node %s cannot be reached from any source; its demand can only be short", id)
		}
	}

	return result
}

func (v *NetworkValidator) validateNodes(nodes []entities.Node, result *ValidationResult) map[entities.NodeID]Capability {
	caps := make(map[entities.NodeID]Capability, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			result.errorf("nodes[%d].id: cannot be empty", i)
			continue
		}
		if _, dup := caps[n.ID]; dup {
			result.errorf("nodes[%d].id: duplicate node %s", i, n.ID)
			continue
		}
		if n.ProductionRate < 0 {
			result.errorf("node %s.production_rate: cannot be negative, got %g", n.ID, n.ProductionRate)
		}
		if n.Roles.Has(entities.RoleManufacturing) {
			if n.ProductionRate <= 0 {
				result.errorf("node %s.production_rate: manufacturing node needs a positive rate", n.ID)
			}
			if !n.Storage.Has(n.ProductionState) {
				result.errorf("node %s.production_state: %s is not a storage state of the node %s", n.ID, n.ProductionState, n.Storage)
			}
		}
		if n.PalletCapacity < 0 {
			result.errorf("node %s.pallet_capacity: cannot be negative, got %d", n.ID, n.PalletCapacity)
		}
		if n.StartupHours < 0 || n.ShutdownHours < 0 || n.ChangeoverHours < 0 {
			result.errorf("node %s: overhead hours cannot be negative", n.ID)
		}
		if n.Roles.Has(entities.RoleDemand) && n.Storage.Empty() {
			result.errorf("node %s.storage: demand node needs at least one storage state to receive goods", n.ID)
		}
		caps[n.ID] = ResolveCapability(n)
	}
	return caps
}

func (v *NetworkValidator) validateProducts(products []entities.Product, result *ValidationResult) map[entities.ProductID]bool {
	known := make(map[entities.ProductID]bool, len(products))
	for i, p := range products {
		if p.ID == "" {
			result.errorf("products[%d].id: cannot be empty", i)
			continue
		}
		if known[p.ID] {
			result.errorf("products[%d].id: duplicate product %s", i, p.ID)
			continue
		}
		if p.MixSize <= 0 {
			result.errorf("product %s.mix_size: must be positive, got %d", p.ID, p.MixSize)
		}
		if p.UnitsPerPallet < 0 {
			result.errorf("product %s.units_per_pallet: cannot be negative, got %d", p.ID, p.UnitsPerPallet)
		}
		known[p.ID] = true
	}
	return known
}

func (v *NetworkValidator) validateRoutes(routes []entities.Route, caps map[entities.NodeID]Capability, result *ValidationResult) {
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		origin, okOrigin := caps[r.Origin]
		dest, okDest := caps[r.Destination]
		if !okOrigin {
			result.errorf("routes[%d].origin: undefined node %q", i, r.Origin)
		}
		if !okDest {
			result.errorf("routes[%d].destination: undefined node %q", i, r.Destination)
		}
		if r.TransitDays < 0 {
			result.errorf("routes[%d].transit_days: cannot be negative, got %d", i, r.TransitDays)
		}
		if r.CostPerUnit < 0 {
			result.errorf("routes[%d].cost_per_unit: cannot be negative, got %g", i, r.CostPerUnit)
		}
		if !okOrigin || !okDest {
			continue
		}
		if r.Origin == r.Destination {
			result.errorf("routes[%d]: origin and destination are both %s", i, r.Origin)
		}
		if !origin.IsFlowNode() || !dest.IsFlowNode() {
			result.errorf("routes[%d]: %s touches a node with no storage, production or demand", i, r.Key())
		}
		if !origin.Storage.Has(r.TransportState) {
			result.errorf("routes[%d].transport_state: origin %s does not hold %s stock", i, r.Origin, r.TransportState)
		}
		if _, ok := dest.ArrivalState(r.TransportState); !ok {
			result.errorf("routes[%d].transport_state: destination %s cannot receive %s goods", i, r.Destination, r.TransportState)
		}
		if seen[r.Key()] {
			result.errorf("routes[%d]: duplicate route %s", i, r.Key())
		}
		seen[r.Key()] = true
	}
}

func (v *NetworkValidator) validateDemand(demand []entities.DemandEntry, caps map[entities.NodeID]Capability, products map[entities.ProductID]bool, result *ValidationResult) {
	for i, d := range demand {
		c, ok := caps[d.Node]
		switch {
		case !ok:
			result.errorf("demand[%d].node: undefined node %q", i, d.Node)
		case !c.HasDemand:
			result.errorf("demand[%d].node: node %s is not a demand destination", i, d.Node)
		case len(c.ConsumableStates()) == 0:
			result.errorf("demand[%d].node: node %s holds no ambient or thawed stock to serve demand from", i, d.Node)
		}
		if !products[d.Product] {
			result.errorf("demand[%d].product: undefined product %q", i, d.Product)
		}
		if d.Quantity < 0 {
			result.errorf("demand[%d].quantity: cannot be negative, got %g", i, d.Quantity)
		}
		if d.Date.IsZero() {
			result.errorf("demand[%d].date: cannot be empty", i)
		}
	}
}

func (v *NetworkValidator) validateTrucks(trucks []entities.TruckSchedule, routes []entities.Route, caps map[entities.NodeID]Capability, result *ValidationResult) {
	ids := make(map[string]bool, len(trucks))
	for i, t := range trucks {
		if t.ID == "" {
			result.errorf("trucks[%d].id: cannot be empty", i)
		} else if ids[t.ID] {
			result.errorf("trucks[%d].id: duplicate truck %s", i, t.ID)
		}
		ids[t.ID] = true

		if _, ok := caps[t.Destination]; !ok {
			result.errorf("trucks[%d].destination: undefined node %q", i, t.Destination)
		}
		if t.Origin != "" {
			if _, ok := caps[t.Origin]; !ok {
				result.errorf("trucks[%d].origin: undefined node %q", i, t.Origin)
			}
		}
		if t.UnitCapacity <= 0 {
			result.errorf("trucks[%d].unit_capacity: must be positive, got %g", i, t.UnitCapacity)
		}
		if t.PalletCapacity < 0 {
			result.errorf("trucks[%d].pallet_capacity: cannot be negative, got %d", i, t.PalletCapacity)
		}
		if t.FixedCost < 0 || t.CostPerUnit < 0 {
			result.errorf("trucks[%d]: costs cannot be negative", i)
		}

		served := false
		for _, r := range routes {
			if t.Serves(r) {
				served = true
				break
			}
		}
		if !served {
			result.warnf("truck %s serves no route", t.ID)
		}
	}
}

func (v *NetworkValidator) validateInventory(snapshot *entities.InventorySnapshot, caps map[entities.NodeID]Capability, products map[entities.ProductID]bool, result *ValidationResult) {
	if snapshot == nil {
		return
	}
	if snapshot.AssumedAgeDays < 0 {
		result.errorf("inventory.assumed_age_days: cannot be negative, got %d", snapshot.AssumedAgeDays)
	}
	for i, e := range snapshot.Entries {
		c, ok := caps[e.Node]
		if !ok {
			result.errorf("inventory[%d].node: undefined node %q", i, e.Node)
			continue
		}
		if !products[e.Product] {
			result.errorf("inventory[%d].product: undefined product %q", i, e.Product)
		}
		if e.Quantity < 0 {
			result.errorf("inventory[%d].quantity: cannot be negative, got %g", i, e.Quantity)
		}
		if c.Storage.Empty() {
			result.errorf("inventory[%d].node: node %s cannot hold stock", i, e.Node)
			continue
		}
		if state := e.StateAt(c.Storage); !c.Storage.Has(state) {
			result.errorf("inventory[%d].state: node %s does not hold %s stock", i, e.Node, state)
		}
	}
}

// detectUnreachableDemand walks the route graph from every source of stock
// and reports demand nodes that no path reaches
func (v *NetworkValidator) detectUnreachableDemand(data NetworkData, caps map[entities.NodeID]Capability) []entities.NodeID {
	adjacency := v.buildAdjacencyMap(data.Routes)

	visited := make(map[entities.NodeID]bool)
	var queue []entities.NodeID
	push := func(id entities.NodeID) {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}
	for _, n := range data.Nodes {
		if caps[n.ID].CanProduce {
			push(n.ID)
		}
	}
	if data.Inventory != nil {
		for _, e := range data.Inventory.Entries {
			if e.Quantity > 0 {
				push(e.Node)
			}
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			push(next)
		}
	}

	unreachable := make([]entities.NodeID, 0)
	for _, n := range data.Nodes {
		if caps[n.ID].HasDemand && !visited[n.ID] {
			unreachable = append(unreachable, n.ID)
		}
	}
	sort.Slice(unreachable, func(i, j int) bool { return unreachable[i] < unreachable[j] })
	return unreachable
}

// buildAdjacencyMap creates a map of origin -> destinations
func (v *NetworkValidator) buildAdjacencyMap(routes []entities.Route) map[entities.NodeID][]entities.NodeID {
	adjacencyMap := make(map[entities.NodeID][]entities.NodeID)
	for _, r := range routes {
		adjacencyMap[r.Origin] = append(adjacencyMap[r.Origin], r.Destination)
	}
	return adjacencyMap
}
