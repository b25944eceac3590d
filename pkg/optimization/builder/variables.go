package builder

import (
	"math"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// addProductionVars creates production, mix, changeover and labor
// variables for every producing node on every date with a labor entry
func (b *builder) addProductionVars() {
	costs := b.in.Costs
	for n, node := range b.nodes {
		if !b.caps[node.ID].CanProduce {
			continue
		}
		ni := int32(n)
		for t, l := range b.labor {
			if l == nil {
				continue
			}
			ti := int32(t)
			d := date(b.dates[t])
			maxUnits := node.ProductionRate * l.MaxHours()

			created := 0
			for p, prod := range b.products {
				mixUB := math.Floor(maxUnits/float64(prod.MixSize) + 1e-9)
				if mixUB < 1 {
					continue
				}
				id, pid := string(node.ID), string(prod.ID)
				pv := ProductionVars{
					Node:       node.ID,
					Product:    prod.ID,
					Date:       b.dates[t],
					MixSize:    prod.MixSize,
					Production: b.lp.AddVar("production", name("production", id, pid, d), milp.Continuous, 0, mixUB*float64(prod.MixSize)),
					MixCount:   b.lp.AddVar("mix_count", name("mix_count", id, pid, d), milp.Integer, 0, mixUB),
					Produced:   b.lp.AddVar("product_produced", name("product_produced", id, pid, d), milp.Binary, 0, 1),
					Start:      b.lp.AddVar("product_start", name("product_start", id, pid, d), milp.Binary, 0, 1),
				}
				b.lp.AddCost(CostProduction, pv.Production, costs.ProductionCostPerUnit)
				b.lp.AddCost(CostChangeover, pv.Start, costs.ChangeoverCost)

				b.production[npt{ni, int32(p), ti}] = len(b.idx.Production)
				b.idx.Production = append(b.idx.Production, pv)
				created++
			}
			if created == 0 {
				continue
			}

			lv := LaborVars{Node: node.ID, Date: b.dates[t], Day: *l, Overtime: NoVar}
			lv.Any = b.lp.AddVar("any_production", name("any_production", string(node.ID), d), milp.Binary, 0, 1)
			if l.IsFixedDay() {
				lv.Used = b.lp.AddVar("labor_hours_used", name("labor_hours_used", string(node.ID), d), milp.Continuous, 0, l.FixedHours+l.OvertimeCap)
				lv.Overtime = b.lp.AddVar("overtime_hours_used", name("overtime_hours_used", string(node.ID), d), milp.Continuous, 0, l.OvertimeCap)
				b.lp.AddCost(CostLabor, lv.Used, l.RegularRate)
				b.lp.AddCost(CostLabor, lv.Overtime, l.OvertimeRate-l.RegularRate)
			} else {
				lv.Used = b.lp.AddVar("labor_hours_used", name("labor_hours_used", string(node.ID), d), milp.Continuous, 0, l.NonFixedCap)
				b.lp.AddCost(CostLabor, lv.Used, l.NonFixedRate)
			}
			b.anyProd[nt{ni, ti}] = lv.Any
			b.labors[nt{ni, ti}] = len(b.idx.Labor)
			b.idx.Labor = append(b.idx.Labor, lv)
		}
	}
}

// addInventoryVars creates end-of-day inventory for every reachable
// (node, product, state) from its first possible day. Stock left on the
// last day is charged as waste.
func (b *builder) addInventoryVars() {
	costs := b.in.Costs
	waste := costs.WasteCostPerUnit()
	for n, node := range b.nodes {
		ni := int32(n)
		for p, prod := range b.products {
			pi := int32(p)
			for _, s := range entities.AllStates {
				first, ok := b.earliest[nps{ni, pi, s}]
				if !ok {
					continue
				}
				rate := costs.StorageRateFor(s)
				unitCost := rate.PerUnitDay
				switch {
				case rate.PalletBased() && b.usesPallets(ni, s):
					unitCost = 0
				case rate.PalletBased():
					unitCost += rate.PerPalletDay / b.unitsPerPallet(pi)
				}
				for t := first; t <= b.last(); t++ {
					v := b.lp.AddVar("inventory", name("inventory", string(node.ID), string(prod.ID), s.String(), date(b.dates[t])), milp.Continuous, 0, inf)
					b.lp.AddCost(CostHolding, v, unitCost)
					if t == b.last() {
						b.lp.AddCost(CostWaste, v, waste)
					}
					b.inventory[npst{ni, pi, s, t}] = v
					b.idx.Inventory = append(b.idx.Inventory, InventoryVar{
						Node: node.ID, Product: prod.ID, State: s, Date: b.dates[t], Var: v,
					})
				}
			}
		}
	}
}

// addConversionVars creates freeze and thaw flows where the node holds
// both the source and the target state
func (b *builder) addConversionVars() {
	for n, node := range b.nodes {
		c := b.caps[node.ID]
		ni := int32(n)
		for p, prod := range b.products {
			pi := int32(p)
			for t := int32(0); t < b.horizon(); t++ {
				d := date(b.dates[t])
				if c.CanFreeze && b.active(ni, pi, entities.Ambient, t) {
					v := b.lp.AddVar("freeze", name("freeze", string(node.ID), string(prod.ID), d), milp.Continuous, 0, inf)
					b.freeze[npt{ni, pi, t}] = v
					b.idx.Conversions = append(b.idx.Conversions, ConversionVar{
						Node: node.ID, Product: prod.ID, From: entities.Ambient, To: entities.Frozen, Date: b.dates[t], Var: v,
					})
				}
				if c.CanThaw && b.active(ni, pi, entities.Frozen, t) {
					v := b.lp.AddVar("thaw", name("thaw", string(node.ID), string(prod.ID), d), milp.Continuous, 0, inf)
					b.thaw[npt{ni, pi, t}] = v
					b.idx.Conversions = append(b.idx.Conversions, ConversionVar{
						Node: node.ID, Product: prod.ID, From: entities.Frozen, To: c.ThawTarget, Date: b.dates[t], Var: v,
					})
				}
			}
		}
	}
}

// addShipmentVars creates in-transit flows. A shipment exists only when it
// arrives within the horizon and, on a truck-served route, when a truck
// for the route runs on the departure date.
func (b *builder) addShipmentVars() {
	for ri, r := range b.in.Routes {
		o, d := b.nodeIdx[r.Origin], b.nodeIdx[r.Destination]
		arrival, ok := b.caps[r.Destination].ArrivalState(r.TransportState)
		if !ok {
			continue
		}
		transit := int32(r.TransitDays)
		cost := b.in.Costs.TransportCost(r)
		for p, prod := range b.products {
			pi := int32(p)
			first, ok := b.earliest[nps{o, pi, r.TransportState}]
			if !ok {
				continue
			}
			for t := first; t+transit <= b.last(); t++ {
				if b.gated[ri] && !b.truckRuns(r, t) {
					continue
				}
				v := b.lp.AddVar("in_transit", name("in_transit", string(r.Origin), string(r.Destination), r.TransportState.String(), string(prod.ID), date(b.dates[t])), milp.Continuous, 0, inf)
				b.lp.AddCost(CostTransport, v, cost)

				b.transit[flowKey{int32(ri), pi, t}] = v
				b.outbound[npst{o, pi, r.TransportState, t}] = append(b.outbound[npst{o, pi, r.TransportState, t}], v)
				b.arrivals[npst{d, pi, arrival, t + transit}] = append(b.arrivals[npst{d, pi, arrival, t + transit}], v)
				b.inbound[nps{d, pi, arrival}] = append(b.inbound[nps{d, pi, arrival}], transitRef{dep: t, arr: t + transit, v: v})
				b.idx.Shipments = append(b.idx.Shipments, ShipmentVar{
					Route:        r,
					Product:      prod.ID,
					Departure:    b.dates[t],
					Arrival:      b.dates[t+transit],
					ArrivalState: arrival,
					Var:          v,
				})
			}
		}
	}
}

func (b *builder) truckRuns(r entities.Route, t int32) bool {
	for _, k := range b.in.Trucks {
		if k.Serves(r) && k.RunsOn(b.dates[t]) {
			return true
		}
	}
	return false
}

// addTruckVars creates a usage binary per truck and running date with at
// least one shipment to carry, and a load per carried shipment
func (b *builder) addTruckVars() {
	for k, truck := range b.in.Trucks {
		for t := int32(0); t < b.horizon(); t++ {
			if !truck.RunsOn(b.dates[t]) {
				continue
			}
			day := truckDayLoads{k: int32(k), t: t, used: NoVar}
			d := date(b.dates[t])
			for ri, r := range b.in.Routes {
				if !truck.Serves(r) {
					continue
				}
				for p, prod := range b.products {
					key := flowKey{int32(ri), int32(p), t}
					if _, ok := b.transit[key]; !ok {
						continue
					}
					if day.used == NoVar {
						day.used = b.lp.AddVar("truck_used", name("truck_used", truck.ID, d), milp.Binary, 0, 1)
						b.lp.AddCost(CostTruck, day.used, truck.FixedCost)
						b.idx.Trucks = append(b.idx.Trucks, TruckVar{Truck: truck, Date: b.dates[t], Used: day.used})
					}
					v := b.lp.AddVar("truck_load", name("truck_load", truck.ID, string(r.Origin), string(prod.ID), d), milp.Continuous, 0, truck.UnitCapacity)
					b.lp.AddCost(CostTruck, v, truck.CostPerUnit)
					day.loads = append(day.loads, truckLoadRef{r: int32(ri), p: int32(p), v: v})
					b.shipLoads[key] = append(b.shipLoads[key], v)
					b.idx.TruckLoads = append(b.idx.TruckLoads, TruckLoadVar{
						TruckID: truck.ID, Route: r, Product: prod.ID, Date: b.dates[t], Load: v,
					})
				}
			}
			if day.used != NoVar {
				b.truckDays = append(b.truckDays, day)
			}
		}
	}
}

// addDemandVars creates consumption per consumable held state and a
// shortage per demand entry; shortages are fixed at zero unless allowed
func (b *builder) addDemandVars() {
	penalty := b.in.Costs.ShortagePenaltyPerUnit
	for _, k := range b.demandKeys {
		node, prod := b.nodes[k.n], b.products[k.p]
		qty := b.demand[k]
		d := date(b.dates[k.t])
		dv := DemandVars{Node: node.ID, Product: prod.ID, Date: b.dates[k.t], Quantity: qty}
		for _, s := range b.caps[node.ID].ConsumableStates() {
			if !b.active(k.n, k.p, s, k.t) {
				continue
			}
			v := b.lp.AddVar("demand_consumed", name("demand_consumed", string(node.ID), string(prod.ID), s.String(), d), milp.Continuous, 0, qty)
			b.consumed[npst{k.n, k.p, s, k.t}] = v
			dv.Consumed = append(dv.Consumed, ConsumedVar{State: s, Var: v})
		}
		upper := 0.0
		if b.opts.AllowShortages {
			upper = qty
		}
		dv.Shortage = b.lp.AddVar("shortage", name("shortage", string(node.ID), string(prod.ID), d), milp.Continuous, 0, upper)
		b.lp.AddCost(CostShortage, dv.Shortage, penalty)
		b.idx.Demand = append(b.idx.Demand, dv)
	}
}

// addDisposalVars creates write-off flows on the days stock of a state can
// first be older than its shelf life
func (b *builder) addDisposalVars() {
	if !b.opts.EnforceShelfLife {
		return
	}
	waste := b.in.Costs.WasteCostPerUnit()
	for n, node := range b.nodes {
		ni := int32(n)
		for p, prod := range b.products {
			pi := int32(p)
			for _, s := range entities.AllStates {
				first, ok := b.earliest[nps{ni, pi, s}]
				life := int32(b.opts.ShelfLife.Days(s))
				if !ok || life <= 0 {
					continue
				}
				expiry := first + life
				if b.initial[nps{ni, pi, s}] > 0 {
					expiry = min(expiry, max(b.initialDay+life, 0))
				}
				for t := expiry; t <= b.last(); t++ {
					v := b.lp.AddVar("disposal", name("disposal", string(node.ID), string(prod.ID), s.String(), date(b.dates[t])), milp.Continuous, 0, inf)
					b.lp.AddCost(CostWaste, v, waste)
					b.disposal[npst{ni, pi, s, t}] = v
					b.idx.Disposals = append(b.idx.Disposals, DisposalVar{
						Node: node.ID, Product: prod.ID, State: s, Date: b.dates[t], Var: v,
					})
				}
			}
		}
	}
}
