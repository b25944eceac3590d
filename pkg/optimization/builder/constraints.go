package builder

import (
	"math"
	"sort"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// addProductionConstraints links production to whole mixes, mixes to the
// produced indicator, and detects product starts
func (b *builder) addProductionConstraints() {
	for _, pv := range b.idx.Production {
		n, p := b.nodeIdx[pv.Node], b.productIdx[pv.Product]
		t := int32(entities.DaysBetween(b.dates[0], pv.Date))
		d := date(pv.Date)
		id, pid := string(pv.Node), string(pv.Product)
		mixUB := b.lp.Var(pv.MixCount).Upper

		b.lp.AddConstraint("mix_link", name("mix_link", id, pid, d),
			milp.NewExpr(milp.Term{Var: pv.Production, Coef: 1}, milp.Term{Var: pv.MixCount, Coef: -float64(pv.MixSize)}),
			milp.Equal, 0)
		b.lp.AddConstraint("produced_link", name("produced_link", id, pid, d),
			milp.NewExpr(milp.Term{Var: pv.MixCount, Coef: 1}, milp.Term{Var: pv.Produced, Coef: -mixUB}),
			milp.LessEqual, 0)
		b.lp.AddConstraint("produced_link", name("produced_min", id, pid, d),
			milp.NewExpr(milp.Term{Var: pv.Produced, Coef: 1}, milp.Term{Var: pv.MixCount, Coef: -1}),
			milp.LessEqual, 0)

		start := milp.NewExpr(milp.Term{Var: pv.Start, Coef: 1}, milp.Term{Var: pv.Produced, Coef: -1})
		if prev, ok := b.production[npt{n, p, t - 1}]; ok {
			start.Add(b.idx.Production[prev].Produced, 1)
		}
		b.lp.AddConstraint("changeover", name("changeover_start", id, pid, d), start, milp.GreaterEqual, 0)
		b.lp.AddConstraint("changeover", name("changeover_cap", id, pid, d),
			milp.NewExpr(milp.Term{Var: pv.Start, Coef: 1}, milp.Term{Var: pv.Produced, Coef: -1}),
			milp.LessEqual, 0)

		anyProduction := b.anyProd[nt{n, t}]
		b.lp.AddConstraint("any_production", name("any_production_link", id, pid, d),
			milp.NewExpr(milp.Term{Var: anyProduction, Coef: 1}, milp.Term{Var: pv.Produced, Coef: -1}),
			milp.GreaterEqual, 0)
	}
}

// addLaborConstraints requires enough paid hours for production time plus
// startup, shutdown and changeover overhead, splits overtime on fixed days
// and enforces the minimum payment on non-fixed days.
//
// Changeover time is charged per product start beyond the first of the
// day. Two lower bounds on the paid hours express max(0, starts - 1): one
// with changeover*(starts - any_production), one without changeovers.
func (b *builder) addLaborConstraints() {
	for _, lv := range b.idx.Labor {
		n := b.nodeIdx[lv.Node]
		t := int32(entities.DaysBetween(b.dates[0], lv.Date))
		node := b.nodes[n]
		id, d := string(lv.Node), date(lv.Date)

		base := milp.NewExpr(milp.Term{Var: lv.Used, Coef: 1})
		base.Add(lv.Any, -(node.StartupHours + node.ShutdownHours))
		need := milp.NewExpr(milp.Term{Var: lv.Used, Coef: 1})
		need.Add(lv.Any, -(node.StartupHours + node.ShutdownHours - node.ChangeoverHours))
		anyCap := milp.NewExpr(milp.Term{Var: lv.Any, Coef: 1})
		for p := range b.products {
			i, ok := b.production[npt{n, int32(p), t}]
			if !ok {
				continue
			}
			pv := b.idx.Production[i]
			base.Add(pv.Production, -1/node.ProductionRate)
			need.Add(pv.Production, -1/node.ProductionRate)
			need.Add(pv.Start, -node.ChangeoverHours)
			anyCap.Add(pv.Produced, -1)
		}
		b.lp.AddConstraint("labor_requirement", name("labor_requirement", id, d), need, milp.GreaterEqual, 0)
		if node.ChangeoverHours > 0 {
			b.lp.AddConstraint("labor_requirement", name("labor_requirement_base", id, d), base, milp.GreaterEqual, 0)
		}
		b.lp.AddConstraint("any_production", name("any_production_cap", id, d), anyCap, milp.LessEqual, 0)

		if lv.Day.IsFixedDay() {
			b.lp.AddConstraint("overtime", name("overtime_definition", id, d),
				milp.NewExpr(milp.Term{Var: lv.Used, Coef: 1}, milp.Term{Var: lv.Overtime, Coef: -1}),
				milp.LessEqual, lv.Day.FixedHours)
			b.lp.AddConstraint("overtime", name("overtime_cap", id, d),
				milp.NewExpr(milp.Term{Var: lv.Overtime, Coef: 1}, milp.Term{Var: lv.Used, Coef: -1}),
				milp.LessEqual, 0)
			continue
		}
		b.lp.AddConstraint("minimum_payment", name("minimum_payment", id, d),
			milp.NewExpr(milp.Term{Var: lv.Used, Coef: 1}, milp.Term{Var: lv.Any, Coef: -lv.Day.MinimumHours}),
			milp.GreaterEqual, 0)
		b.lp.AddConstraint("minimum_payment", name("labor_activation", id, d),
			milp.NewExpr(milp.Term{Var: lv.Used, Coef: 1}, milp.Term{Var: lv.Any, Coef: -lv.Day.NonFixedCap}),
			milp.LessEqual, 0)
	}
}

// inflows returns the same-day inflow terms of (n, p, s) on day t other
// than shipment arrivals
func (b *builder) inflows(n, p int32, s entities.State, t int32) []milp.VarID {
	var out []milp.VarID
	if i, ok := b.production[npt{n, p, t}]; ok && b.nodes[n].ProductionState == s {
		out = append(out, b.idx.Production[i].Production)
	}
	if v, ok := b.freeze[npt{n, p, t}]; ok && s == entities.Frozen {
		out = append(out, v)
	}
	if v, ok := b.thaw[npt{n, p, t}]; ok && s == b.caps[b.nodes[n].ID].ThawTarget {
		out = append(out, v)
	}
	return out
}

// outflows returns the outflow terms of (n, p, s) on day t, disposal
// excluded
func (b *builder) outflows(n, p int32, s entities.State, t int32) []milp.VarID {
	out := append([]milp.VarID(nil), b.outbound[npst{n, p, s, t}]...)
	if v, ok := b.consumed[npst{n, p, s, t}]; ok {
		out = append(out, v)
	}
	if v, ok := b.freeze[npt{n, p, t}]; ok && s == entities.Ambient {
		out = append(out, v)
	}
	if v, ok := b.thaw[npt{n, p, t}]; ok && s == entities.Frozen {
		out = append(out, v)
	}
	return out
}

// addBalanceConstraints writes, for every inventory variable,
// inventory[t] = inventory[t-1] + inflows − outflows − disposal,
// with the initial quantity standing in for inventory[-1]
func (b *builder) addBalanceConstraints() {
	for _, iv := range b.idx.Inventory {
		n, p := b.nodeIdx[iv.Node], b.productIdx[iv.Product]
		s := iv.State
		t := int32(entities.DaysBetween(b.dates[0], iv.Date))

		e := milp.NewExpr(milp.Term{Var: iv.Var, Coef: 1})
		rhs := 0.0
		if t == 0 {
			rhs = b.initial[nps{n, p, s}]
		} else if prev, ok := b.inventory[npst{n, p, s, t - 1}]; ok {
			e.Add(prev, -1)
		}
		for _, v := range b.inflows(n, p, s, t) {
			e.Add(v, -1)
		}
		for _, v := range b.arrivals[npst{n, p, s, t}] {
			e.Add(v, -1)
		}
		for _, v := range b.outflows(n, p, s, t) {
			e.Add(v, 1)
		}
		if v, ok := b.disposal[npst{n, p, s, t}]; ok {
			e.Add(v, 1)
		}
		b.lp.AddConstraint("balance", name("balance", string(iv.Node), string(iv.Product), s.String(), date(iv.Date)), e, milp.Equal, rhs)
	}
}

// addShelfLifeConstraints bounds the outflow over every trailing window of
// the state's shelf life by the inflow over the same window. Shipments are
// credited when either their departure or their arrival falls in the
// window; initial stock is credited at its effective production date.
// Windows reaching back past the first inflow are implied by the balance
// and skipped.
func (b *builder) addShelfLifeConstraints() {
	if !b.opts.EnforceShelfLife {
		return
	}
	for _, iv := range b.idx.Inventory {
		s := iv.State
		life := int32(b.opts.ShelfLife.Days(s))
		if life <= 0 {
			continue
		}
		n, p := b.nodeIdx[iv.Node], b.productIdx[iv.Product]
		k := nps{n, p, s}
		t := int32(entities.DaysBetween(b.dates[0], iv.Date))
		from := t - life + 1

		origin := b.earliest[k]
		initial := b.initial[k]
		if initial > 0 {
			origin = b.initialDay
		}
		if from <= origin {
			continue
		}

		e := milp.NewExpr()
		hasOutflow := false
		for day := max(from, 0); day <= t; day++ {
			for _, v := range b.outflows(n, p, s, day) {
				e.Add(v, 1)
				hasOutflow = true
			}
			for _, v := range b.inflows(n, p, s, day) {
				e.Add(v, -1)
			}
		}
		if !hasOutflow {
			continue
		}
		for _, ref := range b.inbound[k] {
			if (ref.dep >= from && ref.dep <= t) || (ref.arr >= from && ref.arr <= t) {
				e.Add(ref.v, -1)
			}
		}
		rhs := 0.0
		if initial > 0 && b.initialDay >= from {
			rhs = initial
		}
		b.lp.AddConstraint("shelf_life", name("shelf_life", string(iv.Node), string(iv.Product), s.String(), date(iv.Date)), e, milp.LessEqual, rhs)
	}
}

// addDemandConstraints splits every demand entry between consumption and
// shortage
func (b *builder) addDemandConstraints() {
	for _, dv := range b.idx.Demand {
		e := milp.NewExpr(milp.Term{Var: dv.Shortage, Coef: 1})
		for _, c := range dv.Consumed {
			e.Add(c.Var, 1)
		}
		b.lp.AddConstraint("demand", name("demand", string(dv.Node), string(dv.Product), date(dv.Date)), e, milp.Equal, dv.Quantity)
	}
}

// addTruckConstraints assigns every shipment on a truck-served route to
// the trucks running that day and caps each truck's units and pallets
func (b *builder) addTruckConstraints() {
	for _, sv := range b.idx.Shipments {
		ri := b.routeIndex(sv.Route)
		if !b.gated[ri] {
			continue
		}
		t := int32(entities.DaysBetween(b.dates[0], sv.Departure))
		key := flowKey{ri, b.productIdx[sv.Product], t}
		e := milp.NewExpr(milp.Term{Var: sv.Var, Coef: 1})
		for _, v := range b.shipLoads[key] {
			e.Add(v, -1)
		}
		b.lp.AddConstraint("truck_assignment", name("truck_assignment", string(sv.Route.Origin), string(sv.Route.Destination), string(sv.Product), date(sv.Departure)), e, milp.Equal, 0)
	}

	for _, day := range b.truckDays {
		truck := b.in.Trucks[day.k]
		d := date(b.dates[day.t])

		units := milp.NewExpr(milp.Term{Var: day.used, Coef: -truck.UnitCapacity})
		perProduct := make(map[int32]*milp.Expr)
		var order []int32
		for _, l := range day.loads {
			units.Add(l.v, 1)
			pe, ok := perProduct[l.p]
			if !ok {
				fresh := milp.NewExpr()
				pe = &fresh
				perProduct[l.p] = pe
				order = append(order, l.p)
			}
			pe.Add(l.v, -1/b.unitsPerPallet(l.p))
		}
		b.lp.AddConstraint("truck_capacity", name("truck_capacity", truck.ID, d), units, milp.LessEqual, 0)

		if !b.opts.UseTruckPalletTracking || truck.PalletCapacity <= 0 {
			continue
		}
		pallets := milp.NewExpr(milp.Term{Var: day.used, Coef: -float64(truck.PalletCapacity)})
		for _, p := range order {
			prod := b.products[p]
			v := b.lp.AddVar("truck_pallets", name("truck_pallets", truck.ID, string(prod.ID), d), milp.Integer, 0, float64(truck.PalletCapacity))
			b.idx.TruckPallets = append(b.idx.TruckPallets, TruckPalletVar{TruckID: truck.ID, Product: prod.ID, Date: b.dates[day.t], Var: v})
			rounding := *perProduct[p]
			rounding.Add(v, 1)
			b.lp.AddConstraint("truck_pallets", name("truck_pallet_rounding", truck.ID, string(prod.ID), d), rounding, milp.GreaterEqual, 0)
			pallets.Add(v, 1)
		}
		b.lp.AddConstraint("truck_pallets", name("truck_pallet_capacity", truck.ID, d), pallets, milp.LessEqual, 0)
	}
}

func (b *builder) routeIndex(r entities.Route) int32 {
	for i, candidate := range b.in.Routes {
		if candidate.Key() == r.Key() {
			return int32(i)
		}
	}
	return -1
}

// addPalletConstraints rounds stored quantities up to whole pallets,
// counts pallet entries for fixed pallet charges and enforces node pallet
// ceilings
func (b *builder) addPalletConstraints() {
	byNodeState := make(map[nst][]milp.Term)
	var keys []nst
	for _, iv := range b.idx.Inventory {
		n, p := b.nodeIdx[iv.Node], b.productIdx[iv.Product]
		k := nst{n, iv.State, int32(entities.DaysBetween(b.dates[0], iv.Date))}
		if _, ok := byNodeState[k]; !ok {
			keys = append(keys, k)
		}
		byNodeState[k] = append(byNodeState[k], milp.Term{Var: iv.Var, Coef: 1 / b.unitsPerPallet(p)})
	}
	sortNST(keys)

	counts := make(map[nst]milp.VarID)
	ceiling := make(map[nt]*milp.Expr)
	var ceilingKeys []nt
	addToCeiling := func(n, t int32, terms ...milp.Term) {
		if b.nodes[n].PalletCapacity <= 0 {
			return
		}
		e, ok := ceiling[nt{n, t}]
		if !ok {
			fresh := milp.NewExpr()
			e = &fresh
			ceiling[nt{n, t}] = e
			ceilingKeys = append(ceilingKeys, nt{n, t})
		}
		for _, term := range terms {
			e.Add(term.Var, term.Coef)
		}
	}

	for _, k := range keys {
		terms := byNodeState[k]
		if !b.usesPallets(k.n, k.s) {
			addToCeiling(k.n, k.t, terms...)
			continue
		}
		node := b.nodes[k.n]
		d := date(b.dates[k.t])
		rate := b.in.Costs.StorageRateFor(k.s)

		count := b.lp.AddVar("pallet_count", name("pallet_count", string(node.ID), k.s.String(), d), milp.Integer, 0, inf)
		entry := b.lp.AddVar("pallet_entry", name("pallet_entry", string(node.ID), k.s.String(), d), milp.Continuous, 0, inf)
		counts[k] = count
		if rate.PalletBased() {
			b.lp.AddCost(CostHolding, count, rate.PerPalletDay)
			b.lp.AddCost(CostHolding, entry, rate.PerPalletFixed)
		}
		b.idx.Pallets = append(b.idx.Pallets, PalletVars{Node: node.ID, State: k.s, Date: b.dates[k.t], Count: count, Entry: entry})

		rounding := milp.NewExpr(milp.Term{Var: count, Coef: 1})
		for _, term := range terms {
			rounding.Add(term.Var, -term.Coef)
		}
		b.lp.AddConstraint("pallets", name("pallet_rounding", string(node.ID), k.s.String(), d), rounding, milp.GreaterEqual, 0)

		entries := milp.NewExpr(milp.Term{Var: entry, Coef: 1}, milp.Term{Var: count, Coef: -1})
		rhs := 0.0
		if k.t == 0 {
			rhs = -b.initialPallets(k.n, k.s)
		} else if prev, ok := counts[nst{k.n, k.s, k.t - 1}]; ok {
			entries.Add(prev, 1)
		}
		b.lp.AddConstraint("pallets", name("pallet_entry", string(node.ID), k.s.String(), d), entries, milp.GreaterEqual, rhs)

		addToCeiling(k.n, k.t, milp.Term{Var: count, Coef: 1})
	}

	for _, k := range ceilingKeys {
		node := b.nodes[k.n]
		b.lp.AddConstraint("storage_ceiling", name("storage_ceiling", string(node.ID), date(b.dates[k.t])), *ceiling[k], milp.LessEqual, float64(node.PalletCapacity))
	}
}

func (b *builder) initialPallets(n int32, s entities.State) float64 {
	total := 0.0
	for p := range b.products {
		total += b.initial[nps{n, int32(p), s}] / b.unitsPerPallet(int32(p))
	}
	return math.Ceil(total - 1e-9)
}

func sortNST(keys []nst) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.n != b.n {
			return a.n < b.n
		}
		if a.s != b.s {
			return a.s < b.s
		}
		return a.t < b.t
	})
}
