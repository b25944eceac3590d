// Package extract decodes a solver assignment into a domain plan
package extract

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/vsinha/distplan/pkg/application/dto"
	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

var (
	// ErrNoSolution is returned when the result carries no assignment
	ErrNoSolution = errors.New("no solution to extract")
	// ErrMissingVariable is returned when an indexed variable has no value
	ErrMissingVariable = errors.New("missing variable")
	// ErrCostMismatch is returned when the cost categories do not add up to
	// the objective
	ErrCostMismatch = errors.New("cost breakdown does not match objective")
)

type extractor struct {
	m      *builder.Model
	values []float64
}

// value returns the cleaned value of a variable. Values below the
// extraction tolerance are reported as zero.
func (x *extractor) value(v milp.VarID, what string) (float64, error) {
	if v < 0 || int(v) >= len(x.values) {
		return 0, fmt.Errorf("%w: %s (id %d)", ErrMissingVariable, what, v)
	}
	val := x.values[v]
	if math.Abs(val) < entities.Tolerance {
		return 0, nil
	}
	return val, nil
}

// Extract decodes a solved model into a Plan
func Extract(m *builder.Model, r *milp.Result) (*dto.Plan, error) {
	if m == nil || m.LP == nil || m.Index == nil {
		return nil, fmt.Errorf("extract: model is not built")
	}
	if !r.HasSolution() {
		return nil, fmt.Errorf("%w: status %s", ErrNoSolution, r.Status)
	}
	if len(r.Values) != m.LP.NumVars() {
		return nil, fmt.Errorf("%w: result has %d values for %d variables", ErrMissingVariable, len(r.Values), m.LP.NumVars())
	}

	x := &extractor{m: m, values: r.Values}
	plan := &dto.Plan{Start: m.Start, End: m.End}

	steps := []struct {
		name string
		fn   func(*dto.Plan) error
	}{
		{"production", x.production},
		{"shipments", x.shipments},
		{"inventory", x.inventory},
		{"labor", x.labor},
		{"conversions", x.conversions},
		{"disposals", x.disposals},
		{"demand", x.demand},
		{"trucks", x.truckLoads},
		{"costs", func(p *dto.Plan) error { return x.costs(p, r.Objective) }},
	}
	for _, step := range steps {
		if err := step.fn(plan); err != nil {
			return nil, fmt.Errorf("extract %s: %w", step.name, err)
		}
	}
	x.summarise(plan)
	return plan, nil
}

func (x *extractor) production(plan *dto.Plan) error {
	for _, pv := range x.m.Index.Production {
		qty, err := x.value(pv.Production, "production")
		if err != nil {
			return err
		}
		mixes, err := x.value(pv.MixCount, "mix_count")
		if err != nil {
			return err
		}
		start, err := x.value(pv.Start, "product_start")
		if err != nil {
			return err
		}
		if start > 0.5 {
			plan.ProductStarts = append(plan.ProductStarts, dto.ProductStart{Node: pv.Node, Product: pv.Product, Date: pv.Date})
		}
		if qty == 0 {
			continue
		}
		plan.Production = append(plan.Production, dto.ProductionBatch{
			Node:     pv.Node,
			Product:  pv.Product,
			Date:     pv.Date,
			Quantity: qty,
			MixCount: int(math.Round(mixes)),
		})
	}
	return nil
}

type shipmentKey struct {
	route   string
	product entities.ProductID
	day     int64
}

// shipments reports one row per truck carrying part of a shipment, plus
// an untrucked row for any remainder
func (x *extractor) shipments(plan *dto.Plan) error {
	type load struct {
		truck string
		qty   float64
	}
	loads := make(map[shipmentKey][]load)
	for _, tl := range x.m.Index.TruckLoads {
		qty, err := x.value(tl.Load, "truck_load")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		k := shipmentKey{tl.Route.Key(), tl.Product, tl.Date.Unix()}
		loads[k] = append(loads[k], load{tl.TruckID, qty})
	}

	for _, sv := range x.m.Index.Shipments {
		qty, err := x.value(sv.Var, "in_transit")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		row := dto.Shipment{
			Origin:       sv.Route.Origin,
			Destination:  sv.Route.Destination,
			Product:      sv.Product,
			Departure:    sv.Departure,
			Arrival:      sv.Arrival,
			State:        sv.Route.TransportState,
			ArrivalState: sv.ArrivalState,
		}
		remaining := qty
		for _, l := range loads[shipmentKey{sv.Route.Key(), sv.Product, sv.Departure.Unix()}] {
			carried := row
			carried.Quantity = l.qty
			carried.TruckID = l.truck
			plan.Shipments = append(plan.Shipments, carried)
			remaining -= l.qty
		}
		if remaining >= entities.Tolerance {
			row.Quantity = remaining
			plan.Shipments = append(plan.Shipments, row)
		}
	}
	return nil
}

func (x *extractor) inventory(plan *dto.Plan) error {
	for _, iv := range x.m.Index.Inventory {
		qty, err := x.value(iv.Var, "inventory")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		upp := float64(x.m.Products[iv.Product].PalletUnits())
		plan.Inventory = append(plan.Inventory, dto.InventoryPosition{
			Node:     iv.Node,
			Product:  iv.Product,
			State:    iv.State,
			Date:     iv.Date,
			Quantity: qty,
			Pallets:  int(math.Ceil(qty/upp - 1e-9)),
		})
	}
	return nil
}

func (x *extractor) labor(plan *dto.Plan) error {
	for _, lv := range x.m.Index.Labor {
		used, err := x.value(lv.Used, "labor_hours_used")
		if err != nil {
			return err
		}
		if used == 0 {
			continue
		}
		usage := dto.LaborUsage{Node: lv.Node, Date: lv.Date, FixedDay: lv.Day.IsFixedDay(), Hours: used}
		if usage.FixedDay {
			overtime, err := x.value(lv.Overtime, "overtime_hours_used")
			if err != nil {
				return err
			}
			usage.OvertimeHours = overtime
			usage.RegularHours = used - overtime
			usage.Cost = money(usage.RegularHours * lv.Day.RegularRate).Add(money(overtime * lv.Day.OvertimeRate))
		} else {
			usage.PremiumHours = used
			usage.Cost = money(used * lv.Day.NonFixedRate)
		}
		plan.Labor = append(plan.Labor, usage)
	}
	return nil
}

func (x *extractor) conversions(plan *dto.Plan) error {
	for _, cv := range x.m.Index.Conversions {
		qty, err := x.value(cv.Var, "conversion")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		plan.Conversions = append(plan.Conversions, dto.Conversion{
			Node: cv.Node, Product: cv.Product, From: cv.From, To: cv.To, Date: cv.Date, Quantity: qty,
		})
	}
	return nil
}

func (x *extractor) disposals(plan *dto.Plan) error {
	for _, dv := range x.m.Index.Disposals {
		qty, err := x.value(dv.Var, "disposal")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		plan.Disposals = append(plan.Disposals, dto.Disposal{
			Node: dv.Node, Product: dv.Product, State: dv.State, Date: dv.Date, Quantity: qty,
		})
	}
	return nil
}

func (x *extractor) demand(plan *dto.Plan) error {
	for _, dv := range x.m.Index.Demand {
		short, err := x.value(dv.Shortage, "shortage")
		if err != nil {
			return err
		}
		for _, c := range dv.Consumed {
			if _, err := x.value(c.Var, "demand_consumed"); err != nil {
				return err
			}
		}
		plan.Summary.TotalDemand += dv.Quantity
		if short == 0 {
			continue
		}
		plan.Shortages = append(plan.Shortages, dto.Shortage{
			Node: dv.Node, Product: dv.Product, Date: dv.Date, Demand: dv.Quantity, Quantity: short,
		})
	}
	return nil
}

func (x *extractor) truckLoads(plan *dto.Plan) error {
	type key struct {
		truck   string
		product entities.ProductID
		day     int64
	}
	pallets := make(map[key]float64)
	for _, tp := range x.m.Index.TruckPallets {
		v, err := x.value(tp.Var, "truck_pallets")
		if err != nil {
			return err
		}
		pallets[key{tp.TruckID, tp.Product, tp.Date.Unix()}] = v
	}

	for _, tl := range x.m.Index.TruckLoads {
		qty, err := x.value(tl.Load, "truck_load")
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		upp := float64(x.m.Products[tl.Product].PalletUnits())
		count := int(math.Ceil(qty/upp - 1e-9))
		if p, ok := pallets[key{tl.TruckID, tl.Product, tl.Date.Unix()}]; ok {
			count = int(math.Round(p))
		}
		plan.TruckLoads = append(plan.TruckLoads, dto.TruckLoad{
			TruckID:     tl.TruckID,
			Origin:      tl.Route.Origin,
			Destination: tl.Route.Destination,
			Product:     tl.Product,
			Date:        tl.Date,
			Quantity:    qty,
			Pallets:     count,
		})
	}
	return nil
}

// costs attributes the objective to its categories and checks the parts
// add up to the solver's objective
func (x *extractor) costs(plan *dto.Plan, objective float64) error {
	total := 0.0
	for _, category := range builder.CostCategories {
		amount := x.m.LP.EvaluateCategory(category, x.values)
		total += amount
		plan.Costs.Set(category, money(amount))
	}
	for _, category := range builder.CostCategories {
		plan.Costs.Total = plan.Costs.Total.Add(plan.Costs.Get(category))
	}

	tol := math.Max(entities.Tolerance, 1e-6*math.Abs(objective))
	if math.Abs(total-objective) > tol {
		return fmt.Errorf("%w: categories sum to %.4f, objective is %.4f", ErrCostMismatch, total, objective)
	}
	return nil
}

func (x *extractor) summarise(plan *dto.Plan) {
	s := &plan.Summary
	for _, sh := range plan.Shortages {
		s.TotalShortage += sh.Quantity
	}
	s.FillRate = 1
	if s.TotalDemand > 0 {
		s.FillRate = (s.TotalDemand - s.TotalShortage) / s.TotalDemand
	}
	for _, p := range plan.Production {
		s.TotalProduced += p.Quantity
	}
	for _, sh := range plan.Shipments {
		s.TotalShipped += sh.Quantity
	}
	for _, d := range plan.Disposals {
		s.TotalDisposed += d.Quantity
	}
	for _, inv := range plan.Inventory {
		if inv.Date.Equal(plan.End) {
			s.EndingInventory += inv.Quantity
		}
	}
	for _, l := range plan.Labor {
		s.LaborHours += l.Hours
	}
}

func money(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}
