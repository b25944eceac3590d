package planning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/services"
	"github.com/vsinha/distplan/pkg/infrastructure/events"
	"github.com/vsinha/distplan/pkg/infrastructure/scenario"
	fixtures "github.com/vsinha/distplan/pkg/infrastructure/testing"
	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/milp"
	"github.com/vsinha/distplan/pkg/optimization/solver"
)

const (
	store = entities.NodeID("STORE")
	mfg   = entities.NodeID("MFG")
	bread = entities.ProductID("BREAD")
)

func request(sc fixtures.Scenario) Request {
	return Request{
		Input: builder.Input{
			Nodes:     sc.Nodes,
			Routes:    sc.Routes,
			Products:  sc.Products,
			Demand:    sc.Demand,
			Labor:     sc.Labor,
			Costs:     sc.Costs,
			Trucks:    sc.Trucks,
			Inventory: sc.Inventory,
			Start:     sc.Start,
			End:       sc.End,
		},
		Options: builder.DefaultOptions(),
		Solver:  solver.Options{TimeLimit: time.Minute},
	}
}

func newService(t *testing.T) (*Service, *events.InMemoryEventStore) {
	st := events.NewInMemoryEventStore(nil)
	return NewService(zaptest.NewLogger(t), st), st
}

func TestPlan_OneDayHorizonIsAllShortage(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.ShortHorizonScenario(1)))
	require.NoError(t, err)
	require.True(t, res.Success, res.InfeasibilityMessage)
	assert.Equal(t, string(milp.StatusOptimal), res.TerminationCondition)

	assert.InDelta(t, 100, res.Plan.ShortageOn(store, bread, fixtures.Day(0)), entities.Tolerance)
	assert.Empty(t, res.Plan.Shipments)
	assert.Zero(t, res.Plan.Summary.TotalProduced)
	assert.InDelta(t, 1000, res.ObjectiveValue, entities.Tolerance)
}

func TestPlan_SecondDayIsServed(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.ShortHorizonScenario(2)))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.InDelta(t, 100, res.Plan.ShortageOn(store, bread, fixtures.Day(0)), entities.Tolerance)
	assert.InDelta(t, 0, res.Plan.ShortageOn(store, bread, fixtures.Day(1)), entities.Tolerance)
	assert.InDelta(t, 100, res.Plan.Summary.TotalProduced, entities.Tolerance)
	assert.InDelta(t, 0.5, res.Plan.Summary.FillRate, 1e-6)
}

func TestPlan_InitialInventoryServesDemand(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.InitialInventoryScenario()))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Zero(t, res.Plan.Summary.TotalProduced)
	assert.Empty(t, res.Plan.Shortages)
	assert.Empty(t, res.Plan.Disposals)
	assert.InDelta(t, 500, res.Plan.InventoryOn(mfg, bread, fixtures.Day(2)), entities.Tolerance)
	assert.InDelta(t, 500, res.Plan.Summary.EndingInventory, entities.Tolerance)
}

func TestPlan_WasteMultiplierDiscouragesLeftovers(t *testing.T) {
	svc, _ := newService(t)

	multipliers := []float64{0, 1, 5, 20, 50}
	want := []float64{50, 50, 50, 0, 0}
	var ending []float64
	for i, mult := range multipliers {
		res, err := svc.Plan(context.Background(), request(fixtures.WasteScenario(mult)))
		require.NoError(t, err)
		require.True(t, res.Success, "multiplier %g", mult)
		ending = append(ending, res.Plan.Summary.EndingInventory)
		assert.InDelta(t, want[i], res.Plan.Summary.EndingInventory, entities.Tolerance, "multiplier %g", mult)
	}
	for i := 1; i < len(ending); i++ {
		assert.LessOrEqual(t, ending[i], ending[i-1]+entities.Tolerance)
	}
	assert.InDelta(t, 0, ending[len(ending)-1], entities.Tolerance)
}

func TestPlan_TruckOnlyRunsOnMonday(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.MondayTruckScenario()))
	require.NoError(t, err)
	require.True(t, res.Success)

	require.NotEmpty(t, res.Plan.Shipments)
	for _, s := range res.Plan.Shipments {
		assert.Equal(t, time.Monday, s.Departure.Weekday())
		assert.Equal(t, "T-MON", s.TruckID)
	}
	for _, l := range res.Plan.TruckLoads {
		assert.LessOrEqual(t, l.Pallets, 2)
	}
}

func TestPlan_WeekendMinimumPayment(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.WeekendScenario()))
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Len(t, res.Plan.Labor, 1)
	l := res.Plan.Labor[0]
	assert.False(t, l.FixedDay)
	assert.InDelta(t, 4, l.Hours, entities.Tolerance, "one hour of work is paid as the four hour minimum")
	assert.InDelta(t, 4, l.PremiumHours, entities.Tolerance)
	assert.Equal(t, "160", l.Cost.String())
	assert.InDelta(t, 100, res.Plan.Summary.TotalProduced, entities.Tolerance)
}

func TestPlan_ExpiredStockIsNeverUsed(t *testing.T) {
	svc, _ := newService(t)

	req := request(fixtures.InitialInventoryScenario())
	req.Input.Inventory.AssumedAgeDays = 30
	req.Input.Labor = nil

	res, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success, res.InfeasibilityMessage)
	assert.InDelta(t, 500, res.Plan.Summary.TotalShortage, entities.Tolerance)
	assert.InDelta(t, 1000, res.Plan.Summary.TotalDisposed, entities.Tolerance)
	assert.Empty(t, res.Plan.Shipments)

	m, err := svc.Build(req)
	require.NoError(t, err)
	r := solver.Solve(context.Background(), m.LP, req.Solver)
	require.True(t, r.HasSolution(), r.Message)
	for _, dv := range m.Index.Demand {
		for _, c := range dv.Consumed {
			assert.InDelta(t, 0, r.Values[c.Var], 1e-6, "stock older than its shelf life was consumed")
		}
		assert.InDelta(t, dv.Quantity, r.Values[dv.Shortage], 1e-6)
	}
}

func TestPlan_PalletCountRoundsUp(t *testing.T) {
	svc, _ := newService(t)

	req := request(fixtures.PalletScenario())
	m, err := svc.Build(req)
	require.NoError(t, err)
	require.NotEmpty(t, m.Index.Pallets)

	r := solver.Solve(context.Background(), m.LP, req.Solver)
	require.Equal(t, milp.StatusOptimal, r.Status, r.Message)

	type key struct {
		node  entities.NodeID
		state entities.State
		date  time.Time
	}
	stored := make(map[key]float64)
	for _, iv := range m.Index.Inventory {
		stored[key{iv.Node, iv.State, iv.Date}] += r.Values[iv.Var]
	}
	occupied := 0
	for _, pv := range m.Index.Pallets {
		units := stored[key{pv.Node, pv.State, pv.Date}]
		want := math.Max(0, math.Ceil(units/320-1e-9))
		assert.InDelta(t, want, r.Values[pv.Count], 1e-6, "%s %s on %s holds %g units", pv.Node, pv.State, pv.Date.Format("2006-01-02"), units)
		if want > 0 {
			occupied++
		}
	}
	assert.Positive(t, occupied)

	res, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success)
	for _, pos := range res.Plan.Inventory {
		assert.Equal(t, int(math.Ceil(pos.Quantity/320-1e-9)), pos.Pallets, "%s on %s", pos.Product, pos.Date.Format("2006-01-02"))
	}
}

func TestPlan_ChangeoverHoursPerStartBeyondFirst(t *testing.T) {
	tests := []struct {
		products []string
		hours    float64
	}{
		{[]string{"A"}, 1},
		{[]string{"A", "B"}, 3},
		{[]string{"A", "B", "C"}, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d products", len(tt.products)), func(t *testing.T) {
			svc, _ := newService(t)

			res, err := svc.Plan(context.Background(), request(fixtures.ChangeoverScenario(tt.products...)))
			require.NoError(t, err)
			require.True(t, res.Success, res.InfeasibilityMessage)
			require.Empty(t, res.Plan.Shortages)

			require.Len(t, res.Plan.Labor, 1)
			assert.InDelta(t, tt.hours, res.Plan.Labor[0].Hours, entities.Tolerance,
				"one hour per mix plus one changeover hour per product after the first")
		})
	}
}

func TestPlan_SampleScenario(t *testing.T) {
	sc, err := scenario.NewLoader(zaptest.NewLogger(t)).Load("../../../../scenarios/bakery", scenario.Overrides{})
	require.NoError(t, err)

	svc, _ := newService(t)
	res, err := svc.Plan(context.Background(), Request{
		Name:    sc.Name,
		Input:   sc.Input,
		Options: builder.DefaultOptions(),
		Solver:  solver.Options{TimeLimit: 2 * time.Minute, MIPGap: 0.01},
	})
	require.NoError(t, err)
	require.True(t, res.Success, "%s: %s", res.TerminationCondition, res.InfeasibilityMessage)
	require.NotNil(t, res.Plan)
	assert.NotEqual(t, string(milp.StatusInfeasible), res.TerminationCondition)

	s := res.Plan.Summary
	assert.Positive(t, s.TotalProduced)
	assert.InDelta(t, 5624, s.TotalDemand, entities.Tolerance)
	// opening stock alone covers 1020 units
	assert.Greater(t, s.FillRate, 1020.0/5624)
	assert.InDelta(t, s.TotalDemand, s.TotalDemand*s.FillRate+s.TotalShortage, 1e-4)
}

func TestPlan_FrozenBufferThawsOnReceipt(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.FrozenBufferScenario()))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.InDelta(t, 0, res.Plan.ShortageOn(store, bread, fixtures.Day(3)), entities.Tolerance)
	froze := 0.0
	for _, c := range res.Plan.Conversions {
		if c.To == entities.Frozen {
			froze += c.Quantity
		}
	}
	assert.GreaterOrEqual(t, froze, 100-entities.Tolerance)
	for _, s := range res.Plan.Shipments {
		if s.Destination == store {
			assert.Equal(t, entities.Frozen, s.State)
			assert.Equal(t, entities.Thawed, s.ArrivalState)
		}
	}
}

func TestPlan_SolutionsSatisfyEveryConstraint(t *testing.T) {
	scenarios := map[string]fixtures.Scenario{
		"short horizon":     fixtures.ShortHorizonScenario(2),
		"initial inventory": fixtures.InitialInventoryScenario(),
		"weekend":           fixtures.WeekendScenario(),
		"frozen buffer":     fixtures.FrozenBufferScenario(),
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			svc, _ := newService(t)
			req := request(sc)
			m, err := svc.Build(req)
			require.NoError(t, err)

			r := solver.Solve(context.Background(), m.LP, req.Solver)
			require.True(t, r.HasSolution(), r.Message)
			assert.Empty(t, m.LP.Violations(r.Values, 1e-5))

			// demand conservation: every demand entry is consumed or short
			for _, dv := range m.Index.Demand {
				total := r.Values[dv.Shortage]
				for _, c := range dv.Consumed {
					total += r.Values[c.Var]
				}
				assert.InDelta(t, dv.Quantity, total, 1e-5)
			}
			for _, iv := range m.Index.Inventory {
				assert.GreaterOrEqual(t, r.Values[iv.Var], -1e-6)
			}
		})
	}
}

func TestPlan_InfeasibleWithoutShortages(t *testing.T) {
	svc, st := newService(t)
	req := request(fixtures.ShortHorizonScenario(1))
	req.Options.AllowShortages = false

	res, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Plan)
	assert.Equal(t, string(milp.StatusInfeasible), res.TerminationCondition)
	assert.Contains(t, res.InfeasibilityMessage, "shortages are disabled")
	assert.Contains(t, res.InfeasibilityMessage, "demand(")

	evs, err := st.ReadEvents(events.RunStream(res.RunID), 0)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, events.PlanFailedEvent, evs[len(evs)-1].Type())
}

func TestPlan_ValidationErrorIsReturned(t *testing.T) {
	svc, st := newService(t)
	req := request(fixtures.ShortHorizonScenario(2))
	req.Input.Routes = append(req.Input.Routes, entities.Route{Origin: "MFG", Destination: "NOWHERE", TransitDays: 1})

	res, err := svc.Plan(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, res)
	var verr *services.ValidationError
	assert.True(t, errors.As(err, &verr))

	all, err := st.ReadAllEvents(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events.PlanFailedEvent, all[1].Type())
	assert.Equal(t, "build", all[1].Data().(events.PlanFailed).Stage)
}

func TestPlan_UnknownSolverIsAnOutcome(t *testing.T) {
	svc, _ := newService(t)
	req := request(fixtures.ShortHorizonScenario(1))
	req.Solver.Solver = "cplex"

	res, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, string(milp.StatusError), res.TerminationCondition)
	assert.Contains(t, res.InfeasibilityMessage, "unknown solver")
}

func TestPlan_EmitsRunEvents(t *testing.T) {
	svc, st := newService(t)

	res, err := svc.Plan(context.Background(), request(fixtures.ShortHorizonScenario(2)))
	require.NoError(t, err)

	evs, err := st.ReadEvents(events.RunStream(res.RunID), 0)
	require.NoError(t, err)
	var types []string
	for _, e := range evs {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{
		events.PlanRequestedEvent,
		events.ModelBuiltEvent,
		events.ModelSolvedEvent,
		events.PlanExtractedEvent,
	}, types)
	built := evs[1].Data().(events.ModelBuilt)
	assert.Equal(t, res.Stats.Variables, built.Variables)
}

func TestPlanAll(t *testing.T) {
	svc, _ := newService(t)

	reqs := []Request{
		request(fixtures.ShortHorizonScenario(1)),
		request(fixtures.ShortHorizonScenario(2)),
		request(fixtures.WeekendScenario()),
	}
	reqs[0].Name = "one-day"

	results, err := svc.PlanAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	assert.InDelta(t, 100, results[0].Plan.Summary.TotalShortage, entities.Tolerance)
	assert.InDelta(t, 100, results[1].Plan.Summary.TotalShortage, entities.Tolerance)
	assert.Empty(t, results[2].Plan.Shortages)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)

	bad := request(fixtures.ShortHorizonScenario(1))
	bad.Name = "broken"
	bad.Input.End = bad.Input.Start.AddDate(0, 0, -3)
	_, err = svc.PlanAll(context.Background(), append(reqs, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request broken")
}
