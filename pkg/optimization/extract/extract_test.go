package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/distplan/pkg/domain/entities"
	fixtures "github.com/vsinha/distplan/pkg/infrastructure/testing"
	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/extract"
	"github.com/vsinha/distplan/pkg/optimization/milp"
	"github.com/vsinha/distplan/pkg/optimization/solver"
)

func buildAndSolve(t *testing.T, sc fixtures.Scenario) (*builder.Model, *milp.Result) {
	t.Helper()
	m, err := builder.Build(builder.Input{
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
	}, builder.DefaultOptions())
	require.NoError(t, err)

	r := solver.Solve(context.Background(), m.LP, solver.Options{})
	require.Equal(t, milp.StatusOptimal, r.Status, r.Message)
	return m, r
}

func TestExtract_ShortHorizonPlan(t *testing.T) {
	m, r := buildAndSolve(t, fixtures.ShortHorizonScenario(2))

	plan, err := extract.Extract(m, r)
	require.NoError(t, err)

	require.Len(t, plan.Production, 1)
	assert.Equal(t, fixtures.Day(0), plan.Production[0].Date)
	assert.InDelta(t, 100, plan.Production[0].Quantity, entities.Tolerance)
	assert.Equal(t, 1, plan.Production[0].MixCount)

	require.Len(t, plan.Shipments, 1)
	s := plan.Shipments[0]
	assert.Equal(t, entities.NodeID("MFG"), s.Origin)
	assert.Equal(t, fixtures.Day(1), s.Arrival)
	assert.Empty(t, s.TruckID)

	require.Len(t, plan.Shortages, 1)
	assert.Equal(t, fixtures.Day(0), plan.Shortages[0].Date)
	assert.InDelta(t, 100, plan.Shortages[0].Quantity, entities.Tolerance)

	require.Len(t, plan.Labor, 1)
	assert.InDelta(t, 1, plan.Labor[0].Hours, entities.Tolerance)
	assert.Equal(t, "20", plan.Labor[0].Cost.String())

	require.Len(t, plan.ProductStarts, 1)
	assert.InDelta(t, 0.5, plan.Summary.FillRate, 1e-9)
	assert.InDelta(t, 200, plan.Summary.TotalDemand, 1e-9)
	assert.InDelta(t, 100, plan.Summary.TotalShipped, entities.Tolerance)
}

func TestExtract_CostBreakdownMatchesObjective(t *testing.T) {
	m, r := buildAndSolve(t, fixtures.ShortHorizonScenario(2))

	plan, err := extract.Extract(m, r)
	require.NoError(t, err)

	total, _ := plan.Costs.Total.Float64()
	assert.InDelta(t, r.Objective, total, 0.05)
	assert.Equal(t, "100", plan.Costs.Production.String())
	assert.Equal(t, "1000", plan.Costs.Shortage.String())
	assert.Equal(t, "50", plan.Costs.Transport.String())
	for _, c := range builder.CostCategories {
		assert.False(t, plan.Costs.Get(c).IsNegative(), c)
	}
}

func TestExtract_TruckAssignment(t *testing.T) {
	sc := fixtures.MondayTruckScenario()
	sc.Demand = sc.Demand[1:2] // Tuesday only, so the Monday truck is worth its fixed cost
	sc.End = fixtures.Day(1)
	m, r := buildAndSolve(t, sc)

	plan, err := extract.Extract(m, r)
	require.NoError(t, err)

	require.Len(t, plan.Shipments, 1)
	assert.Equal(t, "T-MON", plan.Shipments[0].TruckID)
	require.Len(t, plan.TruckLoads, 1)
	assert.Equal(t, 1, plan.TruckLoads[0].Pallets)
	assert.Equal(t, "50", plan.Costs.Truck.String())
}

func TestExtract_Errors(t *testing.T) {
	m, r := buildAndSolve(t, fixtures.ShortHorizonScenario(2))

	_, err := extract.Extract(m, &milp.Result{Status: milp.StatusInfeasible})
	assert.ErrorIs(t, err, extract.ErrNoSolution)

	truncated := *r
	truncated.Values = r.Values[:len(r.Values)-1]
	_, err = extract.Extract(m, &truncated)
	assert.ErrorIs(t, err, extract.ErrMissingVariable)

	broken := *m
	index := *m.Index
	index.Production = append([]builder.ProductionVars(nil), index.Production...)
	index.Production[0].MixCount = builder.NoVar
	broken.Index = &index
	_, err = extract.Extract(&broken, r)
	assert.ErrorIs(t, err, extract.ErrMissingVariable)

	tampered := *r
	tampered.Objective += 10
	_, err = extract.Extract(m, &tampered)
	assert.ErrorIs(t, err, extract.ErrCostMismatch)
}
