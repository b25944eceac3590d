package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/application/services/planning"
	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/infrastructure/events"
	"github.com/vsinha/distplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/distplan/pkg/interfaces/cli/output"
	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/solver"
)

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	start := time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)

	// A bakery feeding two stores, one directly and one through a frozen hub
	input, err := bakeryNetwork(start, end)
	if err != nil {
		fmt.Printf("❌ Invalid network: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🥖 Planning one week of bread for two stores...")
	fmt.Printf("Horizon: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Println()

	service := planning.NewService(logger, events.NewInMemoryEventStore(logger))
	result, err := service.Plan(ctx, planning.Request{
		Name:    "example",
		Input:   input,
		Options: builder.DefaultOptions(),
		Solver:  solver.Options{TimeLimit: time.Minute},
	})
	if err != nil {
		fmt.Printf("❌ Planning failed: %v\n", err)
		os.Exit(1)
	}

	if err := output.Generate(os.Stdout, result, output.Config{Format: "text", Verbose: true}); err != nil {
		fmt.Printf("❌ Output failed: %v\n", err)
		os.Exit(1)
	}
}

func bakeryNetwork(start, end time.Time) (builder.Input, error) {
	var input builder.Input

	mfg, err := entities.NewNode("BAKERY", "Bakery", entities.RoleManufacturing, entities.NewStateSet(entities.Ambient), 1400)
	if err != nil {
		return input, err
	}
	mfg.StartupHours, mfg.ShutdownHours = 0.5, 0.5

	hub, err := entities.NewNode("HUB", "Frozen hub", entities.RoleStorage, entities.NewStateSet(entities.Ambient, entities.Frozen), 0)
	if err != nil {
		return input, err
	}
	city, err := entities.NewNode("CITY", "City store", entities.RoleDemand, entities.NewStateSet(entities.Ambient), 0)
	if err != nil {
		return input, err
	}
	coast, err := entities.NewNode("COAST", "Coast store", entities.RoleDemand, entities.NewStateSet(entities.Thawed), 0)
	if err != nil {
		return input, err
	}
	input.Nodes = []entities.Node{*mfg, *hub, *city, *coast}

	for _, r := range []struct {
		origin, destination entities.NodeID
		state               entities.State
		days                int
	}{
		{"BAKERY", "CITY", entities.Ambient, 1},
		{"BAKERY", "HUB", entities.Ambient, 1},
		{"HUB", "COAST", entities.Frozen, 2},
	} {
		route, err := entities.NewRoute(r.origin, r.destination, r.state, r.days, 0.2)
		if err != nil {
			return input, err
		}
		input.Routes = append(input.Routes, *route)
	}

	bread, err := entities.NewProduct("BREAD", "White loaf", 415, 320)
	if err != nil {
		return input, err
	}
	input.Products = []entities.Product{*bread}

	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, store := range []entities.NodeID{"CITY", "COAST"} {
			qty := 300.0
			if d.Weekday() == time.Saturday {
				qty = 450
			}
			demand, err := entities.NewDemandEntry(store, "BREAD", d, qty)
			if err != nil {
				return input, err
			}
			input.Demand = append(input.Demand, *demand)
		}
	}

	input.Labor = memory.StandardWeek(start, end, 12, 25, 37.5, 40)
	input.Costs = entities.CostStructure{
		ProductionCostPerUnit:  1.3,
		TransportCostPerUnit:   0.2,
		WasteMultiplier:        1.5,
		ShortagePenaltyPerUnit: 10,
		Storage: map[entities.State]entities.StorageRate{
			entities.Ambient: {PerUnitDay: 0.01},
			entities.Frozen:  {PerPalletFixed: 2, PerPalletDay: 0.5},
			entities.Thawed:  {PerUnitDay: 0.01},
		},
	}
	input.Start, input.End = start, end
	return input, nil
}
