package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/distplan/pkg/application/dto"
	"github.com/vsinha/distplan/pkg/optimization/builder"
)

const dateLayout = "2006-01-02"

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "csv", "xlsx", "svg"}

// Generate writes the result in the configured format. Text, JSON and SVG
// go to w; CSV and XLSX are written as files into OutputDir.
func Generate(w io.Writer, result *dto.PlanResult, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(w, result, config)
	case "json":
		return generateJSONOutput(w, result, config)
	case "csv":
		return generateCSVOutput(w, result, config)
	case "xlsx":
		return generateXLSXOutput(w, result, config)
	case "svg":
		return generateSVGOutput(w, result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, result *dto.PlanResult, config Config) error {
	fmt.Fprintf(w, "📊 Planning Results Summary\n")
	fmt.Fprintf(w, "===========================\n\n")

	fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(w, "Status: %s\n", result.TerminationCondition)
	fmt.Fprintf(w, "Model: %d variables (%d integer), %d constraints\n",
		result.Stats.Variables, result.Stats.Integers, result.Stats.Constraints)
	fmt.Fprintf(w, "Solve Time: %.2fs\n", result.SolveTimeSeconds)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}
	fmt.Fprintln(w)

	if !result.Success || result.Plan == nil {
		fmt.Fprintf(w, "❌ No plan: %s\n", result.InfeasibilityMessage)
		return nil
	}

	plan := result.Plan
	fmt.Fprintf(w, "Objective: %.2f (gap %.4f)\n", result.ObjectiveValue, result.Gap)
	fmt.Fprintf(w, "Horizon: %s to %s\n", plan.Start.Format(dateLayout), plan.End.Format(dateLayout))
	fmt.Fprintf(w, "Fill Rate: %.1f%% (%.0f of %.0f short)\n",
		plan.Summary.FillRate*100, plan.Summary.TotalShortage, plan.Summary.TotalDemand)
	fmt.Fprintf(w, "Produced: %.0f  Shipped: %.0f  Disposed: %.0f  Ending Stock: %.0f  Labor Hours: %.1f\n\n",
		plan.Summary.TotalProduced, plan.Summary.TotalShipped, plan.Summary.TotalDisposed,
		plan.Summary.EndingInventory, plan.Summary.LaborHours)

	fmt.Fprintf(w, "💰 Costs:\n")
	for _, category := range builder.CostCategories {
		fmt.Fprintf(w, "  %-12s %12s\n", category, plan.Costs.Get(category).StringFixed(2))
	}
	fmt.Fprintf(w, "  %-12s %12s\n\n", "total", plan.Costs.Total.StringFixed(2))

	if len(plan.Production) > 0 {
		fmt.Fprintf(w, "🏭 Production:\n")
		fmt.Fprintf(w, "%-12s %-10s %-12s %-10s %-6s\n", "Date", "Node", "Product", "Qty", "Mixes")
		fmt.Fprintf(w, "%-12s %-10s %-12s %-10s %-6s\n", "------------", "----------", "------------", "----------", "------")
		for _, b := range plan.Production {
			fmt.Fprintf(w, "%-12s %-10s %-12s %-10.0f %-6d\n",
				b.Date.Format(dateLayout), b.Node, b.Product, b.Quantity, b.MixCount)
		}
		fmt.Fprintln(w)
	}

	if len(plan.Labor) > 0 {
		fmt.Fprintf(w, "👷 Labor:\n")
		fmt.Fprintf(w, "%-12s %-10s %-8s %-8s %-8s %-8s %-10s\n", "Date", "Node", "Hours", "Regular", "OT", "Premium", "Cost")
		for _, l := range plan.Labor {
			fmt.Fprintf(w, "%-12s %-10s %-8.2f %-8.2f %-8.2f %-8.2f %-10s\n",
				l.Date.Format(dateLayout), l.Node, l.Hours, l.RegularHours, l.OvertimeHours, l.PremiumHours, l.Cost.StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	if len(plan.Shipments) > 0 {
		fmt.Fprintf(w, "🚚 Shipments:\n")
		fmt.Fprintf(w, "%-12s %-12s %-10s %-10s %-12s %-8s %-10s %-8s\n",
			"Departure", "Arrival", "From", "To", "Product", "State", "Qty", "Truck")
		for _, s := range plan.Shipments {
			fmt.Fprintf(w, "%-12s %-12s %-10s %-10s %-12s %-8s %-10.0f %-8s\n",
				s.Departure.Format(dateLayout), s.Arrival.Format(dateLayout), s.Origin, s.Destination,
				s.Product, s.State, s.Quantity, s.TruckID)
		}
		fmt.Fprintln(w)
	}

	if len(plan.Shortages) > 0 {
		fmt.Fprintf(w, "⚠️  Shortages:\n")
		fmt.Fprintf(w, "%-12s %-10s %-12s %-10s %-10s\n", "Date", "Node", "Product", "Demand", "Short")
		for _, s := range plan.Shortages {
			fmt.Fprintf(w, "%-12s %-10s %-12s %-10.0f %-10.0f\n",
				s.Date.Format(dateLayout), s.Node, s.Product, s.Demand, s.Quantity)
		}
		fmt.Fprintln(w)
	}

	if len(plan.Disposals) > 0 {
		fmt.Fprintf(w, "🗑️  Disposals:\n")
		for _, d := range plan.Disposals {
			fmt.Fprintf(w, "  %s %s %s %s: %.0f\n", d.Date.Format(dateLayout), d.Node, d.Product, d.State, d.Quantity)
		}
		fmt.Fprintln(w)
	}

	if config.Verbose && len(plan.Inventory) > 0 {
		fmt.Fprintf(w, "📦 Inventory:\n")
		fmt.Fprintf(w, "%-12s %-10s %-12s %-8s %-10s %-8s\n", "Date", "Node", "Product", "State", "Qty", "Pallets")
		for _, inv := range plan.Inventory {
			fmt.Fprintf(w, "%-12s %-10s %-12s %-8s %-10.0f %-8d\n",
				inv.Date.Format(dateLayout), inv.Node, inv.Product, inv.State, inv.Quantity, inv.Pallets)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, result *dto.PlanResult, config Config) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(w, string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "plan.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// table is one exported report: a file or sheet name, a header and rows
type table struct {
	name   string
	header []string
	rows   [][]string
}

// tables flattens a plan into the reports shared by CSV and XLSX output
func tables(plan *dto.Plan) []table {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	production := table{name: "production", header: []string{"date", "node", "product", "quantity", "mix_count"}}
	for _, b := range plan.Production {
		production.rows = append(production.rows, []string{b.Date.Format(dateLayout), string(b.Node), string(b.Product), f(b.Quantity), strconv.Itoa(b.MixCount)})
	}

	shipments := table{name: "shipments", header: []string{"departure", "arrival", "origin", "destination", "product", "state", "arrival_state", "quantity", "truck_id"}}
	for _, s := range plan.Shipments {
		shipments.rows = append(shipments.rows, []string{s.Departure.Format(dateLayout), s.Arrival.Format(dateLayout), string(s.Origin), string(s.Destination), string(s.Product), s.State.String(), s.ArrivalState.String(), f(s.Quantity), s.TruckID})
	}

	inventory := table{name: "inventory", header: []string{"date", "node", "product", "state", "quantity", "pallets"}}
	for _, inv := range plan.Inventory {
		inventory.rows = append(inventory.rows, []string{inv.Date.Format(dateLayout), string(inv.Node), string(inv.Product), inv.State.String(), f(inv.Quantity), strconv.Itoa(inv.Pallets)})
	}

	labor := table{name: "labor", header: []string{"date", "node", "fixed_day", "hours", "regular_hours", "overtime_hours", "premium_hours", "cost"}}
	for _, l := range plan.Labor {
		labor.rows = append(labor.rows, []string{l.Date.Format(dateLayout), string(l.Node), strconv.FormatBool(l.FixedDay), f(l.Hours), f(l.RegularHours), f(l.OvertimeHours), f(l.PremiumHours), l.Cost.StringFixed(2)})
	}

	shortages := table{name: "shortages", header: []string{"date", "node", "product", "demand", "shortage"}}
	for _, s := range plan.Shortages {
		shortages.rows = append(shortages.rows, []string{s.Date.Format(dateLayout), string(s.Node), string(s.Product), f(s.Demand), f(s.Quantity)})
	}

	conversions := table{name: "conversions", header: []string{"date", "node", "product", "from", "to", "quantity"}}
	for _, c := range plan.Conversions {
		conversions.rows = append(conversions.rows, []string{c.Date.Format(dateLayout), string(c.Node), string(c.Product), c.From.String(), c.To.String(), f(c.Quantity)})
	}

	disposals := table{name: "disposals", header: []string{"date", "node", "product", "state", "quantity"}}
	for _, d := range plan.Disposals {
		disposals.rows = append(disposals.rows, []string{d.Date.Format(dateLayout), string(d.Node), string(d.Product), d.State.String(), f(d.Quantity)})
	}

	trucks := table{name: "truck_loads", header: []string{"date", "truck_id", "origin", "destination", "product", "quantity", "pallets"}}
	for _, t := range plan.TruckLoads {
		trucks.rows = append(trucks.rows, []string{t.Date.Format(dateLayout), t.TruckID, string(t.Origin), string(t.Destination), string(t.Product), f(t.Quantity), strconv.Itoa(t.Pallets)})
	}

	costs := table{name: "costs", header: []string{"category", "amount"}}
	for _, category := range builder.CostCategories {
		costs.rows = append(costs.rows, []string{category, plan.Costs.Get(category).StringFixed(2)})
	}
	costs.rows = append(costs.rows, []string{"total", plan.Costs.Total.StringFixed(2)})

	return []table{production, shipments, inventory, labor, shortages, conversions, disposals, trucks, costs}
}

// generateCSVOutput writes one CSV file per report
func generateCSVOutput(w io.Writer, result *dto.PlanResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if result.Plan == nil {
		return fmt.Errorf("no plan to export: %s", result.InfeasibilityMessage)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, t := range tables(result.Plan) {
		filename := filepath.Join(config.OutputDir, t.name+".csv")
		if err := writeCSV(filename, t); err != nil {
			return fmt.Errorf("failed to write %s CSV: %w", t.name, err)
		}
		if config.Verbose {
			fmt.Fprintf(w, "💾 %s saved to: %s\n", t.name, filename)
		}
	}

	return nil
}

func writeCSV(filename string, t table) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.rows); err != nil {
		return err
	}
	return file.Close()
}
