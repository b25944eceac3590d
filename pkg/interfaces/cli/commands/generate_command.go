package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/infrastructure/scenario"
)

const dateLayout = "2006-01-02"

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Products  int       // Number of products
	Hubs      int       // Number of storage hubs between the plant and the stores
	Stores    int       // Number of demand nodes
	Days      int       // Planning horizon length
	Start     time.Time // First planning day, zero means the next Monday
	Inventory float64   // Initial store stock in days of average demand
	OutputDir string    // Output directory for generated files
	Seed      int64     // Random seed for reproducible generation
	Help      bool      // Show help
	Verbose   bool      // Verbose output
	Out       io.Writer
}

// GenerateCommand writes a synthetic bakery scenario directory
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Start.IsZero() {
		config.Start = nextMonday(time.Now().UTC())
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if err := cmd.validate(); err != nil {
		return err
	}

	out := cmd.config.Out
	if cmd.config.Verbose {
		fmt.Fprintf(out,
			"🔧 Generating scenario with %d products, %d hubs, %d stores over %d days, %.1f days of stock\n",
			cmd.config.Products, cmd.config.Hubs, cmd.config.Stores, cmd.config.Days, cmd.config.Inventory,
		)
		fmt.Fprintf(out, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(out, "🎲 Random seed: %d\n", cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	network := cmd.generateNetwork()
	if cmd.config.Verbose {
		fmt.Fprintf(out, "🕸️  Generating %s...\n", scenario.NetworkFileName)
	}
	if err := cmd.writeNetwork(network); err != nil {
		return fmt.Errorf("failed to generate network: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(out, "📋 Generating %s...\n", scenario.DemandCSVName)
	}
	averages, err := cmd.generateDemand(network)
	if err != nil {
		return fmt.Errorf("failed to generate demand: %w", err)
	}

	if cmd.config.Inventory > 0 {
		if cmd.config.Verbose {
			fmt.Fprintf(out, "📦 Generating %s...\n", scenario.InventoryFileName)
		}
		if err := cmd.generateInventory(network, averages); err != nil {
			return fmt.Errorf("failed to generate inventory: %w", err)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

func (cmd *GenerateCommand) validate() error {
	switch {
	case cmd.config.OutputDir == "":
		return fmt.Errorf("validation error: output directory is required")
	case cmd.config.Products < 1:
		return fmt.Errorf("validation error: at least one product is required")
	case cmd.config.Stores < 1:
		return fmt.Errorf("validation error: at least one store is required")
	case cmd.config.Hubs < 0:
		return fmt.Errorf("validation error: hubs cannot be negative")
	case cmd.config.Days < 1:
		return fmt.Errorf("validation error: days must be at least 1")
	case cmd.config.Inventory < 0:
		return fmt.Errorf("validation error: inventory cannot be negative")
	}
	return nil
}

// generateNetwork lays out plant, hubs and stores. Stores are assigned to
// hubs round robin; every second hub ships frozen to its stores.
func (cmd *GenerateCommand) generateNetwork() *scenario.NetworkFile {
	end := cmd.config.Start.AddDate(0, 0, cmd.config.Days-1)
	nf := &scenario.NetworkFile{
		StartDate: cmd.config.Start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Costs: scenario.CostsDoc{
			ProductionCostPerUnit:  1.3,
			TransportCostPerUnit:   0.2,
			WasteMultiplier:        1.5,
			ShortagePenaltyPerUnit: 10,
			ChangeoverCost:         50,
		},
		Labor: &scenario.LaborDoc{FixedHours: 12, RegularRate: 25, OvertimeRate: 37.5, NonFixedRate: 40},
	}

	nf.Nodes = append(nf.Nodes, scenario.NodeDoc{
		ID:              "MFG",
		Name:            "Bakery",
		Roles:           []string{"manufacturing"},
		Storage:         []string{"ambient"},
		ProductionRate:  1400,
		StartupHours:    0.5,
		ShutdownHours:   0.5,
		ChangeoverHours: 1,
	})

	for p := 1; p <= cmd.config.Products; p++ {
		nf.Products = append(nf.Products, scenario.ProductDoc{
			ID:             fmt.Sprintf("PROD_%02d", p),
			MixSize:        100 + 10*cmd.rand.Intn(10),
			UnitsPerPallet: 320,
		})
	}

	hubs := make([]string, cmd.config.Hubs)
	for h := range hubs {
		id := fmt.Sprintf("HUB_%02d", h+1)
		hubs[h] = id
		nf.Nodes = append(nf.Nodes, scenario.NodeDoc{
			ID:             id,
			Roles:          []string{"storage"},
			Storage:        []string{"ambient", "frozen"},
			PalletCapacity: 400,
		})
		nf.Routes = append(nf.Routes, scenario.RouteDoc{Origin: "MFG", Destination: id, TransitDays: 1})
		nf.Trucks = append(nf.Trucks, scenario.TruckDoc{
			ID:             fmt.Sprintf("T-%s", id),
			Origin:         "MFG",
			Destination:    id,
			DayOfWeek:      []string{"mon", "wed", "fri"}[h%3],
			UnitCapacity:   14080,
			PalletCapacity: 44,
			FixedCost:      100,
		})
	}

	for s := 1; s <= cmd.config.Stores; s++ {
		id := fmt.Sprintf("STORE_%03d", s)
		doc := scenario.NodeDoc{ID: id, Roles: []string{"demand"}, Storage: []string{"ambient"}}
		if len(hubs) == 0 {
			nf.Routes = append(nf.Routes, scenario.RouteDoc{Origin: "MFG", Destination: id, TransitDays: 1, CostPerUnit: 0.3})
			nf.Nodes = append(nf.Nodes, doc)
			continue
		}
		h := (s - 1) % len(hubs)
		route := scenario.RouteDoc{Origin: hubs[h], Destination: id, TransitDays: 1 + cmd.rand.Intn(2)}
		if h%2 == 1 {
			route.TransportState = "frozen"
			doc.Storage = append(doc.Storage, "thawed")
		}
		nf.Nodes = append(nf.Nodes, doc)
		nf.Routes = append(nf.Routes, route)
	}

	nf.Costs.Storage = map[string]entities.StorageRate{
		"ambient": {PerUnitDay: 0.01},
		"frozen":  {PerPalletFixed: 2, PerPalletDay: 0.5},
	}
	return nf
}

func (cmd *GenerateCommand) writeNetwork(nf *scenario.NetworkFile) error {
	data, err := yaml.Marshal(nf)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cmd.config.OutputDir, scenario.NetworkFileName), data, 0644)
}

// generateDemand writes daily store demand with a weekend peak and returns
// the average daily demand per store and product
func (cmd *GenerateCommand) generateDemand(nf *scenario.NetworkFile) (map[[2]string]int, error) {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, scenario.DemandCSVName))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fmt.Fprintln(file, "node,product,date,quantity")

	averages := make(map[[2]string]int)
	for _, node := range nf.Nodes {
		if node.Roles[0] != "demand" {
			continue
		}
		for _, product := range nf.Products {
			base := 20 + cmd.rand.Intn(100)
			total := 0
			for d := 0; d < cmd.config.Days; d++ {
				date := cmd.config.Start.AddDate(0, 0, d)
				qty := base + cmd.rand.Intn(base/2+1)
				if wd := date.Weekday(); wd == time.Friday || wd == time.Saturday {
					qty = qty * 3 / 2
				}
				total += qty
				fmt.Fprintf(file, "%s,%s,%s,%d\n", node.ID, product.ID, date.Format(dateLayout), qty)
			}
			averages[[2]string{node.ID, product.ID}] = total / cmd.config.Days
		}
	}
	return averages, nil
}

func (cmd *GenerateCommand) generateInventory(nf *scenario.NetworkFile, averages map[[2]string]int) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, scenario.InventoryFileName))
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "node,product,state,quantity")
	for _, node := range nf.Nodes {
		if node.Roles[0] != "demand" {
			continue
		}
		for _, product := range nf.Products {
			qty := int(float64(averages[[2]string{node.ID, product.ID}]) * cmd.config.Inventory)
			if qty == 0 {
				continue
			}
			fmt.Fprintf(file, "%s,%s,%s,%d\n", node.ID, product.ID, node.Storage[len(node.Storage)-1], qty)
		}
	}

	nf.Inventory = &scenario.InventoryDoc{
		SnapshotDate:   cmd.config.Start.AddDate(0, 0, -1).Format(dateLayout),
		AssumedAgeDays: 1,
	}
	return cmd.writeNetwork(nf)
}

// printHelp displays help information for the generate command
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprint(cmd.config.Out, `Generate - Create a synthetic bakery planning scenario

USAGE:
  planner generate [OPTIONS]

OPTIONS:
  --products <n>    Number of products (default: 3)
  --hubs <n>        Number of storage hubs (default: 2)
  --stores <n>      Number of stores (default: 6)
  --days <n>        Horizon length in days (default: 14)
  --inventory <x>   Initial store stock in days of demand (default: 1.0)
  --output <dir>    Output directory (required)
  --seed <n>        Random seed for reproducible generation
  --verbose         Verbose output

FILES:
  network.yaml      Nodes, products, routes, trucks, costs and labor
  demand.csv        node,product,date,quantity
  inventory.csv     node,product,state,quantity

EXAMPLE:
  planner generate --stores 20 --days 28 --output ./scenarios/large --seed 42
  planner plan ./scenarios/large
`)
}

func nextMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
