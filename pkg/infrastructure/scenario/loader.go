// Package scenario reads a planning scenario from a directory:
//
//	network.yaml    nodes, products, routes, trucks, costs (required)
//	demand.csv      node, product, date, quantity
//	demand.xlsx     forecast workbook, long or wide layout
//	inventory.csv   node, product, state, quantity
//	labor.csv       one row per calendar date
//
// Demand from both demand files is summed. Without labor.csv a standard
// week is generated from the network's labor section.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/domain/repositories"
	csvloader "github.com/vsinha/distplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/distplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/distplan/pkg/optimization/builder"
)

// File names inside a scenario directory
const (
	NetworkFileName   = "network.yaml"
	DemandCSVName     = "demand.csv"
	DemandXLSXName    = "demand.xlsx"
	InventoryFileName = "inventory.csv"
	LaborFileName     = "labor.csv"
)

// Overrides replace values from the scenario files; zero values keep them
type Overrides struct {
	Start time.Time
	End   time.Time
}

// Scenario is a loaded planning input
type Scenario struct {
	Name  string
	Dir   string
	Input builder.Input
}

// Loader reads scenario directories
type Loader struct {
	csv    *csvloader.Loader
	logger *zap.Logger
}

// NewLoader creates a scenario loader. A nil logger discards logs.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{csv: csvloader.NewLoader(), logger: logger}
}

// Load reads the scenario in dir
func (l *Loader) Load(dir string, overrides Overrides) (*Scenario, error) {
	net, err := LoadNetwork(filepath.Join(dir, NetworkFileName))
	if err != nil {
		return nil, err
	}

	demandRepo := memory.NewDemandRepository()
	if err := l.loadDemand(dir, demandRepo); err != nil {
		return nil, err
	}

	start, end := net.Start, net.End
	if !overrides.Start.IsZero() {
		start = entities.Day(overrides.Start)
	}
	if !overrides.End.IsZero() {
		end = entities.Day(overrides.End)
	}
	if start.IsZero() || end.IsZero() {
		all, _ := demandRepo.GetDemand(time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
		first, last := demandSpan(all)
		if start.IsZero() {
			start = first
		}
		if end.IsZero() {
			end = last
		}
	}

	demand, err := demandRepo.GetDemand(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read demand: %w", err)
	}

	inventory, err := l.loadInventory(dir, net)
	if err != nil {
		return nil, err
	}

	labor, err := l.loadLabor(dir, net, start, end)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("scenario loaded",
		zap.String("dir", dir),
		zap.Int("nodes", len(net.Nodes)),
		zap.Int("routes", len(net.Routes)),
		zap.Int("demand_entries", len(demand)),
		zap.Float64("total_demand", demandRepo.Total()),
		zap.Bool("inventory", inventory != nil),
		zap.Bool("labor", labor != nil))

	return &Scenario{
		Name: filepath.Base(filepath.Clean(dir)),
		Dir:  dir,
		Input: builder.Input{
			Nodes:     net.Nodes,
			Routes:    net.Routes,
			Products:  net.Products,
			Demand:    demand,
			Labor:     labor,
			Costs:     net.Costs,
			Trucks:    net.Trucks,
			Inventory: inventory,
			Start:     start,
			End:       end,
		},
	}, nil
}

func (l *Loader) loadDemand(dir string, repo repositories.DemandRepository) error {
	found := false

	csvPath := filepath.Join(dir, DemandCSVName)
	if exists(csvPath) {
		entries, err := l.csv.LoadDemand(csvPath)
		if err != nil {
			return err
		}
		if err := repo.LoadDemand(entries); err != nil {
			return fmt.Errorf("failed to load demand: %w", err)
		}
		found = true
	}

	xlsxPath := filepath.Join(dir, DemandXLSXName)
	if exists(xlsxPath) {
		entries, err := LoadForecastWorkbook(xlsxPath)
		if err != nil {
			return err
		}
		if err := repo.LoadDemand(entries); err != nil {
			return fmt.Errorf("failed to load forecast: %w", err)
		}
		found = true
	}

	if !found {
		l.logger.Warn("scenario has no demand file", zap.String("dir", dir))
	}
	return nil
}

func (l *Loader) loadInventory(dir string, net *Network) (*entities.InventorySnapshot, error) {
	path := filepath.Join(dir, InventoryFileName)
	if !exists(path) {
		return nil, nil
	}
	entries, err := l.csv.LoadInventory(path)
	if err != nil {
		return nil, err
	}

	snapshot := entities.InventorySnapshot{Entries: entries}
	if net.Inventory != nil {
		snapshot.SnapshotDate = net.Inventory.SnapshotDate
		snapshot.AssumedAgeDays = net.Inventory.AssumedAgeDays
	}

	repo := memory.NewInventoryRepository()
	if err := repo.LoadSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	return repo.GetSnapshot()
}

func (l *Loader) loadLabor(dir string, net *Network, start, end time.Time) (repositories.LaborCalendar, error) {
	path := filepath.Join(dir, LaborFileName)
	if exists(path) {
		days, err := l.csv.LoadLabor(path)
		if err != nil {
			return nil, err
		}
		cal, err := memory.NewLaborCalendar(days)
		if err != nil {
			return nil, err
		}
		return cal, nil
	}

	if net.Labor != nil && !start.IsZero() && !end.IsZero() {
		lab := net.Labor
		return memory.StandardWeek(start, end, lab.FixedHours, lab.RegularRate, lab.OvertimeRate, lab.NonFixedRate), nil
	}

	l.logger.Warn("scenario has no labor calendar; nothing can be produced", zap.String("dir", dir))
	return nil, nil
}

func demandSpan(entries []entities.DemandEntry) (first, last time.Time) {
	for _, e := range entries {
		if first.IsZero() || e.Date.Before(first) {
			first = e.Date
		}
		if e.Date.After(last) {
			last = e.Date
		}
	}
	return first, last
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
