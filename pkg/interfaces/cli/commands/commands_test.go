package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/distplan/pkg/infrastructure/config"
	"github.com/vsinha/distplan/pkg/infrastructure/scenario"
)

var monday = time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC)

func generate(t *testing.T, dir string, seed int64) {
	t.Helper()
	cmd := NewGenerateCommand(GenerateConfig{
		Products:  1,
		Stores:    2,
		Days:      3,
		Start:     monday,
		Inventory: 1,
		OutputDir: dir,
		Seed:      seed,
		Out:       &bytes.Buffer{},
	})
	require.NoError(t, cmd.Execute(context.Background()))
}

func settings() *config.Config {
	cfg := config.Default()
	cfg.Solver.TimeLimitSeconds = 60
	return cfg
}

func TestGenerateCommand_WritesLoadableScenario(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, 42)

	for _, name := range []string{scenario.NetworkFileName, scenario.DemandCSVName, scenario.InventoryFileName} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	sc, err := scenario.NewLoader(zaptest.NewLogger(t)).Load(dir, scenario.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, monday, sc.Input.Start)
	assert.Equal(t, monday.AddDate(0, 0, 2), sc.Input.End)
	assert.Len(t, sc.Input.Nodes, 3)
	assert.Len(t, sc.Input.Demand, 6)
	require.NotNil(t, sc.Input.Inventory)
	assert.NotEmpty(t, sc.Input.Inventory.Entries)
	assert.NotNil(t, sc.Input.Labor)
}

func TestGenerateCommand_SeedIsReproducible(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	generate(t, a, 7)
	generate(t, b, 7)

	for _, name := range []string{scenario.NetworkFileName, scenario.DemandCSVName} {
		first, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		second, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second), name)
	}
}

func TestGenerateCommand_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config GenerateConfig
		errMsg string
	}{
		{"no output", GenerateConfig{Products: 1, Stores: 1, Days: 1}, "output directory is required"},
		{"no products", GenerateConfig{Stores: 1, Days: 1, OutputDir: "x"}, "at least one product"},
		{"no stores", GenerateConfig{Products: 1, Days: 1, OutputDir: "x"}, "at least one store"},
		{"no days", GenerateConfig{Products: 1, Stores: 1, OutputDir: "x"}, "days must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Out = &bytes.Buffer{}
			err := NewGenerateCommand(tt.config).Execute(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	var help bytes.Buffer
	require.NoError(t, NewGenerateCommand(GenerateConfig{Help: true, Out: &help}).Execute(context.Background()))
	assert.Contains(t, help.String(), "planner generate")
}

func TestPlanCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, 42)

	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDirs: []string{dir},
		Format:       "json",
		Settings:     settings(),
		Logger:       zaptest.NewLogger(t),
		Out:          &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.NotEmpty(t, decoded["run_id"])
}

func TestPlanCommand_VerboseTextAndFiles(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	generate(t, first, 1)
	generate(t, second, 2)
	outDir := t.TempDir()

	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDirs: []string{first, second},
		Format:       "csv",
		OutputDir:    outDir,
		Verbose:      true,
		Settings:     settings(),
		Logger:       zaptest.NewLogger(t),
		Out:          &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Loaded 2 scenario(s)")
	assert.Contains(t, text, "plan.requested")
	assert.Contains(t, text, "plan.extracted")
	assert.Contains(t, text, "event(s)")
	assert.Contains(t, text, "Planning completed")
	for _, dir := range []string{first, second} {
		assert.FileExists(t, filepath.Join(outDir, filepath.Base(dir), "production.csv"))
	}
}

func TestPlanCommand_SampleScenario(t *testing.T) {
	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDirs: []string{"../../../../scenarios/bakery"},
		Format:       "json",
		Settings:     settings(),
		Logger:       zaptest.NewLogger(t),
		Out:          &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.NotEqual(t, "infeasible", decoded["termination_condition"])
}

func TestPlanCommand_GeneratedDefaultSize(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping large scale test in short mode")
	}

	dir := t.TempDir()
	require.NoError(t, NewGenerateCommand(GenerateConfig{
		Products:  3,
		Hubs:      2,
		Stores:    6,
		Days:      14,
		Start:     monday,
		Inventory: 1,
		OutputDir: dir,
		Seed:      42,
		Out:       &bytes.Buffer{},
	}).Execute(context.Background()))

	cfg := settings()
	cfg.Solver.TimeLimitSeconds = 180
	cfg.Solver.MIPGap = 0.01

	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDirs: []string{dir},
		Format:       "json",
		Settings:     cfg,
		Logger:       zaptest.NewLogger(t),
		Out:          &out,
	})
	require.NoError(t, cmd.Execute(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
}

func TestPlanCommand_NoPlan(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, 42)

	cfg := settings()
	cfg.Planning.AllowShortages = false
	require.NoError(t, os.Remove(filepath.Join(dir, scenario.InventoryFileName)))
	// the first day can never be served from an empty network
	var out bytes.Buffer
	err := NewPlanCommand(Config{ScenarioDirs: []string{dir}, Settings: cfg, Out: &out}).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPlan))
	assert.Contains(t, out.String(), "No plan")
}

func TestPlanCommand_Errors(t *testing.T) {
	err := NewPlanCommand(Config{Out: &bytes.Buffer{}}).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one scenario directory")

	err = NewPlanCommand(Config{ScenarioDirs: []string{t.TempDir()}, Out: &bytes.Buffer{}}).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, 42)

	var out bytes.Buffer
	cmd := NewExportCommand(ExportConfig{ScenarioDir: dir, Settings: settings(), Verbose: true, Out: &out})
	require.NoError(t, cmd.Execute(context.Background()))

	lp := out.String()
	assert.Contains(t, lp, "Model ")
	assert.Contains(t, lp, "Minimize\n obj:")
	assert.Contains(t, lp, "Subject To\n")
	assert.Contains(t, lp, "End\n")

	file := filepath.Join(t.TempDir(), "model.lp")
	cmd = NewExportCommand(ExportConfig{ScenarioDir: dir, OutputFile: file, Out: &bytes.Buffer{}})
	require.NoError(t, cmd.Execute(context.Background()))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bounds\n")

	err = NewExportCommand(ExportConfig{Out: &bytes.Buffer{}}).Execute(context.Background())
	assert.Error(t, err)
}
