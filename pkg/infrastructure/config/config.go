package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vsinha/distplan/pkg/optimization/builder"
	"github.com/vsinha/distplan/pkg/optimization/solver"
)

// EnvPrefix prefixes every environment override, e.g. PLANNER_SOLVER_MIP_GAP
const EnvPrefix = "PLANNER"

type Config struct {
	Planning PlanningConfig `mapstructure:"planning"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
}

type PlanningConfig struct {
	AllowShortages         bool              `mapstructure:"allow_shortages"`
	UsePalletTracking      bool              `mapstructure:"use_pallet_tracking"`
	UseTruckPalletTracking bool              `mapstructure:"use_truck_pallet_tracking"`
	EnforceShelfLife       bool              `mapstructure:"enforce_shelf_life"`
	StartDate              string            `mapstructure:"start_date"`
	EndDate                string            `mapstructure:"end_date"`
	ShelfLife              builder.ShelfLife `mapstructure:"shelf_life"`
}

type SolverConfig struct {
	Name             string  `mapstructure:"name"`
	TimeLimitSeconds float64 `mapstructure:"time_limit_seconds"`
	MIPGap           float64 `mapstructure:"mip_gap"`
	MaxNodes         int     `mapstructure:"max_nodes"`
	Verbose          bool    `mapstructure:"verbose"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// Load reads planner.yaml from ./configs or the working directory, or the
// given file when path is set. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("planner")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	opts := builder.DefaultOptions()
	v.SetDefault("planning.allow_shortages", opts.AllowShortages)
	v.SetDefault("planning.use_pallet_tracking", opts.UsePalletTracking)
	v.SetDefault("planning.use_truck_pallet_tracking", opts.UseTruckPalletTracking)
	v.SetDefault("planning.enforce_shelf_life", opts.EnforceShelfLife)
	v.SetDefault("planning.start_date", "")
	v.SetDefault("planning.end_date", "")
	v.SetDefault("planning.shelf_life.ambient", opts.ShelfLife.Ambient)
	v.SetDefault("planning.shelf_life.frozen", opts.ShelfLife.Frozen)
	v.SetDefault("planning.shelf_life.thawed", opts.ShelfLife.Thawed)

	v.SetDefault("solver.name", solver.BranchAndBoundSolver)
	v.SetDefault("solver.time_limit_seconds", 300)
	v.SetDefault("solver.mip_gap", solver.DefaultMIPGap)
	v.SetDefault("solver.max_nodes", solver.DefaultMaxNodes)
	v.SetDefault("solver.verbose", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.dir", "")
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	var errs []string
	if c.Solver.TimeLimitSeconds < 0 {
		errs = append(errs, fmt.Sprintf("solver.time_limit_seconds: cannot be negative, got %g", c.Solver.TimeLimitSeconds))
	}
	if c.Solver.MIPGap < 0 {
		errs = append(errs, fmt.Sprintf("solver.mip_gap: cannot be negative, got %g", c.Solver.MIPGap))
	}
	if c.Solver.MaxNodes < 0 {
		errs = append(errs, fmt.Sprintf("solver.max_nodes: cannot be negative, got %d", c.Solver.MaxNodes))
	}
	if _, _, err := c.Planning.Horizon(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Horizon parses the optional start and end dates
func (p PlanningConfig) Horizon() (start, end time.Time, err error) {
	if p.StartDate != "" {
		if start, err = time.Parse("2006-01-02", p.StartDate); err != nil {
			return start, end, fmt.Errorf("planning.start_date: invalid date %q (expected YYYY-MM-DD)", p.StartDate)
		}
	}
	if p.EndDate != "" {
		if end, err = time.Parse("2006-01-02", p.EndDate); err != nil {
			return start, end, fmt.Errorf("planning.end_date: invalid date %q (expected YYYY-MM-DD)", p.EndDate)
		}
	}
	return start, end, nil
}

// BuilderOptions maps the planning section onto model build options
func (p PlanningConfig) BuilderOptions() builder.Options {
	return builder.Options{
		AllowShortages:         p.AllowShortages,
		UsePalletTracking:      p.UsePalletTracking,
		UseTruckPalletTracking: p.UseTruckPalletTracking,
		EnforceShelfLife:       p.EnforceShelfLife,
		ShelfLife:              p.ShelfLife,
	}
}

// SolverOptions maps the solver section onto solve options
func (s SolverConfig) SolverOptions() solver.Options {
	return solver.Options{
		Solver:    s.Name,
		TimeLimit: time.Duration(s.TimeLimitSeconds * float64(time.Second)),
		MIPGap:    s.MIPGap,
		MaxNodes:  s.MaxNodes,
		Verbose:   s.Verbose,
	}
}
