package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// NetworkFile is the YAML description of a planning network
type NetworkFile struct {
	StartDate string        `yaml:"start_date"`
	EndDate   string        `yaml:"end_date"`
	Nodes     []NodeDoc     `yaml:"nodes"`
	Products  []ProductDoc  `yaml:"products"`
	Routes    []RouteDoc    `yaml:"routes"`
	Trucks    []TruckDoc    `yaml:"trucks"`
	Costs     CostsDoc      `yaml:"costs"`
	Inventory *InventoryDoc `yaml:"inventory"`
	Labor     *LaborDoc     `yaml:"labor"`
}

type NodeDoc struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Roles           []string `yaml:"roles"`
	Storage         []string `yaml:"storage"`
	ProductionRate  float64  `yaml:"production_rate"`
	ProductionState string   `yaml:"production_state"`
	PalletCapacity  int      `yaml:"pallet_capacity"`
	StartupHours    float64  `yaml:"startup_hours"`
	ShutdownHours   float64  `yaml:"shutdown_hours"`
	ChangeoverHours float64  `yaml:"changeover_hours"`
}

type ProductDoc struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	MixSize        int    `yaml:"mix_size"`
	UnitsPerPallet int    `yaml:"units_per_pallet"`
}

type RouteDoc struct {
	Origin         string  `yaml:"origin"`
	Destination    string  `yaml:"destination"`
	TransportState string  `yaml:"transport_state"`
	TransitDays    int     `yaml:"transit_days"`
	CostPerUnit    float64 `yaml:"cost_per_unit"`
}

type TruckDoc struct {
	ID             string  `yaml:"id"`
	Origin         string  `yaml:"origin"`
	Destination    string  `yaml:"destination"`
	DayOfWeek      string  `yaml:"day_of_week"`
	UnitCapacity   float64 `yaml:"unit_capacity"`
	PalletCapacity int     `yaml:"pallet_capacity"`
	FixedCost      float64 `yaml:"fixed_cost"`
	CostPerUnit    float64 `yaml:"cost_per_unit"`
}

type CostsDoc struct {
	ProductionCostPerUnit  float64                         `yaml:"production_cost_per_unit"`
	TransportCostPerUnit   float64                         `yaml:"transport_cost_per_unit"`
	WasteMultiplier        float64                         `yaml:"waste_multiplier"`
	ShortagePenaltyPerUnit float64                         `yaml:"shortage_penalty_per_unit"`
	ChangeoverCost         float64                         `yaml:"changeover_cost"`
	Storage                map[string]entities.StorageRate `yaml:"storage"`
}

// InventoryDoc dates the stock listed in inventory.csv
type InventoryDoc struct {
	SnapshotDate   string `yaml:"snapshot_date"`
	AssumedAgeDays int    `yaml:"assumed_age_days"`
}

// LaborDoc generates a standard week when no labor.csv is given
type LaborDoc struct {
	FixedHours   float64 `yaml:"fixed_hours"`
	RegularRate  float64 `yaml:"regular_rate"`
	OvertimeRate float64 `yaml:"overtime_rate"`
	NonFixedRate float64 `yaml:"non_fixed_rate"`
}

// Network is the decoded, entity-level content of a network file
type Network struct {
	Start     time.Time
	End       time.Time
	Nodes     []entities.Node
	Products  []entities.Product
	Routes    []entities.Route
	Trucks    []entities.TruckSchedule
	Costs     entities.CostStructure
	Inventory *InventoryMeta
	Labor     *LaborDoc
}

// InventoryMeta is the dating of the initial inventory
type InventoryMeta struct {
	SnapshotDate   time.Time
	AssumedAgeDays int
}

// LoadNetwork reads and decodes a network YAML file
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file %s: %w", path, err)
	}
	return ParseNetwork(data)
}

// ParseNetwork decodes network YAML into domain entities
func ParseNetwork(data []byte) (*Network, error) {
	var doc NetworkFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse network YAML: %w", err)
	}
	return doc.decode()
}

func (doc NetworkFile) decode() (*Network, error) {
	net := &Network{Labor: doc.Labor}
	var err error

	if doc.StartDate != "" {
		if net.Start, err = parseDate("start_date", doc.StartDate); err != nil {
			return nil, err
		}
	}
	if doc.EndDate != "" {
		if net.End, err = parseDate("end_date", doc.EndDate); err != nil {
			return nil, err
		}
	}

	for i, n := range doc.Nodes {
		node, err := n.decode()
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		net.Nodes = append(net.Nodes, *node)
	}

	for i, p := range doc.Products {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		product, err := entities.NewProduct(entities.ProductID(p.ID), name, p.MixSize, p.UnitsPerPallet)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		net.Products = append(net.Products, *product)
	}

	for i, r := range doc.Routes {
		state, err := parseStateOr(r.TransportState, entities.Ambient)
		if err != nil {
			return nil, fmt.Errorf("routes[%d].transport_state: %w", i, err)
		}
		route, err := entities.NewRoute(entities.NodeID(r.Origin), entities.NodeID(r.Destination), state, r.TransitDays, r.CostPerUnit)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		net.Routes = append(net.Routes, *route)
	}

	for i, t := range doc.Trucks {
		var day *time.Weekday
		if t.DayOfWeek != "" {
			wd, err := parseWeekday(t.DayOfWeek)
			if err != nil {
				return nil, fmt.Errorf("trucks[%d].day_of_week: %w", i, err)
			}
			day = &wd
		}
		truck, err := entities.NewTruckSchedule(t.ID, entities.NodeID(t.Origin), entities.NodeID(t.Destination), day, t.UnitCapacity, t.PalletCapacity)
		if err != nil {
			return nil, fmt.Errorf("trucks[%d]: %w", i, err)
		}
		truck.FixedCost = t.FixedCost
		truck.CostPerUnit = t.CostPerUnit
		net.Trucks = append(net.Trucks, *truck)
	}

	net.Costs = entities.CostStructure{
		ProductionCostPerUnit:  doc.Costs.ProductionCostPerUnit,
		TransportCostPerUnit:   doc.Costs.TransportCostPerUnit,
		WasteMultiplier:        doc.Costs.WasteMultiplier,
		ShortagePenaltyPerUnit: doc.Costs.ShortagePenaltyPerUnit,
		ChangeoverCost:         doc.Costs.ChangeoverCost,
		Storage:                make(map[entities.State]entities.StorageRate, len(doc.Costs.Storage)),
	}
	for name, rate := range doc.Costs.Storage {
		state, err := entities.ParseState(name)
		if err != nil {
			return nil, fmt.Errorf("costs.storage: %w", err)
		}
		net.Costs.Storage[state] = rate
	}

	if doc.Inventory != nil {
		meta := &InventoryMeta{AssumedAgeDays: doc.Inventory.AssumedAgeDays}
		if doc.Inventory.SnapshotDate != "" {
			if meta.SnapshotDate, err = parseDate("inventory.snapshot_date", doc.Inventory.SnapshotDate); err != nil {
				return nil, err
			}
		}
		net.Inventory = meta
	}

	return net, nil
}

func (n NodeDoc) decode() (*entities.Node, error) {
	var roles entities.NodeRole
	for _, r := range n.Roles {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "manufacturing", "mfg":
			roles |= entities.RoleManufacturing
		case "storage":
			roles |= entities.RoleStorage
		case "demand":
			roles |= entities.RoleDemand
		default:
			return nil, fmt.Errorf("roles: unknown role %q", r)
		}
	}

	var storage entities.StateSet
	for _, s := range n.Storage {
		state, err := entities.ParseState(s)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		storage = storage.With(state)
	}

	name := n.Name
	if name == "" {
		name = n.ID
	}
	node, err := entities.NewNode(entities.NodeID(n.ID), name, roles, storage, n.ProductionRate)
	if err != nil {
		return nil, err
	}
	if n.ProductionState != "" {
		if node.ProductionState, err = entities.ParseState(n.ProductionState); err != nil {
			return nil, fmt.Errorf("production_state: %w", err)
		}
	}
	node.PalletCapacity = n.PalletCapacity
	node.StartupHours = n.StartupHours
	node.ShutdownHours = n.ShutdownHours
	node.ChangeoverHours = n.ChangeoverHours
	return node, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q (expected YYYY-MM-DD)", field, s)
	}
	return t, nil
}

func parseStateOr(s string, fallback entities.State) (entities.State, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return entities.ParseState(s)
}

func parseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if key == name || key == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
