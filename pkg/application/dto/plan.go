package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/optimization/builder"
)

// ProductionBatch is the quantity of one product made at a node on a date
type ProductionBatch struct {
	Node     entities.NodeID    `json:"node"`
	Product  entities.ProductID `json:"product"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
	MixCount int                `json:"mix_count"`
}

// Shipment is a quantity departing along a route, optionally on a truck
type Shipment struct {
	Origin       entities.NodeID    `json:"origin"`
	Destination  entities.NodeID    `json:"destination"`
	Product      entities.ProductID `json:"product"`
	Departure    time.Time          `json:"departure"`
	Arrival      time.Time          `json:"arrival"`
	State        entities.State     `json:"state"`
	ArrivalState entities.State     `json:"arrival_state"`
	Quantity     float64            `json:"quantity"`
	TruckID      string             `json:"truck_id,omitempty"`
}

// InventoryPosition is end-of-day stock of one product in one state
type InventoryPosition struct {
	Node     entities.NodeID    `json:"node"`
	Product  entities.ProductID `json:"product"`
	State    entities.State     `json:"state"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
	Pallets  int                `json:"pallets"`
}

// LaborUsage is the paid labor of a producing node on a date
type LaborUsage struct {
	Node          entities.NodeID `json:"node"`
	Date          time.Time       `json:"date"`
	FixedDay      bool            `json:"fixed_day"`
	Hours         float64         `json:"hours"`
	RegularHours  float64         `json:"regular_hours"`
	OvertimeHours float64         `json:"overtime_hours"`
	PremiumHours  float64         `json:"premium_hours"`
	Cost          decimal.Decimal `json:"cost"`
}

// Conversion is a freeze or thaw at a node
type Conversion struct {
	Node     entities.NodeID    `json:"node"`
	Product  entities.ProductID `json:"product"`
	From     entities.State     `json:"from"`
	To       entities.State     `json:"to"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

type Disposal struct {
	Node     entities.NodeID    `json:"node"`
	Product  entities.ProductID `json:"product"`
	State    entities.State     `json:"state"`
	Date     time.Time          `json:"date"`
	Quantity float64            `json:"quantity"`
}

type Shortage struct {
	Node     entities.NodeID    `json:"node"`
	Product  entities.ProductID `json:"product"`
	Date     time.Time          `json:"date"`
	Demand   float64            `json:"demand"`
	Quantity float64            `json:"quantity"`
}

// TruckLoad is the quantity of one product a truck carries on a date
type TruckLoad struct {
	TruckID     string             `json:"truck_id"`
	Origin      entities.NodeID    `json:"origin"`
	Destination entities.NodeID    `json:"destination"`
	Product     entities.ProductID `json:"product"`
	Date        time.Time          `json:"date"`
	Quantity    float64            `json:"quantity"`
	Pallets     int                `json:"pallets"`
}

type ProductStart struct {
	Node    entities.NodeID    `json:"node"`
	Product entities.ProductID `json:"product"`
	Date    time.Time          `json:"date"`
}

// CostBreakdown splits the objective by cost category
type CostBreakdown struct {
	Production decimal.Decimal `json:"production"`
	Labor      decimal.Decimal `json:"labor"`
	Transport  decimal.Decimal `json:"transport"`
	Holding    decimal.Decimal `json:"holding"`
	Waste      decimal.Decimal `json:"waste"`
	Shortage   decimal.Decimal `json:"shortage"`
	Changeover decimal.Decimal `json:"changeover"`
	Truck      decimal.Decimal `json:"truck"`
	Total      decimal.Decimal `json:"total"`
}

// Set stores the amount of a category; unknown categories are ignored
func (c *CostBreakdown) Set(category string, amount decimal.Decimal) {
	switch category {
	case builder.CostProduction:
		c.Production = amount
	case builder.CostLabor:
		c.Labor = amount
	case builder.CostTransport:
		c.Transport = amount
	case builder.CostHolding:
		c.Holding = amount
	case builder.CostWaste:
		c.Waste = amount
	case builder.CostShortage:
		c.Shortage = amount
	case builder.CostChangeover:
		c.Changeover = amount
	case builder.CostTruck:
		c.Truck = amount
	}
}

// Get returns the amount of a category
func (c CostBreakdown) Get(category string) decimal.Decimal {
	switch category {
	case builder.CostProduction:
		return c.Production
	case builder.CostLabor:
		return c.Labor
	case builder.CostTransport:
		return c.Transport
	case builder.CostHolding:
		return c.Holding
	case builder.CostWaste:
		return c.Waste
	case builder.CostShortage:
		return c.Shortage
	case builder.CostChangeover:
		return c.Changeover
	case builder.CostTruck:
		return c.Truck
	}
	return decimal.Zero
}

// Summary holds headline plan metrics
type Summary struct {
	TotalDemand     float64 `json:"total_demand"`
	TotalShortage   float64 `json:"total_shortage"`
	FillRate        float64 `json:"fill_rate"`
	TotalProduced   float64 `json:"total_produced"`
	TotalShipped    float64 `json:"total_shipped"`
	TotalDisposed   float64 `json:"total_disposed"`
	EndingInventory float64 `json:"ending_inventory"`
	LaborHours      float64 `json:"labor_hours"`
}

// Plan is the decoded solution
type Plan struct {
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	Production    []ProductionBatch   `json:"production"`
	Shipments     []Shipment          `json:"shipments"`
	Inventory     []InventoryPosition `json:"inventory"`
	Labor         []LaborUsage        `json:"labor"`
	Conversions   []Conversion        `json:"conversions"`
	Disposals     []Disposal          `json:"disposals"`
	Shortages     []Shortage          `json:"shortages"`
	TruckLoads    []TruckLoad         `json:"truck_loads"`
	ProductStarts []ProductStart      `json:"product_starts"`
	Costs         CostBreakdown       `json:"costs"`
	Summary       Summary             `json:"summary"`
}

// InventoryOn returns the stock of a product at a node on a date, summed
// over states
func (p *Plan) InventoryOn(node entities.NodeID, product entities.ProductID, date time.Time) float64 {
	total := 0.0
	for _, inv := range p.Inventory {
		if inv.Node == node && inv.Product == product && inv.Date.Equal(date) {
			total += inv.Quantity
		}
	}
	return total
}

// ShortageOn returns the unmet demand of a product at a node on a date
func (p *Plan) ShortageOn(node entities.NodeID, product entities.ProductID, date time.Time) float64 {
	for _, s := range p.Shortages {
		if s.Node == node && s.Product == product && s.Date.Equal(date) {
			return s.Quantity
		}
	}
	return 0
}

// PlanResult is the outcome of one planning run
type PlanResult struct {
	RunID                uuid.UUID     `json:"run_id"`
	Success              bool          `json:"success"`
	TerminationCondition string        `json:"termination_condition"`
	ObjectiveValue       float64       `json:"objective_value"`
	Gap                  float64       `json:"gap"`
	SolveTimeSeconds     float64       `json:"solve_time_seconds"`
	InfeasibilityMessage string        `json:"infeasibility_message,omitempty"`
	Stats                builder.Stats `json:"stats"`
	Warnings             []string      `json:"warnings,omitempty"`
	Plan                 *Plan         `json:"plan,omitempty"`
}
