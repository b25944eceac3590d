package entities

import (
	"fmt"
	"sort"
	"time"
)

// DemandEntry is forecast demand for a product at a destination on a date
type DemandEntry struct {
	Node     NodeID    `json:"node"`
	Product  ProductID `json:"product"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// NewDemandEntry creates a validated DemandEntry
func NewDemandEntry(node NodeID, product ProductID, date time.Time, quantity float64) (*DemandEntry, error) {
	if node == "" {
		return nil, fmt.Errorf("demand node cannot be empty")
	}
	if product == "" {
		return nil, fmt.Errorf("demand product cannot be empty")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("demand date cannot be empty")
	}
	if quantity < 0 {
		return nil, fmt.Errorf("demand quantity cannot be negative, got %g", quantity)
	}

	return &DemandEntry{
		Node:     node,
		Product:  product,
		Date:     Day(date),
		Quantity: quantity,
	}, nil
}

// DemandKey is the aggregation key of demand entries
type DemandKey struct {
	Node    NodeID
	Product ProductID
	Date    time.Time
}

// Key returns the aggregation key of the entry
func (d DemandEntry) Key() DemandKey {
	return DemandKey{Node: d.Node, Product: d.Product, Date: Day(d.Date)}
}

// AggregateDemand sums duplicate (node, product, date) entries and returns
// them sorted by date, node and product
func AggregateDemand(entries []DemandEntry) []DemandEntry {
	totals := make(map[DemandKey]float64, len(entries))
	for _, e := range entries {
		totals[e.Key()] += e.Quantity
	}

	out := make([]DemandEntry, 0, len(totals))
	for k, qty := range totals {
		out = append(out, DemandEntry{Node: k.Node, Product: k.Product, Date: k.Date, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Product < out[j].Product
	})
	return out
}
