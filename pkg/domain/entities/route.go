package entities

import "fmt"

// Route is a directed lane between two nodes
type Route struct {
	Origin         NodeID
	Destination    NodeID
	TransportState State
	TransitDays    int
	CostPerUnit    float64 // 0 = use the cost structure default
}

// NewRoute creates a validated Route
func NewRoute(origin, destination NodeID, state State, transitDays int, costPerUnit float64) (*Route, error) {
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("route endpoints cannot be empty")
	}
	if origin == destination {
		return nil, fmt.Errorf("route %s->%s: origin and destination must differ", origin, destination)
	}
	if transitDays < 0 {
		return nil, fmt.Errorf("route %s->%s: transit days cannot be negative, got %d", origin, destination, transitDays)
	}
	if costPerUnit < 0 {
		return nil, fmt.Errorf("route %s->%s: cost per unit cannot be negative, got %g", origin, destination, costPerUnit)
	}

	return &Route{
		Origin:         origin,
		Destination:    destination,
		TransportState: state,
		TransitDays:    transitDays,
		CostPerUnit:    costPerUnit,
	}, nil
}

// Key returns a readable identifier for the route
func (r Route) Key() string {
	return fmt.Sprintf("%s->%s/%s", r.Origin, r.Destination, r.TransportState)
}
