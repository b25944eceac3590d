package entities

import "fmt"

// NodeID identifies a network location
type NodeID string

// NodeRole is a bitmask of the roles a node plays; roles are not exclusive
type NodeRole uint8

const (
	RoleManufacturing NodeRole = 1 << iota
	RoleStorage
	RoleDemand
)

// Has reports whether the role mask contains r
func (r NodeRole) Has(role NodeRole) bool {
	return r&role != 0
}

// String method for NodeRole
func (r NodeRole) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if r.Has(RoleManufacturing) {
		add("manufacturing")
	}
	if r.Has(RoleStorage) {
		add("storage")
	}
	if r.Has(RoleDemand) {
		add("demand")
	}
	if s == "" {
		return "none"
	}
	return s
}

// Node is a site in the distribution network
type Node struct {
	ID              NodeID
	Name            string
	Roles           NodeRole
	Storage         StateSet
	ProductionRate  float64 // units per labor hour
	ProductionState State   // state freshly produced goods enter
	PalletCapacity  int     // storage ceiling in pallets, 0 = unlimited
	StartupHours    float64
	ShutdownHours   float64
	ChangeoverHours float64
}

// NewNode creates a validated Node
func NewNode(id NodeID, name string, roles NodeRole, storage StateSet, productionRate float64) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id cannot be empty")
	}
	if roles.Has(RoleManufacturing) && productionRate <= 0 {
		return nil, fmt.Errorf("node %s: manufacturing node needs a positive production rate, got %g", id, productionRate)
	}
	if productionRate < 0 {
		return nil, fmt.Errorf("node %s: production rate cannot be negative, got %g", id, productionRate)
	}
	if roles == 0 && storage.Empty() {
		return nil, fmt.Errorf("node %s: node has no role and no storage", id)
	}

	return &Node{
		ID:              id,
		Name:            name,
		Roles:           roles,
		Storage:         storage,
		ProductionRate:  productionRate,
		ProductionState: Ambient,
	}, nil
}

// IsManufacturing reports whether the node produces
func (n Node) IsManufacturing() bool {
	return n.Roles.Has(RoleManufacturing) && n.ProductionRate > 0
}

// IsDemandNode reports whether the node is a demand sink
func (n Node) IsDemandNode() bool {
	return n.Roles.Has(RoleDemand)
}
