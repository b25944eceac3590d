package services

import "github.com/vsinha/distplan/pkg/domain/entities"

// Capability is the precomputed classification of a node. It is the single
// source of truth for "can this node do X" questions during model building.
type Capability struct {
	Node            entities.NodeID
	CanProduce      bool
	ProductionState entities.State
	Storage         entities.StateSet
	HasDemand       bool
	CanFreeze       bool // ambient -> frozen
	CanThaw         bool // frozen -> ThawTarget
	ThawTarget      entities.State
}

// ResolveCapability classifies a node. It has no side effects.
func ResolveCapability(n entities.Node) Capability {
	c := Capability{
		Node:            n.ID,
		CanProduce:      n.IsManufacturing(),
		ProductionState: n.ProductionState,
		Storage:         n.Storage,
		HasDemand:       n.IsDemandNode(),
	}

	c.CanFreeze = n.Storage.Has(entities.Ambient) && n.Storage.Has(entities.Frozen)

	switch {
	case n.Storage.Has(entities.Frozen) && n.Storage.Has(entities.Thawed):
		c.CanThaw = true
		c.ThawTarget = entities.Thawed
	case n.Storage.Has(entities.Frozen) && n.Storage.Has(entities.Ambient):
		c.CanThaw = true
		c.ThawTarget = entities.Ambient
	}

	return c
}

// ResolveCapabilities classifies every node once
func ResolveCapabilities(nodes []entities.Node) map[entities.NodeID]Capability {
	caps := make(map[entities.NodeID]Capability, len(nodes))
	for _, n := range nodes {
		caps[n.ID] = ResolveCapability(n)
	}
	return caps
}

// IsFlowNode reports whether the node can take part in any flow constraint
func (c Capability) IsFlowNode() bool {
	return c.CanProduce || c.HasDemand || !c.Storage.Empty()
}

// ConsumableStates returns the held states demand can be served from
func (c Capability) ConsumableStates() []entities.State {
	var out []entities.State
	for _, s := range c.Storage.States() {
		if s.Consumable() {
			out = append(out, s)
		}
	}
	return out
}

// ArrivalState returns the state goods shipped in the transport state enter
// at the node, converting on receipt when the node does not hold that state.
// ok is false when the node cannot receive the transport state at all.
func (c Capability) ArrivalState(transport entities.State) (state entities.State, ok bool) {
	if c.Storage.Has(transport) {
		return transport, true
	}

	switch transport {
	case entities.Frozen:
		// thawed on receipt
		if c.Storage.Has(entities.Thawed) {
			return entities.Thawed, true
		}
		if c.Storage.Has(entities.Ambient) {
			return entities.Ambient, true
		}
	case entities.Ambient, entities.Thawed:
		// frozen on receipt
		if c.Storage.Has(entities.Frozen) {
			return entities.Frozen, true
		}
		if transport == entities.Thawed && c.Storage.Has(entities.Ambient) {
			return entities.Ambient, true
		}
	}
	return entities.Ambient, false
}
