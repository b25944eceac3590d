package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

func TestResolveCapability(t *testing.T) {
	tests := []struct {
		name       string
		node       entities.Node
		produce    bool
		demand     bool
		canFreeze  bool
		canThaw    bool
		thawTarget entities.State
	}{
		{
			name: "manufacturing site",
			node: entities.Node{
				ID: "6122", Roles: entities.RoleManufacturing | entities.RoleStorage,
				Storage: entities.NewStateSet(entities.Ambient), ProductionRate: 1400,
			},
			produce: true,
		},
		{
			name: "frozen buffer",
			node: entities.Node{
				ID: "Lineage", Roles: entities.RoleStorage,
				Storage: entities.NewStateSet(entities.Frozen),
			},
		},
		{
			name: "hub with both states",
			node: entities.Node{
				ID: "6125", Roles: entities.RoleStorage | entities.RoleDemand,
				Storage: entities.NewStateSet(entities.Ambient, entities.Frozen),
			},
			demand: true, canFreeze: true, canThaw: true, thawTarget: entities.Ambient,
		},
		{
			name: "breadroom thawing frozen stock",
			node: entities.Node{
				ID: "6130", Roles: entities.RoleDemand,
				Storage: entities.NewStateSet(entities.Ambient, entities.Frozen, entities.Thawed),
			},
			demand: true, canFreeze: true, canThaw: true, thawTarget: entities.Thawed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ResolveCapability(tt.node)
			assert.Equal(t, tt.produce, c.CanProduce)
			assert.Equal(t, tt.demand, c.HasDemand)
			assert.Equal(t, tt.canFreeze, c.CanFreeze)
			assert.Equal(t, tt.canThaw, c.CanThaw)
			if tt.canThaw {
				assert.Equal(t, tt.thawTarget, c.ThawTarget)
			}
			assert.True(t, c.IsFlowNode())
		})
	}
}

func TestCapability_ArrivalState(t *testing.T) {
	frozenOnly := ResolveCapability(entities.Node{ID: "L", Roles: entities.RoleStorage, Storage: entities.NewStateSet(entities.Frozen)})
	state, ok := frozenOnly.ArrivalState(entities.Ambient)
	assert.True(t, ok)
	assert.Equal(t, entities.Frozen, state)

	thawedOnly := ResolveCapability(entities.Node{ID: "B", Roles: entities.RoleDemand, Storage: entities.NewStateSet(entities.Thawed)})
	state, ok = thawedOnly.ArrivalState(entities.Frozen)
	assert.True(t, ok)
	assert.Equal(t, entities.Thawed, state)

	ambientOnly := ResolveCapability(entities.Node{ID: "D", Roles: entities.RoleDemand, Storage: entities.NewStateSet(entities.Ambient)})
	state, ok = ambientOnly.ArrivalState(entities.Ambient)
	assert.True(t, ok)
	assert.Equal(t, entities.Ambient, state)

	none := ResolveCapability(entities.Node{ID: "X", Roles: entities.RoleDemand})
	_, ok = none.ArrivalState(entities.Ambient)
	assert.False(t, ok)
	assert.Empty(t, none.ConsumableStates())
}
