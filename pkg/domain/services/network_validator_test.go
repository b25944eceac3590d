package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

func validNetwork() NetworkData {
	day := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	return NetworkData{
		Nodes: []entities.Node{
			{ID: "MFG", Roles: entities.RoleManufacturing | entities.RoleStorage, Storage: entities.NewStateSet(entities.Ambient), ProductionRate: 1400},
			{ID: "HUB", Roles: entities.RoleStorage | entities.RoleDemand, Storage: entities.NewStateSet(entities.Ambient)},
			{ID: "ISLAND", Roles: entities.RoleDemand, Storage: entities.NewStateSet(entities.Ambient)},
		},
		Routes: []entities.Route{
			{Origin: "MFG", Destination: "HUB", TransportState: entities.Ambient, TransitDays: 1},
		},
		Products: []entities.Product{{ID: "P1", MixSize: 415}},
		Demand: []entities.DemandEntry{
			{Node: "HUB", Product: "P1", Date: day, Quantity: 100},
		},
	}
}

func TestNetworkValidator_Valid(t *testing.T) {
	result := NewNetworkValidator().Validate(validNetwork())
	require.NoError(t, result.Err())
	assert.Equal(t, []entities.NodeID{"ISLAND"}, result.UnreachableDemand)
	assert.Len(t, result.Warnings, 1)
}

func TestNetworkValidator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NetworkData)
		want   string
	}{
		{
			name: "route to undefined node",
			mutate: func(d *NetworkData) {
				d.Routes = append(d.Routes, entities.Route{Origin: "MFG", Destination: "NOWHERE", TransportState: entities.Ambient})
			},
			want: `routes[1].destination: undefined node "NOWHERE"`,
		},
		{
			name: "negative demand",
			mutate: func(d *NetworkData) {
				d.Demand[0].Quantity = -5
			},
			want: "demand[0].quantity: cannot be negative",
		},
		{
			name: "demand at non-demand node",
			mutate: func(d *NetworkData) {
				d.Demand[0].Node = "MFG"
			},
			want: "is not a demand destination",
		},
		{
			name: "frozen route from ambient-only origin",
			mutate: func(d *NetworkData) {
				d.Routes[0].TransportState = entities.Frozen
			},
			want: "origin MFG does not hold frozen stock",
		},
		{
			name: "zero mix size",
			mutate: func(d *NetworkData) {
				d.Products[0].MixSize = 0
			},
			want: "product P1.mix_size: must be positive",
		},
		{
			name: "inventory for unknown product",
			mutate: func(d *NetworkData) {
				d.Inventory = &entities.InventorySnapshot{Entries: []entities.InventoryEntry{{Node: "HUB", Product: "P9", Quantity: 1}}}
			},
			want: `inventory[0].product: undefined product "P9"`,
		},
		{
			name: "production state not stored",
			mutate: func(d *NetworkData) {
				d.Nodes[0].ProductionState = entities.Frozen
			},
			want: "node MFG.production_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validNetwork()
			tt.mutate(&data)

			err := NewNetworkValidator().Validate(data).Err()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
