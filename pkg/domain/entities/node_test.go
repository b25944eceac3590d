package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode_Validation(t *testing.T) {
	node, err := NewNode("6122", "Manufacturing", RoleManufacturing|RoleStorage, NewStateSet(Ambient), 1400)
	require.NoError(t, err)
	assert.True(t, node.IsManufacturing())
	assert.False(t, node.IsDemandNode())
	assert.Equal(t, Ambient, node.ProductionState)

	testCases := []struct {
		name        string
		id          NodeID
		roles       NodeRole
		storage     StateSet
		rate        float64
		expectError string
	}{
		{"empty id", "", RoleStorage, NewStateSet(Ambient), 0, "node id cannot be empty"},
		{"manufacturing without rate", "M", RoleManufacturing, NewStateSet(Ambient), 0, "positive production rate"},
		{"negative rate", "S", RoleStorage, NewStateSet(Ambient), -1, "cannot be negative"},
		{"no role no storage", "X", 0, 0, 0, "no role and no storage"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNode(tc.id, "n", tc.roles, tc.storage, tc.rate)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectError)
		})
	}
}

func TestNodeRole_String(t *testing.T) {
	assert.Equal(t, "manufacturing|demand", (RoleManufacturing | RoleDemand).String())
	assert.Equal(t, "none", NodeRole(0).String())
}

func TestNewRoute_Validation(t *testing.T) {
	route, err := NewRoute("A", "B", Frozen, 2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "A->B/frozen", route.Key())

	_, err = NewRoute("A", "A", Ambient, 1, 0)
	assert.Error(t, err)
	_, err = NewRoute("A", "B", Ambient, -1, 0)
	assert.Error(t, err)
}

func TestNewProduct_Validation(t *testing.T) {
	p, err := NewProduct("GF-WHITE", "White loaf", 415, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultUnitsPerPallet, p.PalletUnits())

	_, err = NewProduct("GF-WHITE", "White loaf", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mix size must be positive")
}
