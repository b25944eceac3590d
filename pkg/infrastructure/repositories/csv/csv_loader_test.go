package csv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDemand(t *testing.T) {
	path := writeFile(t, "demand.csv", "node,product,date,quantity\nSTORE,BREAD,2025-10-13,100\nSTORE, BREAD ,2025-10-14,\n")

	demand, err := NewLoader().LoadDemand(path)
	require.NoError(t, err)
	require.Len(t, demand, 2)

	assert.Equal(t, entities.NodeID("STORE"), demand[0].Node)
	assert.Equal(t, entities.ProductID("BREAD"), demand[1].Product)
	assert.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), demand[0].Date)
	assert.Equal(t, 100.0, demand[0].Quantity)
	assert.Zero(t, demand[1].Quantity)
}

func TestLoadDemand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "header row"},
		{"wrong header", "site,product,date,quantity\n", "header mismatch"},
		{"short row", "node,product,date,quantity\nSTORE,BREAD,2025-10-13\n", "row 2"},
		{"bad date", "node,product,date,quantity\nSTORE,BREAD,13/10/2025,5\n", "invalid date format"},
		{"bad quantity", "node,product,date,quantity\nSTORE,BREAD,2025-10-13,lots\n", "invalid quantity"},
		{"negative quantity", "node,product,date,quantity\nSTORE,BREAD,2025-10-13,-1\n", "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadDemand(writeFile(t, "demand.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDemand_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadDemand(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInventory(t *testing.T) {
	path := writeFile(t, "inventory.csv", "node,product,state,quantity\nMFG,BREAD,,500\nBUFFER,BREAD,frozen,200\n")

	entries, err := NewLoader().LoadInventory(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Nil(t, entries[0].State)
	require.NotNil(t, entries[1].State)
	assert.Equal(t, entities.Frozen, *entries[1].State)
	assert.Equal(t, 200.0, entries[1].Quantity)

	_, err = NewLoader().LoadInventory(writeFile(t, "bad.csv", "node,product,state,quantity\nMFG,BREAD,melted,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state")
}

func TestLoadLabor(t *testing.T) {
	path := writeFile(t, "labor.csv", "date,fixed_hours,regular_rate,overtime_rate,non_fixed_rate,minimum_hours\n"+
		"2025-10-13,12,20,30,40,\n"+
		"2025-10-18,0,20,30,40,4\n")

	days, err := NewLoader().LoadLabor(path)
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.True(t, days[0].IsFixedDay())
	assert.Equal(t, 12.0, days[0].FixedHours)
	assert.Equal(t, entities.DefaultOvertimeCap, days[0].OvertimeCap)
	assert.False(t, days[1].IsFixedDay())
	assert.Equal(t, 4.0, days[1].MinimumHours)
	assert.Equal(t, entities.DefaultNonFixedCap, days[1].NonFixedCap)

	_, err = NewLoader().LoadLabor(writeFile(t, "bad.csv", "date,fixed_hours,regular_rate,overtime_rate,non_fixed_rate,minimum_hours\n2025-10-13,-1,0,0,0,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labor CSV row 2")
}
