package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

func TestDemandRepository_AggregatesAndFilters(t *testing.T) {
	repo := NewDemandRepository()
	day := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	err := repo.LoadDemand([]entities.DemandEntry{
		{Node: "6104", Product: "P1", Date: day, Quantity: 40},
		{Node: "6104", Product: "P1", Date: day.Add(5 * time.Hour), Quantity: 60},
		{Node: "6104", Product: "P1", Date: day.AddDate(0, 0, 10), Quantity: 999},
	})
	require.NoError(t, err)

	got, err := repo.GetDemand(day, day.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 100, got[0].Quantity, 1e-9)
	assert.InDelta(t, 1099, repo.Total(), 1e-9)
}

func TestDemandRepository_RejectsNegative(t *testing.T) {
	repo := NewDemandRepository()
	err := repo.LoadDemand([]entities.DemandEntry{{Node: "N", Product: "P", Date: time.Now(), Quantity: -1}})
	assert.Error(t, err)
}

func TestLaborCalendar(t *testing.T) {
	monday := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	cal := StandardWeek(monday, monday.AddDate(0, 0, 6), 12, 25, 37.5, 40)

	day, ok := cal.GetLaborDay(monday.Add(9 * time.Hour))
	require.True(t, ok)
	assert.True(t, day.IsFixedDay())
	assert.InDelta(t, 14, day.MaxHours(), 1e-9)

	saturday, ok := cal.GetLaborDay(monday.AddDate(0, 0, 5))
	require.True(t, ok)
	assert.False(t, saturday.IsFixedDay())
	assert.Equal(t, entities.DefaultMinimumHours, saturday.MinimumHours)

	_, ok = cal.GetLaborDay(monday.AddDate(0, 0, 7))
	assert.False(t, ok)
	assert.Len(t, cal.Days(), 7)

	_, err := NewLaborCalendar([]entities.LaborDay{{Date: monday}, {Date: monday}})
	assert.Error(t, err)
}

func TestInventoryRepository_MergesDuplicates(t *testing.T) {
	repo := NewInventoryRepository()
	snap, err := repo.GetSnapshot()
	require.NoError(t, err)
	assert.Nil(t, snap)

	err = repo.LoadSnapshot(entities.InventorySnapshot{
		SnapshotDate: time.Date(2025, 10, 12, 15, 0, 0, 0, time.UTC),
		Entries: []entities.InventoryEntry{
			{Node: "6122", Product: "P1", Quantity: 300},
			{Node: "6122", Product: "P1", Quantity: 200},
			{Node: "6125", Product: "P1", Quantity: 10},
		},
	})
	require.NoError(t, err)

	snap, err = repo.GetSnapshot()
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.InDelta(t, 500, snap.Entries[0].Quantity, 1e-9)
	assert.Equal(t, 0, snap.SnapshotDate.Hour())
}
