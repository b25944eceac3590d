package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadDemand loads forecast demand from a CSV file
func (l *Loader) LoadDemand(filename string) ([]entities.DemandEntry, error) {
	expectedHeader := []string{"node", "product", "date", "quantity"}
	records, err := readRecords(filename, "demand", expectedHeader)
	if err != nil {
		return nil, err
	}

	demand := make([]entities.DemandEntry, 0, len(records))
	for i, record := range records {
		entry, err := parseDemand(record)
		if err != nil {
			return nil, fmt.Errorf("demand CSV row %d: %w", i+2, err)
		}
		demand = append(demand, *entry)
	}

	return demand, nil
}

// LoadInventory loads the initial stock position from a CSV file. The state
// column may be left blank to infer the state from the node's storage.
func (l *Loader) LoadInventory(filename string) ([]entities.InventoryEntry, error) {
	expectedHeader := []string{"node", "product", "state", "quantity"}
	records, err := readRecords(filename, "inventory", expectedHeader)
	if err != nil {
		return nil, err
	}

	entries := make([]entities.InventoryEntry, 0, len(records))
	for i, record := range records {
		entry, err := parseInventory(record)
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// LoadLabor loads labor calendar entries from a CSV file
func (l *Loader) LoadLabor(filename string) ([]entities.LaborDay, error) {
	expectedHeader := []string{"date", "fixed_hours", "regular_rate", "overtime_rate", "non_fixed_rate", "minimum_hours"}
	records, err := readRecords(filename, "labor", expectedHeader)
	if err != nil {
		return nil, err
	}

	days := make([]entities.LaborDay, 0, len(records))
	for i, record := range records {
		day, err := parseLaborDay(record)
		if err != nil {
			return nil, fmt.Errorf("labor CSV row %d: %w", i+2, err)
		}
		days = append(days, *day)
	}

	return days, nil
}

// readRecords opens a CSV file, checks its header and column counts and
// returns the data rows
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}

	return records[1:], nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseDemand(record []string) (*entities.DemandEntry, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(record[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", record[2])
	}

	quantity, err := parseFloat("quantity", record[3])
	if err != nil {
		return nil, err
	}

	return entities.NewDemandEntry(entities.NodeID(strings.TrimSpace(record[0])), entities.ProductID(strings.TrimSpace(record[1])), date, quantity)
}

func parseInventory(record []string) (*entities.InventoryEntry, error) {
	quantity, err := parseFloat("quantity", record[3])
	if err != nil {
		return nil, err
	}

	entry, err := entities.NewInventoryEntry(entities.NodeID(strings.TrimSpace(record[0])), entities.ProductID(strings.TrimSpace(record[1])), quantity)
	if err != nil {
		return nil, err
	}

	if s := strings.TrimSpace(record[2]); s != "" {
		state, err := entities.ParseState(s)
		if err != nil {
			return nil, fmt.Errorf("invalid state: %w", err)
		}
		entry.State = &state
	}

	return entry, nil
}

func parseLaborDay(record []string) (*entities.LaborDay, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", record[0])
	}

	names := []string{"fixed_hours", "regular_rate", "overtime_rate", "non_fixed_rate", "minimum_hours"}
	values := make([]float64, len(names))
	for i, name := range names {
		if values[i], err = parseFloat(name, record[i+1]); err != nil {
			return nil, err
		}
	}

	return entities.NewLaborDay(date, values[0], values[1], values[2], values[3], values[4])
}

// parseFloat treats an empty cell as zero
func parseFloat(column, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return v, nil
}
