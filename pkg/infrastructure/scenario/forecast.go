package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/distplan/pkg/domain/entities"
)

// LoadForecastWorkbook reads demand from the first sheet of an xlsx file.
// Two layouts are accepted: long rows of node, product, date, quantity, or
// a wide grid with node and product columns followed by one column per date.
func LoadForecastWorkbook(path string) ([]entities.DemandEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open forecast workbook %s: %w", path, err)
	}
	defer f.Close()

	return ReadForecast(f)
}

// ReadForecast extracts demand entries from an open workbook
func ReadForecast(f *excelize.File) ([]entities.DemandEntry, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read excel: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("forecast sheet %q is empty", sheet)
	}

	header := normalise(rows[0])
	if len(header) < 3 || header[0] != "node" || header[1] != "product" {
		return nil, fmt.Errorf("forecast sheet %q: header must start with node, product; got %v", sheet, rows[0])
	}

	if len(header) == 4 && header[2] == "date" && header[3] == "quantity" {
		return readLong(rows[1:])
	}
	return readWide(rows[0][2:], rows[1:])
}

func readLong(rows [][]string) ([]entities.DemandEntry, error) {
	var out []entities.DemandEntry
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("forecast row %d: expected 4 cells, got %d", i+2, len(row))
		}
		date, err := cellDate(row[2])
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i+2, err)
		}
		qty, err := cellFloat(row[3])
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i+2, err)
		}
		entry, err := entities.NewDemandEntry(entities.NodeID(strings.TrimSpace(row[0])), entities.ProductID(strings.TrimSpace(row[1])), date, qty)
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i+2, err)
		}
		out = append(out, *entry)
	}
	return out, nil
}

func readWide(dateCells []string, rows [][]string) ([]entities.DemandEntry, error) {
	dates := make([]time.Time, len(dateCells))
	for j, c := range dateCells {
		d, err := cellDate(c)
		if err != nil {
			col, _ := excelize.ColumnNumberToName(j + 3)
			return nil, fmt.Errorf("forecast header column %s: %w", col, err)
		}
		dates[j] = d
	}

	var out []entities.DemandEntry
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("forecast row %d: missing node or product", i+2)
		}
		node := entities.NodeID(strings.TrimSpace(row[0]))
		product := entities.ProductID(strings.TrimSpace(row[1]))
		for j, date := range dates {
			if j+2 >= len(row) {
				break
			}
			qty, err := cellFloat(row[j+2])
			if err != nil {
				col, _ := excelize.ColumnNumberToName(j + 3)
				return nil, fmt.Errorf("forecast cell %s%d: %w", col, i+2, err)
			}
			if qty == 0 {
				continue
			}
			entry, err := entities.NewDemandEntry(node, product, date, qty)
			if err != nil {
				return nil, fmt.Errorf("forecast row %d: %w", i+2, err)
			}
			out = append(out, *entry)
		}
	}
	return out, nil
}

// cellDate accepts ISO dates and raw Excel date serials
func cellDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return entities.Day(t), nil
}

func cellFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

func normalise(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
