package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/distplan/pkg/application/dto"
	"github.com/vsinha/distplan/pkg/domain/entities"
)

// GanttChart lays out a plan's production and shipments on a daily axis
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// BarKind is what a bar represents
type BarKind int

const (
	ProductionBar BarKind = iota
	ShipmentBar
	TruckBar
)

// GanttBar represents a single bar in the Gantt chart
type GanttBar struct {
	Row      string
	Kind     BarKind
	State    entities.State
	Quantity float64
	Start    time.Time
	End      time.Time
	Label    string
	X        int
	Width    int
	Color    string
}

// NewGanttChart sizes a chart for the plan: one row per producing
// (node, product) and one per shipping lane, one column per day
func NewGanttChart(plan *dto.Plan) *GanttChart {
	gc := &GanttChart{
		Width:        1200,
		Height:       200,
		MarginLeft:   220,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 80,
		RowHeight:    30,
	}
	if plan == nil {
		return gc
	}

	gc.StartTime = plan.Start
	gc.EndTime = entities.AddDays(plan.End, 1)
	for _, s := range plan.Shipments {
		if arrival := entities.AddDays(s.Arrival, 1); arrival.After(gc.EndTime) {
			gc.EndTime = arrival
		}
	}

	rows := len(gc.organizeBars(gc.createBars(plan)))
	gc.Height = rows*gc.RowHeight + gc.MarginTop + gc.MarginBottom + 30
	return gc
}

// GenerateSVG creates an SVG representation of the schedule
func (gc *GanttChart) GenerateSVG(plan *dto.Plan) string {
	if plan == nil || (len(plan.Production) == 0 && len(plan.Shipments) == 0) {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.row-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.bar-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">Production &amp; Distribution Schedule %s to %s</text>`,
		gc.Width/2, plan.Start.Format(dateLayout), plan.End.Format(dateLayout)))

	rows := gc.organizeBars(gc.createBars(plan))

	gc.drawTimeAxis(&svg)
	gc.drawTimeGrid(&svg, len(rows))
	gc.drawRows(&svg, rows)
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

// x maps a date onto the horizontal axis
func (gc *GanttChart) x(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	if total <= 0 {
		return gc.MarginLeft
	}
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

// createBars converts production batches and shipments into bars. A
// production bar covers its day; a shipment spans departure to arrival.
func (gc *GanttChart) createBars(plan *dto.Plan) []GanttBar {
	var bars []GanttBar

	for _, b := range plan.Production {
		bars = append(bars, GanttBar{
			Row:      fmt.Sprintf("%s make %s", b.Node, b.Product),
			Kind:     ProductionBar,
			Quantity: b.Quantity,
			Start:    b.Date,
			End:      entities.AddDays(b.Date, 1),
			Label:    fmt.Sprintf("%.0f", b.Quantity),
		})
	}

	for _, s := range plan.Shipments {
		kind := ShipmentBar
		label := fmt.Sprintf("%.0f", s.Quantity)
		if s.TruckID != "" {
			kind = TruckBar
			label = fmt.Sprintf("%s %.0f", s.TruckID, s.Quantity)
		}
		end := s.Arrival
		if !end.After(s.Departure) {
			end = entities.AddDays(s.Departure, 1)
		}
		bars = append(bars, GanttBar{
			Row:      fmt.Sprintf("%s→%s %s", s.Origin, s.Destination, s.Product),
			Kind:     kind,
			State:    s.State,
			Quantity: s.Quantity,
			Start:    s.Departure,
			End:      end,
			Label:    label,
		})
	}

	for i := range bars {
		bars[i].X = gc.x(bars[i].Start)
		bars[i].Width = gc.x(bars[i].End) - bars[i].X
		if bars[i].Width < 2 {
			bars[i].Width = 2
		}
		bars[i].Color = gc.getBarColor(bars[i])
	}

	return bars
}

// organizeBars groups bars by row and sorts them by start date
func (gc *GanttChart) organizeBars(bars []GanttBar) map[string][]GanttBar {
	rows := make(map[string][]GanttBar)
	for _, bar := range bars {
		rows[bar.Row] = append(rows[bar.Row], bar)
	}
	for row := range rows {
		sort.Slice(rows[row], func(i, j int) bool {
			return rows[row][i].Start.Before(rows[row][j].Start)
		})
	}
	return rows
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder) {
	days := entities.DaysBetween(gc.StartTime, gc.EndTime)
	step := 1
	if days > 31 {
		step = 7
	}

	for d := 0; d < days; d += step {
		t := entities.AddDays(gc.StartTime, d)
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			gc.x(t), gc.Height-gc.MarginBottom+15, t.Format("Mon Jan 2")))
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		gc.MarginLeft, gc.Height-gc.MarginBottom, gc.Width-gc.MarginRight, gc.Height-gc.MarginBottom))
}

func (gc *GanttChart) drawTimeGrid(svg *strings.Builder, numRows int) {
	gridBottom := gc.MarginTop + numRows*gc.RowHeight
	for d := 0; d <= entities.DaysBetween(gc.StartTime, gc.EndTime); d++ {
		x := gc.x(entities.AddDays(gc.StartTime, d))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			x, gc.MarginTop, x, gridBottom))
	}
}

// drawRows draws production rows first, then lanes, each alphabetically
func (gc *GanttChart) drawRows(svg *strings.Builder, rows map[string][]GanttBar) {
	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ki, kj := rows[names[i]][0].Kind == ProductionBar, rows[names[j]][0].Kind == ProductionBar
		if ki != kj {
			return ki
		}
		return names[i] < names[j]
	})

	for i, name := range names {
		y := gc.MarginTop + i*gc.RowHeight

		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="row-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+gc.RowHeight/2+4, name))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+gc.RowHeight, gc.Width-gc.MarginRight, y+gc.RowHeight))

		for _, bar := range rows[name] {
			gc.drawBar(svg, bar, y)
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	barHeight := gc.RowHeight - 4
	barY := rowY + 2

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="bar">`,
		bar.X, barY, bar.Width, barHeight, bar.Color))
	svg.WriteString(fmt.Sprintf(`<title>%s: %.0f units, %s to %s</title></rect>`,
		bar.Row, bar.Quantity, bar.Start.Format(dateLayout), bar.End.Format(dateLayout)))

	if bar.Width > 40 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="bar-text" text-anchor="middle">%s</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, bar.Label))
	}
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	legendX := gc.Width - gc.MarginRight - 180
	legendY := 40

	items := []struct {
		color string
		label string
	}{
		{"#4CAF50", "Production"},
		{"#2196F3", "Ambient shipment"},
		{"#00BCD4", "Frozen shipment"},
		{"#FF9800", "Truck load"},
	}

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="170" height="%d" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY-12, 16+len(items)*12))
	for i, item := range items {
		itemY := legendY + i*12
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY-6, item.color))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`,
			legendX+30, itemY+2, item.label))
	}
}

func (gc *GanttChart) getBarColor(bar GanttBar) string {
	switch {
	case bar.Kind == ProductionBar:
		return "#4CAF50"
	case bar.Kind == TruckBar:
		return "#FF9800"
	case bar.State == entities.Frozen:
		return "#00BCD4"
	default:
		return "#2196F3"
	}
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Production or Shipments Planned</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}

func generateSVGOutput(w io.Writer, result *dto.PlanResult, config Config) error {
	chart := NewGanttChart(result.Plan)
	svg := chart.GenerateSVG(result.Plan)

	if config.OutputDir == "" {
		_, err := io.WriteString(w, svg)
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "schedule.svg")
	if err := os.WriteFile(filename, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write SVG file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "💾 Schedule chart saved to: %s\n", filename)
	}
	return nil
}
