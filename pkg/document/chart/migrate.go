package chart

import (
	"strings"

	"github.com/stateful/labdoc/pkg/document/table"
)

// migrate converts the legacy single-source fields into the per-series
// model. Modern fields win: nothing is migrated for a chart type whose
// modern fields are already populated.
func migrate(d *Data, l legacy) bool {
	if !l.present() {
		return false
	}
	fromTable := l.DataSource == SourceTable && l.TableSelection != nil

	switch {
	case d.ChartType == Scatter:
		if len(d.ScatterSeries) > 0 {
			return false
		}
		if fromTable {
			d.ScatterSeries = []ScatterSeries{legacyScatterTable(*l.TableSelection)}
		} else {
			d.ScatterSeries = []ScatterSeries{legacyScatterManual(l.ManualText)}
		}
	case d.ChartType.IsBar():
		if len(d.BarSeries) > 0 {
			return false
		}
		if fromTable {
			sel := l.TableSelection.Normalize()
			d.BarXSource = SourceManual
			d.BarSeries = []BarSeries{{
				Source:         SourceTable,
				AxisMode:       emphasis(sel),
				TableSelection: &sel,
			}}
		} else {
			d.BarXSource = SourceManual
			d.BarXRow, d.BarSeries = legacyBarManual(l.ManualText)
		}
	case d.ChartType == Pie:
		if len(d.PieRows) > 0 || d.PieTableSelection != nil {
			return false
		}
		if fromTable {
			sel := l.TableSelection.Normalize()
			d.PieSource = SourceTable
			d.PieTableSelection = &sel
			d.PieAxisMode = emphasis(sel)
		} else {
			d.PieSource = SourceManual
			d.PieRows = legacyPieManual(l.ManualText)
		}
	default:
		return false
	}
	return true
}

// emphasis picks the axis mode matching the shape of a selection: a tall
// selection is read column-wise, a wide one row-wise.
func emphasis(sel table.Selection) AxisMode {
	if sel.Rows() >= sel.Cols() {
		return AxisCols
	}
	return AxisRows
}

func legacyScatterManual(text string) ScatterSeries {
	lines := splitLines(text)
	s := ScatterSeries{XSource: SourceManual, YSource: SourceManual}
	if len(lines) > 0 {
		s.XRow = lines[0]
	}
	if len(lines) > 1 {
		s.YRow = lines[1]
	}
	return s
}

func legacyScatterTable(sel table.Selection) ScatterSeries {
	sel = sel.Normalize()
	x, y := sel, sel
	if emphasis(sel) == AxisCols {
		x.C2 = x.C1
		y.C1, y.C2 = sel.C1+1, sel.C1+1
	} else {
		x.R2 = x.R1
		y.R1, y.R2 = sel.R1+1, sel.R1+1
	}
	return ScatterSeries{
		XSource:         SourceTable,
		YSource:         SourceTable,
		XTableSelection: &x,
		YTableSelection: &y,
	}
}

type legacyPoint struct {
	series string
	label  string
	value  string
}

// legacyPoints reads "series\tlabel\tvalue" and "label\tvalue" lines.
func legacyPoints(text string) []legacyPoint {
	var points []legacyPoint
	for _, line := range splitLines(text) {
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch len(fields) {
		case 2:
			points = append(points, legacyPoint{label: fields[0], value: fields[1]})
		case 3:
			points = append(points, legacyPoint{series: fields[0], label: fields[1], value: fields[2]})
		}
	}
	return points
}

func legacyBarManual(text string) (string, []BarSeries) {
	var (
		labels    []string
		labelSeen = map[string]bool{}
		keys      []string
		values    = map[string]map[string]string{}
	)
	for _, p := range legacyPoints(text) {
		if !labelSeen[p.label] {
			labelSeen[p.label] = true
			labels = append(labels, p.label)
		}
		if _, ok := values[p.series]; !ok {
			values[p.series] = map[string]string{}
			keys = append(keys, p.series)
		}
		values[p.series][p.label] = p.value
	}

	series := make([]BarSeries, 0, len(keys))
	for _, key := range keys {
		row := make([]string, len(labels))
		for i, label := range labels {
			row[i] = values[key][label]
		}
		series = append(series, BarSeries{
			Name:     key,
			Source:   SourceManual,
			AxisMode: AxisCols,
			YRow:     strings.Join(row, "\t"),
		})
	}
	return strings.Join(labels, "\t"), series
}

func legacyPieManual(text string) []PieRow {
	var rows []PieRow
	for _, p := range legacyPoints(text) {
		rows = append(rows, PieRow{Label: p.label, Value: p.value})
	}
	return rows
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
