package chart

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/stateful/labdoc/pkg/document/table"
)

// TableResolver returns the table payload of the block with the given id.
type TableResolver func(blockID string) (table.Payload, bool)

// RenderRequest is the body sent to the chart renderer.
type RenderRequest struct {
	ChartType Type   `json:"chart_type"`
	Title     string `json:"title"`
	XLabel    string `json:"x_label"`
	YLabel    string `json:"y_label"`
	Legend    bool   `json:"legend"`
	Data      []Row  `json:"data"`
}

// ToRenderRequest flattens d into rows. Values that are not finite numbers
// are skipped point by point; a chart without valid points has no rows.
func ToRenderRequest(d Data, resolve TableResolver) RenderRequest {
	d = normalize(d)
	if resolve == nil {
		resolve = func(string) (table.Payload, bool) { return table.Payload{}, false }
	}
	req := RenderRequest{
		ChartType: d.ChartType,
		Title:     d.Title,
		XLabel:    d.XLabel,
		YLabel:    d.YLabel,
		Legend:    d.Legend,
		Data:      []Row{},
	}
	c := converter{resolve: resolve}
	switch {
	case d.ChartType == Pie:
		req.Data = append(req.Data, c.pie(d)...)
	case d.ChartType.IsBar():
		req.Data = append(req.Data, c.bar(d)...)
	default:
		req.ChartType = Scatter
		req.Data = append(req.Data, c.scatter(d)...)
	}
	return req
}

type converter struct {
	resolve TableResolver
}

func (c converter) scatter(d Data) []Row {
	var rows []Row
	for i, s := range d.ScatterSeries {
		name := SeriesName(s.Name, i)
		xs := c.vector(s.XSource, s.XRow, s.XTableSelection)
		ys := c.vector(s.YSource, s.YRow, s.YTableSelection)
		for j := 0; j < min(len(xs), len(ys)); j++ {
			x, okX := ParseNumber(xs[j])
			y, okY := ParseNumber(ys[j])
			if !okX || !okY {
				continue
			}
			rows = append(rows, PointRow(x, y, name))
		}
	}
	return rows
}

func (c converter) bar(d Data) []Row {
	var (
		order []string
		seen  = map[string]bool{}
	)
	addLabel := func(label string) {
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		order = append(order, label)
	}

	shared := c.vector(d.BarXSource, d.BarXRow, d.BarXTableSelection)
	for _, label := range shared {
		addLabel(label)
	}

	values := make([]map[string]float64, len(d.BarSeries))
	for i, s := range d.BarSeries {
		values[i] = map[string]float64{}
		if s.Source == SourceTable {
			for _, p := range c.pairs(s.TableSelection, s.AxisMode) {
				v, ok := ParseNumber(p.value)
				if !ok || p.label == "" {
					continue
				}
				addLabel(p.label)
				values[i][p.label] = v
			}
			continue
		}
		ys := SplitValues(s.YRow)
		for j, label := range shared {
			if j >= len(ys) {
				break
			}
			if label == "" {
				continue
			}
			if v, ok := ParseNumber(ys[j]); ok {
				values[i][label] = v
			}
		}
	}

	var rows []Row
	for _, label := range order {
		for i, s := range d.BarSeries {
			if v, ok := values[i][label]; ok {
				rows = append(rows, PointRow(label, v, SeriesName(s.Name, i)))
			}
		}
	}
	return rows
}

func (c converter) pie(d Data) []Row {
	var rows []Row
	if d.PieSource == SourceTable {
		for _, p := range c.pairs(d.PieTableSelection, d.PieAxisMode) {
			if v, ok := ParseNumber(p.value); ok {
				rows = append(rows, SliceRow(p.label, v))
			}
		}
		return rows
	}
	for _, r := range d.PieRows {
		if v, ok := ParseNumber(r.Value); ok {
			rows = append(rows, SliceRow(strings.TrimSpace(r.Label), v))
		}
	}
	return rows
}

// vector resolves a one-dimensional list of values.
func (c converter) vector(source Source, manual string, sel *table.Selection) []string {
	if source != SourceTable {
		return SplitValues(manual)
	}
	if sel == nil {
		return nil
	}
	p, ok := c.resolve(sel.BlockID)
	if !ok {
		return nil
	}
	return Vector(p, *sel)
}

type pair struct {
	label string
	value string
}

// pairs reads labels and values from the first two rows or columns of a
// selection.
func (c converter) pairs(sel *table.Selection, mode AxisMode) []pair {
	if sel == nil {
		return nil
	}
	p, ok := c.resolve(sel.BlockID)
	if !ok {
		return nil
	}
	values := table.Values(p, *sel)
	if len(values) == 0 {
		return nil
	}

	var result []pair
	if mode == AxisRows {
		if len(values) < 2 {
			return nil
		}
		for j := range values[0] {
			result = append(result, pair{label: values[0][j], value: values[1][j]})
		}
		return result
	}
	for _, row := range values {
		if len(row) < 2 {
			return nil
		}
		result = append(result, pair{label: row[0], value: row[1]})
	}
	return result
}

// Vector reduces a selection to a single row or column: the first row when
// the selection is at least as wide as it is tall, the first column
// otherwise.
func Vector(p table.Payload, sel table.Selection) []string {
	values := table.Values(p, sel)
	if len(values) == 0 {
		return nil
	}
	if len(values[0]) >= len(values) {
		return values[0]
	}
	col := make([]string, 0, len(values))
	for _, row := range values {
		col = append(col, row[0])
	}
	return col
}

// SplitValues splits manually entered values. Tabs and line breaks separate
// values when a tab is present, so pasted spreadsheet rows keep empty
// fields; otherwise commas and whitespace separate them.
func SplitValues(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var fields []string
	if strings.Contains(s, "\t") {
		fields = strings.FieldsFunc(strings.Trim(s, "\n"), func(r rune) bool { return r == '\n' })
		var split []string
		for _, line := range fields {
			split = append(split, strings.Split(line, "\t")...)
		}
		fields = split
	} else {
		fields = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// ParseNumber parses a finite floating point value.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
