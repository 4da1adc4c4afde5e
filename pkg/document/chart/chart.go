// Package chart implements the chart definition stored in the content of
// chart blocks and its conversion into the row-oriented request accepted by
// the chart renderer.
package chart

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/document/table"
)

type Type string

const (
	Scatter Type = "scatter"
	Bar     Type = "bar"
	HBar    Type = "hbar"
	Pie     Type = "pie"
)

// Types lists the supported chart types.
var Types = []Type{Scatter, Bar, HBar, Pie}

func (t Type) valid() bool {
	switch t {
	case Scatter, Bar, HBar, Pie:
		return true
	}
	return false
}

// IsBar reports whether t is a vertical or horizontal bar chart.
func (t Type) IsBar() bool {
	return t == Bar || t == HBar
}

// Source selects where a vector of values comes from.
type Source string

const (
	SourceManual Source = "manual"
	SourceTable  Source = "table"
)

func (s Source) orManual() Source {
	if s == SourceTable {
		return SourceTable
	}
	return SourceManual
}

// AxisMode selects how a two-dimensional table selection is read: "cols"
// takes labels from the first column and values from the second, "rows"
// takes them from the first and second row.
type AxisMode string

const (
	AxisCols AxisMode = "cols"
	AxisRows AxisMode = "rows"
)

func (m AxisMode) orCols() AxisMode {
	if m == AxisRows {
		return AxisRows
	}
	return AxisCols
}

type ScatterSeries struct {
	Name            string           `json:"name"`
	XSource         Source           `json:"xSource"`
	YSource         Source           `json:"ySource"`
	XRow            string           `json:"xRow"`
	YRow            string           `json:"yRow"`
	XTableSelection *table.Selection `json:"xTableSelection,omitempty"`
	YTableSelection *table.Selection `json:"yTableSelection,omitempty"`
}

type BarSeries struct {
	Name           string           `json:"name"`
	Source         Source           `json:"source"`
	AxisMode       AxisMode         `json:"axisMode"`
	YRow           string           `json:"yRow"`
	TableSelection *table.Selection `json:"tableSelection,omitempty"`
}

type PieRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts numbers as well as strings for both fields.
func (r *PieRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label json.RawMessage `json:"label"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	r.Label = scalarString(raw.Label)
	r.Value = scalarString(raw.Value)
	return nil
}

func scalarString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
		return ""
	}
	return s
}

// Data is the chart definition stored JSON-encoded in a block's content.
type Data struct {
	ChartType Type   `json:"chartType"`
	Title     string `json:"title"`
	XLabel    string `json:"xLabel"`
	YLabel    string `json:"yLabel"`
	Legend    bool   `json:"legend"`
	ImageURL  string `json:"imageUrl,omitempty"`

	ScatterSeries []ScatterSeries `json:"scatterSeries,omitempty"`

	BarSeries          []BarSeries      `json:"barSeries,omitempty"`
	BarXSource         Source           `json:"barXSource,omitempty"`
	BarXRow            string           `json:"barXRow,omitempty"`
	BarXTableSelection *table.Selection `json:"barXTableSelection,omitempty"`

	PieSource         Source           `json:"pieSource,omitempty"`
	PieRows           []PieRow         `json:"pieRows,omitempty"`
	PieTableSelection *table.Selection `json:"pieTableSelection,omitempty"`
	PieAxisMode       AxisMode         `json:"pieAxisMode,omitempty"`
}

// legacy holds the single-source fields of the first chart format.
type legacy struct {
	TableSelection *table.Selection `json:"tableSelection"`
	ManualText     string           `json:"manualText"`
	DataSource     Source           `json:"dataSource"`
}

func (l legacy) present() bool {
	return l.TableSelection != nil || l.ManualText != "" || l.DataSource != ""
}

// SeriesName returns the display name of the i-th series.
func SeriesName(name string, i int) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("系列%d", i+1)
	}
	return name
}

// Default returns the chart installed when a block becomes a chart.
func Default() Data {
	return Data{
		ChartType: Scatter,
		Legend:    true,
		ScatterSeries: []ScatterSeries{
			{Name: SeriesName("", 0), XSource: SourceManual, YSource: SourceManual},
		},
	}
}

// Parse decodes a block's content, migrating legacy fields. It never fails:
// malformed content yields the default chart.
func Parse(content string) Data {
	d, _ := ParseWithMigration(content)
	return d
}

// ParseWithMigration is Parse that also reports whether legacy fields were
// migrated, in which case the content should be rewritten.
func ParseWithMigration(content string) (Data, bool) {
	if trimmed := strings.TrimSpace(content); trimmed == "" || trimmed == "null" {
		return Default(), false
	}
	var stored struct {
		Data
		legacy
	}
	if err := json.Unmarshal([]byte(content), &stored); err != nil {
		return Default(), false
	}
	d := stored.Data
	unknown := !d.ChartType.valid()
	if unknown {
		d.ChartType = Scatter
	}
	migrated := migrate(&d, stored.legacy)
	if unknown && len(d.ScatterSeries) == 0 {
		// Nothing usable was stored; start from the default series.
		d.ScatterSeries = Default().ScatterSeries
	}
	return normalize(d), migrated
}

// Marshal encodes d for storage in a block's content. Legacy fields are
// never written.
func Marshal(d Data) string {
	data, err := json.Marshal(normalize(d))
	if err != nil {
		panic(errors.Wrap(err, "failed to marshal chart"))
	}
	return string(data)
}

func normalize(d Data) Data {
	d = d.Clone()
	for i := range d.ScatterSeries {
		d.ScatterSeries[i].XSource = d.ScatterSeries[i].XSource.orManual()
		d.ScatterSeries[i].YSource = d.ScatterSeries[i].YSource.orManual()
	}
	for i := range d.BarSeries {
		d.BarSeries[i].Source = d.BarSeries[i].Source.orManual()
		d.BarSeries[i].AxisMode = d.BarSeries[i].AxisMode.orCols()
	}
	if d.BarXSource != "" || len(d.BarSeries) > 0 {
		d.BarXSource = d.BarXSource.orManual()
	}
	if d.PieSource == "" && d.PieTableSelection != nil && len(d.PieRows) == 0 {
		d.PieSource = SourceTable
	}
	if d.PieSource != "" || len(d.PieRows) > 0 || d.PieTableSelection != nil {
		d.PieSource = d.PieSource.orManual()
		d.PieAxisMode = d.PieAxisMode.orCols()
	}
	return d
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	clone := d
	clone.ScatterSeries = cloneSlice(d.ScatterSeries)
	for i, s := range clone.ScatterSeries {
		clone.ScatterSeries[i].XTableSelection = cloneSelection(s.XTableSelection)
		clone.ScatterSeries[i].YTableSelection = cloneSelection(s.YTableSelection)
	}
	clone.BarSeries = cloneSlice(d.BarSeries)
	for i, s := range clone.BarSeries {
		clone.BarSeries[i].TableSelection = cloneSelection(s.TableSelection)
	}
	clone.BarXTableSelection = cloneSelection(d.BarXTableSelection)
	clone.PieRows = cloneSlice(d.PieRows)
	clone.PieTableSelection = cloneSelection(d.PieTableSelection)
	return clone
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneSelection(s *table.Selection) *table.Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
