package chart

// AddSeries appends an empty series for the current chart type. For pie
// charts it appends an empty slice row.
func AddSeries(d Data) Data {
	d = d.Clone()
	switch {
	case d.ChartType == Pie:
		d.PieRows = append(d.PieRows, PieRow{})
		if d.PieSource == "" {
			d.PieSource = SourceManual
		}
	case d.ChartType.IsBar():
		d.BarSeries = append(d.BarSeries, BarSeries{
			Name:     SeriesName("", len(d.BarSeries)),
			Source:   SourceManual,
			AxisMode: AxisCols,
		})
		if d.BarXSource == "" {
			d.BarXSource = SourceManual
		}
	default:
		d.ScatterSeries = append(d.ScatterSeries, ScatterSeries{
			Name:    SeriesName("", len(d.ScatterSeries)),
			XSource: SourceManual,
			YSource: SourceManual,
		})
	}
	return d
}

// RemoveSeries removes the i-th series (or pie row) of the current type.
func RemoveSeries(d Data, i int) Data {
	d = d.Clone()
	switch {
	case d.ChartType == Pie:
		d.PieRows = removeAt(d.PieRows, i)
	case d.ChartType.IsBar():
		d.BarSeries = removeAt(d.BarSeries, i)
	default:
		d.ScatterSeries = removeAt(d.ScatterSeries, i)
	}
	return d
}

// SetScatterSeries replaces the i-th scatter series.
func SetScatterSeries(d Data, i int, s ScatterSeries) Data {
	d = d.Clone()
	if i >= 0 && i < len(d.ScatterSeries) {
		d.ScatterSeries[i] = s
	}
	return d
}

// SetBarSeries replaces the i-th bar series.
func SetBarSeries(d Data, i int, s BarSeries) Data {
	d = d.Clone()
	if i >= 0 && i < len(d.BarSeries) {
		d.BarSeries[i] = s
	}
	return d
}

// SetPieRow replaces the i-th pie row.
func SetPieRow(d Data, i int, r PieRow) Data {
	d = d.Clone()
	if i >= 0 && i < len(d.PieRows) {
		d.PieRows[i] = r
	}
	return d
}

// SetType switches the chart type. The series of the other types are kept
// so switching back restores them; a type without series gets one.
func SetType(d Data, t Type) Data {
	if !t.valid() {
		return d
	}
	d = d.Clone()
	d.ChartType = t
	switch {
	case t == Pie:
		if len(d.PieRows) == 0 && d.PieTableSelection == nil {
			d = AddSeries(d)
		}
	case t.IsBar():
		if len(d.BarSeries) == 0 {
			d = AddSeries(d)
		}
	default:
		if len(d.ScatterSeries) == 0 {
			d = AddSeries(d)
		}
	}
	return d
}

func removeAt[T any](s []T, i int) []T {
	if i < 0 || i >= len(s) {
		return s
	}
	return append(s[:i:i], s[i+1:]...)
}
