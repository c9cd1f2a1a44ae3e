package micron

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// DefaultExportWidth is the fixed intensity column count of the tabular
// export schema. It must be chosen at or above the largest dbytes the
// instrument ever reports; observed counts for this instrument class sit
// around 400-470.
const DefaultExportWidth = 500

// NullSentinel fills unused trailing bin columns and unset ice values.
const NullSentinel = "NaN"

// ExportColumns returns the fixed tabular schema for the given intensity
// width: header fields, derived fields, ice classification and label
// fields, then bin_0 .. bin_{k-1}.
func ExportColumns(k int) []string {
	cols := []string{
		"line_header", "date_time", "node", "status", "hdctrl",
		"range_scale", "gain", "slope", "ad_low", "ad_span",
		"left_lim", "right_lim", "steps", "bearing", "dbytes",

		"year", "month", "day", "sonar_depth", "sonar_altitude",
		"bearing_bias", "bearing_ref_world", "incidence_angle", "bin_size",
		"max_intensity", "max_intensity_bin", "max_intensity_norm",
		"peak_start_bin", "peak_start", "peak_end_bin", "peak_end",
		"peak_width_bin", "peak_width", "vertical_range",

		"class_ice_category", "class_ice_presence", "class_ice_percent",
		"class_ice_thickness", "class_ice_slope", "class_ice_roughness",
		"label_ice_category", "label_ice_presence", "label_ice_percent",
		"label_ice_thickness", "label_ice_slope", "label_ice_roughness",
		"label_saltwater_flag",
	}
	for i := 0; i < k; i++ {
		cols = append(cols, "bin_"+strconv.Itoa(i))
	}
	return cols
}

// ExportRow flattens one ensemble into the fixed-width schema. Ensembles
// wider than k are a configuration error: k must be raised, the data is
// never truncated.
func ExportRow(e *Ensemble, k int) ([]string, error) {
	if e.DBytes > k {
		return nil, fmt.Errorf("%w: dbytes %d > width %d", ErrExportWidth, e.DBytes, k)
	}

	row := []string{
		strconv.Itoa(int(e.LineMarker)),
		strconv.FormatFloat(float64(e.Time.Unix()), 'f', -1, 64),
		strconv.Itoa(int(e.Node)),
		strconv.Itoa(int(e.Status)),
		strconv.Itoa(int(e.HdCtrl)),
		formatFloat(e.RangeScale),
		strconv.Itoa(e.Gain),
		strconv.Itoa(e.Slope),
		formatFloat(e.ADLow),
		formatFloat(e.ADSpan),
		formatFloat(e.LeftLim),
		formatFloat(e.RightLim),
		formatFloat(e.Steps),
		formatFloat(e.Bearing),
		strconv.Itoa(e.DBytes),

		strconv.Itoa(e.Year),
		strconv.Itoa(int(e.Month)),
		strconv.Itoa(e.Day),
		formatOptional(e.SonarDepth),
		formatOptional(e.SonarAltitude),
		formatFloat(e.BearingBias),
		formatFloat(e.BearingRefWorld),
		formatFloat(e.IncidenceAngle),
		formatFloat(e.BinSize),
	}

	if e.Peak.Found {
		row = append(row,
			formatFloat(e.Peak.MaxIntensity),
			strconv.Itoa(e.Peak.MaxIntensityBin),
			formatFloat(e.Peak.MaxIntensityNorm),
			strconv.Itoa(e.Peak.PeakStartBin),
			formatFloat(e.Peak.PeakStart),
			strconv.Itoa(e.Peak.PeakEndBin),
			formatFloat(e.Peak.PeakEnd),
			strconv.Itoa(e.Peak.PeakWidthBin),
			formatFloat(e.Peak.PeakWidth),
			formatFloat(e.Peak.VerticalRange),
		)
	} else {
		for i := 0; i < 10; i++ {
			row = append(row, NullSentinel)
		}
	}

	for _, v := range []*float64{
		e.Class.Category, e.Class.Presence, e.Class.Percent,
		e.Class.Thickness, e.Class.Slope, e.Class.Roughness,
		e.Label.Category, e.Label.Presence, e.Label.Percent,
		e.Label.Thickness, e.Label.Slope, e.Label.Roughness,
		e.Label.Saltwater,
	} {
		row = append(row, formatOptional(v))
	}

	// Filtered bins export as zero so consumers of the tabular schema see
	// the same signal the peak analyzer saw.
	for _, s := range e.Intensity {
		if s.Valid {
			row = append(row, formatFloat(s.DB))
		} else {
			row = append(row, "0")
		}
	}
	for i := e.DBytes; i < k; i++ {
		row = append(row, NullSentinel)
	}

	return row, nil
}

// WriteCSV writes a time series in the fixed-width tabular schema, one
// row per ensemble, header row first.
func WriteCSV(w io.Writer, ts *TimeSeries, k int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns(k)); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for i, e := range ts.Ensembles {
		row, err := ExportRow(e, k)
		if err != nil {
			return fmt.Errorf("exporting ensemble %d: %w", i, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing ensemble %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return NullSentinel
	}
	return formatFloat(*v)
}
