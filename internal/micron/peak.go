package micron

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/zduguid/sonar-ice-detect/internal/units"
)

// DefaultMedianWindow is the rolling-median window applied before the
// half-max threshold scan. Tuned against field data; must be odd.
const DefaultMedianWindow = 5

// PeakMetrics holds the maximum-intensity metrics and the FWHM envelope
// of one ensemble. A degenerate signal (all bins filtered, flat zero
// return) is not an error: Found is false and the remaining fields are
// zero.
type PeakMetrics struct {
	Found bool // false when no detectable peak exists

	MaxIntensity     float64 // dB, maximum over valid samples
	MaxIntensityBin  int     // index of the maximum, smallest index on ties
	MaxIntensityNorm float64 // dB*m, range-decay compensated

	PeakStartBin int // first bin of the FWHM envelope
	PeakEndBin   int // last bin of the FWHM envelope
	PeakWidthBin int // PeakEndBin - PeakStartBin

	PeakStart float64 // metres from transducer to envelope start
	PeakEnd   float64 // metres from transducer to envelope end
	PeakWidth float64 // metres

	VerticalRange float64 // metres, vertical component of PeakStart
}

// AnalyzePeak computes the maximum-intensity metrics and the
// Full-Width-Half-Maximum envelope over the valid samples of a filtered
// intensity sequence.
//
// The envelope is found by scanning outward from the maximum: the first
// bin in each direction whose (median-smoothed) value drops below half
// the maximum bounds the peak, clamped to the array edges when the signal
// never crosses. medianWindow <= 1 disables smoothing.
func AnalyzePeak(samples []Sample, binSize, bearingRefWorld float64, medianWindow int) PeakMetrics {
	var m PeakMetrics

	// Invalid bins contribute zero, exactly as if the instrument had
	// heard nothing there, which keeps indices aligned with slant range.
	values := make([]float64, len(samples))
	for i, s := range samples {
		if s.Valid {
			values[i] = s.DB
		}
	}

	maxBin := -1
	maxVal := 0.0
	for i, s := range samples {
		if s.Valid && s.DB > maxVal {
			maxVal = s.DB
			maxBin = i
		}
	}
	if maxBin < 0 || maxVal <= 0 {
		return m // flat or fully filtered signal: no detectable peak
	}

	smoothed := values
	if medianWindow > 1 {
		smoothed = rollingMedian(values, medianWindow)
	}

	halfMax := maxVal / 2

	startBin := 0
	for i := maxBin; i >= 0; i-- {
		if smoothed[i] < halfMax {
			startBin = i
			break
		}
	}
	endBin := len(samples) - 1
	for i := maxBin; i < len(samples); i++ {
		if smoothed[i] < halfMax {
			endBin = i
			break
		}
	}

	peakStart := float64(startBin) * binSize

	m.Found = true
	m.MaxIntensity = maxVal
	m.MaxIntensityBin = maxBin
	m.MaxIntensityNorm = maxVal * peakStart
	m.PeakStartBin = startBin
	m.PeakEndBin = endBin
	m.PeakWidthBin = endBin - startBin
	m.PeakStart = peakStart
	m.PeakEnd = float64(endBin) * binSize
	m.PeakWidth = float64(endBin-startBin) * binSize
	m.VerticalRange = peakStart * math.Cos(units.DegToRad(bearingRefWorld))
	return m
}

// rollingMedian returns the centred rolling median of values. Positions
// where the window extends past either edge keep their original value;
// narrow spikes and single-bin dropouts are suppressed without moving
// broad half-max crossings by more than one bin.
func rollingMedian(values []float64, window int) []float64 {
	if window%2 == 0 {
		window++
	}
	half := window / 2
	out := make([]float64, len(values))
	copy(out, values)

	buf := make([]float64, 0, window)
	for i := half; i < len(values)-half; i++ {
		buf = append(buf[:0], values[i-half:i+half+1]...)
		sort.Float64s(buf)
		out[i] = stat.Quantile(0.5, stat.Empirical, buf, nil)
	}
	return out
}
