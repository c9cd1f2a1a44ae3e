package micron

import (
	"math"
	"time"
)

// TimeSeries is an ordered collection of decoded ensembles from one
// deployment or log file. It exists for bulk annotation and for handing
// windows of ensembles to the export and persistence collaborators; it
// is composition over the same Ensemble values the swath aggregator
// sees, not a separate representation.
type TimeSeries struct {
	Name      string
	Ensembles []*Ensemble
}

// NewTimeSeries creates a named, empty time series.
func NewTimeSeries(name string) *TimeSeries {
	return &TimeSeries{Name: name}
}

// Add appends an ensemble.
func (ts *TimeSeries) Add(e *Ensemble) {
	ts.Ensembles = append(ts.Ensembles, e)
}

// SetLabelByBearing hand-annotates every ensemble whose bearing falls in
// [min+pad, max-pad) with the given label value. The pad shrinks the
// window on both sides for when the exact transition angle between two
// ice types is hard to call.
func (ts *TimeSeries) SetLabelByBearing(name IceVariable, val, min, max, pad float64) error {
	for _, e := range ts.Ensembles {
		if e.Bearing >= min+pad && e.Bearing < max-pad {
			if err := e.SetLabel(name, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResetLabels clears every hand-annotated label in the series.
func (ts *TimeSeries) ResetLabels() {
	for _, e := range ts.Ensembles {
		e.Label = IceValues{}
	}
}

// CropOnBearing returns a new series containing the ensembles whose
// world-referenced bearing lies inside [left, right]. When left > right
// the window wraps through ±180.
func (ts *TimeSeries) CropOnBearing(left, right float64) *TimeSeries {
	out := NewTimeSeries(ts.Name + "_cropped")
	for _, e := range ts.Ensembles {
		b := e.BearingRefWorld
		var in bool
		if right > left {
			in = b >= left && b <= right
		} else {
			in = b >= left || b <= right
		}
		if in {
			out.Add(e)
		}
	}
	return out
}

// SingleSwath returns the leading ensembles of a cropped series that
// cover one complete sweep of the given bearing window, sized from the
// first ensemble's corrected step angle.
func (ts *TimeSeries) SingleSwath(left, right float64) *TimeSeries {
	cropped := ts.CropOnBearing(left, right)
	cropped.Name = ts.Name + "_swath"
	if len(cropped.Ensembles) == 0 {
		return cropped
	}
	steps := cropped.Ensembles[0].Steps
	if steps <= 0.1 {
		return cropped
	}
	// One pass each way across the window.
	n := int(math.Ceil(math.Abs(right-left)/(steps-0.1))) * 2
	if n < len(cropped.Ensembles) {
		cropped.Ensembles = cropped.Ensembles[:n]
	}
	return cropped
}

// Span returns the time covered by the series.
func (ts *TimeSeries) Span() time.Duration {
	if len(ts.Ensembles) < 2 {
		return 0
	}
	return ts.Ensembles[len(ts.Ensembles)-1].Time.Sub(ts.Ensembles[0].Time)
}
