package micron

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// DefaultSwathMaxGap is the inter-ensemble time gap beyond which a new
// swath starts even without a sweep turnaround.
const DefaultSwathMaxGap = 30 * time.Second

// Swath is an ordered group of ensembles from one scan sweep, the input
// unit handed to a downstream classifier. Transient: it lives only as
// long as the aggregator session that built it.
type Swath struct {
	ID        string
	Ensembles []*Ensemble
}

// Start returns the timestamp of the first ensemble in the swath.
func (s *Swath) Start() time.Time {
	if len(s.Ensembles) == 0 {
		return time.Time{}
	}
	return s.Ensembles[0].Time
}

// End returns the timestamp of the last ensemble in the swath.
func (s *Swath) End() time.Time {
	if len(s.Ensembles) == 0 {
		return time.Time{}
	}
	return s.Ensembles[len(s.Ensembles)-1].Time
}

// SwathFeatures summarises the derived signal features across a swath,
// the scalar inputs a classifier consumes alongside the per-ensemble
// records. Ensembles without a detectable peak are excluded.
type SwathFeatures struct {
	PeakCount int // ensembles with a detectable peak

	MeanMaxIntensity   float64 // dB
	StdDevMaxIntensity float64 // dB
	MeanIntensityNorm  float64 // dB*m
	MeanVerticalRange  float64 // metres
	MeanPeakWidth      float64 // metres
}

// Features computes the feature summary of the swath.
func (s *Swath) Features() SwathFeatures {
	var f SwathFeatures
	var maxI, norm, vert, width []float64
	for _, e := range s.Ensembles {
		if !e.Peak.Found {
			continue
		}
		maxI = append(maxI, e.Peak.MaxIntensity)
		norm = append(norm, e.Peak.MaxIntensityNorm)
		vert = append(vert, e.Peak.VerticalRange)
		width = append(width, e.Peak.PeakWidth)
	}
	f.PeakCount = len(maxI)
	if f.PeakCount == 0 {
		return f
	}
	f.MeanMaxIntensity, f.StdDevMaxIntensity = stat.MeanStdDev(maxI, nil)
	f.MeanIntensityNorm = stat.Mean(norm, nil)
	f.MeanVerticalRange = stat.Mean(vert, nil)
	f.MeanPeakWidth = stat.Mean(width, nil)
	return f
}

// SwathAggregator groups a temporally ordered stream of ensembles into
// scan-sweep windows. A new swath starts when the bearing direction
// reverses (sweep turnaround) or when the time gap between consecutive
// ensembles exceeds the configured maximum.
//
// The aggregator holds session-scoped mutable state and requires its
// input in strictly increasing timestamp order; feeding one session from
// multiple goroutines needs external serialisation.
type SwathAggregator struct {
	maxGap time.Duration

	current   *Swath
	completed []*Swath

	lastTime    time.Time
	lastBearing float64
	direction   int // -1, 0 (unknown), +1 sign of the last bearing delta
}

// NewSwathAggregator creates an aggregator session. maxGap <= 0 selects
// DefaultSwathMaxGap.
func NewSwathAggregator(maxGap time.Duration) *SwathAggregator {
	if maxGap <= 0 {
		maxGap = DefaultSwathMaxGap
	}
	return &SwathAggregator{maxGap: maxGap}
}

// Add appends an ensemble to the session. Out-of-order input is the
// caller's error and is rejected, never silently reordered.
func (a *SwathAggregator) Add(e *Ensemble) error {
	// Ordering is a session property, not a swath property: lastTime
	// outlives Flush so a flushed session still rejects stale input.
	if !a.lastTime.IsZero() && !e.Time.After(a.lastTime) {
		return fmt.Errorf("%w: %s not after %s",
			ErrOutOfOrder, e.Time.Format(time.RFC3339), a.lastTime.Format(time.RFC3339))
	}

	turnaround := false
	if a.current != nil {
		if gap := e.Time.Sub(a.lastTime); gap > a.maxGap {
			turnaround = true
		} else if dir := bearingDirection(a.lastBearing, e.Bearing); dir != 0 {
			if a.direction != 0 && dir != a.direction {
				turnaround = true
			}
			a.direction = dir
		}
	}

	if a.current == nil || turnaround {
		if a.current != nil {
			a.completed = append(a.completed, a.current)
		}
		a.current = &Swath{ID: uuid.NewString()}
		if turnaround {
			// Direction is re-established from the next delta within
			// the new swath.
			a.direction = 0
		}
	}

	a.current.Ensembles = append(a.current.Ensembles, e)
	a.lastTime = e.Time
	a.lastBearing = e.Bearing
	return nil
}

// Completed returns the finished swaths accumulated so far, oldest first.
func (a *SwathAggregator) Completed() []*Swath {
	return a.completed
}

// Current returns the in-progress swath, or nil before the first Add.
func (a *SwathAggregator) Current() *Swath {
	return a.current
}

// Flush closes the in-progress swath, moving it to the completed list.
func (a *SwathAggregator) Flush() {
	if a.current != nil && len(a.current.Ensembles) > 0 {
		a.completed = append(a.completed, a.current)
	}
	a.current = nil
	a.direction = 0
}

// bearingDirection returns the sign of the wrap-aware bearing delta, or 0
// when the bearing did not move.
func bearingDirection(prev, cur float64) int {
	delta := WrapDegrees(cur - prev)
	switch {
	case delta > 0:
		return 1
	case delta < 0:
		return -1
	}
	return 0
}
