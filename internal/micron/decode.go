package micron

import (
	"fmt"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/micron/parse"
	"github.com/zduguid/sonar-ice-detect/internal/units"
)

// PipelineConfig holds the tunable constants of the decode pipeline. The
// zero value is not useful; start from DefaultPipelineConfig.
type PipelineConfig struct {
	BlankingDistance float64 // metres
	ReflectionFactor float64 // dimensionless
	StepCorrection   float64 // firmware step-size correction factor
	MedianWindow     int     // FWHM smoothing window, <=1 disables
}

// DefaultPipelineConfig returns the production constants: spec-sheet
// blanking distance, tuned reflection factor and median window, and the
// fixed firmware step correction.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BlankingDistance: DefaultBlankingDistance,
		ReflectionFactor: DefaultReflectionFactor,
		StepCorrection:   StepCorrectionFactor,
		MedianWindow:     DefaultMedianWindow,
	}
}

// Decoder turns raw ensemble buffers into assembled Ensembles. A Decoder
// holds no mutable state: Decode is a pure function of its inputs, and
// one Decoder may serve any number of goroutines concurrently.
type Decoder struct {
	cfg PipelineConfig
}

// NewDecoder creates a Decoder with the given pipeline constants.
func NewDecoder(cfg PipelineConfig) *Decoder {
	return &Decoder{cfg: cfg}
}

// Decode parses, normalises, filters and derives one ensemble.
//
// Failure modes are deterministic: framing errors from the parse layer
// for malformed buffers, ErrInvalidContext for physically impossible
// header or context values. An undetectable peak is not a failure; it is
// represented in Ensemble.Peak.Found.
func (d *Decoder) Decode(raw []byte, ctx Context) (*Ensemble, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}

	h, intensity, err := parse.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("decode ensemble: %w", err)
	}
	if h.RangeScale == 0 {
		return nil, fmt.Errorf("%w: range scale must be positive", ErrInvalidContext)
	}
	if h.DBytes == 0 {
		return nil, fmt.Errorf("%w: sample count must be positive", ErrInvalidContext)
	}

	e := &Ensemble{
		LineMarker: h.LineMarker,
		Node:       h.Node,
		Status:     h.Status,
		HdCtrl:     h.HdCtrl,
		RangeScale: units.DecimetresToM(float64(h.RangeScale)),
		Gain:       int(h.Gain),
		Slope:      int(h.Slope),
		ADLow:      units.ByteToDB(h.ADLow),
		ADSpan:     units.ByteToDB(h.ADSpan),
		LeftLim:    ReorientBearing(units.GradToDegrees(float64(h.LeftLim))),
		RightLim:   ReorientBearing(units.GradToDegrees(float64(h.RightLim))),
		Steps:      CorrectSteps(units.GradToDegrees(float64(h.Steps)), d.cfg.StepCorrection),
		Bearing:    ReorientBearing(units.GradToDegrees(float64(h.Bearing))),
		DBytes:     int(h.DBytes),

		Year:          ctx.Year,
		Month:         ctx.Month,
		Day:           ctx.Day,
		SonarDepth:    ctx.SonarDepth,
		SonarAltitude: ctx.SonarAltitude,
		BearingBias:   ctx.BearingBias,
	}

	e.Time = contextTime(h.Timestamp, ctx)
	e.BearingRefWorld = WorldBearing(e.Bearing, ctx.BearingBias)
	e.IncidenceAngle = absDeg(e.BearingRefWorld)
	e.BinSize = e.RangeScale / float64(e.DBytes)

	e.Intensity = FilterIntensity(intensity, e.BinSize, e.BearingRefWorld,
		ctx.SonarDepth, ctx.SonarAltitude, FilterConfig{
			BlankingDistance: d.cfg.BlankingDistance,
			ReflectionFactor: d.cfg.ReflectionFactor,
		})

	e.Peak = AnalyzePeak(e.Intensity, e.BinSize, e.BearingRefWorld, d.cfg.MedianWindow)

	return e, nil
}

// Decode parses one ensemble with the default pipeline constants.
func Decode(raw []byte, ctx Context) (*Ensemble, error) {
	return NewDecoder(DefaultPipelineConfig()).Decode(raw, ctx)
}

// contextTime combines the time of day carried in the buffer with the
// calendar date supplied by the caller. The device clock's date is not
// trustworthy across deployments, so the context date wins; sub-second
// precision is dropped to match the logging cadence.
func contextTime(epochSeconds float64, ctx Context) time.Time {
	t := time.Unix(int64(epochSeconds), 0).UTC()
	return time.Date(ctx.Year, ctx.Month, ctx.Day,
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func absDeg(deg float64) float64 {
	if deg < 0 {
		return -deg
	}
	return deg
}
