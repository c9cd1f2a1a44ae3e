package micron

import (
	"fmt"
	"time"
)

// Context carries the per-deployment values that are not present in the
// raw ensemble buffer. Depth and altitude are optional: a nil pointer
// means the corresponding reflection filter is skipped, not that the
// value is zero.
type Context struct {
	Year  int
	Month time.Month
	Day   int

	SonarDepth    *float64 // metres, transducer head below the surface
	SonarAltitude *float64 // metres, transducer head above the seafloor

	// BearingBias corrects for vehicle roll or mounting error, in
	// degrees. Positive means the vehicle rolled starboard.
	BearingBias float64
}

// Validate rejects physically impossible context values.
func (c Context) Validate() error {
	if c.SonarDepth != nil && *c.SonarDepth < 0 {
		return fmt.Errorf("%w: negative sonar depth %v", ErrInvalidContext, *c.SonarDepth)
	}
	if c.SonarAltitude != nil && *c.SonarAltitude < 0 {
		return fmt.Errorf("%w: negative sonar altitude %v", ErrInvalidContext, *c.SonarAltitude)
	}
	return nil
}

// IceVariable names one ice characterisation quantity. Each variable has
// an automated classification slot and an independent hand-annotated
// label slot.
type IceVariable string

const (
	IceCategory  IceVariable = "ice_category"
	IcePresence  IceVariable = "ice_presence"
	IcePercent   IceVariable = "ice_percent"
	IceThickness IceVariable = "ice_thickness"
	IceSlope     IceVariable = "ice_slope"
	IceRoughness IceVariable = "ice_roughness"

	// SaltwaterFlag is label-only: 1 saltwater, 0 freshwater.
	SaltwaterFlag IceVariable = "saltwater_flag"
)

// IceVariables lists the classifiable variables in schema order.
var IceVariables = []IceVariable{
	IceCategory, IcePresence, IcePercent, IceThickness, IceSlope, IceRoughness,
}

// IceValues holds one value per ice variable. Unset variables are nil,
// never zero; zero is a meaningful value (e.g. no ice present).
type IceValues struct {
	Category  *float64
	Presence  *float64
	Percent   *float64
	Thickness *float64
	Slope     *float64
	Roughness *float64
	Saltwater *float64
}

// Get returns the value for a variable, or nil when unset.
func (v *IceValues) Get(name IceVariable) *float64 {
	switch name {
	case IceCategory:
		return v.Category
	case IcePresence:
		return v.Presence
	case IcePercent:
		return v.Percent
	case IceThickness:
		return v.Thickness
	case IceSlope:
		return v.Slope
	case IceRoughness:
		return v.Roughness
	case SaltwaterFlag:
		return v.Saltwater
	}
	return nil
}

func (v *IceValues) set(name IceVariable, val *float64) error {
	switch name {
	case IceCategory:
		v.Category = val
	case IcePresence:
		v.Presence = val
	case IcePercent:
		v.Percent = val
	case IceThickness:
		v.Thickness = val
	case IceSlope:
		v.Slope = val
	case IceRoughness:
		v.Roughness = val
	case SaltwaterFlag:
		v.Saltwater = val
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return nil
}

// Ensemble is one decoded scan record: normalised header fields, the
// caller-supplied context, derived signal features, and the filtered
// intensity samples. An Ensemble is produced once by Decode and is
// immutable afterwards except through SetLabel and SetClass.
type Ensemble struct {
	// Header fields, converted to metric units. LineMarker, Status and
	// HdCtrl are stored verbatim and never interpreted.
	LineMarker uint16
	Time       time.Time // UTC; date portion supplied by the context
	Node       uint8
	Status     uint8
	HdCtrl     uint16
	RangeScale float64 // metres
	Gain       int     // 0-255
	Slope      int     // receiver TVG slope, raw units
	ADLow      float64 // dB
	ADSpan     float64 // dB
	LeftLim    float64 // degrees, surface-relative convention
	RightLim   float64 // degrees, surface-relative convention
	Steps      float64 // degrees, firmware step correction applied
	Bearing    float64 // degrees, surface-relative convention
	DBytes     int     // intensity sample count

	// Context echoed from the caller.
	Year          int
	Month         time.Month
	Day           int
	SonarDepth    *float64
	SonarAltitude *float64
	BearingBias   float64

	// Derived quantities.
	BearingRefWorld float64 // degrees in (-180, 180], bias applied
	IncidenceAngle  float64 // degrees, |BearingRefWorld|
	BinSize         float64 // metres per bin
	Peak            PeakMetrics

	// Filtered intensity samples; len(Intensity) == DBytes.
	Intensity []Sample

	// Ice characterisation: automated classification results and
	// hand-annotated labels, both unset until written explicitly.
	Class IceValues
	Label IceValues
}

// SetLabel records a hand-annotated label value. This is the only
// sanctioned mutation of an assembled ensemble besides SetClass; header
// and derived fields are never touched after construction. Concurrent
// annotation of one record must be serialised by the caller.
func (e *Ensemble) SetLabel(name IceVariable, val float64) error {
	v := val
	return e.Label.set(name, &v)
}

// ClearLabel removes a hand-annotated label value.
func (e *Ensemble) ClearLabel(name IceVariable) error {
	return e.Label.set(name, nil)
}

// SetClass records an automated classification result produced by an
// external classifier. The saltwater flag is label-only.
func (e *Ensemble) SetClass(name IceVariable, val float64) error {
	if name == SaltwaterFlag {
		return fmt.Errorf("%w: %q is label-only", ErrUnknownVariable, name)
	}
	v := val
	return e.Class.set(name, &v)
}

// SlantRange returns the slant range in metres to the start of bin i.
func (e *Ensemble) SlantRange(i int) float64 {
	return float64(i) * e.BinSize
}
