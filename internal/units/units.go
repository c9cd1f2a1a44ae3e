// Package units provides conversions between the Micron Sonar's native
// wire units and standard metric values.
package units

import "math"

// Conversion constants for the Micron Sonar wire format.
//
// Angular fields (bearing, limits, step size) are reported in 1/16-gradian
// units, where a full circle is 6400 units. Range fields are reported in
// decimetres. Echo intensity is an 8-bit value spanning the receiver's
// 80 dB dynamic range.
const (
	// GradUnitsPerCircle is the number of 1/16-gradian units in 360 degrees.
	GradUnitsPerCircle = 6400.0

	// IntensityByteMax is the largest raw intensity value the sonar reports.
	IntensityByteMax = 255.0

	// IntensitySpanDB is the receiver dynamic range covered by one byte.
	IntensitySpanDB = 80.0

	// GradToDeg converts 1/16-gradian units to degrees.
	GradToDeg = 360.0 / GradUnitsPerCircle

	// DecimetresToMetres converts decimetres to metres.
	DecimetresToMetres = 0.1
)

// ByteToDB converts a raw intensity byte to decibels. The mapping is linear
// and exact at both endpoints: 0 -> 0 dB and 255 -> 80 dB.
func ByteToDB(raw uint8) float64 {
	return float64(raw) * IntensitySpanDB / IntensityByteMax
}

// DBToByte converts an intensity in decibels back to the nearest raw byte,
// clamped to [0, 255]. Used when re-encoding ensembles for fixtures.
func DBToByte(db float64) uint8 {
	raw := math.Round(db * IntensityByteMax / IntensitySpanDB)
	if raw < 0 {
		return 0
	}
	if raw > IntensityByteMax {
		return uint8(IntensityByteMax)
	}
	return uint8(raw)
}

// GradToDegrees converts an angle from 1/16-gradian units to degrees.
func GradToDegrees(raw float64) float64 {
	return raw * GradToDeg
}

// DegreesToGrad converts an angle in degrees to 1/16-gradian units.
func DegreesToGrad(deg float64) float64 {
	return deg / GradToDeg
}

// DecimetresToM converts a range value from decimetres to metres.
func DecimetresToM(raw float64) float64 {
	return raw * DecimetresToMetres
}

// MToDecimetres converts a range value from metres to decimetres.
func MToDecimetres(m float64) float64 {
	return m / DecimetresToMetres
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
