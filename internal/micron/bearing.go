package micron

// Bearing coordinate handling.
//
// The sonar reports bearings in its own convention: 0° straight up, 90°
// to port, 180° straight down, 270° to starboard, increasing clockwise
// when viewed from behind the transducer. All derived quantities use a
// sign-consistent, sea-surface-relative convention instead: 0° up, +90°
// starboard, -90° port, ±180° down. The remap is a negation followed by
// a wrap into (-180, 180].

// StepCorrectionFactor compensates a firmware discrepancy: the reported
// angular step size is exactly half the true increment between successive
// ensembles, independent of the resolution setting.
const StepCorrectionFactor = 2.0

// WrapDegrees wraps an angle in degrees into the interval (-180, 180].
func WrapDegrees(deg float64) float64 {
	for deg <= -180 {
		deg += 360
	}
	for deg > 180 {
		deg -= 360
	}
	return deg
}

// ReorientBearing converts a bearing from the sonar's native convention
// to the surface-relative convention. Verification vectors: 0 -> 0,
// 90 -> -90, 180 -> 180, 270 -> 90.
func ReorientBearing(rawDeg float64) float64 {
	return WrapDegrees(-rawDeg)
}

// WorldBearing applies the caller-supplied bearing bias (vehicle roll or
// mounting error, positive when rolled starboard) to a reoriented bearing
// and wraps the result back into (-180, 180].
func WorldBearing(reorientedDeg, biasDeg float64) float64 {
	return WrapDegrees(reorientedDeg + biasDeg)
}

// CorrectSteps applies the firmware step-size correction. The factor is
// fixed, not a heuristic, and is applied unconditionally.
func CorrectSteps(rawStepsDeg, factor float64) float64 {
	return rawStepsDeg * factor
}
