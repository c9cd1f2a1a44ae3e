package micron

import (
	"math"

	"github.com/zduguid/sonar-ice-detect/internal/units"
)

// Geometry filter constants. The blanking distance comes from the sonar
// spec sheet; the reflection factor and cosine epsilon were tuned against
// field data.
const (
	// DefaultBlankingDistance is the minimum range in metres below which
	// the transmit pulse contaminates returns.
	DefaultBlankingDistance = 0.35

	// DefaultReflectionFactor scales the direct path length to the sea
	// surface or seafloor when computing the reflection cutoff.
	DefaultReflectionFactor = 1.5

	// cosEpsilon guards the division by cos(incidence) when the beam is
	// close to horizontal.
	cosEpsilon = 1e-3
)

// Sample is one acoustic intensity bin after unit conversion and geometry
// filtering. Invalid samples are marked rather than removed so bin indices
// stay aligned with slant range.
type Sample struct {
	DB    float64 // echo intensity in decibels
	Valid bool    // false inside the blanking zone or beyond a reflection boundary
}

// FilterConfig holds the tunable geometry filter parameters.
type FilterConfig struct {
	BlankingDistance float64 // metres
	ReflectionFactor float64 // dimensionless
}

// DefaultFilterConfig returns the spec-sheet blanking distance and the
// tuned reflection factor.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BlankingDistance: DefaultBlankingDistance,
		ReflectionFactor: DefaultReflectionFactor,
	}
}

// FilterIntensity converts raw intensity bytes to decibels and marks the
// samples that are artifacts of instrument geometry:
//
//   - bins inside the blanking distance,
//   - bins beyond the surface reflection boundary when the sonar depth is
//     known and the beam points above horizontal,
//   - bins beyond the bottom reflection boundary when the sonar altitude
//     is known and the beam points below horizontal.
//
// A bin at index i spans slant range i*binSize. When the beam cannot
// geometrically reach a boundary (or points straight along the horizontal,
// where the path length diverges) that filter is skipped.
func FilterIntensity(raw []byte, binSize, bearingRefWorld float64, depth, altitude *float64, cfg FilterConfig) []Sample {
	samples := make([]Sample, len(raw))
	for i, b := range raw {
		samples[i] = Sample{DB: units.ByteToDB(b), Valid: true}
	}
	if binSize <= 0 {
		return samples
	}

	// Blanking zone: slant range below the minimum range of the sonar.
	for i := range samples {
		if float64(i)*binSize < cfg.BlankingDistance {
			samples[i].Valid = false
		} else {
			break
		}
	}

	cosBear := math.Abs(math.Cos(units.DegToRad(bearingRefWorld)))
	absBear := math.Abs(bearingRefWorld)

	invalidateBeyond := func(dist float64) {
		start := int(math.Floor(dist / binSize))
		if start < 0 {
			start = 0
		}
		for i := start; i < len(samples); i++ {
			samples[i].Valid = false
		}
	}

	// Surface reflections: beam pointing above horizontal.
	if depth != nil && absBear < 90 && cosBear >= cosEpsilon {
		invalidateBeyond(*depth * cfg.ReflectionFactor / cosBear)
	}

	// Bottom reflections: beam pointing below horizontal.
	if altitude != nil && absBear > 90 && cosBear >= cosEpsilon {
		invalidateBeyond(*altitude * cfg.ReflectionFactor / cosBear)
	}

	return samples
}
