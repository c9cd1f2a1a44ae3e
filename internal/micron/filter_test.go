package micron

import (
	"math"
	"testing"
)

func TestFilterIntensity_ConvertsToDB(t *testing.T) {
	s := FilterIntensity([]byte{0, 255, 128}, 1.0, 0, nil, nil, FilterConfig{})
	if s[0].DB != 0 || s[1].DB != 80 {
		t.Errorf("endpoint conversion: got %v, %v", s[0].DB, s[1].DB)
	}
	if math.Abs(s[2].DB-128*80.0/255.0) > 1e-12 {
		t.Errorf("mid conversion: got %v", s[2].DB)
	}
}

func TestFilterIntensity_BlankingZone(t *testing.T) {
	// binSize 0.1 m, blanking 0.35 m: bins 0-3 sit below the blanking
	// distance, bin 4 at 0.40 m is the first valid one. Even a raw 255
	// inside the zone is marked invalid.
	raw := []byte{255, 255, 255, 255, 100, 100}
	s := FilterIntensity(raw, 0.1, 0, nil, nil, DefaultFilterConfig())
	for i := 0; i < 4; i++ {
		if s[i].Valid {
			t.Errorf("bin %d inside blanking zone should be invalid", i)
		}
	}
	for i := 4; i < 6; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d outside blanking zone should be valid", i)
		}
	}
}

func TestFilterIntensity_SurfaceReflection(t *testing.T) {
	depth := 2.0
	// Beam straight up: boundary at depth*factor/cos(0) = 3.0 m. With
	// binSize 0.5 that is bin 6 onward.
	s := FilterIntensity(make([]byte, 10), 0.5, 0, &depth, nil, DefaultFilterConfig())
	for i := 1; i < 6; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d before surface boundary should be valid", i)
		}
	}
	for i := 6; i < 10; i++ {
		if s[i].Valid {
			t.Errorf("bin %d beyond surface boundary should be invalid", i)
		}
	}
}

func TestFilterIntensity_SurfaceSkippedWhenPointingDown(t *testing.T) {
	depth := 2.0
	// Incidence 135°: the beam points below horizontal and can never hit
	// the surface, so the depth filter must not fire.
	s := FilterIntensity(make([]byte, 10), 0.5, 135, &depth, nil, DefaultFilterConfig())
	for i := 1; i < 10; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d should be valid with beam pointing away from surface", i)
		}
	}
}

func TestFilterIntensity_BottomReflection(t *testing.T) {
	alt := 2.0
	// Beam straight down (±180): boundary at 3.0 m, bin 6 onward.
	s := FilterIntensity(make([]byte, 10), 0.5, 180, nil, &alt, DefaultFilterConfig())
	for i := 6; i < 10; i++ {
		if s[i].Valid {
			t.Errorf("bin %d beyond bottom boundary should be invalid", i)
		}
	}
	// Beam up: altitude filter skipped.
	s = FilterIntensity(make([]byte, 10), 0.5, 0, nil, &alt, DefaultFilterConfig())
	for i := 1; i < 10; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d should be valid with beam pointing away from bottom", i)
		}
	}
}

func TestFilterIntensity_HorizontalBeamSkipsReflections(t *testing.T) {
	depth := 2.0
	// cos(89.99°) is above the epsilon guard but the 90° case itself
	// belongs to neither half-plane and must skip both filters.
	s := FilterIntensity(make([]byte, 10), 0.5, 90, &depth, nil, DefaultFilterConfig())
	for i := 1; i < 10; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d should survive a horizontal beam", i)
		}
	}
}

func TestFilterIntensity_NilContextSkipsFilters(t *testing.T) {
	// Absent depth/altitude means skip those filters, not treat as zero.
	s := FilterIntensity(make([]byte, 10), 0.5, 0, nil, nil, DefaultFilterConfig())
	for i := 1; i < 10; i++ {
		if !s[i].Valid {
			t.Errorf("bin %d should be valid without depth/altitude context", i)
		}
	}
}

func TestFilterIntensity_PreservesLength(t *testing.T) {
	raw := make([]byte, 461)
	depth := 1.0
	s := FilterIntensity(raw, 10.0/461, 30, &depth, nil, DefaultFilterConfig())
	if len(s) != len(raw) {
		t.Errorf("len = %d, want %d", len(s), len(raw))
	}
}
