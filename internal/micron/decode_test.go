package micron

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/micron/parse"
)

func rawEnsemble(t *testing.T, h *parse.Header, intensity []byte) []byte {
	t.Helper()
	buf, err := parse.Encode(h, intensity)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf
}

func fixtureHeader(dbytes uint16) *parse.Header {
	return &parse.Header{
		LineMarker: 1,
		Timestamp:  12*3600 + 30*60 + 15.5, // 12:30:15.5
		Node:       2,
		Status:     144,
		HdCtrl:     0x6405,
		RangeScale: 100, // 10 m
		Gain:       84,
		Slope:      125,
		ADLow:      0,
		ADSpan:     255,
		LeftLim:    4800, // 270° native
		RightLim:   1600, // 90° native
		Steps:      16,   // 0.9° raw, 1.8° corrected
		Bearing:    0,
		DBytes:     dbytes,
	}
}

func testContext() Context {
	return Context{Year: 2020, Month: time.January, Day: 24}
}

func TestDecode_EndToEnd(t *testing.T) {
	intensity := make([]byte, 461)
	intensity[230] = 255

	e, err := Decode(rawEnsemble(t, fixtureHeader(461), intensity), testContext())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(e.Intensity) != e.DBytes || e.DBytes != 461 {
		t.Errorf("len(Intensity)=%d DBytes=%d, want 461", len(e.Intensity), e.DBytes)
	}
	if math.Abs(e.BinSize-10.0/461) > 1e-9 {
		t.Errorf("BinSize = %v, want %v", e.BinSize, 10.0/461)
	}
	if !e.Peak.Found {
		t.Fatal("expected a peak")
	}
	if e.Peak.MaxIntensity != 80 {
		t.Errorf("MaxIntensity = %v, want 80", e.Peak.MaxIntensity)
	}
	if e.Peak.MaxIntensityBin != 230 {
		t.Errorf("MaxIntensityBin = %d, want 230", e.Peak.MaxIntensityBin)
	}
	// 80 dB * (230 * 10/461 m) ≈ 399.1 dB·m
	wantNorm := 80 * 230 * 10.0 / 461
	if math.Abs(e.Peak.MaxIntensityNorm-wantNorm) > 0.5 {
		t.Errorf("MaxIntensityNorm = %v, want ≈%v", e.Peak.MaxIntensityNorm, wantNorm)
	}
	if e.Peak.PeakStartBin > e.Peak.MaxIntensityBin || e.Peak.MaxIntensityBin > e.Peak.PeakEndBin {
		t.Errorf("envelope [%d,%d] excludes max bin %d",
			e.Peak.PeakStartBin, e.Peak.PeakEndBin, e.Peak.MaxIntensityBin)
	}
}

func TestDecode_HeaderNormalisation(t *testing.T) {
	e, err := Decode(rawEnsemble(t, fixtureHeader(4), []byte{0, 0, 0, 0}), testContext())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if e.RangeScale != 10 {
		t.Errorf("RangeScale = %v, want 10", e.RangeScale)
	}
	if math.Abs(e.Steps-1.8) > 1e-9 {
		t.Errorf("Steps = %v, want 1.8 (firmware correction applied)", e.Steps)
	}
	// Native 270° (4800 grad units) is starboard: +90 in world frame.
	if math.Abs(e.LeftLim-90) > 1e-9 {
		t.Errorf("LeftLim = %v, want 90", e.LeftLim)
	}
	if math.Abs(e.RightLim-(-90)) > 1e-9 {
		t.Errorf("RightLim = %v, want -90", e.RightLim)
	}
	if e.ADLow != 0 || e.ADSpan != 80 {
		t.Errorf("ADLow/ADSpan = %v/%v, want 0/80", e.ADLow, e.ADSpan)
	}
	if e.Status != 144 || e.HdCtrl != 0x6405 {
		t.Errorf("opaque fields changed: status=%d hdctrl=%#x", e.Status, e.HdCtrl)
	}

	want := time.Date(2020, time.January, 24, 12, 30, 15, 0, time.UTC)
	if !e.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", e.Time, want)
	}
}

func TestDecode_BearingBias(t *testing.T) {
	h := fixtureHeader(4)
	h.Bearing = 800 // 45° native -> -45 world
	ctx := testContext()
	ctx.BearingBias = 10

	e, err := Decode(rawEnsemble(t, h, make([]byte, 4)), ctx)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if math.Abs(e.Bearing-(-45)) > 1e-9 {
		t.Errorf("Bearing = %v, want -45", e.Bearing)
	}
	if math.Abs(e.BearingRefWorld-(-35)) > 1e-9 {
		t.Errorf("BearingRefWorld = %v, want -35", e.BearingRefWorld)
	}
	if math.Abs(e.IncidenceAngle-35) > 1e-9 {
		t.Errorf("IncidenceAngle = %v, want 35", e.IncidenceAngle)
	}
}

func TestDecode_FramingErrors(t *testing.T) {
	if _, err := Decode(make([]byte, parse.HeaderSize-1), testContext()); !errors.Is(err, parse.ErrShortBuffer) {
		t.Errorf("short buffer error = %v, want ErrShortBuffer", err)
	}

	buf := rawEnsemble(t, fixtureHeader(4), make([]byte, 4))
	if _, err := Decode(buf[:len(buf)-2], testContext()); !errors.Is(err, parse.ErrSampleCountMismatch) {
		t.Errorf("truncated error = %v, want ErrSampleCountMismatch", err)
	}
}

func TestDecode_InvalidContext(t *testing.T) {
	buf := rawEnsemble(t, fixtureHeader(4), make([]byte, 4))

	neg := -1.0
	ctx := testContext()
	ctx.SonarDepth = &neg
	if _, err := Decode(buf, ctx); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("negative depth error = %v, want ErrInvalidContext", err)
	}

	ctx = testContext()
	ctx.SonarAltitude = &neg
	if _, err := Decode(buf, ctx); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("negative altitude error = %v, want ErrInvalidContext", err)
	}

	h := fixtureHeader(4)
	h.RangeScale = 0
	if _, err := Decode(rawEnsemble(t, h, make([]byte, 4)), testContext()); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("zero range scale error = %v, want ErrInvalidContext", err)
	}
}

func TestDecode_NoPeakIsNotAnError(t *testing.T) {
	e, err := Decode(rawEnsemble(t, fixtureHeader(64), make([]byte, 64)), testContext())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if e.Peak.Found {
		t.Errorf("flat signal should carry no peak, got %+v", e.Peak)
	}
}

func TestDecodeBatch_LocalisesFailures(t *testing.T) {
	good := rawEnsemble(t, fixtureHeader(4), []byte{0, 200, 100, 0})
	bad := good[:len(good)-1]

	d := NewDecoder(DefaultPipelineConfig())
	results := d.DecodeBatch([][]byte{good, bad, good}, testContext())
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("good records failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("malformed record should fail")
	}
}

func TestDecodeBatchParallel_MatchesSequential(t *testing.T) {
	buffers := make([][]byte, 25)
	for i := range buffers {
		intensity := make([]byte, 64)
		intensity[10+i] = 200
		h := fixtureHeader(64)
		h.Bearing = uint16(i * 16)
		buffers[i] = rawEnsemble(t, h, intensity)
	}

	d := NewDecoder(DefaultPipelineConfig())
	seq := d.DecodeBatch(buffers, testContext())
	par := d.DecodeBatchParallel(buffers, testContext(), 4)

	for i := range seq {
		if (seq[i].Err == nil) != (par[i].Err == nil) {
			t.Fatalf("result %d: error mismatch %v vs %v", i, seq[i].Err, par[i].Err)
		}
		if seq[i].Err != nil {
			continue
		}
		if seq[i].Ensemble.Peak.MaxIntensityBin != par[i].Ensemble.Peak.MaxIntensityBin {
			t.Errorf("result %d: max bin %d vs %d", i,
				seq[i].Ensemble.Peak.MaxIntensityBin, par[i].Ensemble.Peak.MaxIntensityBin)
		}
	}
}
