package sonardb

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/micron"
	"github.com/zduguid/sonar-ice-detect/internal/micron/parse"
	"github.com/zduguid/sonar-ice-detect/internal/units"
)

func gradUnits(deg float64) uint16 {
	return uint16(math.Round(units.DegreesToGrad(deg)))
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEnsemble decodes a fixture built from physical quantities: a 10 m
// range scale and a native bearing in degrees.
func testEnsemble(t *testing.T, bearingDeg, epochSec float64) *micron.Ensemble {
	t.Helper()
	intensity := make([]byte, 100)
	intensity[60] = 200
	buf, err := parse.Encode(&parse.Header{
		LineMarker: 1,
		Timestamp:  epochSec,
		RangeScale: uint16(units.MToDecimetres(10)),
		LeftLim:    0,
		RightLim:   gradUnits(180),
		Steps:      gradUnits(0.45),
		Bearing:    gradUnits(bearingDeg),
		DBytes:     100,
	}, intensity)
	if err != nil {
		t.Fatalf("failed to encode test buffer: %v", err)
	}
	e, err := micron.Decode(buf, micron.Context{Year: 2019, Month: time.March, Day: 12})
	if err != nil {
		t.Fatalf("failed to decode test buffer: %v", err)
	}
	return e
}

func TestRecordAndCountEnsembles(t *testing.T) {
	db := setupTestDB(t)

	e := testEnsemble(t, 90, 30_000)
	if err := e.SetLabel(micron.IceThickness, 1.5); err != nil {
		t.Fatalf("failed to set label: %v", err)
	}
	if err := db.RecordEnsemble(e, ""); err != nil {
		t.Fatalf("RecordEnsemble failed: %v", err)
	}

	n, err := db.CountEnsembles("")
	if err != nil {
		t.Fatalf("CountEnsembles failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 ensemble, got %d", n)
	}
}

func TestRecordSwath(t *testing.T) {
	db := setupTestDB(t)

	agg := micron.NewSwathAggregator(micron.DefaultSwathMaxGap)
	for i := 0; i < 3; i++ {
		e := testEnsemble(t, 90+float64(i)*0.9, float64(30_000+i))
		if err := agg.Add(e); err != nil {
			t.Fatalf("aggregator Add failed: %v", err)
		}
	}
	agg.Flush()
	completed := agg.Completed()
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed swath, got %d", len(completed))
	}
	sw := completed[0]

	if err := db.RecordSwath(sw); err != nil {
		t.Fatalf("RecordSwath failed: %v", err)
	}

	swaths, err := db.ListSwaths()
	if err != nil {
		t.Fatalf("ListSwaths failed: %v", err)
	}
	if len(swaths) != 1 {
		t.Fatalf("expected 1 swath, got %d", len(swaths))
	}
	if swaths[0].SwathID != sw.ID {
		t.Errorf("swath ID mismatch: got %q, want %q", swaths[0].SwathID, sw.ID)
	}
	if swaths[0].EnsembleCount != 3 {
		t.Errorf("expected ensemble count 3, got %d", swaths[0].EnsembleCount)
	}
	if !swaths[0].EndTime.After(swaths[0].StartTime) {
		t.Errorf("expected end time after start time: %v vs %v",
			swaths[0].EndTime, swaths[0].StartTime)
	}

	n, err := db.CountEnsembles(sw.ID)
	if err != nil {
		t.Fatalf("CountEnsembles failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 ensembles in swath, got %d", n)
	}
}

func TestRunMigration(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate_cmd.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigration("up", "migrations"); err != nil {
		t.Fatalf("RunMigration(up) failed: %v", err)
	}
	if err := db.RunMigration("version", "migrations"); err != nil {
		t.Fatalf("RunMigration(version) failed: %v", err)
	}
	if err := db.RunMigration("to=1", "migrations"); err != nil {
		t.Fatalf("RunMigration(to=1) failed: %v", err)
	}

	// Migrations own the schema on this path; recording must work
	// without NewDB's inline schema having run.
	e := testEnsemble(t, 90, 30_000)
	if err := db.RecordEnsemble(e, ""); err != nil {
		t.Fatalf("RecordEnsemble on migrated schema failed: %v", err)
	}

	if err := db.RunMigration("sideways", "migrations"); err == nil {
		t.Error("expected an error for an unknown migration command")
	}
	if err := db.RunMigration("force=x", "migrations"); err == nil {
		t.Error("expected an error for a malformed force version")
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	// The migration SQL mirrors the inline schema, so running it against
	// a freshly opened DB is idempotent.
	db := setupTestDB(t)

	dir := "migrations"
	if err := db.MigrateUp(dir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion(dir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("expected clean migration state")
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	// Up again is a no-op.
	if err := db.MigrateUp(dir); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}

	if err := db.MigrateDown(dir); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err = db.MigrateVersion(dir)
	if err != nil {
		t.Fatalf("MigrateVersion after down failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 after down, got %d", version)
	}
}
