// Package sonardb persists decoded ensembles and their swath grouping
// to SQLite for the downstream classification workflow.
package sonardb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zduguid/sonar-ice-detect/internal/micron"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the database at path without
// touching the schema. Use it when migrations manage the tables.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the ensemble database at path and ensures the current
// schema is in place.
func NewDB(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS swaths (
			swath_id          TEXT PRIMARY KEY,
			start_time        TIMESTAMP,
			end_time          TIMESTAMP,
			ensemble_count    BIGINT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS ensembles (
			ensemble_id       INTEGER PRIMARY KEY AUTOINCREMENT,
			swath_id          TEXT,
			recorded_at       TIMESTAMP,
			node              INTEGER,
			status            INTEGER,
			hdctrl            INTEGER,
			range_scale       DOUBLE,
			gain              INTEGER,
			slope             INTEGER,
			ad_low            DOUBLE,
			ad_span           DOUBLE,
			left_lim          DOUBLE,
			right_lim         DOUBLE,
			steps             DOUBLE,
			bearing           DOUBLE,
			bearing_ref_world DOUBLE,
			incidence_angle   DOUBLE,
			bin_size          DOUBLE,
			dbytes            BIGINT,
			sonar_depth       DOUBLE,
			sonar_altitude    DOUBLE,
			bearing_bias      DOUBLE,
			max_intensity     DOUBLE,
			max_intensity_bin BIGINT,
			max_intensity_norm DOUBLE,
			peak_start_bin    BIGINT,
			peak_end_bin      BIGINT,
			peak_width_bin    BIGINT,
			peak_start        DOUBLE,
			peak_end          DOUBLE,
			peak_width        DOUBLE,
			vertical_range    DOUBLE,
			intensity_db      TEXT,
			class_values      TEXT,
			label_values      TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(swath_id) REFERENCES swaths(swath_id)
		);
		CREATE INDEX IF NOT EXISTS idx_ensembles_swath ON ensembles(swath_id);
		CREATE INDEX IF NOT EXISTS idx_ensembles_recorded ON ensembles(recorded_at);
	`)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// RecordSwath inserts one swath and all of its ensembles.
func (db *DB) RecordSwath(s *micron.Swath) error {
	_, err := db.Exec(
		`INSERT INTO swaths (swath_id, start_time, end_time, ensemble_count)
		 VALUES (?, ?, ?, ?)`,
		s.ID,
		s.Start().UTC().Format(time.RFC3339),
		s.End().UTC().Format(time.RFC3339),
		len(s.Ensembles),
	)
	if err != nil {
		return fmt.Errorf("inserting swath %s: %w", s.ID, err)
	}
	for i, e := range s.Ensembles {
		if err := db.RecordEnsemble(e, s.ID); err != nil {
			return fmt.Errorf("inserting ensemble %d of swath %s: %w", i, s.ID, err)
		}
	}
	return nil
}

// RecordEnsemble inserts one decoded ensemble. swathID may be empty for
// ensembles recorded outside a swath session.
func (db *DB) RecordEnsemble(e *micron.Ensemble, swathID string) error {
	intensity := make([]float64, len(e.Intensity))
	for i, s := range e.Intensity {
		if s.Valid {
			intensity[i] = s.DB
		}
	}
	intensityJSON, err := json.Marshal(intensity)
	if err != nil {
		return fmt.Errorf("marshalling intensity: %w", err)
	}
	classJSON, err := json.Marshal(iceValuesMap(&e.Class))
	if err != nil {
		return fmt.Errorf("marshalling class values: %w", err)
	}
	labelJSON, err := json.Marshal(iceValuesMap(&e.Label))
	if err != nil {
		return fmt.Errorf("marshalling label values: %w", err)
	}

	// Peak columns stay NULL when no peak was detectable.
	var peak [10]interface{}
	if e.Peak.Found {
		peak = [10]interface{}{
			e.Peak.MaxIntensity, e.Peak.MaxIntensityBin, e.Peak.MaxIntensityNorm,
			e.Peak.PeakStartBin, e.Peak.PeakEndBin, e.Peak.PeakWidthBin,
			e.Peak.PeakStart, e.Peak.PeakEnd, e.Peak.PeakWidth,
			e.Peak.VerticalRange,
		}
	}

	_, err = db.Exec(
		`INSERT INTO ensembles (
			swath_id, recorded_at, node, status, hdctrl, range_scale, gain,
			slope, ad_low, ad_span, left_lim, right_lim, steps, bearing,
			bearing_ref_world, incidence_angle, bin_size, dbytes,
			sonar_depth, sonar_altitude, bearing_bias,
			max_intensity, max_intensity_bin, max_intensity_norm,
			peak_start_bin, peak_end_bin, peak_width_bin,
			peak_start, peak_end, peak_width, vertical_range,
			intensity_db, class_values, label_values
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullStr(swathID),
		e.Time.UTC().Format(time.RFC3339),
		e.Node, e.Status, e.HdCtrl, e.RangeScale, e.Gain,
		e.Slope, e.ADLow, e.ADSpan, e.LeftLim, e.RightLim, e.Steps, e.Bearing,
		e.BearingRefWorld, e.IncidenceAngle, e.BinSize, e.DBytes,
		nullFloat(e.SonarDepth), nullFloat(e.SonarAltitude), e.BearingBias,
		peak[0], peak[1], peak[2], peak[3], peak[4], peak[5],
		peak[6], peak[7], peak[8], peak[9],
		string(intensityJSON), string(classJSON), string(labelJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting ensemble: %w", err)
	}
	return nil
}

// SwathSummary is one row of the swath index.
type SwathSummary struct {
	SwathID       string
	StartTime     time.Time
	EndTime       time.Time
	EnsembleCount int
}

// ListSwaths returns all recorded swaths, oldest first.
func (db *DB) ListSwaths() ([]SwathSummary, error) {
	rows, err := db.Query(
		`SELECT swath_id, start_time, end_time, ensemble_count
		 FROM swaths ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("querying swaths: %w", err)
	}
	defer rows.Close()

	var out []SwathSummary
	for rows.Next() {
		var s SwathSummary
		var start, end string
		if err := rows.Scan(&s.SwathID, &start, &end, &s.EnsembleCount); err != nil {
			return nil, fmt.Errorf("scanning swath row: %w", err)
		}
		if s.StartTime, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("parsing swath start time: %w", err)
		}
		if s.EndTime, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("parsing swath end time: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountEnsembles returns the number of recorded ensembles, optionally
// restricted to one swath.
func (db *DB) CountEnsembles(swathID string) (int, error) {
	var n int
	var err error
	if swathID == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM ensembles`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM ensembles WHERE swath_id = ?`, swathID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting ensembles: %w", err)
	}
	return n, nil
}

func iceValuesMap(v *micron.IceValues) map[string]*float64 {
	return map[string]*float64{
		string(micron.IceCategory):   v.Category,
		string(micron.IcePresence):   v.Presence,
		string(micron.IcePercent):    v.Percent,
		string(micron.IceThickness):  v.Thickness,
		string(micron.IceSlope):      v.Slope,
		string(micron.IceRoughness):  v.Roughness,
		string(micron.SaltwaterFlag): v.Saltwater,
	}
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
