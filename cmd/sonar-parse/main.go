package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/config"
	"github.com/zduguid/sonar-ice-detect/internal/micron"
	"github.com/zduguid/sonar-ice-detect/internal/sonardb"
)

var (
	date        = flag.String("date", "", "Deployment date in YYYY-MM-DD form (required)")
	depth       = flag.Float64("depth", math.NaN(), "Sonar depth below the surface in metres (omit to skip the surface filter)")
	altitude    = flag.Float64("altitude", math.NaN(), "Sonar altitude above the seafloor in metres (omit to skip the bottom filter)")
	bearingBias = flag.Float64("bearing-bias", 0, "Bearing bias in degrees, positive for starboard roll")
	configFile  = flag.String("config", "", "Path to a tuning config JSON file")
	outFile     = flag.String("out", "", "Path for the tabular CSV export (empty disables)")
	dbFile      = flag.String("db", "", "Path to the SQLite ensemble database (empty disables)")
	seriesName  = flag.String("name", "", "Time series name (default: first input filename)")
	workers     = flag.Int("workers", runtime.NumCPU(), "Decode worker count")

	migrateCmd    = flag.String("migrate", "", "Run a schema migration against -db and exit: up, down, version, force=N or to=N")
	migrationsDir = flag.String("migrations", "internal/sonardb/migrations", "Path to the schema migration files")
)

func main() {
	flag.Parse()

	if *migrateCmd != "" {
		if *dbFile == "" {
			log.Fatal("-migrate requires -db")
		}
		if err := runMigration(*migrateCmd); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		log.Fatal("at least one DumpLog CSV file is required")
	}
	if *date == "" {
		log.Fatal("-date is required")
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		log.Fatalf("invalid -date %q: %v", *date, err)
	}

	cfg := config.EmptyTuningConfig()
	if *configFile != "" {
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configFile)
	}

	ctx := micron.Context{
		Year:        day.Year(),
		Month:       day.Month(),
		Day:         day.Day(),
		BearingBias: *bearingBias,
	}
	if !math.IsNaN(*depth) {
		ctx.SonarDepth = depth
	}
	if !math.IsNaN(*altitude) {
		ctx.SonarAltitude = altitude
	}

	name := *seriesName
	if name == "" {
		name = strings.TrimSuffix(flag.Arg(0), ".csv")
	}
	series := micron.NewTimeSeries(name)

	decoder := micron.NewDecoder(cfg.PipelineConfig())
	start := time.Now()
	var decoded, failed int
	for _, path := range flag.Args() {
		n, nf, err := ingestFile(decoder, series, path, ctx)
		if err != nil {
			log.Fatalf("failed to ingest %s: %v", path, err)
		}
		decoded += n
		failed += nf
	}
	log.Printf("Decoded %d ensembles (%d failed) from %d file(s) in %s",
		decoded, failed, flag.NArg(), time.Since(start).Round(time.Millisecond))
	if decoded == 0 {
		log.Fatal("no decodable ensembles in input")
	}

	if *outFile != "" {
		if err := writeExport(series, cfg.GetExportWidth()); err != nil {
			log.Fatalf("failed to write export: %v", err)
		}
		log.Printf("Wrote %d rows to %s", len(series.Ensembles), *outFile)
	}

	if *dbFile != "" {
		if err := recordSwaths(series, cfg.GetSwathMaxGap()); err != nil {
			log.Fatalf("failed to record ensembles: %v", err)
		}
	}
}

// runMigration opens the database without the inline schema so the
// migration files own the tables.
func runMigration(command string) error {
	db, err := sonardb.Open(*dbFile)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	return db.RunMigration(command, *migrationsDir)
}

// ingestFile reads one DumpLog CSV and appends its decodable ensembles
// to the series in record order.
func ingestFile(decoder *micron.Decoder, series *micron.TimeSeries, path string, ctx micron.Context) (decoded, failed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	buffers, err := micron.ReadDumpLog(f)
	if err != nil {
		return 0, 0, err
	}

	for _, res := range decoder.DecodeBatchParallel(buffers, ctx, *workers) {
		if res.Err != nil {
			log.Printf("%s record %d: %v", path, res.Index, res.Err)
			failed++
			continue
		}
		series.Add(res.Ensemble)
		decoded++
	}
	return decoded, failed, nil
}

func writeExport(series *micron.TimeSeries, width int) error {
	f, err := os.Create(*outFile)
	if err != nil {
		return err
	}
	if err := micron.WriteCSV(f, series, width); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// recordSwaths groups the series into scan sweeps and persists them.
func recordSwaths(series *micron.TimeSeries, maxGap time.Duration) error {
	db, err := sonardb.NewDB(*dbFile)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	agg := micron.NewSwathAggregator(maxGap)
	for i, e := range series.Ensembles {
		if err := agg.Add(e); err != nil {
			return fmt.Errorf("aggregating ensemble %d: %w", i, err)
		}
	}
	agg.Flush()

	for _, sw := range agg.Completed() {
		if err := db.RecordSwath(sw); err != nil {
			return err
		}
		log.Printf("Recorded swath %s: %d ensembles, %s to %s",
			sw.ID, len(sw.Ensembles),
			sw.Start().Format(time.RFC3339), sw.End().Format(time.RFC3339))
	}
	return nil
}
