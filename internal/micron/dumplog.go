package micron

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/micron/parse"
)

// Seanet DumpLog ingest. Tritech's DumpLog software logs one CSV row per
// ensemble: the 15 header columns below in device order, then exactly
// dbytes intensity columns. Rows are re-framed into the binary wire
// layout and fed through the one decode path rather than decoded twice.

// dumpLogHeaderCols is the count of header columns before intensity data.
const dumpLogHeaderCols = 15

// dumpLogTimeLayouts are the time-of-day formats DumpLog has been seen
// to emit.
var dumpLogTimeLayouts = []string{
	"15:04:05.000",
	"15:04:05",
	"15:04:05.000000",
}

// ReadDumpLog converts DumpLog CSV records into raw ensemble buffers.
// The first row is assumed to be the column header and is skipped. A
// trailing empty row, as DumpLog emits, is ignored. Malformed rows abort
// the read: DumpLog files are machine-written, so damage means the file
// is not what it claims to be.
func ReadDumpLog(r io.Reader) ([][]byte, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // dbytes varies row to row

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading dumplog csv: %w", err)
	}

	var buffers [][]byte
	for i, row := range rows {
		if i == 0 {
			continue // column header
		}
		if len(row) <= 1 {
			continue // trailing empty row
		}
		buf, err := dumpLogRowToBuffer(row)
		if err != nil {
			return nil, fmt.Errorf("dumplog row %d: %w", i, err)
		}
		buffers = append(buffers, buf)
	}
	return buffers, nil
}

// dumpLogRowToBuffer encodes one DumpLog CSV row into the wire layout.
func dumpLogRowToBuffer(row []string) ([]byte, error) {
	if len(row) < dumpLogHeaderCols {
		return nil, fmt.Errorf("have %d columns, need at least %d", len(row), dumpLogHeaderCols)
	}

	ts, err := parseDumpLogTime(strings.TrimSpace(row[1]))
	if err != nil {
		return nil, err
	}

	fields := make([]uint64, dumpLogHeaderCols)
	for i := 2; i < dumpLogHeaderCols; i++ {
		v, err := strconv.ParseUint(strings.TrimSpace(row[i]), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		fields[i] = v
	}

	h := &parse.Header{
		// DumpLog's line header column is free text; the wire marker is
		// set to 1, matching how parsed archives record it.
		LineMarker: 1,
		Timestamp:  ts,
		Node:       uint8(fields[2]),
		Status:     uint8(fields[3]),
		HdCtrl:     uint16(fields[4]),
		RangeScale: uint16(fields[5]),
		Gain:       uint8(fields[6]),
		Slope:      uint16(fields[7]),
		ADLow:      uint8(fields[8]),
		ADSpan:     uint8(fields[9]),
		LeftLim:    uint16(fields[10]),
		RightLim:   uint16(fields[11]),
		Steps:      uint16(fields[12]),
		Bearing:    uint16(fields[13]),
		DBytes:     uint16(fields[14]),
	}

	intensityCols := row[dumpLogHeaderCols:]
	if len(intensityCols) != int(h.DBytes) {
		return nil, fmt.Errorf("dbytes %d but %d intensity columns", h.DBytes, len(intensityCols))
	}
	intensity := make([]byte, len(intensityCols))
	for i, col := range intensityCols {
		v, err := strconv.ParseUint(strings.TrimSpace(col), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("intensity column %d: %w", i, err)
		}
		intensity[i] = uint8(v)
	}

	return parse.Encode(h, intensity)
}

// parseDumpLogTime parses a DumpLog time-of-day into epoch seconds on
// the zero date. The decode context supplies the calendar date.
func parseDumpLogTime(s string) (float64, error) {
	for _, layout := range dumpLogTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			secs := float64(t.Hour()*3600 + t.Minute()*60 + t.Second())
			return secs + float64(t.Nanosecond())/1e9, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time of day %q", s)
}
