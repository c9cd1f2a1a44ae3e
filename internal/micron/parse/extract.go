// Package parse implements the wire-level framing of Micron Sonar
// ensembles: a fixed-layout little-endian header followed by a variable
// number of 8-bit acoustic intensity samples.
package parse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
Micron Sonar ensemble layout

Each ensemble arrives as one length-delimited buffer. Framing within a
continuous device stream is the transport's responsibility; this package
only sees complete buffers.

ENSEMBLE STRUCTURE (31 + dbytes bytes total):
├── Header (31 bytes, little-endian, fixed layout)
│   ├── [0:2)   LineMarker  uint16   opaque line marker, stored verbatim
│   ├── [2:10)  Timestamp   float64  epoch seconds, fractional (IEEE 754)
│   ├── [10:11) Node        uint8    device node (2 for imaging sonar)
│   ├── [11:12) Status      uint8    status bitset, stored verbatim
│   ├── [12:14) HdCtrl      uint16   head control word, stored verbatim
│   ├── [14:16) RangeScale  uint16   operating range in decimetres
│   ├── [16:17) Gain        uint8    receiver gain setting (0-255)
│   ├── [17:19) Slope       uint16   receiver TVG slope
│   ├── [19:20) ADLow       uint8    display floor, raw intensity units
│   ├── [20:21) ADSpan      uint8    display span, raw intensity units
│   ├── [21:23) LeftLim     uint16   left swath limit, 1/16-gradian units
│   ├── [23:25) RightLim    uint16   right swath limit, 1/16-gradian units
│   ├── [25:27) Steps       uint16   angular step size, 1/16-gradian units
│   ├── [27:29) Bearing     uint16   transducer bearing, 1/16-gradian units
│   └── [29:31) DBytes      uint16   count of intensity samples that follow
└── Intensity samples (DBytes bytes) - one byte per range bin, [0,255]

The number of intensity samples varies non-monotonically with the device's
range and resolution settings and no closed-form rule relating the two is
known, so DBytes is treated as authoritative: the only structural check is
that exactly DBytes bytes follow the header. The Status and HdCtrl bit
fields are carried opaquely and never interpreted here.
*/

// Header field offsets and sizes, in bytes.
const (
	HeaderSize = 31 // fixed header region before intensity samples

	lineMarkerOffset = 0
	timestampOffset  = 2
	nodeOffset       = 10
	statusOffset     = 11
	hdCtrlOffset     = 12
	rangeScaleOffset = 14
	gainOffset       = 16
	slopeOffset      = 17
	adLowOffset      = 19
	adSpanOffset     = 20
	leftLimOffset    = 21
	rightLimOffset   = 23
	stepsOffset      = 25
	bearingOffset    = 27
	dbytesOffset     = 29
)

// Framing errors reported by Extract.
var (
	// ErrShortBuffer means the buffer ends before the fixed header region.
	ErrShortBuffer = errors.New("buffer shorter than ensemble header")

	// ErrSampleCountMismatch means the bytes remaining after the header do
	// not equal the header's declared sample count.
	ErrSampleCountMismatch = errors.New("intensity byte count does not match header dbytes")
)

// Header holds the raw, unconverted header fields of one ensemble. Values
// are exactly as they appear on the wire; unit conversion and coordinate
// reorientation happen downstream.
type Header struct {
	LineMarker uint16  // opaque line marker
	Timestamp  float64 // epoch seconds, fractional
	Node       uint8   // device node identifier
	Status     uint8   // status bitset, opaque
	HdCtrl     uint16  // head control word, opaque
	RangeScale uint16  // decimetres
	Gain       uint8   // 0-255
	Slope      uint16  // receiver TVG slope
	ADLow      uint8   // raw intensity units
	ADSpan     uint8   // raw intensity units
	LeftLim    uint16  // 1/16-gradian units
	RightLim   uint16  // 1/16-gradian units
	Steps      uint16  // 1/16-gradian units
	Bearing    uint16  // 1/16-gradian units
	DBytes     uint16  // intensity sample count
}

// Extract splits a length-delimited ensemble buffer into its raw header and
// intensity samples. The returned intensity slice aliases data.
//
// The device-reported DBytes is trusted as ground truth: Extract never
// attempts to predict the sample count from the range or resolution
// settings, it only verifies that the buffer carries exactly that many
// trailing bytes.
func Extract(data []byte) (*Header, []byte, error) {
	if len(data) < HeaderSize {
		return nil, nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(data), HeaderSize)
	}

	h := &Header{
		LineMarker: binary.LittleEndian.Uint16(data[lineMarkerOffset:]),
		Timestamp:  math.Float64frombits(binary.LittleEndian.Uint64(data[timestampOffset:])),
		Node:       data[nodeOffset],
		Status:     data[statusOffset],
		HdCtrl:     binary.LittleEndian.Uint16(data[hdCtrlOffset:]),
		RangeScale: binary.LittleEndian.Uint16(data[rangeScaleOffset:]),
		Gain:       data[gainOffset],
		Slope:      binary.LittleEndian.Uint16(data[slopeOffset:]),
		ADLow:      data[adLowOffset],
		ADSpan:     data[adSpanOffset],
		LeftLim:    binary.LittleEndian.Uint16(data[leftLimOffset:]),
		RightLim:   binary.LittleEndian.Uint16(data[rightLimOffset:]),
		Steps:      binary.LittleEndian.Uint16(data[stepsOffset:]),
		Bearing:    binary.LittleEndian.Uint16(data[bearingOffset:]),
		DBytes:     binary.LittleEndian.Uint16(data[dbytesOffset:]),
	}

	intensity := data[HeaderSize:]
	if len(intensity) != int(h.DBytes) {
		return nil, nil, fmt.Errorf("%w: header declares %d, buffer carries %d",
			ErrSampleCountMismatch, h.DBytes, len(intensity))
	}

	return h, intensity, nil
}

// Encode serialises a header and intensity samples back into the wire
// layout. It is the inverse of Extract and exists for test fixtures and
// for re-framing DumpLog CSV rows through the one decode path.
func Encode(h *Header, intensity []byte) ([]byte, error) {
	if len(intensity) != int(h.DBytes) {
		return nil, fmt.Errorf("%w: header declares %d, have %d samples",
			ErrSampleCountMismatch, h.DBytes, len(intensity))
	}

	buf := make([]byte, HeaderSize+len(intensity))
	binary.LittleEndian.PutUint16(buf[lineMarkerOffset:], h.LineMarker)
	binary.LittleEndian.PutUint64(buf[timestampOffset:], math.Float64bits(h.Timestamp))
	buf[nodeOffset] = h.Node
	buf[statusOffset] = h.Status
	binary.LittleEndian.PutUint16(buf[hdCtrlOffset:], h.HdCtrl)
	binary.LittleEndian.PutUint16(buf[rangeScaleOffset:], h.RangeScale)
	buf[gainOffset] = h.Gain
	binary.LittleEndian.PutUint16(buf[slopeOffset:], h.Slope)
	buf[adLowOffset] = h.ADLow
	buf[adSpanOffset] = h.ADSpan
	binary.LittleEndian.PutUint16(buf[leftLimOffset:], h.LeftLim)
	binary.LittleEndian.PutUint16(buf[rightLimOffset:], h.RightLim)
	binary.LittleEndian.PutUint16(buf[stepsOffset:], h.Steps)
	binary.LittleEndian.PutUint16(buf[bearingOffset:], h.Bearing)
	binary.LittleEndian.PutUint16(buf[dbytesOffset:], h.DBytes)
	copy(buf[HeaderSize:], intensity)

	return buf, nil
}
