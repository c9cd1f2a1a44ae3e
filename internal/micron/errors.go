package micron

import "errors"

// Sentinel errors for the decode and aggregation paths. Framing errors
// (short buffer, sample count mismatch) are defined next to the wire
// layout in the parse subpackage and wrapped by Decode.
var (
	// ErrInvalidContext marks caller-supplied or header values that are
	// physically impossible: negative depth or altitude, non-positive
	// range scale or sample count.
	ErrInvalidContext = errors.New("invalid ensemble context")

	// ErrOutOfOrder is returned by the swath aggregator when an ensemble's
	// timestamp is not strictly greater than the previous one. Input must
	// be pre-sorted by the caller; the aggregator never reorders.
	ErrOutOfOrder = errors.New("ensemble timestamp out of order")

	// ErrUnknownVariable marks an ice classification or label variable
	// name that is not part of the schema.
	ErrUnknownVariable = errors.New("unknown ice variable")

	// ErrExportWidth is returned when an ensemble carries more intensity
	// bins than the configured fixed export width.
	ErrExportWidth = errors.New("ensemble wider than export width")
)
