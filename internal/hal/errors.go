// Package hal wraps the vendor video-input pipeline (sensor → ISP →
// scaler), the hardware H.264 encoder, and the hardware H.264 decoder
// behind small, testable contracts. This is the only package that would
// talk to vendor APIs on real hardware; the default build uses the
// `simulated` implementation so the rest of the module is testable off
// the reference board.
package hal

import "errors"

// Status is the typed error sum every HAL call is wrapped into at this
// boundary (spec DESIGN NOTES §9: "never propagate raw vendor codes
// upward"). Vendor SDKs return small integer status codes; real bindings
// would map those codes onto these sentinels in one place.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidParams
	StatusInvalidFd
	StatusTimeout
	StatusNotFound
	StatusBusy
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidParams:
		return "invalid-params"
	case StatusInvalidFd:
		return "invalid-fd"
	case StatusTimeout:
		return "timeout"
	case StatusNotFound:
		return "not-found"
	case StatusBusy:
		return "busy"
	default:
		return "fatal"
	}
}

// StatusError pairs a Status with the vendor-facing message.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	return e.Status.String() + ": " + e.Message
}

func newStatusError(s Status, msg string) error {
	return &StatusError{Status: s, Message: msg}
}

// ErrAgain is returned by Encoder.Encode when the hardware needs more
// input before it can emit a completed bitstream (spec §4.2).
var ErrAgain = errors.New("hal: encoder needs more input")

// ErrStaleDescriptor marks a zero-copy descriptor the consumer could not
// use, as a distinct typed error rather than a generic string. In this
// module it is returned by detect.Reader.ReadActive when the control
// record cannot be read; nothing here re-imports DMA buffers, so no code
// path detects a buffer its producer has already recycled.
var ErrStaleDescriptor = errors.New("hal: zero-copy descriptor is stale")

// AsStatus unwraps err into a Status, defaulting to StatusFatal for any
// error this package did not itself produce.
func AsStatus(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusFatal
}
