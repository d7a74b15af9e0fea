package hal

import (
	"time"

	"github.com/petcam-rdk/core/internal/shm"
)

// Board routing fixed in spec §4.2: "day camera → host 0, night camera →
// host 2".
const (
	HostRouteDay   = 0
	HostRouteNight = 2
)

// BitrateCeiling is the hardware's documented ceiling on the reference
// platform (spec §4.2: "700 kbps ... surfaced as a compile-time or
// config-time constant, not a silent cap").
const BitrateCeiling = 700_000

// ClampBitrate enforces BitrateCeiling, never silently — callers can log
// when the returned value differs from the requested one.
func ClampBitrate(requested int) int {
	if requested > BitrateCeiling {
		return BitrateCeiling
	}
	if requested <= 0 {
		return BitrateCeiling
	}
	return requested
}

// FixedGOPSize is the hardware's documented keyframe cadence on the
// reference platform (spec §4.2, §4.4, §9 Open Question): ~14 frames, not
// configurable without a future SDK exposing on-demand IDR.
const FixedGOPSize = 14

// VIOParams configures a VIOContext.
type VIOParams struct {
	CameraIndex shm.CameraID
	HostRoute   int
	Width       int
	Height      int
	FPS         int
}

// VIOFrame is one frame delivered by the sensor/ISP/scaler pipeline. It
// carries the full zero-copy descriptor plus, in simulated/test builds, an
// in-process NV12 buffer standing in for the DMA-backed memory a real
// binding would expose through Descriptor's plane fds.
type VIOFrame struct {
	Descriptor    shm.ZeroCopyDescriptor
	NV12          []byte // Y plane followed by interleaved UV plane
	ISPStatsValid bool
	ISPBrightness uint32 // raw auto-exposure statistic, bit depth varies by sensor
}

// VIOContext is the sensor/ISP/scaler contract from spec §4.2. Calls must
// be serialised per context — the capture pipeline is single-threaded on
// its hot loop, so this is satisfied by construction, not by locking
// inside the implementation.
type VIOContext interface {
	// GetFrame blocks up to timeout and returns the next hardware frame.
	// This is the pipeline's only true blocking point in the steady
	// state (spec §5's "hardware frame wait").
	GetFrame(timeout time.Duration) (*VIOFrame, error)

	// ReleaseFrame returns the buffer to the hardware's pool.
	ReleaseFrame(f *VIOFrame) error

	// SetNoiseReductionBand applies a 3D-NR/2D-NR preset (spec §4.2). The
	// capture pipeline calls this at most once per second.
	SetNoiseReductionBand(band NRBand) error

	Close() error
}

// EncoderParams configures an EncoderContext.
type EncoderParams struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int // clamped to BitrateCeiling by NewSimulatedEncoder
}

// EncoderContext is the H.264 hardware encoder contract from spec §4.2.
type EncoderContext interface {
	// Encode submits one frame using the HAL's external-buffer mode (no
	// copy of pixel data) and returns a completed Annex-B bitstream, or
	// ErrAgain if the encoder needs more input before it can emit one.
	Encode(frame *VIOFrame) ([]byte, error)

	Close() error
}

// DecoderContext mirrors the encoder, for optional NV12 regeneration from
// H.264 when a consumer only has access to the compressed stream (spec
// §4.2).
type DecoderContext interface {
	Decode(nal []byte) (nv12 []byte, err error)
	Close() error
}

// JPEGEncoder produces the optional MJPEG payload spec §6 names
// (`/pet_camera_mjpeg_frame`, "baseline JFIF"). Unlike VIOContext and
// EncoderContext this has no vendor-HAL equivalent in spec §4.2 — the
// reference board's ISP can tap a JPEG output directly, but nothing in
// spec.md describes that binding, so the contract here is intentionally
// narrow and the capture pipeline only calls it when one is configured.
type JPEGEncoder interface {
	EncodeJPEG(nv12 []byte, width, height int) ([]byte, error)
	Close() error
}
