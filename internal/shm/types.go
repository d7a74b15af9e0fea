// Package shm implements the named shared-memory regions that connect the
// capture pipelines, the switch controller, and every external consumer.
// Three region shapes are supported: a ring buffer of frame slots, a
// single-latest-record region, and a per-camera zero-copy descriptor
// region. All cross-process synchronization in the data path goes through
// these types — no locks are used anywhere else.
package shm

import "fmt"

// PixelFormat tags the payload carried by a ring slot.
type PixelFormat uint32

const (
	FormatJPEG PixelFormat = iota
	FormatNV12
	FormatRGB
	FormatH264
)

func (f PixelFormat) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatNV12:
		return "NV12"
	case FormatRGB:
		return "RGB"
	case FormatH264:
		return "H264"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint32(f))
	}
}

// CameraID identifies which physical sensor produced a frame.
type CameraID uint32

const (
	CameraDay CameraID = iota
	CameraNight
	cameraCount
)

func (c CameraID) String() string {
	switch c {
	case CameraDay:
		return "day"
	case CameraNight:
		return "night"
	default:
		return fmt.Sprintf("camera(%d)", uint32(c))
	}
}

// Exported, stable region names — the contract in spec §6.
const (
	RegionActiveFrame = "/pet_camera_active_frame"
	RegionStream      = "/pet_camera_stream"
	RegionMJPEG       = "/pet_camera_mjpeg_frame"
	RegionZeroCopy0   = "/pet_camera_zc_0"
	RegionZeroCopy1   = "/pet_camera_zc_1"
	RegionControl     = "/pet_camera_control"
	RegionDetections  = "/pet_camera_detections"
)

// ZeroCopyRegionName returns the canonical zero-copy descriptor region
// name for a given camera.
func ZeroCopyRegionName(cam CameraID) string {
	switch cam {
	case CameraDay:
		return RegionZeroCopy0
	case CameraNight:
		return RegionZeroCopy1
	default:
		return fmt.Sprintf("/pet_camera_zc_%d", uint32(cam))
	}
}

// RingCapacity is N from spec §3: the number of slots in every ring region.
const RingCapacity = 30

// MaxFrameSize bounds a ring slot's payload. Sized for 1080p NV12, which is
// the largest payload shape the rings are configured for (H.264 and JPEG
// payloads are always smaller than a raw NV12 frame at the same resolution).
const MaxFrameSize = 1920 * 1080 * 3 / 2

// WaitResult is the return value of WaitUpdate — spec §4.1 requires timeout
// and interrupted to be normal control flow, not errors.
type WaitResult int

const (
	WaitNewUpdate WaitResult = iota
	WaitTimeout
	WaitInterrupted
	WaitFatal
)

func (r WaitResult) String() string {
	switch r {
	case WaitNewUpdate:
		return "new-update"
	case WaitTimeout:
		return "timeout"
	case WaitInterrupted:
		return "interrupted"
	default:
		return "fatal"
	}
}
