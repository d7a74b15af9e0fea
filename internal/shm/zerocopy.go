package shm

import (
	"encoding/binary"
	"fmt"
	"time"
)

// MaxPlanes bounds the number of DMA planes a zero-copy descriptor can
// describe (Y/UV for NV12, or a single packed plane for RGB/JPEG).
const MaxPlanes = 3

// GraphicBufferPlane carries everything a consumer needs to re-import one
// plane of a HAL graphic buffer without copying pixel data (spec §3's
// "full set of HAL graphic-buffer fields"). FD and VirtAddr are only
// meaningful within the producing process; a consumer in another process
// re-imports through ShareID via the HAL, not by dereferencing these
// directly.
type GraphicBufferPlane struct {
	FD       int32
	ShareID  uint64
	PhysAddr uint64
	VirtAddr uint64
	Size     uint32
	Stride   uint32
	Offset   uint32
}

const planeEncodedSize = 4 + 8 + 8 + 8 + 4 + 4 + 4 + 4 // FD, 4 pad so ShareID starts at 8, then the rest: 44 bytes

func encodePlane(dst []byte, p GraphicBufferPlane) {
	binary.LittleEndian.PutUint32(dst[0:], uint32(p.FD))
	binary.LittleEndian.PutUint64(dst[8:], p.ShareID)
	binary.LittleEndian.PutUint64(dst[16:], p.PhysAddr)
	binary.LittleEndian.PutUint64(dst[24:], p.VirtAddr)
	binary.LittleEndian.PutUint32(dst[32:], p.Size)
	binary.LittleEndian.PutUint32(dst[36:], p.Stride)
	binary.LittleEndian.PutUint32(dst[40:], p.Offset)
}

func decodePlane(src []byte) GraphicBufferPlane {
	return GraphicBufferPlane{
		FD:       int32(binary.LittleEndian.Uint32(src[0:])),
		ShareID:  binary.LittleEndian.Uint64(src[8:]),
		PhysAddr: binary.LittleEndian.Uint64(src[16:]),
		VirtAddr: binary.LittleEndian.Uint64(src[24:]),
		Size:     binary.LittleEndian.Uint32(src[32:]),
		Stride:   binary.LittleEndian.Uint32(src[36:]),
		Offset:   binary.LittleEndian.Uint32(src[40:]),
	}
}

// ZeroCopyDescriptor is the per-camera record described in spec §3: frame
// identity, current brightness, the correction-applied flag, and the full
// DMA re-import metadata.
type ZeroCopyDescriptor struct {
	FrameSeq           uint64
	Timestamp          time.Time
	Camera             CameraID
	Width              uint32
	Height             uint32
	PixelFormat        uint32 // raw HAL format code, not shm.PixelFormat
	BrightnessAvg      uint8
	CorrectionApplied  bool
	PlaneCount         uint32
	ContiguousPlanes   bool
	Planes             [MaxPlanes]GraphicBufferPlane
}

const (
	zcVersionOff  = 0
	zcConsumedOff = 8
	zcPadOff      = 12
	zcBodyOff     = 16

	zcFrameSeqOff    = 0
	zcTsSecOff       = 8
	zcTsNsecOff      = 16
	zcCameraOff      = 24
	zcWidthOff       = 28
	zcHeightOff      = 32
	zcPixelFmtOff    = 36
	zcBrightnessOff  = 40
	zcCorrectionOff  = 44
	zcPlaneCountOff  = 48
	zcContiguousOff  = 52
	zcPlanesOff      = 56
	zcBodySize       = zcPlanesOff + MaxPlanes*planeEncodedSize
)

func zeroCopyRegionSize() int {
	return zcBodyOff + zcBodySize
}

func encodeZeroCopyBody(dst []byte, d *ZeroCopyDescriptor) {
	binary.LittleEndian.PutUint64(dst[zcFrameSeqOff:], d.FrameSeq)
	binary.LittleEndian.PutUint64(dst[zcTsSecOff:], uint64(d.Timestamp.Unix()))
	binary.LittleEndian.PutUint64(dst[zcTsNsecOff:], uint64(d.Timestamp.Nanosecond()))
	binary.LittleEndian.PutUint32(dst[zcCameraOff:], uint32(d.Camera))
	binary.LittleEndian.PutUint32(dst[zcWidthOff:], d.Width)
	binary.LittleEndian.PutUint32(dst[zcHeightOff:], d.Height)
	binary.LittleEndian.PutUint32(dst[zcPixelFmtOff:], d.PixelFormat)
	binary.LittleEndian.PutUint32(dst[zcBrightnessOff:], uint32(d.BrightnessAvg))
	binary.LittleEndian.PutUint32(dst[zcCorrectionOff:], boolToU32(d.CorrectionApplied))
	binary.LittleEndian.PutUint32(dst[zcPlaneCountOff:], d.PlaneCount)
	binary.LittleEndian.PutUint32(dst[zcContiguousOff:], boolToU32(d.ContiguousPlanes))

	for i := 0; i < MaxPlanes; i++ {
		off := zcPlanesOff + i*planeEncodedSize
		encodePlane(dst[off:off+planeEncodedSize], d.Planes[i])
	}
}

func decodeZeroCopyBody(src []byte) *ZeroCopyDescriptor {
	d := &ZeroCopyDescriptor{
		FrameSeq:          binary.LittleEndian.Uint64(src[zcFrameSeqOff:]),
		Camera:            CameraID(binary.LittleEndian.Uint32(src[zcCameraOff:])),
		Width:             binary.LittleEndian.Uint32(src[zcWidthOff:]),
		Height:            binary.LittleEndian.Uint32(src[zcHeightOff:]),
		PixelFormat:       binary.LittleEndian.Uint32(src[zcPixelFmtOff:]),
		BrightnessAvg:     uint8(binary.LittleEndian.Uint32(src[zcBrightnessOff:])),
		CorrectionApplied: binary.LittleEndian.Uint32(src[zcCorrectionOff:]) != 0,
		PlaneCount:        binary.LittleEndian.Uint32(src[zcPlaneCountOff:]),
		ContiguousPlanes:  binary.LittleEndian.Uint32(src[zcContiguousOff:]) != 0,
	}
	sec := binary.LittleEndian.Uint64(src[zcTsSecOff:])
	nsec := binary.LittleEndian.Uint64(src[zcTsNsecOff:])
	d.Timestamp = time.Unix(int64(sec), int64(nsec))

	for i := 0; i < MaxPlanes; i++ {
		off := zcPlanesOff + i*planeEncodedSize
		d.Planes[i] = decodePlane(src[off : off+planeEncodedSize])
	}
	return d
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ZeroCopyRegion is the single-writer, per-camera region from spec §3. It
// carries two semaphores: one signalled on new frame, one signalled on
// consumer release. The release semaphore is advisory only — per DESIGN
// NOTES §9's rejected stricter protocol, the producer never blocks on it.
type ZeroCopyRegion struct {
	m        *mapping // new-frame mapping + semaphore
	release  *mapping // release semaphore (8-byte mapping, used only for its semaphore)
	name     string
	lastSeq  uint64
	lastGen  uint64 // not read or written by any method; no staleness check exists
}

// CreateZeroCopy allocates the descriptor region for one camera, owned by
// that camera's capture pipeline.
func CreateZeroCopy(name string) (*ZeroCopyRegion, error) {
	m, err := createMapping(name, zeroCopyRegionSize())
	if err != nil {
		return nil, fmt.Errorf("shm: create zerocopy %s: %w", name, err)
	}
	rel, err := createMapping(name+"_release", 8)
	if err != nil {
		m.close(true)
		return nil, fmt.Errorf("shm: create zerocopy release %s: %w", name, err)
	}
	return &ZeroCopyRegion{m: m, release: rel, name: name}, nil
}

// OpenZeroCopy attaches a consumer (detector or switch controller) to a
// per-camera descriptor region.
func OpenZeroCopy(name string) (*ZeroCopyRegion, error) {
	m, err := openWithRetry(name, zeroCopyRegionSize())
	if err != nil {
		return nil, err
	}
	rel, err := openWithRetry(name+"_release", 8)
	if err != nil {
		m.close(false)
		return nil, err
	}
	return &ZeroCopyRegion{m: m, release: rel, name: name}, nil
}

// Publish overwrites the descriptor in place and bumps the version, per
// spec §3: "it is overwritten in place on each new frame of that camera".
func (z *ZeroCopyRegion) Publish(d *ZeroCopyDescriptor) {
	buf := z.m.bytes()
	storeU32(buf, zcConsumedOff, 0)
	encodeZeroCopyBody(buf[zcBodyOff:zcBodyOff+zcBodySize], d)
	addU64(buf, zcVersionOff, 1)
	_ = z.m.signal()
}

// Read returns the current descriptor and the version it was read at.
// Callers must check the version against the last one they imported
// before attempting a DMA re-import — see spec §3's zero-copy lifetime
// invariant.
func (z *ZeroCopyRegion) Read() (*ZeroCopyDescriptor, uint64) {
	buf := z.m.bytes()
	version := loadU64(buf, zcVersionOff)
	d := decodeZeroCopyBody(buf[zcBodyOff : zcBodyOff+zcBodySize])
	return d, version
}

// MarkConsumed sets the consumed flag and signals the release semaphore.
// This is advisory: Publish neither waits for it nor checks the flag, and
// overwrites the descriptor whether or not it was consumed. Nothing in
// this package detects a stale descriptor.
func (z *ZeroCopyRegion) MarkConsumed() {
	storeU32(z.m.bytes(), zcConsumedOff, 1)
	_ = z.release.signal()
}

// WaitRelease blocks up to timeout for a consumer release signal. The
// producer never depends on this — it is offered for instrumentation and
// for tests that want to observe release latency, not for the hot path.
func (z *ZeroCopyRegion) WaitRelease(timeout time.Duration) WaitResult {
	return z.release.wait(timeout.Milliseconds())
}

func (z *ZeroCopyRegion) WaitUpdate(timeout time.Duration) WaitResult {
	return z.m.wait(timeout.Milliseconds())
}

func (z *ZeroCopyRegion) Close() error {
	_ = z.release.close(z.release.owner)
	return z.m.close(z.m.owner)
}

func (z *ZeroCopyRegion) Destroy() error {
	_ = z.release.close(true)
	return z.m.close(true)
}
