package shm

import (
	"encoding/binary"
	"time"
)

// Binary layout constants for the ring-buffer header and per-slot header,
// per spec §6 ("Ring-buffer header layout (binary, stable)"). The atomic
// write index sits at offset 0, and the header size and slot size are
// multiples of 8, so the write index and every 64-bit slot field are
// 8-byte aligned; the 32-bit fields sit on 4-byte boundaries.
const (
	ringHeaderWriteIndexOff = 0
	ringHeaderIntervalOff   = 8 // uint32 frame-interval hint, ms
	ringHeaderPadOff        = 12
	ringHeaderSize          = 16

	slotSequenceOff   = 0
	slotTimestampSOff = 8  // seconds since epoch, int64
	slotTimestampNOff = 16 // nanosecond remainder, int64
	slotCameraIDOff   = 24
	slotWidthOff      = 28
	slotHeightOff     = 32
	slotFormatOff     = 36
	slotPayloadLenOff = 40
	slotHeaderSize    = 48 // leaves 4 bytes of padding for future fields
	slotSize          = slotHeaderSize + MaxFrameSize
)

func ringRegionSize() int {
	return ringHeaderSize + RingCapacity*slotSize
}

// Frame is one payload published to (or read from) a ring region.
type Frame struct {
	Sequence  uint64
	Timestamp time.Time
	Camera    CameraID
	Width     uint32
	Height    uint32
	Format    PixelFormat
	Payload   []byte
}

// encodeSlot writes f into the slot-sized byte range dst, fully, before
// any index is advanced — this ordering is what makes publish atomic from
// a consumer's point of view (spec §4.1 "Atomic publish").
func encodeSlot(dst []byte, f *Frame) {
	if len(f.Payload) > MaxFrameSize {
		f.Payload = f.Payload[:MaxFrameSize]
	}

	binary.LittleEndian.PutUint64(dst[slotSequenceOff:], f.Sequence)
	binary.LittleEndian.PutUint64(dst[slotTimestampSOff:], uint64(f.Timestamp.Unix()))
	binary.LittleEndian.PutUint64(dst[slotTimestampNOff:], uint64(f.Timestamp.Nanosecond()))
	binary.LittleEndian.PutUint32(dst[slotCameraIDOff:], uint32(f.Camera))
	binary.LittleEndian.PutUint32(dst[slotWidthOff:], f.Width)
	binary.LittleEndian.PutUint32(dst[slotHeightOff:], f.Height)
	binary.LittleEndian.PutUint32(dst[slotFormatOff:], uint32(f.Format))
	binary.LittleEndian.PutUint32(dst[slotPayloadLenOff:], uint32(len(f.Payload)))
	copy(dst[slotHeaderSize:slotHeaderSize+MaxFrameSize], f.Payload)
}

// decodeSlot reads a slot into a freshly allocated Frame. The payload slice
// is a copy, never a view into shared memory, so callers may hold onto it
// across the next publish into the same slot.
func decodeSlot(src []byte) *Frame {
	sec := binary.LittleEndian.Uint64(src[slotTimestampSOff:])
	nsec := binary.LittleEndian.Uint64(src[slotTimestampNOff:])
	payloadLen := binary.LittleEndian.Uint32(src[slotPayloadLenOff:])
	if int(payloadLen) > MaxFrameSize {
		payloadLen = MaxFrameSize
	}

	payload := make([]byte, payloadLen)
	copy(payload, src[slotHeaderSize:slotHeaderSize+int(payloadLen)])

	return &Frame{
		Sequence:  binary.LittleEndian.Uint64(src[slotSequenceOff:]),
		Timestamp: time.Unix(int64(sec), int64(nsec)),
		Camera:    CameraID(binary.LittleEndian.Uint32(src[slotCameraIDOff:])),
		Width:     binary.LittleEndian.Uint32(src[slotWidthOff:]),
		Height:    binary.LittleEndian.Uint32(src[slotHeightOff:]),
		Format:    PixelFormat(binary.LittleEndian.Uint32(src[slotFormatOff:])),
		Payload:   payload,
	}
}

// slotSequenceAt peeks at just the sequence number of a slot, without
// copying the payload — used by consumers doing duplicate detection
// before committing to a full decode.
func slotSequenceAt(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src[slotSequenceOff:])
}
