package shm

import (
	"fmt"
	"time"

	"github.com/petcam-rdk/core/internal/metrics"
)

// RingRegion is the generic frame ring described in spec §3: a fixed
// capacity of RingCapacity slots plus a header carrying the write index
// and a frame-interval hint, all behind one update semaphore.
type RingRegion struct {
	m           *mapping
	name        string
	lastRead    uint64 // last write_index observed by ReadLatestRing
	lastSeqSeen uint64 // last in-slot sequence number observed, for dup detection

	timeoutStreak int // consecutive WaitUpdate timeouts, drives the idle back-off below
}

// CreateRing allocates a fresh ring region. Fatal on error per spec §7: the
// owner cannot proceed without its region.
func CreateRing(name string) (*RingRegion, error) {
	m, err := createMapping(name, ringRegionSize())
	if err != nil {
		return nil, fmt.Errorf("shm: create ring %s: %w", name, err)
	}
	return &RingRegion{m: m, name: name}, nil
}

// OpenRing attaches to an existing ring region, retrying for up to
// OpenRetryWindow (spec §4.1: "waits up to a bounded retry window ... 5s
// with 100ms polling").
func OpenRing(name string) (*RingRegion, error) {
	m, err := openWithRetry(name, ringRegionSize())
	if err != nil {
		return nil, err
	}
	return &RingRegion{m: m, name: name}, nil
}

// SetFrameIntervalHint records the advisory pacing hint in the header.
func (r *RingRegion) SetFrameIntervalHint(ms uint32) {
	storeU32(r.m.bytes(), ringHeaderIntervalOff, ms)
}

// FrameIntervalHint reads the advisory pacing hint.
func (r *RingRegion) FrameIntervalHint() uint32 {
	return loadU32(r.m.bytes(), ringHeaderIntervalOff)
}

// PublishRing writes f into slot (write_index mod N), then advances the
// write index and signals the semaphore. Per spec §4.1 this must not
// block and cannot fail on an already-mapped region. It reports whether
// this publish overwrote a slot that already held a previous frame — once
// the ring has wrapped once, every publish does, so a slow consumer that
// only reads occasionally loses whatever landed in between (spec §5's
// "drop oldest over block producer" backpressure, spec §7/§8's dropped-
// frames counter).
func (r *RingRegion) PublishRing(f *Frame) (overwrote bool) {
	buf := r.m.bytes()
	idx := loadU64(buf, ringHeaderWriteIndexOff)
	slot := idx % RingCapacity
	overwrote = idx >= RingCapacity

	off := ringHeaderSize + int(slot)*slotSize
	encodeSlot(buf[off:off+slotSize], f)

	// Release-ordered fetch-and-add: the payload write above is fully
	// committed before any consumer can observe the new index.
	addU64(buf, ringHeaderWriteIndexOff, 1)

	if err := r.m.signal(); err != nil {
		// Best-effort wake; spec §4.1 says signal failure is logged and
		// ignored, never escalated — the next publish recovers any lost wake.
		_ = err
	}
	return overwrote
}

// WriteIndex returns the current write index with acquire ordering.
func (r *RingRegion) WriteIndex() uint64 {
	return loadU64(r.m.bytes(), ringHeaderWriteIndexOff)
}

// ReadLatestRing returns the most recently published frame, or nil if
// nothing has been published yet. It also reports whether this call
// observed a frame the caller has not seen before (duplicate suppression
// per spec §4.1's sequence-comparison guidance).
func (r *RingRegion) ReadLatestRing() (frame *Frame, isNew bool) {
	buf := r.m.bytes()
	idx := loadU64(buf, ringHeaderWriteIndexOff)
	if idx == 0 {
		return nil, false
	}

	slot := (idx - 1) % RingCapacity
	off := ringHeaderSize + int(slot)*slotSize

	seq := slotSequenceAt(buf[off : off+slotSize])
	if seq == r.lastSeqSeen && r.lastRead == idx {
		return nil, false
	}

	f := decodeSlot(buf[off : off+slotSize])
	r.lastRead = idx
	r.lastSeqSeen = seq
	return f, true
}

// ReadSlot reads the slot at a specific ring index (0..write_index-1),
// used by consumers correlating a historical sequence number (e.g. the
// detection-boundary shim matching a detection back to its source frame).
func (r *RingRegion) ReadSlot(index uint64) *Frame {
	buf := r.m.bytes()
	slot := index % RingCapacity
	off := ringHeaderSize + int(slot)*slotSize
	return decodeSlot(buf[off : off+slotSize])
}

// WaitUpdate blocks up to timeout for the next publish signal. After
// IdleBackoffStreak consecutive timeouts it stops trusting the semaphore
// and instead polls WriteIndex every IdleBackoffPoll until it advances or
// timeout elapses (spec §7's idle back-off); a successful wait of either
// kind resumes event-driven mode on the next call.
func (r *RingRegion) WaitUpdate(timeout time.Duration) WaitResult {
	if r.timeoutStreak < IdleBackoffStreak {
		res := r.m.wait(timeout.Milliseconds())
		if res != WaitTimeout {
			r.timeoutStreak = 0
			return res
		}
		r.timeoutStreak++
		return res
	}

	metrics.SemaphoreWaitTimeouts.WithLabelValues(r.name).Inc()
	res := pollForChange(timeout, func() uint64 { return r.WriteIndex() })
	if res == WaitNewUpdate {
		r.timeoutStreak = 0
	}
	return res
}

// Close detaches from the region. If this handle created the region, it is
// also unlinked so a later Create can succeed cleanly.
func (r *RingRegion) Close() error {
	return r.m.close(r.m.owner)
}

// Destroy detaches and unlinks the region — used on orderly shutdown by
// the owning process. Unlinking happens only for the handle that created
// the region; on a handle from OpenRing it only detaches, like Close.
func (r *RingRegion) Destroy() error {
	return r.m.close(true)
}
