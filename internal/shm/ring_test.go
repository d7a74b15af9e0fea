package shm

import (
	"fmt"
	"testing"
	"time"
)

// uniqueRegionName keeps parallel test runs from colliding on the same
// POSIX shared-memory object name.
func uniqueRegionName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/pcr_test_%s_%d", t.Name(), time.Now().UnixNano())
}

func TestRingPublishThenReadRoundTrip(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateRing(name)
	if err != nil {
		t.Fatalf("CreateRing: %v", err)
	}
	defer owner.Destroy()

	reader, err := OpenRing(name)
	if err != nil {
		t.Fatalf("OpenRing: %v", err)
	}
	defer reader.Close()

	want := &Frame{
		Sequence:  42,
		Timestamp: time.Now(),
		Camera:    CameraDay,
		Width:     1920,
		Height:    1080,
		Format:    FormatNV12,
		Payload:   []byte{1, 2, 3, 4, 5},
	}
	owner.PublishRing(want)

	got, isNew := reader.ReadLatestRing()
	if !isNew {
		t.Fatalf("expected a new frame on first read")
	}
	if got.Sequence != want.Sequence || got.Camera != want.Camera {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if string(got.Payload) != string(want.Payload) {
		t.Fatalf("payload mismatch: got %v want %v", got.Payload, want.Payload)
	}

	// A second read with no new publish must not report a new frame
	// (duplicate suppression, spec §4.1).
	if _, isNew := reader.ReadLatestRing(); isNew {
		t.Fatalf("expected no new frame without an intervening publish")
	}
}

func TestRingWriteIndexMonotonic(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateRing(name)
	if err != nil {
		t.Fatalf("CreateRing: %v", err)
	}
	defer owner.Destroy()

	var last uint64
	for i := 0; i < RingCapacity*2+5; i++ {
		owner.PublishRing(&Frame{Sequence: uint64(i), Camera: CameraDay, Format: FormatNV12})
		idx := owner.WriteIndex()
		if idx < last {
			t.Fatalf("write_index went backwards: %d -> %d", last, idx)
		}
		last = idx
	}
	if last != uint64(RingCapacity*2+5) {
		t.Fatalf("write_index = %d, want %d", last, RingCapacity*2+5)
	}
}

func TestRingOverflowOverwritesOldestSilently(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateRing(name)
	if err != nil {
		t.Fatalf("CreateRing: %v", err)
	}
	defer owner.Destroy()

	// Publish one full wrap plus one extra frame; slot 0 must now hold
	// the wrapped frame, not the original.
	for i := 0; i < RingCapacity+1; i++ {
		owner.PublishRing(&Frame{Sequence: uint64(i), Camera: CameraDay, Format: FormatNV12})
	}

	slot0 := owner.ReadSlot(0)
	if slot0.Sequence != uint64(RingCapacity) {
		t.Fatalf("slot 0 sequence = %d, want %d (overwritten by wrap)", slot0.Sequence, RingCapacity)
	}
}

func TestRingPublishReportsOverwriteAfterFirstWrap(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateRing(name)
	if err != nil {
		t.Fatalf("CreateRing: %v", err)
	}
	defer owner.Destroy()

	for i := 0; i < RingCapacity; i++ {
		if overwrote := owner.PublishRing(&Frame{Sequence: uint64(i), Camera: CameraDay, Format: FormatNV12}); overwrote {
			t.Fatalf("publish %d: overwrote = true before the ring ever wrapped", i)
		}
	}

	if overwrote := owner.PublishRing(&Frame{Sequence: RingCapacity, Camera: CameraDay, Format: FormatNV12}); !overwrote {
		t.Fatalf("publish %d: overwrote = false, want true once the ring has wrapped", RingCapacity)
	}
}

func TestRingFrameIntervalHint(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateRing(name)
	if err != nil {
		t.Fatalf("CreateRing: %v", err)
	}
	defer owner.Destroy()

	owner.SetFrameIntervalHint(33)
	if got := owner.FrameIntervalHint(); got != 33 {
		t.Fatalf("FrameIntervalHint() = %d, want 33", got)
	}
}

func TestOpenRingNotFoundAfterRetryWindow(t *testing.T) {
	origWindow, origPoll := OpenRetryWindow, OpenPollInterval
	OpenRetryWindow = 150 * time.Millisecond
	OpenPollInterval = 20 * time.Millisecond
	defer func() { OpenRetryWindow, OpenPollInterval = origWindow, origPoll }()

	start := time.Now()
	_, err := OpenRing(uniqueRegionName(t))
	elapsed := time.Since(start)

	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if elapsed < OpenRetryWindow {
		t.Fatalf("returned after %v, expected to honor the %v retry window", elapsed, OpenRetryWindow)
	}
}
