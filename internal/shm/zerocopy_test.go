package shm

import (
	"testing"
	"time"
)

func TestZeroCopyPublishThenReadRoundTrip(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateZeroCopy(name)
	if err != nil {
		t.Fatalf("CreateZeroCopy: %v", err)
	}
	defer owner.Destroy()

	reader, err := OpenZeroCopy(name)
	if err != nil {
		t.Fatalf("OpenZeroCopy: %v", err)
	}
	defer reader.Close()

	want := &ZeroCopyDescriptor{
		FrameSeq:          7,
		Timestamp:         time.Now(),
		Camera:            CameraNight,
		Width:             1920,
		Height:            1080,
		PixelFormat:       uint32(FormatNV12),
		BrightnessAvg:     42,
		CorrectionApplied: true,
		PlaneCount:        2,
		ContiguousPlanes:  true,
		Planes: [MaxPlanes]GraphicBufferPlane{
			{FD: 3, ShareID: 100, Size: 1920 * 1080, Stride: 1920},
			{FD: 4, ShareID: 101, Size: 1920 * 1080 / 2, Stride: 1920, Offset: 1920 * 1080},
		},
	}
	owner.Publish(want)

	got, version := reader.Read()
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	if got.FrameSeq != want.FrameSeq || got.Camera != want.Camera || got.BrightnessAvg != want.BrightnessAvg {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.Planes[0].ShareID != want.Planes[0].ShareID || got.Planes[1].Offset != want.Planes[1].Offset {
		t.Fatalf("plane metadata mismatch: got %+v, want %+v", got.Planes, want.Planes)
	}
}

func TestZeroCopyOverwrittenInPlaceEachFrame(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateZeroCopy(name)
	if err != nil {
		t.Fatalf("CreateZeroCopy: %v", err)
	}
	defer owner.Destroy()

	owner.Publish(&ZeroCopyDescriptor{FrameSeq: 1, Camera: CameraDay})
	owner.Publish(&ZeroCopyDescriptor{FrameSeq: 2, Camera: CameraDay})

	got, version := owner.Read()
	if got.FrameSeq != 2 {
		t.Fatalf("FrameSeq = %d, want 2 (descriptor overwritten in place)", got.FrameSeq)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
}

func TestZeroCopyReleaseSignalsConsumerRelease(t *testing.T) {
	name := uniqueRegionName(t)
	owner, err := CreateZeroCopy(name)
	if err != nil {
		t.Fatalf("CreateZeroCopy: %v", err)
	}
	defer owner.Destroy()

	reader, err := OpenZeroCopy(name)
	if err != nil {
		t.Fatalf("OpenZeroCopy: %v", err)
	}
	defer reader.Close()

	owner.Publish(&ZeroCopyDescriptor{FrameSeq: 1, Camera: CameraDay})

	done := make(chan WaitResult, 1)
	go func() { done <- owner.WaitRelease(1 * time.Second) }()
	time.Sleep(20 * time.Millisecond)
	reader.MarkConsumed()

	select {
	case r := <-done:
		if r != WaitNewUpdate {
			t.Fatalf("WaitRelease = %v, want WaitNewUpdate", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitRelease did not observe MarkConsumed")
	}
}
