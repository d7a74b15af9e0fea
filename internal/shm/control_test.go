package shm

import "testing"

func TestControlRecordEncodeDecodeRoundTrip(t *testing.T) {
	want := ControlRecord{ActiveCamera: CameraNight, Generation: 3}
	got := DecodeControlRecord(want.Encode())
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeControlRecordTooShortIsUninitialised(t *testing.T) {
	got := DecodeControlRecord([]byte{1, 2, 3})
	if got.ActiveCamera != UninitialisedCamera {
		t.Fatalf("ActiveCamera = %v, want UninitialisedCamera sentinel", got.ActiveCamera)
	}
}

func TestCreateControlRegionStartsUninitialised(t *testing.T) {
	region, err := CreateControlRegion()
	if err != nil {
		t.Fatalf("CreateControlRegion: %v", err)
	}
	defer region.Destroy()

	record, _ := region.ReadLatestRecord()
	got := DecodeControlRecord(record)
	if got.ActiveCamera != UninitialisedCamera {
		t.Fatalf("initial ActiveCamera = %v, want UninitialisedCamera", got.ActiveCamera)
	}
}

func TestControlRegionActiveUniqueness(t *testing.T) {
	region, err := CreateControlRegion()
	if err != nil {
		t.Fatalf("CreateControlRegion: %v", err)
	}
	defer region.Destroy()

	region.PublishLatest(ControlRecord{ActiveCamera: CameraDay}.Encode())
	record, _ := region.ReadLatestRecord()
	if got := DecodeControlRecord(record).ActiveCamera; got != CameraDay {
		t.Fatalf("ActiveCamera = %v, want CameraDay", got)
	}

	region.PublishLatest(ControlRecord{ActiveCamera: CameraNight}.Encode())
	record, _ = region.ReadLatestRecord()
	if got := DecodeControlRecord(record).ActiveCamera; got != CameraNight {
		t.Fatalf("ActiveCamera = %v, want CameraNight", got)
	}
}
