package detect

import (
	"testing"
	"time"

	"github.com/petcam-rdk/core/internal/shm"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := &Detection{
		FrameSeq:  12345,
		Timestamp: time.Unix(1700000000, 123456000),
		Camera:    shm.CameraNight,
		Boxes: []Box{
			{X: 10.5, Y: 20.25, W: 30, H: 40, Score: 0.875, ClassID: 3},
			{X: 1, Y: 2, W: 3, H: 4, Score: 0.1, ClassID: 0},
		},
	}

	buf := Encode(d)
	if len(buf) != RecordSize {
		t.Fatalf("Encode produced %d bytes, want RecordSize=%d", len(buf), RecordSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.FrameSeq != d.FrameSeq {
		t.Errorf("FrameSeq = %d, want %d", got.FrameSeq, d.FrameSeq)
	}
	if got.Camera != d.Camera {
		t.Errorf("Camera = %v, want %v", got.Camera, d.Camera)
	}
	if !got.Timestamp.Equal(d.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, d.Timestamp)
	}
	if len(got.Boxes) != len(d.Boxes) {
		t.Fatalf("Boxes len = %d, want %d", len(got.Boxes), len(d.Boxes))
	}
	for i := range d.Boxes {
		if got.Boxes[i] != d.Boxes[i] {
			t.Errorf("Boxes[%d] = %+v, want %+v", i, got.Boxes[i], d.Boxes[i])
		}
	}
}

func TestEncodeTruncatesBeyondMaxBoxes(t *testing.T) {
	boxes := make([]Box, MaxBoxes+5)
	for i := range boxes {
		boxes[i] = Box{ClassID: uint32(i)}
	}
	d := &Detection{Boxes: boxes}

	buf := Encode(d)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Boxes) != MaxBoxes {
		t.Fatalf("box count = %d, want clamped to %d", len(got.Boxes), MaxBoxes)
	}
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error decoding a too-short buffer")
	}
}

func TestCSVRowFormatsBoxesSemicolonDelimited(t *testing.T) {
	d := &Detection{
		FrameSeq:  7,
		Timestamp: time.Unix(0, 42),
		Camera:    shm.CameraDay,
		Boxes: []Box{
			{X: 1, Y: 2, W: 3, H: 4, Score: 0.5, ClassID: 9},
			{X: 5, Y: 6, W: 7, H: 8, Score: 0.25, ClassID: 1},
		},
	}
	row := d.CSVRow()
	header := Detection{}.CSVHeader()
	if len(row) != len(header) {
		t.Fatalf("CSVRow has %d fields, header has %d", len(row), len(header))
	}
	if row[1] != "7" {
		t.Errorf("frame_seq field = %q, want \"7\"", row[1])
	}
	if row[2] != "day" {
		t.Errorf("camera field = %q, want \"day\"", row[2])
	}
	if row[3] != "2" {
		t.Errorf("box_count field = %q, want \"2\"", row[3])
	}
	want := "9:1.0,2.0,3.0,4.0,0.500;1:5.0,6.0,7.0,8.0,0.250"
	if row[4] != want {
		t.Errorf("boxes field = %q, want %q", row[4], want)
	}
}

func TestCSVRowEmptyBoxes(t *testing.T) {
	d := &Detection{Camera: shm.CameraDay}
	row := d.CSVRow()
	if row[4] != "" {
		t.Errorf("boxes field for no detections = %q, want empty", row[4])
	}
	if row[3] != "0" {
		t.Errorf("box_count field = %q, want \"0\"", row[3])
	}
}
