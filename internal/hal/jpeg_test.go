package hal

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestSimulatedJPEGEncoderProducesDecodableImage(t *testing.T) {
	const w, h = 16, 8
	nv12 := make([]byte, w*h+w*h/2)
	for i := 0; i < w*h; i++ {
		nv12[i] = byte(i % 256)
	}

	enc := NewSimulatedJPEGEncoder(0)
	defer enc.Close()

	out, err := enc.EncodeJPEG(nv12, w, h)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("EncodeJPEG returned no bytes")
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != w || bounds.Dy() != h {
		t.Fatalf("decoded size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), w, h)
	}
}

func TestSimulatedJPEGEncoderRejectsShortBuffer(t *testing.T) {
	enc := NewSimulatedJPEGEncoder(0)
	defer enc.Close()

	if _, err := enc.EncodeJPEG([]byte{1, 2, 3}, 16, 16); err == nil {
		t.Fatal("expected error for undersized nv12 buffer")
	}
}
