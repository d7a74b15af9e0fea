package hal

import (
	"bytes"
	"image"
	"image/jpeg"
)

// SimulatedJPEGEncoder backs the optional MJPEG region (spec §6) in
// simulated/test builds. It downconverts the already-available NV12 Y
// plane into a greyscale JFIF image via the standard library's
// image/jpeg encoder — there is no vendor JPEG tap to simulate against,
// so this stands in for it the same way SimulatedEncoder stands in for
// the H.264 hardware encoder, rather than leaving the named region
// entirely unimplemented.
type SimulatedJPEGEncoder struct {
	quality int
}

// NewSimulatedJPEGEncoder creates an encoder at the given JPEG quality
// (1-100). quality <= 0 defaults to 75.
func NewSimulatedJPEGEncoder(quality int) *SimulatedJPEGEncoder {
	if quality <= 0 {
		quality = 75
	}
	return &SimulatedJPEGEncoder{quality: quality}
}

// EncodeJPEG reads only the Y plane of nv12 (width*height bytes) and
// encodes it as a greyscale baseline JFIF image, matching spec §3's
// "JPEG/MJPEG: baseline JFIF" framing.
func (e *SimulatedJPEGEncoder) EncodeJPEG(nv12 []byte, width, height int) ([]byte, error) {
	ySize := width * height
	if len(nv12) < ySize {
		return nil, newStatusError(StatusInvalidParams, "nv12 buffer shorter than one Y plane")
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, nv12[:ySize])

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, newStatusError(StatusFatal, err.Error())
	}
	return buf.Bytes(), nil
}

func (e *SimulatedJPEGEncoder) Close() error { return nil }
