package hal

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petcam-rdk/core/internal/shm"
)

// SimulatedVIO stands in for the vendor sensor/ISP/scaler pipeline. It is
// grounded on the teacher's CameraReader.capture simulation path
// (synthetic frame generation gated by a `simulate` flag) generalized
// from a channel producer to the blocking GetFrame contract spec §4.2
// requires.
type SimulatedVIO struct {
	params shm.CameraID
	width  int
	height int
	fps    int

	mu        sync.Mutex
	brightness uint32 // 0-255, settable by tests to drive the switch controller

	seq     uint64
	nrBand  NRBand
	lastNR  time.Time
	closed  int32
}

// NewSimulatedVIO creates a synthetic VIO context. initialBrightness is the
// initial simulated scene brightness; call SetBrightness to vary it over
// time (used by switch-controller scenario tests in spec §8).
func NewSimulatedVIO(cam shm.CameraID, width, height, fps int, initialBrightness uint8) *SimulatedVIO {
	return &SimulatedVIO{
		params:     cam,
		width:      width,
		height:     height,
		fps:        fps,
		brightness: uint32(initialBrightness),
	}
}

// SetBrightness updates the simulated scene brightness. Safe for
// concurrent use so a test driver goroutine can vary it while the capture
// pipeline's hot loop calls GetFrame.
func (v *SimulatedVIO) SetBrightness(b uint8) {
	atomic.StoreUint32(&v.brightness, uint32(b))
}

func (v *SimulatedVIO) GetFrame(timeout time.Duration) (*VIOFrame, error) {
	if atomic.LoadInt32(&v.closed) != 0 {
		return nil, newStatusError(StatusFatal, "vio context closed")
	}

	interval := time.Second / time.Duration(max(v.fps, 1))
	if interval > timeout {
		interval = timeout
	}
	time.Sleep(interval)

	seq := atomic.AddUint64(&v.seq, 1)
	brightness := uint8(atomic.LoadUint32(&v.brightness))

	ySize := v.width * v.height
	nv12 := make([]byte, ySize+ySize/2)
	for i := 0; i < ySize; i++ {
		nv12[i] = brightness
	}
	for i := ySize; i < len(nv12); i++ {
		nv12[i] = 128 // neutral chroma
	}

	now := time.Now()
	return &VIOFrame{
		NV12:          nv12,
		ISPStatsValid: true,
		ISPBrightness: uint32(brightness),
		Descriptor: shm.ZeroCopyDescriptor{
			FrameSeq:      seq,
			Timestamp:     now,
			Camera:        v.params,
			Width:         uint32(v.width),
			Height:        uint32(v.height),
			PixelFormat:   uint32(shm.FormatNV12),
			BrightnessAvg: brightness,
			PlaneCount:    2,
			ContiguousPlanes: true,
			Planes: [shm.MaxPlanes]shm.GraphicBufferPlane{
				{ShareID: seq<<8 | 0, Size: uint32(ySize), Stride: uint32(v.width)},
				{ShareID: seq<<8 | 1, Size: uint32(ySize / 2), Stride: uint32(v.width), Offset: uint32(ySize)},
			},
		},
	}, nil
}

func (v *SimulatedVIO) ReleaseFrame(f *VIOFrame) error {
	return nil
}

func (v *SimulatedVIO) SetNoiseReductionBand(band NRBand) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nrBand = band
	v.lastNR = time.Now()
	return nil
}

func (v *SimulatedVIO) Close() error {
	atomic.StoreInt32(&v.closed, 1)
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SimulatedEncoder stands in for the hardware H.264 encoder. It emits a
// minimal but well-formed Annex-B access unit every FixedGOPSize frames
// (SPS+PPS+IDR), and a single non-IDR slice NAL otherwise, matching the
// device's fixed-GOP behavior spec §4.2 describes.
type SimulatedEncoder struct {
	params EncoderParams
	count  uint64
}

func NewSimulatedEncoder(p EncoderParams) *SimulatedEncoder {
	p.Bitrate = ClampBitrate(p.Bitrate)
	return &SimulatedEncoder{params: p}
}

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

func (e *SimulatedEncoder) Encode(frame *VIOFrame) ([]byte, error) {
	e.count++

	var out []byte
	if e.count%FixedGOPSize == 1 {
		out = append(out, startCode...)
		out = append(out, nalHeader(7)) // SPS
		out = append(out, syntheticSPS()...)
		out = append(out, startCode...)
		out = append(out, nalHeader(8)) // PPS
		out = append(out, syntheticPPS()...)
		out = append(out, startCode...)
		out = append(out, nalHeader(5)) // IDR
		out = append(out, syntheticSlicePayload(frame)...)
		return out, nil
	}

	out = append(out, startCode...)
	out = append(out, nalHeader(1)) // non-IDR
	out = append(out, syntheticSlicePayload(frame)...)
	return out, nil
}

func nalHeader(nalType byte) byte {
	// forbidden_zero_bit=0, nal_ref_idc=3, nal_unit_type=nalType
	return (3 << 5) | (nalType & 0x1F)
}

func syntheticSPS() []byte {
	return []byte{0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01}
}

func syntheticPPS() []byte {
	return []byte{0xce, 0x3c, 0x80}
}

func syntheticSlicePayload(frame *VIOFrame) []byte {
	if frame == nil {
		return []byte{0x88, 0x84, 0x21, 0xa0}
	}
	// A tiny deterministic payload derived from the frame sequence, just
	// enough to make each slice distinguishable in tests.
	b := make([]byte, 8)
	rand.New(rand.NewSource(int64(frame.Descriptor.FrameSeq))).Read(b)
	return b
}

func (e *SimulatedEncoder) Close() error { return nil }

// SimulatedDecoder mirrors SimulatedEncoder for NV12 regeneration tests.
type SimulatedDecoder struct {
	width, height int
}

func NewSimulatedDecoder(width, height int) *SimulatedDecoder {
	return &SimulatedDecoder{width: width, height: height}
}

func (d *SimulatedDecoder) Decode(nal []byte) ([]byte, error) {
	ySize := d.width * d.height
	nv12 := make([]byte, ySize+ySize/2)
	for i := range nv12 {
		nv12[i] = 16 // arbitrary decode stand-in
	}
	return nv12, nil
}

func (d *SimulatedDecoder) Close() error { return nil }
