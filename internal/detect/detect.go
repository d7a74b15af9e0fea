// Package detect implements the detection-boundary shim: a reader that
// follows the control region's active-camera pointer to import the
// right zero-copy descriptor, and a publisher that writes detection
// records into the latest-value detections region. Detection itself
// follows the teacher's self-describing CSVHeader/CSVRow convention
// (models.CameraFrame et al.), generalized to a bounded array of boxes
// instead of a single flat row.
package detect

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/petcam-rdk/core/internal/hal"
	"github.com/petcam-rdk/core/internal/shm"
)

// MaxBoxes bounds a single Detection record so it fits a fixed-size
// latest-value region slot without a length-prefixed variable layout.
const MaxBoxes = 16

// Box is one axis-aligned detection box in pixel coordinates.
type Box struct {
	X, Y, W, H float32
	Score      float32
	ClassID    uint32
}

// Detection is one detector output for a single source frame.
type Detection struct {
	FrameSeq  uint64
	Timestamp time.Time
	Camera    shm.CameraID
	Boxes     []Box
}

// CSVHeader follows the teacher's CSVRowWriter convention.
func (Detection) CSVHeader() []string {
	return []string{"timestamp_ns", "frame_seq", "camera", "box_count", "boxes"}
}

// CSVRow serialises a detection record, packing all boxes into one
// semicolon-delimited field rather than widening the schema per box.
func (d *Detection) CSVRow() []string {
	boxes := make([]byte, 0, 32*len(d.Boxes))
	for i, b := range d.Boxes {
		if i > 0 {
			boxes = append(boxes, ';')
		}
		boxes = append(boxes, fmt.Sprintf("%d:%.1f,%.1f,%.1f,%.1f,%.3f", b.ClassID, b.X, b.Y, b.W, b.H, b.Score)...)
	}
	return []string{
		strconv.FormatInt(d.Timestamp.UnixNano(), 10),
		strconv.FormatUint(d.FrameSeq, 10),
		d.Camera.String(),
		strconv.Itoa(len(d.Boxes)),
		string(boxes),
	}
}

const (
	recordHeaderSize = 8 + 8 + 4 + 4 // frame_seq, ts_nanos, camera, box_count
	boxRecordSize     = 4*5 + 4      // 5 float32 + 1 uint32
	// RecordSize is the fixed byte size of one encoded Detection,
	// sized for MaxBoxes so the detections region can use a
	// constant-size LatestRegion slot.
	RecordSize = recordHeaderSize + MaxBoxes*boxRecordSize
)

// Encode packs d into a fixed RecordSize buffer. Boxes beyond MaxBoxes
// are silently truncated — the detector is expected to report its
// highest-confidence boxes first.
func Encode(d *Detection) []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], d.FrameSeq)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(d.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(d.Camera))
	n := len(d.Boxes)
	if n > MaxBoxes {
		n = MaxBoxes
	}
	binary.LittleEndian.PutUint32(buf[20:24], uint32(n))

	for i := 0; i < n; i++ {
		off := recordHeaderSize + i*boxRecordSize
		b := d.Boxes[i]
		binary.LittleEndian.PutUint32(buf[off+0:], float32bits(b.X))
		binary.LittleEndian.PutUint32(buf[off+4:], float32bits(b.Y))
		binary.LittleEndian.PutUint32(buf[off+8:], float32bits(b.W))
		binary.LittleEndian.PutUint32(buf[off+12:], float32bits(b.H))
		binary.LittleEndian.PutUint32(buf[off+16:], float32bits(b.Score))
		binary.LittleEndian.PutUint32(buf[off+20:], b.ClassID)
	}
	return buf
}

// Decode reverses Encode.
func Decode(buf []byte) (*Detection, error) {
	if len(buf) < recordHeaderSize {
		return nil, fmt.Errorf("detect: record too short (%d bytes)", len(buf))
	}
	d := &Detection{
		FrameSeq:  binary.LittleEndian.Uint64(buf[0:8]),
		Timestamp: time.Unix(0, int64(binary.LittleEndian.Uint64(buf[8:16]))),
		Camera:    shm.CameraID(binary.LittleEndian.Uint32(buf[16:20])),
	}
	n := int(binary.LittleEndian.Uint32(buf[20:24]))
	if n > MaxBoxes {
		n = MaxBoxes
	}
	d.Boxes = make([]Box, n)
	for i := 0; i < n; i++ {
		off := recordHeaderSize + i*boxRecordSize
		if off+boxRecordSize > len(buf) {
			break
		}
		d.Boxes[i] = Box{
			X:       float32frombits(binary.LittleEndian.Uint32(buf[off+0:])),
			Y:       float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
			W:       float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
			H:       float32frombits(binary.LittleEndian.Uint32(buf[off+12:])),
			Score:   float32frombits(binary.LittleEndian.Uint32(buf[off+16:])),
			ClassID: binary.LittleEndian.Uint32(buf[off+20:]),
		}
	}
	return d, nil
}

// Publisher writes Detection records to the detections latest-value
// region.
type Publisher struct {
	region *shm.LatestRegion
}

// NewPublisher creates the detections region.
func NewPublisher(name string) (*Publisher, error) {
	region, err := shm.CreateLatest(name, RecordSize)
	if err != nil {
		return nil, err
	}
	return &Publisher{region: region}, nil
}

// Publish writes one detection record.
func (p *Publisher) Publish(d *Detection) {
	p.region.PublishLatest(Encode(d))
}

// Close tears down the detections region.
func (p *Publisher) Close() error {
	return p.region.Destroy()
}

// Stat exposes the detections region's version counter for
// internal/metrics' per-region gauge.
func (p *Publisher) Stat() shm.LatestStat {
	return p.region.Stat()
}

// Reader follows the control region's active-camera pointer to import
// the currently active camera's zero-copy descriptor, re-opening the
// zero-copy region whenever the active camera changes.
type Reader struct {
	control    *shm.LatestRegion
	regionName func(shm.CameraID) string

	active shm.CameraID
	zc     *shm.ZeroCopyRegion
}

// NewReader wraps an already-open control region and wires a zero-copy
// region name resolver (normally shm.ZeroCopyRegionName).
func NewReader(control *shm.LatestRegion, regionName func(shm.CameraID) string) *Reader {
	return &Reader{control: control, regionName: regionName, active: shm.UninitialisedCamera}
}

// ReadActive returns the current active camera's latest descriptor,
// reopening the zero-copy region if the control record's active camera
// changed since the last call.
func (r *Reader) ReadActive() (*shm.ZeroCopyDescriptor, uint64, error) {
	raw, _ := r.control.ReadLatestRecord()
	if raw == nil {
		return nil, 0, hal.ErrStaleDescriptor
	}
	ctrl := shm.DecodeControlRecord(raw)

	if ctrl.ActiveCamera != r.active || r.zc == nil {
		if r.zc != nil {
			_ = r.zc.Close()
		}
		zc, err := shm.OpenZeroCopy(r.regionName(ctrl.ActiveCamera))
		if err != nil {
			return nil, 0, fmt.Errorf("detect: open zero-copy for camera %v: %w", ctrl.ActiveCamera, err)
		}
		r.zc = zc
		r.active = ctrl.ActiveCamera
	}

	desc, version := r.zc.Read()
	if desc == nil {
		return nil, 0, hal.ErrStaleDescriptor
	}
	return desc, version, nil
}

// Release acknowledges consumption of the current descriptor so the
// capture pipeline can recycle its DMA buffer.
func (r *Reader) Release() {
	if r.zc != nil {
		r.zc.MarkConsumed()
	}
}

// WaitActive blocks up to timeout for the active camera's zero-copy
// region to publish its next descriptor, replacing a fixed poll interval
// with the semaphore wait every consumer is meant to use (spec §7).
// Before the first successful ReadActive there is no region to wait on
// yet, so this just sleeps.
func (r *Reader) WaitActive(timeout time.Duration) shm.WaitResult {
	if r.zc == nil {
		time.Sleep(timeout)
		return shm.WaitTimeout
	}
	return r.zc.WaitUpdate(timeout)
}

// Close detaches from the zero-copy region, if one is open. The control
// region passed to NewReader is left open for its owner to close.
func (r *Reader) Close() error {
	if r.zc != nil {
		return r.zc.Close()
	}
	return nil
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}

func float32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}
