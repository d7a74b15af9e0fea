package shm

import "encoding/binary"

// ControlRecordSize matches spec §6: "latest-value, 8-byte record".
const ControlRecordSize = 8

// UninitialisedCamera is the sentinel stored in the control region before
// the switch controller has made its first decision (spec §3 "Active
// uniqueness": the index holds exactly one valid camera id or this
// sentinel).
const UninitialisedCamera CameraID = 0xFFFFFFFF

// ControlRecord is the active-camera decision written by the switch
// controller and read by every capture pipeline.
type ControlRecord struct {
	ActiveCamera CameraID
	Generation   uint32 // bumped on every forced/automatic switch, for debugging/metrics
}

func (c ControlRecord) Encode() []byte {
	buf := make([]byte, ControlRecordSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(c.ActiveCamera))
	binary.LittleEndian.PutUint32(buf[4:], c.Generation)
	return buf
}

func DecodeControlRecord(buf []byte) ControlRecord {
	if len(buf) < ControlRecordSize {
		return ControlRecord{ActiveCamera: UninitialisedCamera}
	}
	return ControlRecord{
		ActiveCamera: CameraID(binary.LittleEndian.Uint32(buf[0:])),
		Generation:   binary.LittleEndian.Uint32(buf[4:]),
	}
}

// CreateControlRegion creates /pet_camera_control, owned by the switch
// controller, initialised to the uninitialised sentinel.
func CreateControlRegion() (*LatestRegion, error) {
	r, err := CreateLatest(RegionControl, ControlRecordSize)
	if err != nil {
		return nil, err
	}
	r.PublishLatest(ControlRecord{ActiveCamera: UninitialisedCamera}.Encode())
	return r, nil
}

// OpenControlRegion attaches a capture pipeline (or any consumer) to the
// control region.
func OpenControlRegion() (*LatestRegion, error) {
	return OpenLatest(RegionControl, ControlRecordSize)
}
