package annexb

import (
	"bytes"
	"testing"
)

func buildAccessUnit(types []byte) []byte {
	var buf bytes.Buffer
	for _, t := range types {
		buf.Write([]byte{0x00, 0x00, 0x00, 0x01})
		buf.WriteByte((3 << 5) | (t & 0x1F))
		buf.Write([]byte{0xAB, 0xCD, 0xEF})
	}
	return buf.Bytes()
}

func TestScanSplitsUnitsByType(t *testing.T) {
	stream := buildAccessUnit([]byte{NALTypeSPS, NALTypePPS, NALTypeIDR})
	units, err := Scan(stream)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	if units[0].Type != NALTypeSPS || units[1].Type != NALTypePPS || units[2].Type != NALTypeIDR {
		t.Fatalf("unexpected types: %+v", units)
	}
	if !units[2].IsKeyframe() || !units[2].IsSlice() {
		t.Fatalf("expected unit 2 to be a keyframe slice")
	}
	if units[0].IsSlice() {
		t.Fatalf("SPS must not be classified as a slice")
	}
}

func TestScanSupportsThreeByteStartCode(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x01, (3 << 5) | NALTypeNonIDR, 0x11, 0x22}
	units, err := Scan(stream)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(units) != 1 || units[0].Type != NALTypeNonIDR {
		t.Fatalf("unexpected units: %+v", units)
	}
}

func TestScanNoStartCodeErrors(t *testing.T) {
	if _, err := Scan([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatalf("expected an error for a stream with no start code")
	}
}

func TestTrackerExtractFromKeyframeRoundTrips(t *testing.T) {
	stream := buildAccessUnit([]byte{NALTypeSPS, NALTypePPS, NALTypeIDR})
	var tr Tracker
	sub, ok, err := tr.ExtractFromKeyframe(stream)
	if err != nil {
		t.Fatalf("ExtractFromKeyframe: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true for a stream containing an IDR")
	}

	units, err := Scan(sub)
	if err != nil {
		t.Fatalf("Scan(sub): %v", err)
	}
	if units[0].Type != NALTypeSPS || units[1].Type != NALTypePPS || units[2].Type != NALTypeIDR {
		t.Fatalf("extracted sub-sequence missing SPS/PPS/IDR ordering: %+v", units)
	}
}

func TestTrackerExtractFromKeyframeNoIDR(t *testing.T) {
	stream := buildAccessUnit([]byte{NALTypeNonIDR})
	var tr Tracker
	_, ok, err := tr.ExtractFromKeyframe(stream)
	if err != nil {
		t.Fatalf("ExtractFromKeyframe: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a stream with no IDR")
	}
}

func TestTrackerPrependParameterSetsRequiresBothSets(t *testing.T) {
	var tr Tracker
	if _, err := tr.PrependParameterSets([]byte{0x01}); err == nil {
		t.Fatalf("expected an error before any SPS/PPS observed")
	}
	tr.Observe([]Unit{{Type: NALTypeSPS, Payload: []byte{0x42}}})
	if tr.Ready() {
		t.Fatalf("tracker should not be ready with only SPS observed")
	}
	tr.Observe([]Unit{{Type: NALTypePPS, Payload: []byte{0xce}}})
	if !tr.Ready() {
		t.Fatalf("tracker should be ready once both SPS and PPS observed")
	}
}
