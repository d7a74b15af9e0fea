// Package annexb scans H.264 Annex-B byte streams: locating NAL unit
// start codes, classifying units by type, and tracking the SPS/PPS
// pair needed to decode a sub-sequence starting mid-stream.
package annexb

import "fmt"

// NAL unit types this package cares about (ITU-T H.264 Table 7-1).
const (
	NALTypeNonIDR = 1
	NALTypeIDR    = 5
	NALTypeSEI    = 6
	NALTypeSPS    = 7
	NALTypePPS    = 8
)

// Unit is one NAL unit as found in an Annex-B stream: its type and its
// bytes with the start code removed. Emulation-prevention bytes are left
// in place (the RBSP is not unescaped).
type Unit struct {
	Type    int
	Payload []byte // header byte plus RBSP, start code excluded
}

// IsSlice reports whether u carries picture data (IDR or non-IDR).
func (u Unit) IsSlice() bool {
	return u.Type == NALTypeNonIDR || u.Type == NALTypeIDR
}

// IsKeyframe reports whether u is an IDR slice.
func (u Unit) IsKeyframe() bool {
	return u.Type == NALTypeIDR
}

func nalType(header byte) int {
	return int(header & 0x1F)
}

// Scan splits an Annex-B access unit (or a run of access units) into its
// constituent NAL units, grounded on the pack's h264parser.SplitNALUs
// three/four-byte start-code walk, simplified to the single Annex-B case
// this pipeline ever emits or consumes (the encoder never produces AVCC).
func Scan(stream []byte) ([]Unit, error) {
	starts := findStartCodes(stream)
	if len(starts) == 0 {
		return nil, fmt.Errorf("annexb: no start code found in %d byte stream", len(stream))
	}

	units := make([]Unit, 0, len(starts))
	for i, s := range starts {
		end := len(stream)
		if i+1 < len(starts) {
			end = starts[i+1].codeStart
		}
		payload := stream[s.payloadStart:end]
		if len(payload) == 0 {
			continue
		}
		units = append(units, Unit{
			Type:    nalType(payload[0]),
			Payload: payload,
		})
	}
	return units, nil
}

type startCode struct {
	codeStart    int // index of the first 0x00 of the start code
	payloadStart int // index of the NAL header byte following it
}

// findStartCodes locates every 3-byte (00 00 01) or 4-byte (00 00 00 01)
// start code in stream, preferring the longer match when both align.
func findStartCodes(stream []byte) []startCode {
	var codes []startCode
	for i := 0; i+2 < len(stream); i++ {
		if stream[i] != 0 || stream[i+1] != 0 {
			continue
		}
		if stream[i+2] == 1 {
			codes = append(codes, startCode{codeStart: i, payloadStart: i + 3})
			i += 2
			continue
		}
		if i+3 < len(stream) && stream[i+2] == 0 && stream[i+3] == 1 {
			codes = append(codes, startCode{codeStart: i, payloadStart: i + 4})
			i += 3
		}
	}
	return codes
}

// Tracker remembers the most recent SPS/PPS seen on a stream, so a
// consumer that joins mid-stream (or a sub-sequence export that starts
// at an arbitrary IDR) can prepend them and produce a self-decodable
// access unit.
type Tracker struct {
	sps []byte
	pps []byte
}

// Observe updates the tracker with every SPS/PPS unit found in units.
func (t *Tracker) Observe(units []Unit) {
	for _, u := range units {
		switch u.Type {
		case NALTypeSPS:
			t.sps = append([]byte(nil), u.Payload...)
		case NALTypePPS:
			t.pps = append([]byte(nil), u.Payload...)
		}
	}
}

// Ready reports whether both SPS and PPS have been observed.
func (t *Tracker) Ready() bool {
	return t.sps != nil && t.pps != nil
}

// SPS and PPS return the most recently observed parameter sets.
func (t *Tracker) SPS() []byte { return t.sps }
func (t *Tracker) PPS() []byte { return t.pps }

var startCode4 = []byte{0x00, 0x00, 0x00, 0x01}

// PrependParameterSets builds a self-decodable access unit out of a
// keyframe slice by prefixing the tracked SPS/PPS, each with its own
// start code. Returns an error if the tracker has not yet observed both.
func (t *Tracker) PrependParameterSets(idrPayload []byte) ([]byte, error) {
	if !t.Ready() {
		return nil, fmt.Errorf("annexb: no SPS/PPS observed yet")
	}
	out := make([]byte, 0, len(startCode4)*3+len(t.sps)+len(t.pps)+len(idrPayload))
	out = append(out, startCode4...)
	out = append(out, t.sps...)
	out = append(out, startCode4...)
	out = append(out, t.pps...)
	out = append(out, startCode4...)
	out = append(out, idrPayload...)
	return out, nil
}

// ExtractFromKeyframe scans a full access unit and, if it contains a
// keyframe, returns a self-decodable sub-sequence starting at that
// keyframe (spec §8 round-trip law: "a sub-sequence starting at any IDR,
// prefixed with the tracked SPS/PPS, decodes independently"). ok is
// false if the access unit carries no IDR.
func (t *Tracker) ExtractFromKeyframe(accessUnit []byte) (sub []byte, ok bool, err error) {
	units, err := Scan(accessUnit)
	if err != nil {
		return nil, false, err
	}
	t.Observe(units)

	for _, u := range units {
		if u.Type == NALTypeIDR {
			sub, err = t.PrependParameterSets(u.Payload)
			return sub, err == nil, err
		}
	}
	return nil, false, nil
}
