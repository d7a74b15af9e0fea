package hal

import "math"

// BrightnessBand buckets a 0-255 brightness average into one of six bands,
// per spec §4.2: "six bands from ≤20 to ≥80".
type BrightnessBand int

const (
	Band0to20 BrightnessBand = iota
	Band20to35
	Band35to50
	Band50to65
	Band65to80
	Band80Plus
)

var bandGammas = [...]float64{0.40, 0.50, 0.60, 0.75, 0.85, 1.00}

var bandThresholds = [...]uint8{20, 35, 50, 65, 80}

// BandFor classifies a brightness average into its gamma band. 80 and
// above always resolves to Band80Plus (the identity table), matching
// ApplyGamma's own early-return threshold.
func BandFor(brightnessAvg uint8) BrightnessBand {
	if brightnessAvg >= 80 {
		return Band80Plus
	}
	for i, t := range bandThresholds {
		if brightnessAvg <= t {
			return BrightnessBand(i)
		}
	}
	return Band80Plus
}

// GammaLUTs holds one precomputed 256-entry lookup table per brightness
// band. Built once at process startup (spec §4.2): no third-party numerics
// library in the retrieved pack specializes in LUT generation for a
// six-entry power-law table, so this one piece stays on the standard
// library's math.Pow — recorded in DESIGN.md.
type GammaLUTs struct {
	tables [len(bandGammas)][256]byte
}

// NewGammaLUTs builds all six tables: lut[i] = round(((i/255)^gamma)*255).
func NewGammaLUTs() *GammaLUTs {
	g := &GammaLUTs{}
	for bandIdx, gamma := range bandGammas {
		for i := 0; i < 256; i++ {
			norm := float64(i) / 255.0
			v := math.Round(math.Pow(norm, gamma) * 255.0)
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			g.tables[bandIdx][i] = byte(v)
		}
	}
	return g
}

// Table returns the LUT for a given brightness band. Band80Plus is the
// identity mapping (gamma 1.00).
func (g *GammaLUTs) Table(band BrightnessBand) *[256]byte {
	return &g.tables[band]
}

// ApplyGamma rewrites yPlane in place using the LUT selected by
// brightnessAvg. A brightnessAvg of 80 or above selects the identity LUT
// and the loop is skipped entirely (spec §4.2 and the round-trip law in
// spec §8: "Adaptive-gamma applied with brightness >= 80 is the identity
// on the Y plane"). Only the Y plane is touched; chroma is untouched by
// construction since callers pass only yPlane, never the UV plane.
func (g *GammaLUTs) ApplyGamma(yPlane []byte, brightnessAvg uint8) {
	if brightnessAvg >= 80 {
		return
	}
	lut := g.Table(BandFor(brightnessAvg))
	for i, v := range yPlane {
		yPlane[i] = lut[v]
	}
}
