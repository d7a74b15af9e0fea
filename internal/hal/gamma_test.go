package hal

import "testing"

func TestBandForBoundaries(t *testing.T) {
	cases := []struct {
		brightness uint8
		want       BrightnessBand
	}{
		{0, Band0to20},
		{20, Band0to20},
		{21, Band20to35},
		{35, Band20to35},
		{36, Band35to50},
		{50, Band35to50},
		{51, Band50to65},
		{65, Band50to65},
		{66, Band65to80},
		{79, Band65to80},
		{80, Band80Plus},
		{255, Band80Plus},
	}
	for _, c := range cases {
		if got := BandFor(c.brightness); got != c.want {
			t.Errorf("BandFor(%d) = %d, want %d", c.brightness, got, c.want)
		}
	}
}

func TestApplyGammaIdentityAboveThreshold(t *testing.T) {
	g := NewGammaLUTs()
	original := []byte{0, 10, 50, 128, 200, 255}
	y := append([]byte(nil), original...)

	g.ApplyGamma(y, 80)
	for i := range y {
		if y[i] != original[i] {
			t.Fatalf("brightness>=80 must be identity, got %v want %v", y, original)
		}
	}

	g.ApplyGamma(y, 200)
	for i := range y {
		if y[i] != original[i] {
			t.Fatalf("brightness=200 must be identity, got %v want %v", y, original)
		}
	}
}

func TestApplyGammaBrightensDarkScenes(t *testing.T) {
	g := NewGammaLUTs()
	y := []byte{64} // mid-low brightness
	g.ApplyGamma(y, 10)
	if y[0] <= 64 {
		t.Fatalf("a sub-1.0 gamma on a dark band should brighten non-zero input, got %d", y[0])
	}
}

func TestApplyGammaNeverOverflows(t *testing.T) {
	g := NewGammaLUTs()
	for band := 0; band < len(bandGammas); band++ {
		table := g.Table(BrightnessBand(band))
		for _, v := range table {
			if v > 255 {
				t.Fatalf("LUT entry overflowed a byte: %d", v)
			}
		}
	}
	// Identity band must literally be the identity permutation.
	identity := g.Table(Band80Plus)
	for i := 0; i < 256; i++ {
		if identity[i] != byte(i) {
			t.Fatalf("Band80Plus table is not the identity at %d: got %d", i, identity[i])
		}
	}
}
