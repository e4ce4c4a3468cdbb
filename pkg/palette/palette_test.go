package palette

import (
	"image/color"
	"slices"
	"testing"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

func TestColorsCount(t *testing.T) {
	for _, name := range Names() {
		for _, n := range []int{1, 3, 8, 15} {
			cs, err := Colors(name, n)
			if err != nil {
				t.Fatalf("Colors(%q, %d): %v", name, n, err)
			}
			if len(cs) != n {
				t.Errorf("Colors(%q, %d) returned %d colors", name, n, len(cs))
			}
			for _, c := range cs {
				if c.A != 255 {
					t.Errorf("Colors(%q) produced non-opaque %v", name, c)
				}
			}
		}
	}
}

func TestHLSDistinct(t *testing.T) {
	cs := MustColors("hls", 8)
	seen := map[color.RGBA]bool{}
	for _, c := range cs {
		if seen[c] {
			t.Errorf("duplicate hls color %v", c)
		}
		seen[c] = true
	}
	// First hue sits just past red.
	if cs[0].R < cs[0].G || cs[0].R < cs[0].B {
		t.Errorf("first hls color should be reddish, got %v", cs[0])
	}
}

func TestRampIsOrderedLightToDark(t *testing.T) {
	cs := MustColors("Greens", 5)
	lum := func(c color.RGBA) int { return int(c.R) + int(c.G) + int(c.B) }
	for i := 1; i < len(cs); i++ {
		if lum(cs[i]) >= lum(cs[i-1]) {
			t.Errorf("Greens should darken: %v then %v", cs[i-1], cs[i])
		}
	}
	// Interior sampling never returns the near-white end stop.
	if cs[0] == (color.RGBA{0xf7, 0xfc, 0xf5, 255}) {
		t.Error("ramp sampling should skip the lightest stop")
	}
}

func TestReversed(t *testing.T) {
	fwd := MustColors("Reds", 4)
	rev := MustColors("Reds_r", 4)
	slices.Reverse(rev)
	if !slices.Equal(fwd, rev) {
		t.Errorf("Reds_r should reverse Reds: %v vs %v", fwd, rev)
	}
}

func TestQualitativeCycles(t *testing.T) {
	cs := MustColors("Set2", 10)
	if cs[0] != cs[8] {
		t.Errorf("qualitative palettes should cycle: %v vs %v", cs[0], cs[8])
	}
}

func TestUnknownPalette(t *testing.T) {
	for _, name := range []string{"Nope", "", "bad name"} {
		_, err := Colors(name, 3)
		if err == nil {
			t.Errorf("Colors(%q) should fail", name)
		}
	}
	_, err := Colors("Nope", 3)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown palette code = %v", errors.GetCode(err))
	}
	if Exists("Nope") || !Exists("viridis_r") {
		t.Error("Exists mismatch")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"white", color.RGBA{255, 255, 255, 255}, false},
		{"", color.RGBA{255, 255, 255, 255}, false},
		{"#ff0000", color.RGBA{255, 0, 0, 255}, false},
		{"Black", color.RGBA{0, 0, 0, 255}, false},
		{"chartreuse-ish", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
