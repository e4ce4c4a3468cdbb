// Package units defines the carbon units GCBM rasters and results are reported in.
package units

import (
	"sort"
	"strings"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Units describes how a value relates to tonnes of carbon.
//
// Scale is the number of tonnes one unit represents. PerArea marks values
// expressed per hectare.
type Units struct {
	Scale   float64
	PerArea bool
	Label   string
}

var (
	Blank    = Units{Scale: 1, PerArea: false, Label: ""}
	Tc       = Units{Scale: 1, PerArea: false, Label: "tC/yr"}
	Ktc      = Units{Scale: 1e3, PerArea: false, Label: "KtC/yr"}
	Mtc      = Units{Scale: 1e6, PerArea: false, Label: "MtC/yr"}
	TcPerHa  = Units{Scale: 1, PerArea: true, Label: "tC/ha/yr"}
	KtcPerHa = Units{Scale: 1e3, PerArea: true, Label: "KtC/ha/yr"}
	MtcPerHa = Units{Scale: 1e6, PerArea: true, Label: "MtC/ha/yr"}
)

var byName = map[string]Units{
	"blank":    Blank,
	"tc":       Tc,
	"ktc":      Ktc,
	"mtc":      Mtc,
	"tcperha":  TcPerHa,
	"ktcperha": KtcPerHa,
	"mtcperha": MtcPerHa,
}

// Parse looks up units by name, ignoring case: "TcPerHa", "mtc", "Blank".
func Parse(name string) (Units, error) {
	u, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Units{}, errors.New(errors.ErrCodeInvalidUnits, "unknown units %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return u, nil
}

// MustParse is like Parse but panics on unknown names. Intended for tests
// and package-level defaults.
func MustParse(name string) Units {
	u, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return u
}

// Names returns the canonical unit names in display form.
func Names() []string {
	names := []string{"Blank", "Tc", "Ktc", "Mtc", "TcPerHa", "KtcPerHa", "MtcPerHa"}
	sort.Strings(names)
	return names
}

// Name returns the canonical name of u, or "" if u is not a table entry.
func (u Units) Name() string {
	for _, n := range Names() {
		if byName[strings.ToLower(n)] == u {
			return n
		}
	}
	return ""
}

// String returns the display label.
func (u Units) String() string {
	if u.Label == "" {
		return "none"
	}
	return u.Label
}

// ConversionFactor returns the multiplier taking values in u to values in
// target, ignoring any per-area difference.
func (u Units) ConversionFactor(target Units) float64 {
	return u.Scale / target.Scale
}

// UnmarshalText lets Units be decoded from config files by name.
func (u *Units) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalText encodes Units by canonical name.
func (u Units) MarshalText() ([]byte, error) {
	name := u.Name()
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidUnits, "units %+v have no name", u)
	}
	return []byte(name), nil
}
