// Package color builds legends for layer collections.
//
// Each strategy implements Colorizer. A non-empty interpretation always
// produces one discrete entry per code; otherwise the strategy bins the
// collection's values:
//
//   - EqualBin splits the padded value range into equal-width bins.
//   - Quantile places bin bounds at empirical quantiles, optionally split
//     around zero with a second palette for negative values.
//   - Custom assigns palettes to groups of labels and defers value layers to
//     another strategy.
package color

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/palette"
)

// DefaultBins is the number of value bins when none is configured.
const DefaultBins = 8

// Colorizer creates a legend covering every layer in a collection.
type Colorizer interface {
	CreateLegend(ctx context.Context, layers []*layer.Layer, interp layer.Interpretation) (legend.Legend, error)
}

// Strategy names accepted by New.
const (
	StrategyEqualBin = "equal"
	StrategyQuantile = "quantile"
	StrategyCustom   = "custom"
)

// Config selects and parameterizes a colorizer.
type Config struct {
	Strategy        string
	Bins            int
	Palette         string
	NegativePalette string
	Groups          []Group
	MemoryLimit     int64
	MaxRetries      int
	Seed            uint64
	Logger          *log.Logger
}

// New builds the colorizer named by cfg.Strategy. An empty strategy selects
// equal bins, or quantiles when a negative palette is configured.
func New(cfg Config) (Colorizer, error) {
	strategy := strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if strategy == "" {
		strategy = StrategyEqualBin
		if cfg.NegativePalette != "" {
			strategy = StrategyQuantile
		}
	}
	if cfg.Bins < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "bins must be positive, got %d", cfg.Bins)
	}
	for _, name := range []string{cfg.Palette, cfg.NegativePalette} {
		if name != "" && !palette.Exists(name) {
			return nil, errors.New(errors.ErrCodeInvalidPalette, "unknown palette %q", name)
		}
	}

	switch strategy {
	case StrategyEqualBin:
		return &EqualBin{Bins: cfg.Bins, Palette: cfg.Palette}, nil
	case StrategyQuantile:
		return &Quantile{
			Bins:            cfg.Bins,
			Palette:         cfg.Palette,
			NegativePalette: cfg.NegativePalette,
			MemoryLimit:     cfg.MemoryLimit,
			MaxRetries:      cfg.MaxRetries,
			Seed:            cfg.Seed,
			Logger:          cfg.Logger,
		}, nil
	case StrategyCustom:
		var value Colorizer
		if cfg.NegativePalette != "" {
			value = &Quantile{
				Bins:            cfg.Bins,
				Palette:         cfg.Palette,
				NegativePalette: cfg.NegativePalette,
				MemoryLimit:     cfg.MemoryLimit,
				MaxRetries:      cfg.MaxRetries,
				Seed:            cfg.Seed,
				Logger:          cfg.Logger,
			}
		}
		return &Custom{Groups: cfg.Groups, Palette: cfg.Palette, Value: value}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown colorizer %q (want %s, %s or %s)",
		cfg.Strategy, StrategyEqualBin, StrategyQuantile, StrategyCustom)
}

func paletteOr(name string) string {
	if name == "" {
		return palette.Default
	}
	return name
}

func binsOr(n int) int {
	if n <= 0 {
		return DefaultBins
	}
	return n
}

// Interpreted returns one discrete entry per code, codes ascending, colored
// from paletteName sized to the number of codes.
func Interpreted(interp layer.Interpretation, paletteName string) (legend.Legend, error) {
	codes := interp.Codes()
	colors, err := palette.Colors(paletteOr(paletteName), len(codes))
	if err != nil {
		return nil, err
	}
	lg := make(legend.Legend, len(codes))
	for i, code := range codes {
		lg[i] = legend.Discrete(float64(code), colors[i], interp[code])
	}
	return lg, nil
}

func collectionRange(layers []*layer.Layer) (lo, hi float64, err error) {
	if len(layers) == 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "no layers to colorize")
	}
	for i, l := range layers {
		mn, mx, err := l.MinMax()
		if err != nil {
			return 0, 0, err
		}
		if i == 0 || mn < lo {
			lo = mn
		}
		if i == 0 || mx > hi {
			hi = mx
		}
	}
	return lo, hi, nil
}
