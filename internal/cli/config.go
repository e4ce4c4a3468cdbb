package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/pipeline"
)

// animationConfig is the animation config file:
//
//	[render]
//	fps = 2
//	palette = "Greens"
//
//	[[indicator]]
//	database_indicator = "NPP"
//	file_pattern = "NPP_*.tiff"
//	title = "Net Primary Production"
type animationConfig struct {
	Render     pipeline.RenderOptions      `toml:"render"`
	Indicators []pipeline.IndicatorOptions `toml:"indicator"`
}

// loadConfig reads a TOML config, or the indicator array format when the
// file ends in .json.
func loadConfig(path string) (*animationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}

	var cfg animationConfig
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if cfg.Indicators, err = parseJSONIndicators(data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
		}
	} else {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	}
	if len(cfg.Indicators) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s configures no indicators", path)
	}
	return &cfg, nil
}

// jsonIndicator accepts file_pattern either as a string or as a
// [pattern, units] pair.
type jsonIndicator struct {
	pipeline.IndicatorOptions
	FilePattern json.RawMessage `json:"file_pattern"`
}

func parseJSONIndicators(data []byte) ([]pipeline.IndicatorOptions, error) {
	var raw []jsonIndicator
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]pipeline.IndicatorOptions, len(raw))
	for i, r := range raw {
		opts := r.IndicatorOptions
		if len(r.FilePattern) > 0 {
			var pattern string
			if err := json.Unmarshal(r.FilePattern, &pattern); err == nil {
				opts.FilePattern = pattern
			} else {
				var pair []string
				if err := json.Unmarshal(r.FilePattern, &pair); err != nil || len(pair) != 2 {
					return nil, errors.New(errors.ErrCodeInvalidConfig,
						"indicator %d: file_pattern must be a string or [pattern, units]", i+1)
				}
				opts.FilePattern, opts.FileUnits = pair[0], pair[1]
			}
		}
		out[i] = opts
	}
	return out, nil
}
