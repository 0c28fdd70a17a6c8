package stitch

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/panorama/logging"
	"go.viam.com/panorama/rimage/transform"
)

// Config describes how a panorama is put together.
type Config struct {
	RANSAC transform.RANSACConfig `json:"ransac"`
	// RatioTest is the nearest/second-nearest threshold applied to descriptor matches.
	RatioTest float64     `json:"ratio_test"`
	Scale     ScaleFactor `json:"scale"`
	OffsetX   float64     `json:"offset_x"`
	OffsetY   float64     `json:"offset_y"`
	Fill      int         `json:"fill"`
	// Weighted blends overlapping views instead of drawing them over each other.
	Weighted bool `json:"weighted"`
	// DepthLevels is the number of depth layers used by StitchLayered.
	DepthLevels int `json:"depth_levels"`
	// Seed seeds the sampler when the caller does not provide one.
	Seed int64 `json:"seed"`
	// LogConfiguration sets the levels of the "ransac" and "compositor" subloggers.
	LogConfiguration []logging.LoggerPatternConfig `json:"log,omitempty"`
}

// DefaultConfig returns the configuration used for any attribute that is not set.
func DefaultConfig() Config {
	return Config{
		RANSAC:      transform.DefaultRANSACConfig(),
		RatioTest:   0.75,
		Scale:       ScaleFactor{X: 3, Y: 2},
		Fill:        2,
		DepthLevels: 5,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if err := cfg.RANSAC.Validate(path + ".ransac"); err != nil {
		return err
	}
	if !(cfg.RatioTest > 0 && cfg.RatioTest <= 1) {
		return goutils.NewConfigValidationError(path, errors.Errorf("ratio_test must be in (0, 1], got %v", cfg.RatioTest))
	}
	if cfg.Scale.X == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "scale.x")
	}
	if cfg.Scale.Y == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "scale.y")
	}
	if cfg.Scale.X < 0 || cfg.Scale.Y < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("scale must be positive, got %+v", cfg.Scale))
	}
	if cfg.Fill < 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("fill must be at least 1, got %d", cfg.Fill))
	}
	if cfg.DepthLevels < 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("depth_levels must be at least 1, got %d", cfg.DepthLevels))
	}
	for i, lc := range cfg.LogConfiguration {
		if err := lc.Validate(); err != nil {
			return goutils.NewConfigValidationError(fmt.Sprintf("%s.log.%d", path, i), err)
		}
	}
	return nil
}

// NewConfigFromAttributes decodes an attribute map, as found in a JSON config file, over
// DefaultConfig and validates the result.
func NewConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "cannot decode stitch attributes")
	}
	if err := conf.Validate("stitch"); err != nil {
		return nil, err
	}
	return &conf, nil
}
