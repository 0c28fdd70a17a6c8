package stitch

import (
	"testing"

	"go.viam.com/test"
)

func TestNewConfigFromAttributes(t *testing.T) {
	conf, err := NewConfigFromAttributes(map[string]interface{}{
		"ransac": map[string]interface{}{
			"iterations":   50,
			"tolerance_px": 1.5,
		},
		"scale":    map[string]interface{}{"x": 4, "y": 2},
		"weighted": true,
		"offset_x": 12.0,
		"seed":     7,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.RANSAC.Iterations, test.ShouldEqual, 50)
	test.That(t, conf.RANSAC.Tolerance, test.ShouldEqual, 1.5)
	test.That(t, conf.RANSAC.SampleSize, test.ShouldEqual, 4)
	test.That(t, conf.RANSAC.ConsensusRatio, test.ShouldEqual, 0.8)
	test.That(t, conf.Scale, test.ShouldResemble, ScaleFactor{X: 4, Y: 2})
	test.That(t, conf.Weighted, test.ShouldBeTrue)
	test.That(t, conf.OffsetX, test.ShouldEqual, 12.0)
	test.That(t, conf.Seed, test.ShouldEqual, int64(7))
	test.That(t, conf.DepthLevels, test.ShouldEqual, 5)

	conf, err = NewConfigFromAttributes(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *conf, test.ShouldResemble, DefaultConfig())

	_, err = NewConfigFromAttributes(map[string]interface{}{"colour": "red"})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewConfigFromAttributes(map[string]interface{}{"depth_levels": 0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "depth_levels")

	_, err = NewConfigFromAttributes(map[string]interface{}{"ransac": map[string]interface{}{"sample_size": 2}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stitch.ransac")
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig()
	test.That(t, conf.Validate("path"), test.ShouldBeNil)

	conf.Scale.X = 0
	err := conf.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "scale.x")

	conf = DefaultConfig()
	conf.Fill = 0
	test.That(t, conf.Validate("path"), test.ShouldNotBeNil)

	conf = DefaultConfig()
	conf.RatioTest = 0
	test.That(t, conf.Validate("path"), test.ShouldNotBeNil)
}
