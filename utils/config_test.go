package utils

import (
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	config := &Config{}
	config.applyDefaults()

	if config.Service.MaxWidth != DefaultMaxWidth || config.Service.MaxHeight != DefaultMaxHeight {
		t.Errorf("unexpected shape limits %dx%d", config.Service.MaxWidth, config.Service.MaxHeight)
	}
	if config.Service.WCSTimeout != DefaultWCSTimeout {
		t.Errorf("unexpected timeout %d", config.Service.WCSTimeout)
	}

	// a config without an interpolations table still accepts the
	// default INTERPOLATION of nearest neighbor
	if config.WCS.Interpolations["nearest neighbor"] != "near" {
		t.Errorf("nearest neighbor must map to near, got %v", config.WCS.Interpolations)
	}
	if config.WCS.Interpolations["bicubic"] != "cubic" {
		t.Errorf("bicubic must map to cubic, got %v", config.WCS.Interpolations)
	}
}

func TestConfigKeepsExplicitInterpolations(t *testing.T) {
	config := &Config{}
	config.WCS.Interpolations = map[string]string{"bilinear": "bilinear"}
	config.applyDefaults()

	if len(config.WCS.Interpolations) != 1 {
		t.Errorf("explicit interpolations must not be extended, got %v", config.WCS.Interpolations)
	}
}
