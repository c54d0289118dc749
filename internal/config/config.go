// Package config loads the host application's YAML configuration file
// into the typed options consumed by cmd/switchctl.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration document. Fields the core does not
// interpret (Multiview's enabled flag, grid layout and media URL) are
// decoded and exposed verbatim; the core never validates them.
type Config struct {
	// SwitcherIP is the destination for the switcher's UDP control
	// socket. The remote port is fixed at 9910 by the wire protocol,
	// not configurable here.
	SwitcherIP string `yaml:"switcher_ip"`

	// PTZCameras lists the configured PTZ cameras and their mapping
	// to switcher input indices.
	PTZCameras []PTZCamera `yaml:"ptz_cameras"`

	// InputNames is an ordered mapping of human labels to switcher
	// video input indices, passed through to the UI collaborator.
	InputNames []InputName `yaml:"input_names_to_indices"`

	// AudioLevelLimitsDB bounds the decibel conversion floor used by
	// the switcher client's AMLv decoder.
	AudioLevelLimitsDB AudioLevelLimits `yaml:"audio_level_limits_db"`

	// Multiview is passed through uninterpreted to the UI collaborator.
	Multiview Multiview `yaml:"multiview"`
}

// PTZCamera is one configured camera entry.
type PTZCamera struct {
	DisplayName        string `yaml:"display_name"`
	IP                 string `yaml:"ip"`
	Port               int    `yaml:"port"`
	SwitcherInputIndex int    `yaml:"switcher_input_index"`
}

// InputName pairs a human label with a switcher input index.
type InputName struct {
	Name  string `yaml:"name"`
	Index int    `yaml:"index"`
}

// AudioLevelLimits bounds the decibel scale reported to the UI.
type AudioLevelLimits struct {
	Min  float64 `yaml:"min"`
	Warn float64 `yaml:"warn"`
	High float64 `yaml:"high"`
	Max  float64 `yaml:"max"`
}

// Multiview is passed verbatim to the UI collaborator; the core does
// not interpret any of it.
type Multiview struct {
	Enabled  bool           `yaml:"enabled"`
	MediaURL string         `yaml:"media_url"`
	Grid     map[string]any `yaml:"grid"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// validate checks that required fields are present and that camera
// ports lie in [1, 65535]; a missing or
// malformed option at start-up is fatal for the caller. Fields the
// core does not interpret (Multiview) are never validated.
func (c Config) validate() error {
	if c.SwitcherIP == "" {
		return fmt.Errorf("config: switcher_ip is required")
	}
	for i, cam := range c.PTZCameras {
		if cam.IP == "" {
			return fmt.Errorf("config: ptz_cameras[%d]: ip is required", i)
		}
		if cam.Port <= 0 || cam.Port > 65535 {
			return fmt.Errorf("config: ptz_cameras[%d]: port %d out of range", i, cam.Port)
		}
	}
	return nil
}
