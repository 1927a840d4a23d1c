package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

type personaFile struct {
	DefaultPreset string                `yaml:"default_preset"`
	Presets       []orchestrator.Preset `yaml:"presets"`
}

// loadPersonaConfig reads a preset roster and its declared default from a
// yaml file, in the same shape config/personas.yaml ships.
func loadPersonaConfig(path string) ([]orchestrator.Preset, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read persona config: %w", err)
	}

	var pf personaFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, "", fmt.Errorf("parse persona config: %w", err)
	}

	return pf.Presets, pf.DefaultPreset, nil
}
