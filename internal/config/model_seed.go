package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultModelSeedFile is consulted when MODEL_SEED_FILE is unset.
const DefaultModelSeedFile = "models.yaml"

// SeedModel describes one catalog entry bootstrapped at startup.
type SeedModel struct {
	Model        string `yaml:"model"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	IsImage      bool   `yaml:"is_image"`
	HasReasoning bool   `yaml:"has_reasoning"`
}

// ModelSeed is the parsed model catalog seed.
type ModelSeed struct {
	Models []SeedModel `yaml:"models"`
}

// defaultModelSeed mirrors the catalog the product ships with.
var defaultModelSeed = ModelSeed{
	Models: []SeedModel{
		{
			Model:       "google/gemini-2.0-flash-001",
			Name:        "Gemini 2.0 Flash",
			Description: "Fast general-purpose model",
		},
		{
			Model:       "openai/gpt-4o-mini",
			Name:        "GPT-4o mini",
			Description: "Low-cost general-purpose model",
		},
		{
			Model:        "deepseek/deepseek-r1",
			Name:         "DeepSeek R1",
			Description:  "Reasoning model with a separate thinking channel",
			HasReasoning: true,
		},
		{
			Model:       "gpt-image-1",
			Name:        "GPT Image 1",
			Description: "Image generation model",
			IsImage:     true,
		},
	},
}

// LoadModelSeed reads the model catalog seed from path. A missing file is
// not an error; the built-in default catalog is returned instead.
func LoadModelSeed(path string) (*ModelSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			seed := defaultModelSeed
			return &seed, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var seed ModelSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(seed.Models) == 0 {
		return nil, fmt.Errorf("model seed %s contains no models", path)
	}
	for i, m := range seed.Models {
		if m.Model == "" {
			return nil, fmt.Errorf("model seed %s: entry %d is missing the provider model id", path, i)
		}
	}
	return &seed, nil
}
