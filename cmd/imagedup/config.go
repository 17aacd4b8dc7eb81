package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

// fileConfig is the optional YAML config file. Every field has a working
// default; flags set on the command line win over file values.
type fileConfig struct {
	DB        string `yaml:"db"`
	Threshold *int   `yaml:"threshold"`
	Algorithm string `yaml:"algorithm"`
	HashSize  int    `yaml:"hash_size"`
	KeepBest  *bool  `yaml:"keep_best"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyTo merges the file values into an engine config and returns the DB
// path override, if any.
func (fc *fileConfig) applyTo(cfg *imagedup.Config) (string, error) {
	if fc == nil {
		return "", nil
	}
	if fc.Algorithm != "" {
		algo, err := imagedup.ParseAlgorithm(fc.Algorithm)
		if err != nil {
			return "", err
		}
		cfg.Algorithm = algo
	}
	if fc.Threshold != nil {
		cfg.Threshold = *fc.Threshold
		if *fc.Threshold == 0 {
			cfg.Threshold = -1 // explicit zero means exact matching
		}
	}
	if fc.HashSize > 0 {
		cfg.HashSize = fc.HashSize
	}
	if fc.KeepBest != nil {
		cfg.KeepFirst = !*fc.KeepBest
	}
	if fc.BatchSize > 0 {
		cfg.BatchSize = fc.BatchSize
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	return fc.DB, nil
}
