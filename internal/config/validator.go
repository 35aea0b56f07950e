package config

import (
	"errors"
	"fmt"

	"github.com/codanna/codanna/internal/errs"
)

// Validator validates configuration and sets smart defaults.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Returns a *errs.ConfigError wrapping the first failure found.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProject(&cfg.Project); err != nil {
		return errs.NewConfigError("project", cfg.Project.Root, err)
	}
	if err := v.validateIndex(&cfg.Index); err != nil {
		return errs.NewConfigError("index", "", err)
	}
	if err := v.validatePerformance(&cfg.Performance); err != nil {
		return errs.NewConfigError("performance", "", err)
	}
	if err := v.validateEmbedding(&cfg.Embedding); err != nil {
		return errs.NewConfigError("embedding", cfg.Embedding.ModelID, err)
	}

	SetSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProject(p *Project) error {
	if p.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateIndex(idx *Index) error {
	if idx.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", idx.MaxFileSize)
	}
	if idx.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", idx.MaxFileSize)
	}
	if idx.MaxFileCount <= 0 {
		return fmt.Errorf("MaxFileCount must be positive, got %d", idx.MaxFileCount)
	}
	if idx.WatchDebounceMs < 0 {
		return fmt.Errorf("WatchDebounceMs cannot be negative, got %d", idx.WatchDebounceMs)
	}
	return nil
}

func (v *Validator) validatePerformance(perf *Performance) error {
	if perf.ParallelFileWorkers < 0 {
		return fmt.Errorf("ParallelFileWorkers cannot be negative, got %d", perf.ParallelFileWorkers)
	}
	if perf.IndexingTimeoutSec <= 0 {
		return fmt.Errorf("IndexingTimeoutSec must be positive, got %d", perf.IndexingTimeoutSec)
	}
	return nil
}

func (v *Validator) validateEmbedding(e *Embedding) error {
	if e.Enabled && e.Dimensions <= 0 {
		return fmt.Errorf("Dimensions must be positive when embedding is enabled, got %d", e.Dimensions)
	}
	return nil
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
