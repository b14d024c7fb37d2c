package scoring

import (
	"errors"
	"testing"

	"github.com/sahayog-network/sahayog/internal/domain"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := DefaultWeights().Sum(); got != 1.0 {
		t.Errorf("default weights sum = %v, want 1.0", got)
	}
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w.Repayment = 0.50 // sum now 1.10
	err := w.Validate()
	if !errors.Is(err, domain.ErrBadWeights) {
		t.Fatalf("err = %v, want ErrBadWeights", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative grace", func(c *Config) { c.GracePeriodDays = -1 }},
		{"zero tenure ceiling", func(c *Config) { c.TenureCeilingMonths = 0 }},
		{"zero vouch ceiling", func(c *Config) { c.VouchCeilingCount = 0 }},
		{"zero volume ceiling", func(c *Config) { c.LoanVolumeCeilingAmount = 0 }},
		{"cold start above max", func(c *Config) { c.ColdStartScore = 1001 }},
		{"cold start negative", func(c *Config) { c.ColdStartScore = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
