package chat

import (
	"math"
	"slices"
	"time"
)

const DefaultModel = "gpt-3.5-turbo"

// MaxBackoff caps a single retry wait.
const MaxBackoff = 24 * time.Hour

// Options is the fixed configuration a Generator is bound to.
type Options struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryGrowthFactor float64
	RequestTimeout    time.Duration
	TransientStatus   []int
}

func DefaultOptions() Options {
	return Options{
		Model:             DefaultModel,
		MaxTokens:         500,
		Temperature:       0.2,
		MaxRetries:        5,
		RetryBaseDelay:    20 * time.Second,
		RetryGrowthFactor: 2,
		RequestTimeout:    20 * time.Second,
		TransientStatus:   slices.Clone(DefaultTransientStatus),
	}
}

func (o Options) Validate() error {
	switch {
	case o.Model == "":
		return &ConfigurationError{Field: "model", Reason: "must not be empty"}
	case o.MaxTokens < 1:
		return &ConfigurationError{Field: "max_tokens", Reason: "must be at least 1"}
	case o.Temperature < 0 || o.Temperature > 2:
		return &ConfigurationError{Field: "temperature", Reason: "must be between 0 and 2"}
	case o.MaxRetries < 0:
		return &ConfigurationError{Field: "max_retries", Reason: "must not be negative"}
	case o.RetryBaseDelay < 0:
		return &ConfigurationError{Field: "retry_base_delay", Reason: "must not be negative"}
	case o.RetryGrowthFactor < 1:
		return &ConfigurationError{Field: "retry_growth_factor", Reason: "must be at least 1"}
	case o.RequestTimeout < 0:
		return &ConfigurationError{Field: "request_timeout", Reason: "must not be negative"}
	}
	return nil
}

// Backoff returns the wait before retry number attempt+1:
// RetryBaseDelay + RetryGrowthFactor^attempt seconds, saturating at
// MaxBackoff.
func (o Options) Backoff(attempt int) time.Duration {
	growth := math.Pow(o.RetryGrowthFactor, float64(attempt))
	d := float64(o.RetryBaseDelay) + growth*float64(time.Second)
	if math.IsNaN(d) || d >= float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(d)
}
