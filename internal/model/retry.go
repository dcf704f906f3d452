package model

import "time"

// RetryConfig defines retry behavior for upstream calls
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	Jitter            bool          `json:"jitter" yaml:"jitter"`
}

// AnnotationRetry is the body of a single-result retry. An empty prompt is a
// quick retry; a custom prompt makes it a guided retry.
type AnnotationRetry struct {
	CustomPrompt string `json:"custom_prompt,omitempty"`
}
