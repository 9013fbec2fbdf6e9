package ai

import (
	"errors"
	"fmt"
)

const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 1500
)

// ErrInvalidParams reports generation parameters outside their allowed range.
var ErrInvalidParams = errors.New("invalid generation parameters")

// Params are the per-call generation settings.
type Params struct {
	Temperature     float32
	MaxOutputTokens int
}

// DefaultParams returns the compiled-in generation settings.
func DefaultParams() Params {
	return Params{Temperature: DefaultTemperature, MaxOutputTokens: DefaultMaxOutputTokens}
}

// Validate checks temperature is within [0,1] and the token limit is positive.
func (p Params) Validate() error {
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f outside [0,1]", ErrInvalidParams, p.Temperature)
	}
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("%w: max output tokens must be positive, got %d", ErrInvalidParams, p.MaxOutputTokens)
	}
	return nil
}
