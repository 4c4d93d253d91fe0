package fuzzer

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxHeightTooSmall is returned when the height budget cannot fit
	// even the smallest tree of the grammar.
	ErrMaxHeightTooSmall = errors.New("maxHeight too small")
	// ErrNoFiniteTree is returned when the start symbol derives no finite
	// tree at all.
	ErrNoFiniteTree = errors.New("start symbol derives no finite tree")
)

// ConfigError describes an unusable generator configuration.
type ConfigError struct {
	MaxHeight int
	Required  int // 0 when no budget suffices
}

func (e *ConfigError) Error() string {
	if e.Required == 0 {
		return "the given grammar has no finite derivation from its start symbol"
	}
	return fmt.Sprintf("maxHeight too small (the given grammar requires a maxHeight of at least %d)", e.Required)
}

func (e *ConfigError) Unwrap() error {
	if e.Required == 0 {
		return ErrNoFiniteTree
	}
	return ErrMaxHeightTooSmall
}
