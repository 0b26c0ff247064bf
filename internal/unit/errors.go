// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package unit

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyArtifact     = errors.New("empty build artifact name")
	ErrMissingEntryPoint = errors.New("entry point not set")
	ErrBuilderReused     = errors.New("builder already built")
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrUnknownEntryPoint = errors.New("unknown entry point")
	ErrEmptyUnitName     = errors.New("empty unit name")
	ErrIncompleteUnit    = errors.New("unit declared without a built descriptor")
	ErrDuplicateUnit     = errors.New("duplicate unit name")
	ErrDuplicateArtifact = errors.New("duplicate build artifact name")
	ErrUnknownReference  = errors.New("reference to undeclared unit")
)

// ConfigurationError marks a catalog that is invalid regardless of any build
// attempt. Kind is one of the sentinel errors above.
type ConfigurationError struct {
	Kind error
	Msg  string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return "configuration error: " + e.Kind.Error()
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Kind.Error(), e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Kind }

// Configf builds a ConfigurationError of the given kind.
func Configf(kind error, format string, args ...any) error {
	return &ConfigurationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
