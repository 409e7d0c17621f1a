package lint

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ConfigError.
var (
	ErrRuleNotFound       = errors.New("rule not found")
	ErrMissingFiles       = errors.New("config must specify files")
	ErrUnresolvedRules    = errors.New("config rules must be resolved to a list before validation")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrDuplicateRule      = errors.New("duplicate rule name")
	ErrUnsupportedDialect = errors.New("unsupported database")
	ErrInvalidSetting     = errors.New("invalid rule setting")
)

// ErrRegistryFrozen is returned when a frozen registry is modified.
var ErrRegistryFrozen = errors.New("rule registry is frozen")

// ConfigError reports a configuration that cannot be resolved or fails
// validation.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RuleError reports a rule that failed while handling a statement.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
