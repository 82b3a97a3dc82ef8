// Package config provides reusable environment-variable loaders with
// validation and automatic fallback to defaults. Loading never fails: invalid
// values produce warnings and the default, so a bad deployment variable can
// degrade a setting but not take the process down.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult represents the result of loading a configuration value.
// It contains the loaded value, any warnings generated during loading, and a
// flag indicating whether a fallback value was used.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString loads a string value from an environment variable. If the
// variable is not set, the default value is returned. No validation is
// performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value from an environment variable with
// validation and automatic fallback to the default on validation failure.
// The validator may be nil to skip validation.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: value}
}

// LoadEnvDuration loads a duration value (time.ParseDuration syntax) from an
// environment variable with parsing, validation and fallback.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
			envKey, valueStr, err, defaultValue)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
				envKey, valueStr, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: parsed}
}

// LoadEnvInt loads an integer value from an environment variable with
// parsing, validation and fallback.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	parsed, err := strconv.Atoi(valueStr)
	if err != nil {
		warning := fmt.Sprintf("Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey, valueStr, defaultValue)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%d'",
				envKey, valueStr, err, defaultValue)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: parsed}
}
