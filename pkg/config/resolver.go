package config

import (
	"errors"
	"fmt"
)

// ConfigResolver resolves configuration values from multiple sources with precedence
type ConfigResolver struct {
	sources []ConfigSource
	errs    []error
}

func NewConfigResolver(sources ...ConfigSource) *ConfigResolver {
	return &ConfigResolver{sources: sources}
}

// ResolveString resolves string value from sources in order of precedence
func (r *ConfigResolver) ResolveString(key, defaultValue string) string {
	for _, source := range r.sources {
		if value, found := source.GetString(key); found {
			return value
		}
	}
	return defaultValue
}

// ResolveInt resolves int value from sources in order of precedence
func (r *ConfigResolver) ResolveInt(key string, defaultValue int) int {
	for _, source := range r.sources {
		if value, found := source.GetInt(key); found {
			return value
		}
		if raw, set := source.GetString(key); set {
			r.errs = append(r.errs, &UserError{Key: key, Reason: fmt.Sprintf("must be an integer, got %q", raw)})
			return defaultValue
		}
	}
	return defaultValue
}

// ResolveBool resolves bool value from sources in order of precedence
func (r *ConfigResolver) ResolveBool(key string, defaultValue bool) bool {
	for _, source := range r.sources {
		if value, found := source.GetBool(key); found {
			return value
		}
		if raw, set := source.GetString(key); set {
			r.errs = append(r.errs, &UserError{Key: key, Reason: fmt.Sprintf("must be true or false, got %q", raw)})
			return defaultValue
		}
	}
	return defaultValue
}

// Err reports every value that was set but could not be parsed.
func (r *ConfigResolver) Err() error {
	return errors.Join(r.errs...)
}
