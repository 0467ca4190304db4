package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ConfigSource represents a source of configuration values
type ConfigSource interface {
	GetString(key string) (string, bool)
	GetInt(key string) (int, bool)
	GetBool(key string) (bool, bool)
}

// EnvSource implements ConfigSource for environment variables
type EnvSource struct{}

func (e *EnvSource) GetString(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

func (e *EnvSource) GetInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i, true
	}
	return 0, false
}

func (e *EnvSource) GetBool(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b, true
	}
	return false, false
}

// FlagSource implements ConfigSource for command-line flags
type FlagSource struct {
	values map[string]interface{}
}

func NewFlagSource() *FlagSource {
	return &FlagSource{values: make(map[string]interface{})}
}

func (f *FlagSource) Set(key string, value interface{}) {
	f.values[key] = value
}

func (f *FlagSource) GetString(key string) (string, bool) {
	if value, exists := f.values[key]; exists {
		if str, ok := value.(string); ok && str != "" {
			return str, true
		}
	}
	return "", false
}

func (f *FlagSource) GetInt(key string) (int, bool) {
	if value, exists := f.values[key]; exists {
		if i, ok := value.(int); ok {
			return i, true
		}
	}
	return 0, false
}

func (f *FlagSource) GetBool(key string) (bool, bool) {
	if value, exists := f.values[key]; exists {
		if b, ok := value.(bool); ok {
			return b, true
		}
	}
	return false, false
}

// FileSource implements ConfigSource for a YAML config file read with viper.
// File keys are the lower-cased environment names without the binary prefix,
// so PEAKMON_CHANNEL_COUNT is read from "channel_count".
type FileSource struct {
	v    *viper.Viper
	used string
}

// NewFileSource reads path when given, otherwise searches the default locations
// for name.yaml. A missing file in the search locations is not an error.
func NewFileSource(path, name string) (*FileSource, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "peakmeter"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return &FileSource{v: v}, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return &FileSource{v: v, used: v.ConfigFileUsed()}, nil
}

// Used returns the config file that was read, or "" when none was found.
func (f *FileSource) Used() string { return f.used }

func fileKey(key string) string {
	if i := strings.IndexByte(key, '_'); i >= 0 {
		key = key[i+1:]
	}
	return strings.ToLower(key)
}

func (f *FileSource) GetString(key string) (string, bool) {
	k := fileKey(key)
	if !f.v.IsSet(k) {
		return "", false
	}
	value := f.v.GetString(k)
	return value, value != ""
}

func (f *FileSource) GetInt(key string) (int, bool) {
	k := fileKey(key)
	if !f.v.IsSet(k) {
		return 0, false
	}
	i, err := cast.ToIntE(f.v.Get(k))
	if err != nil {
		return 0, false
	}
	return i, true
}

func (f *FileSource) GetBool(key string) (bool, bool) {
	k := fileKey(key)
	if !f.v.IsSet(k) {
		return false, false
	}
	b, err := cast.ToBoolE(f.v.Get(k))
	if err != nil {
		return false, false
	}
	return b, true
}
