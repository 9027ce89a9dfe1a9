package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Environment prefixes, e.g. PEAKFINDER_SEARCH_MAX_ITERATIONS or
// PEAKFINDER_SIM_DRIVE_SPEED.
const (
	EnvPrefix    = "PEAKFINDER"
	SimEnvPrefix = "PEAKFINDER_SIM"
)

// NewViper returns a viper instance reading PEAKFINDER_* environment
// variables, with nested keys joined by underscores.
func NewViper() *viper.Viper {
	return newViper(EnvPrefix)
}

// NewSimViper is NewViper for the terrain simulator's PEAKFINDER_SIM_*
// variables.
func NewSimViper() *viper.Viper {
	return newViper(SimEnvPrefix)
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the YAML file at path into v. An empty path is a no-op; a
// path that was given but cannot be read is an error.
func ReadFile(v *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config file %q is a directory", path)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	return nil
}

// Load registers every field of defaults as a viper default and decodes the
// merged result (defaults < file < env < flags). Every field is registered,
// so the result is decoded into a zero value and slices are never merged.
func Load[T any](v *viper.Viper, defaults T) (T, error) {
	var out T
	if err := setDefaults(v, defaults); err != nil {
		return defaults, err
	}
	if err := v.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

// Dump renders cfg as YAML, the same shape ReadFile accepts.
func Dump(cfg any) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func setDefaults(v *viper.Viper, defaults any) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
