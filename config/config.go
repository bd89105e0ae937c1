// Package config provides the typed (object, key) configuration lookup used by
// every Configurable component, backed by a TOML file loaded with Viper.
package config

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ConfigurationError is raised synchronously from Load or from a strict
// accessor (one called without a default) on a missing key or a value that
// cannot be coerced to the requested type. It is the one error kind that
// aborts startup.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

func newConfigErr(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// Configuration is a typed view over a nested TOML document, addressed by
// (object, key) pairs the way the rest of the core names its sections.
type Configuration struct {
	v *viper.Viper
}

// Load reads and parses the TOML file at path.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, newConfigErr("config: failed to read %q: %v", path, err)
	}
	return &Configuration{v: v}, nil
}

func compositeKey(object, name string) string {
	return object + "." + name
}

func (c *Configuration) lookup(object, name string) (interface{}, bool) {
	k := compositeKey(object, name)
	if !c.v.IsSet(k) {
		return nil, false
	}
	return c.v.Get(k), true
}

// GetFloat returns a required float configuration value, or a ConfigurationError
// if the key is missing or not coercible to float64.
func (c *Configuration) GetFloat(object, name string) (float64, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return 0, newConfigErr("[%s]: %q is not defined", object, name)
	}
	f, err := cast.ToFloat64E(val)
	if err != nil {
		return 0, newConfigErr("[%s]: %q is not a float: %v", object, name, err)
	}
	return f, nil
}

// GetFloatDefault returns a float configuration value, or def if the key is
// missing or not coercible to float64.
func (c *Configuration) GetFloatDefault(object, name string, def float64) float64 {
	f, err := c.GetFloat(object, name)
	if err != nil {
		return def
	}
	return f
}

// GetInt returns a required int configuration value, or a ConfigurationError if
// the key is missing or not coercible to int.
func (c *Configuration) GetInt(object, name string) (int, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return 0, newConfigErr("[%s]: %q is not defined", object, name)
	}
	i, err := cast.ToIntE(val)
	if err != nil {
		return 0, newConfigErr("[%s]: %q is not an int: %v", object, name, err)
	}
	return i, nil
}

// GetIntDefault returns an int configuration value, or def if the key is
// missing or not coercible to int.
func (c *Configuration) GetIntDefault(object, name string, def int) int {
	i, err := c.GetInt(object, name)
	if err != nil {
		return def
	}
	return i
}

// GetString returns a required string configuration value, or a
// ConfigurationError if the key is missing or not a string.
func (c *Configuration) GetString(object, name string) (string, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return "", newConfigErr("[%s]: %q is not defined", object, name)
	}
	s, err := cast.ToStringE(val)
	if err != nil {
		return "", newConfigErr("[%s]: %q is not a string: %v", object, name, err)
	}
	return s, nil
}

// GetStringDefault returns a string configuration value, or def if the key is
// missing or not a string.
func (c *Configuration) GetStringDefault(object, name string, def string) string {
	s, err := c.GetString(object, name)
	if err != nil {
		return def
	}
	return s
}

// GetFloatList returns a required []float64 configuration value.
func (c *Configuration) GetFloatList(object, name string) ([]float64, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return nil, newConfigErr("[%s]: %q is not defined", object, name)
	}
	raw, err := cast.ToSliceE(val)
	if err != nil {
		return nil, newConfigErr("[%s]: %q is not a list: %v", object, name, err)
	}
	out := make([]float64, len(raw))
	for i, item := range raw {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, newConfigErr("[%s]: %q[%d] is not a float: %v", object, name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// GetFloatListDefault returns a []float64 configuration value, or def if the
// key is missing or malformed.
func (c *Configuration) GetFloatListDefault(object, name string, def []float64) []float64 {
	l, err := c.GetFloatList(object, name)
	if err != nil {
		return def
	}
	return l
}

// GetIntList returns a required []int configuration value.
func (c *Configuration) GetIntList(object, name string) ([]int, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return nil, newConfigErr("[%s]: %q is not defined", object, name)
	}
	raw, err := cast.ToSliceE(val)
	if err != nil {
		return nil, newConfigErr("[%s]: %q is not a list: %v", object, name, err)
	}
	out := make([]int, len(raw))
	for i, item := range raw {
		v, err := cast.ToIntE(item)
		if err != nil {
			return nil, newConfigErr("[%s]: %q[%d] is not an int: %v", object, name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// GetIntListDefault returns a []int configuration value, or def if the key is
// missing or malformed.
func (c *Configuration) GetIntListDefault(object, name string, def []int) []int {
	l, err := c.GetIntList(object, name)
	if err != nil {
		return def
	}
	return l
}

// GetStringList returns a required []string configuration value.
func (c *Configuration) GetStringList(object, name string) ([]string, error) {
	val, ok := c.lookup(object, name)
	if !ok {
		return nil, newConfigErr("[%s]: %q is not defined", object, name)
	}
	out, err := cast.ToStringSliceE(val)
	if err != nil {
		return nil, newConfigErr("[%s]: %q is not a list of strings: %v", object, name, err)
	}
	return out, nil
}

// GetStringListDefault returns a []string configuration value, or def if the
// key is missing or malformed.
func (c *Configuration) GetStringListDefault(object, name string, def []string) []string {
	l, err := c.GetStringList(object, name)
	if err != nil {
		return def
	}
	return l
}
