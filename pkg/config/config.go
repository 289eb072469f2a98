package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	ini "gopkg.in/ini.v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Config holds the options parsed from the benchmark INI file, with the
// defaults of the schema applied.
type Config struct {
	file   *ini.File
	schema Schema
}

// New returns a configuration holding only the defaults of the schema.
func New(schema Schema) *Config {
	c := &Config{file: ini.Empty(), schema: schema}
	c.applyDefaults()
	return c
}

// ParseFile parses the configuration from the given INI file
func ParseFile(configFile string, schema Schema) (*Config, error) {
	bytes, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
	}
	c, err := Parse(bytes, schema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", configFile)
	}
	return c, nil
}

// Parse parses the configuration from INI formatted data
func Parse(data []byte, schema Schema) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal INI")
	}
	c := &Config{file: f, schema: schema}
	// validate parsed config
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

// validate rejects sections and keys the schema doesn't know about and
// required options that are absent
func (c *Config) validate() error {
	for _, sec := range c.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			if keys := sec.Keys(); len(keys) > 0 {
				return UnknownOptionError(ini.DefaultSection, keys[0].Name())
			}
			continue
		}
		if !c.schema.hasSection(sec.Name()) {
			return UnknownOptionError(sec.Name(), "")
		}
		for _, key := range sec.Keys() {
			if _, ok := c.schema.lookup(sec.Name(), key.Name()); !ok {
				return UnknownOptionError(sec.Name(), key.Name())
			}
		}
	}

	for _, sec := range c.schema {
		for _, opt := range sec.Options {
			if !opt.Required {
				continue
			}
			if c.file.Section(sec.Name).Key(opt.Name).String() == "" {
				return OptionIsRequiredError(sec.Name, opt.Name)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	for _, sec := range c.schema {
		s := c.file.Section(sec.Name)
		for _, opt := range sec.Options {
			if s.HasKey(opt.Name) {
				continue
			}
			// NewKey only fails for empty names, which the schema never declares
			_, _ = s.NewKey(opt.Name, opt.Default)
		}
	}
}

// String returns the raw value of the option.
func (c *Config) String(section, key string) string {
	return c.file.Section(section).Key(key).String()
}

// Bool returns the option parsed as a boolean (TRUE/FALSE, yes/no, on/off, 1/0).
func (c *Config) Bool(section, key string) (bool, error) {
	v, err := c.file.Section(section).Key(key).Bool()
	if err != nil {
		return false, InvalidOptionError(section, key, err)
	}
	return v, nil
}

// Int returns the option parsed as an integer.
func (c *Config) Int(section, key string) (int, error) {
	v, err := c.file.Section(section).Key(key).Int()
	if err != nil {
		return 0, InvalidOptionError(section, key, err)
	}
	return v, nil
}

// Quantity returns the option parsed as a size in quantity notation
// (e.g. 2Mi, 47008, 1Gi), in bytes.
func (c *Config) Quantity(section, key string) (int64, error) {
	q, err := resource.ParseQuantity(c.String(section, key))
	if err != nil {
		return 0, InvalidOptionError(section, key, err)
	}
	return q.Value(), nil
}

// Hash returns a stable digest of the effective option values. Two runs with
// the same hash ran with the same configuration.
func (c *Config) Hash() string {
	h := sha256.New()
	for _, sec := range c.schema {
		for _, opt := range sec.Options {
			fmt.Fprintf(h, "%s.%s=%s\n", sec.Name, opt.Name, c.String(sec.Name, opt.Name))
		}
	}
	return fmt.Sprintf("%X", h.Sum(nil)[:8])
}

// PrintValues writes every supported option with its current value as an
// INI document, descriptions as comments.
func (c *Config) PrintValues(w io.Writer) error {
	for _, sec := range c.schema {
		if _, err := fmt.Fprintf(w, "[%s]\n", sec.Name); err != nil {
			return err
		}
		for _, opt := range sec.Options {
			if opt.Description != "" {
				if _, err := fmt.Fprintf(w, "; %s\n", opt.Description); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s = %s\n", opt.Name, c.String(sec.Name, opt.Name)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
