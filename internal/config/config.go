// Package config loads the optional fspatch YAML file: extra variants,
// which variants to run, and logging.
//
// Example:
//
//	debug: false
//	variants: [fs-nocntchk, my-check]
//	custom:
//	  - name: my-check
//	    pattern: "..0036........1f.0071..0054"
//	    ceiling: 0x80000
//	    decode_words: 5
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"fspatch/internal/heuristic"
	"fspatch/internal/search"
)

// ErrInvalidConfig is returned when the file parses but does not validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of the configuration file.
type Config struct {
	Debug    bool            `yaml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Variants []string        `yaml:"variants,omitempty" json:"variants,omitempty" validate:"dive,required" jsonschema:"title=Variants,description=Names of the variants to run; empty runs all"`
	Custom   []VariantConfig `yaml:"custom,omitempty" json:"custom,omitempty" validate:"dive" jsonschema:"title=Custom Variants,description=Additional or overriding variant definitions"`
}

// VariantConfig is one variant definition in the file.
type VariantConfig struct {
	Name        string        `yaml:"name" json:"name" validate:"required" jsonschema:"title=Name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`
	Pattern     string        `yaml:"pattern" json:"pattern" validate:"required,pattern" jsonschema:"title=Pattern,description=Hex bytes; '.' is a wildcard byte and '?' a wildcard nibble"`
	Adjust      int           `yaml:"adjust,omitempty" json:"adjust,omitempty" jsonschema:"title=Adjust,description=Added to every match offset"`
	Ceiling     int           `yaml:"ceiling,omitempty" json:"ceiling,omitempty" validate:"gte=0" jsonschema:"title=Ceiling,description=Matches above this raw offset are dropped; 0 disables"`
	Proximity   int           `yaml:"proximity,omitempty" json:"proximity,omitempty" validate:"gte=0" jsonschema:"title=Proximity,description=Narrowing window; 0 means 0xffff"`
	DecodeWords int           `yaml:"decode_words,omitempty" json:"decode_words,omitempty" validate:"gte=0,lte=64" jsonschema:"title=Decode Words"`
	Priority    int           `yaml:"priority,omitempty" json:"priority,omitempty" jsonschema:"title=Priority,description=Lower runs first when narrowing"`
	Branch      *BranchConfig `yaml:"branch,omitempty" json:"branch,omitempty" jsonschema:"title=Branch Follow"`
}

// BranchConfig mirrors heuristic.Branch.
type BranchConfig struct {
	WordIndex int    `yaml:"word_index" json:"word_index" validate:"gte=0" jsonschema:"title=Word Index"`
	FieldMask uint32 `yaml:"field_mask" json:"field_mask" validate:"required" jsonschema:"title=Field Mask"`
	Scale     int    `yaml:"scale" json:"scale" validate:"gt=0" jsonschema:"title=Scale"`
	Window    int    `yaml:"window" json:"window" validate:"gt=0" jsonschema:"title=Window"`
	Words     int    `yaml:"words" json:"words" validate:"gte=0,lte=64" jsonschema:"title=Words"`
}

// validate is the validator instance for configuration types.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("pattern", validatePattern)
}

// validatePattern accepts strings that compile as search patterns.
func validatePattern(fl validator.FieldLevel) bool {
	_, err := search.Parse(fl.Field().String())
	return err == nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{}
}

// DefaultPath is $XDG_CONFIG_HOME/fspatch/fspatch.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user config directory: %w", err)
	}
	return filepath.Join(dir, "fspatch", "fspatch.yaml"), nil
}

// Load reads the file at path. With an empty path the default location is
// used and a missing file yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse the config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and variant references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	names := make(map[string]bool)
	for _, n := range heuristic.Names() {
		names[n] = true
	}
	custom := make(map[string]bool, len(c.Custom))
	for _, vc := range c.Custom {
		if custom[vc.Name] {
			return fmt.Errorf("%w: custom variant %q defined twice", ErrInvalidConfig, vc.Name)
		}
		custom[vc.Name] = true
		names[vc.Name] = true
	}
	for _, n := range c.Variants {
		if !names[n] {
			return fmt.Errorf("%w: unknown variant %q", ErrInvalidConfig, n)
		}
	}
	return nil
}

// Variant converts the definition to a heuristic.Variant.
func (vc VariantConfig) Variant() heuristic.Variant {
	v := heuristic.Variant{
		Name:        vc.Name,
		Description: vc.Description,
		Pattern:     vc.Pattern,
		Adjust:      vc.Adjust,
		Ceiling:     vc.Ceiling,
		Proximity:   vc.Proximity,
		DecodeWords: vc.DecodeWords,
		Priority:    vc.Priority,
	}
	if b := vc.Branch; b != nil {
		v.Branch = &heuristic.Branch{
			WordIndex: b.WordIndex,
			FieldMask: b.FieldMask,
			Scale:     b.Scale,
			Window:    b.Window,
			Words:     b.Words,
		}
	}
	return v
}

// ToVariants returns the built-in variants merged with the custom ones (a
// custom variant replaces a built-in of the same name), restricted to
// only when it is non-empty, or to c.Variants otherwise. Order follows the
// built-ins, then custom definitions.
func (c *Config) ToVariants(only ...string) ([]heuristic.Variant, error) {
	all := heuristic.Builtin()
	for _, vc := range c.Custom {
		v := vc.Variant()
		replaced := false
		for i := range all {
			if all[i].Name == v.Name {
				all[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			all = append(all, v)
		}
	}

	selection := only
	if len(selection) == 0 {
		selection = c.Variants
	}
	if len(selection) == 0 {
		return all, nil
	}

	byName := make(map[string]heuristic.Variant, len(all))
	for _, v := range all {
		byName[v.Name] = v
	}
	out := make([]heuristic.Variant, 0, len(selection))
	for _, n := range selection {
		v, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidConfig, n)
		}
		out = append(out, v)
	}
	return out, nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
