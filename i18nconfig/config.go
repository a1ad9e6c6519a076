// Package i18nconfig loads and validates the options of the i18n
// documentation plugin in its current (1.x) schema:
//
//	plugins:
//	  - i18n:
//	      docs_structure: folder
//	      languages:
//	        - locale: en
//	          name: English
//	          default: true
//	        - locale: fr
//	          name: Français
//
// The loader performs strict decoding (unknown keys are rejected), applies
// the plugin defaults and checks the cross-field rules. It knows nothing
// about the legacy schema.
package i18nconfig

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/i18ncompat/plugincfg"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// Docs structures understood by the plugin.
const (
	DocsStructureFolder = "folder"
	DocsStructureSuffix = "suffix"
)

// Config is the validated plugin configuration.
type Config struct {
	DocsStructure       string     `yaml:"docs_structure"`
	FallbackToDefault   bool       `yaml:"fallback_to_default"`
	ReconfigureMaterial bool       `yaml:"reconfigure_material"`
	ReconfigureSearch   bool       `yaml:"reconfigure_search"`
	Languages           []Language `yaml:"languages"`

	// FilePath is the configuration file the options came from, if known.
	FilePath string `yaml:"-"`
}

// Language is one entry of the languages sequence.
type Language struct {
	Locale          string            `yaml:"locale"`
	Name            string            `yaml:"name"`
	Build           bool              `yaml:"build"`
	Default         bool              `yaml:"default"`
	Link            string            `yaml:"link,omitempty"`
	FixedLink       string            `yaml:"fixed_link,omitempty"`
	SiteName        string            `yaml:"site_name,omitempty"`
	NavTranslations map[string]string `yaml:"nav_translations,omitempty"`
}

// DefaultLanguage returns the language marked as default.
func (c *Config) DefaultLanguage() (Language, bool) {
	for _, l := range c.Languages {
		if l.Default {
			return l, true
		}
	}
	return Language{}, false
}

// rawConfig mirrors Config with pointers so absent keys can be told apart
// from explicit zero values.
type rawConfig struct {
	DocsStructure       *string       `yaml:"docs_structure"`
	FallbackToDefault   *bool         `yaml:"fallback_to_default"`
	ReconfigureMaterial *bool         `yaml:"reconfigure_material"`
	ReconfigureSearch   *bool         `yaml:"reconfigure_search"`
	Languages           []rawLanguage `yaml:"languages"`
}

type rawLanguage struct {
	Locale          string            `yaml:"locale"`
	Name            *string           `yaml:"name"`
	Build           *bool             `yaml:"build"`
	Default         *bool             `yaml:"default"`
	Link            string            `yaml:"link"`
	FixedLink       string            `yaml:"fixed_link"`
	SiteName        string            `yaml:"site_name"`
	NavTranslations map[string]string `yaml:"nav_translations"`
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrInvalid is matched by every validation error returned by Load.
var ErrInvalid = errors.New("invalid i18n plugin configuration")

// Error lists the problems found in one configuration.
type Error struct {
	FilePath string
	Problems []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("i18n plugin configuration")
	if e.FilePath != "" {
		fmt.Fprintf(&b, " in %s", e.FilePath)
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(e.Problems, "; "))
	return b.String()
}

func (e *Error) Unwrap() error { return ErrInvalid }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Loader is the plain loader for the current schema.
type Loader struct{}

// LoadConfig implements plugin.ConfigLoader.
func (Loader) LoadConfig(opts *plugincfg.Options, filePath string) (*Config, error) {
	return Load(opts, filePath)
}

// Load decodes and validates opts. filePath is used for error context only.
func Load(opts *plugincfg.Options, filePath string) (*Config, error) {
	if opts == nil {
		opts = plugincfg.New()
	}

	// Node.Decode has no strict mode, so round-trip through a Decoder.
	data, err := opts.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding i18n options: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, &Error{FilePath: filePath, Problems: []string{decodeProblem(err)}}
	}

	cfg := &Config{
		DocsStructure:       stringOr(raw.DocsStructure, DocsStructureSuffix),
		FallbackToDefault:   boolOr(raw.FallbackToDefault, true),
		ReconfigureMaterial: boolOr(raw.ReconfigureMaterial, true),
		ReconfigureSearch:   boolOr(raw.ReconfigureSearch, true),
		FilePath:            filePath,
	}
	for _, rl := range raw.Languages {
		cfg.Languages = append(cfg.Languages, Language{
			Locale:          rl.Locale,
			Name:            stringOr(rl.Name, rl.Locale),
			Build:           boolOr(rl.Build, true),
			Default:         boolOr(rl.Default, false),
			Link:            rl.Link,
			FixedLink:       rl.FixedLink,
			SiteName:        rl.SiteName,
			NavTranslations: rl.NavTranslations,
		})
	}

	if problems := cfg.validate(); len(problems) > 0 {
		return nil, &Error{FilePath: filePath, Problems: problems}
	}
	return cfg, nil
}

func (c *Config) validate() []string {
	var problems []string

	switch c.DocsStructure {
	case DocsStructureFolder, DocsStructureSuffix:
	default:
		problems = append(problems, fmt.Sprintf("docs_structure: %q is not one of %q, %q",
			c.DocsStructure, DocsStructureFolder, DocsStructureSuffix))
	}

	if len(c.Languages) == 0 {
		return append(problems, "languages: at least one language is required")
	}

	seen := make(map[string]bool, len(c.Languages))
	var defaults []string
	for i, l := range c.Languages {
		if l.Locale == "" {
			problems = append(problems, fmt.Sprintf("languages[%d]: locale is required", i))
			continue
		}
		if seen[l.Locale] {
			problems = append(problems, fmt.Sprintf("languages[%d]: duplicate locale %q", i, l.Locale))
		}
		seen[l.Locale] = true
		if l.Default {
			defaults = append(defaults, l.Locale)
		}
	}

	switch len(defaults) {
	case 1:
	case 0:
		problems = append(problems, "languages: exactly one language must be marked default, none is")
	default:
		problems = append(problems, fmt.Sprintf("languages: exactly one language must be marked default, got %s",
			strings.Join(defaults, ", ")))
	}
	return problems
}

// decodeProblem strips the "yaml: " prefixes from decoder errors.
func decodeProblem(err error) string {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return strings.Join(te.Errors, "; ")
	}
	return strings.TrimPrefix(err.Error(), "yaml: ")
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
