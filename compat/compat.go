// Package compat keeps site configurations written for the pre-1.0
// static-i18n plugin working with the current i18n plugin.
//
// The old plugin was configured with a mapping keyed by locale and a
// separate default_language key:
//
//	plugins:
//	  - static-i18n:
//	      default_language: en
//	      languages:
//	        en: {name: English}
//	        fr: {name: Français, build: true}
//
// The adapter registers itself under the old name, rewrites such options into
// the current languages sequence and hands them to the current loader.
// Options already in the current schema are passed through untouched.
package compat

import (
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/i18ncompat/i18nconfig"
	"github.com/minios-linux/i18ncompat/plugin"
	"github.com/minios-linux/i18ncompat/plugincfg"
)

// Name is the legacy plugin name the adapter is registered under.
const Name = "static-i18n"

// DefaultLanguage is assumed when a legacy configuration has no default_language.
const DefaultLanguage = "en"

// Option keys touched by the adapter.
const (
	keyLanguages           = "languages"
	keyDefaultLanguage     = "default_language"
	keyDocsStructure       = "docs_structure"
	keyFallbackToDefault   = "fallback_to_default"
	keyReconfigureMaterial = "reconfigure_material"
	keyReconfigureSearch   = "reconfigure_search"
)

func init() {
	plugin.Register(Name, func() plugin.ConfigLoader {
		return New(i18nconfig.Loader{})
	})
}

// Adapter rewrites legacy options before delegating to the wrapped loader.
type Adapter struct {
	next plugin.ConfigLoader
}

var _ plugin.ConfigLoader = (*Adapter)(nil)

// New returns an adapter delegating to next.
func New(next plugin.ConfigLoader) *Adapter {
	return &Adapter{next: next}
}

// LoadConfig rewrites opts in place when they use the legacy schema and
// returns whatever the wrapped loader returns for them. Errors from the
// wrapped loader are returned unchanged.
func (a *Adapter) LoadConfig(opts *plugincfg.Options, filePath string) (*i18nconfig.Config, error) {
	if opts != nil {
		Migrate(opts)
	}
	return a.next.LoadConfig(opts, filePath)
}

// IsLegacy reports whether opts hold a locale-keyed languages mapping.
func IsLegacy(opts *plugincfg.Options) bool {
	_, ok := Sniff(opts).(LegacyLanguages)
	return ok
}

// Migrate rewrites legacy options into the current schema in place and
// reports whether it did. Options in any other shape are left alone.
//
// A default_language that names none of the locales leaves every entry
// with default: false; deciding whether that is acceptable is up to the loader.
func Migrate(opts *plugincfg.Options) bool {
	legacy, ok := Sniff(opts).(LegacyLanguages)
	if !ok {
		return false
	}

	// A null or non-scalar default_language matches no locale.
	defaultLang := DefaultLanguage
	matchDefault := true
	if v, ok := opts.Pop(keyDefaultLanguage); ok {
		defaultLang = v.Value
		matchDefault = v.Kind == yaml.ScalarNode && !plugincfg.IsNull(v)
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, e := range legacy.Entries {
		seq.Content = append(seq.Content, e.record(matchDefault && e.Locale == defaultLang))
	}
	opts.Set(keyLanguages, seq)

	opts.SetDefault(keyDocsStructure, plugincfg.String("folder"))
	opts.SetDefault(keyFallbackToDefault, plugincfg.Bool(true))
	// The material reconfiguration conflicts with navigation.instant.
	opts.SetDefault(keyReconfigureMaterial, plugincfg.Bool(false))
	opts.SetDefault(keyReconfigureSearch, plugincfg.Bool(true))
	return true
}

// record builds the current-schema entry for e.
func (e LegacyEntry) record(isDefault bool) *yaml.Node {
	name := plugincfg.String(e.Locale)
	build := plugincfg.Bool(true)
	var nav *yaml.Node

	if e.Record != nil && e.Record.Kind == yaml.MappingNode {
		fields, _ := plugincfg.FromNode(e.Record)
		if v, ok := fields.Get("name"); ok {
			name = v
		}
		if v, ok := fields.Get("build"); ok {
			build = v
		}
		if v, ok := fields.Get("nav_translations"); ok && plugincfg.Truthy(v) {
			nav = v
		}
	}

	out := plugincfg.New()
	out.Set("locale", plugincfg.String(e.Locale))
	out.Set("name", name)
	out.Set("build", build)
	out.Set("default", plugincfg.Bool(isDefault))
	if nav != nil {
		out.Set("nav_translations", nav)
	}
	return out.Node()
}
