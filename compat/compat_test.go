package compat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minios-linux/i18ncompat/i18nconfig"
	"github.com/minios-linux/i18ncompat/plugin"
	"github.com/minios-linux/i18ncompat/plugincfg"
)

// recordingLoader captures what the adapter forwards.
type recordingLoader struct {
	opts     *plugincfg.Options
	filePath string
	calls    int

	cfg *i18nconfig.Config
	err error
}

func (r *recordingLoader) LoadConfig(opts *plugincfg.Options, filePath string) (*i18nconfig.Config, error) {
	r.calls++
	r.opts = opts
	r.filePath = filePath
	return r.cfg, r.err
}

func parse(t *testing.T, src string) *plugincfg.Options {
	t.Helper()
	opts, err := plugincfg.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return opts
}

func decode(t *testing.T, opts *plugincfg.Options) map[string]any {
	t.Helper()
	var m map[string]any
	if err := opts.Decode(&m); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return m
}

func TestLoadConfigLegacyScenario(t *testing.T) {
	opts := parse(t, `
languages:
  en:
    name: English
  fr: {}
default_language: en
`)
	next := &recordingLoader{cfg: &i18nconfig.Config{}}

	if _, err := New(next).LoadConfig(opts, "mkdocs.yml"); err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if next.opts != opts {
		t.Fatal("adapter did not forward the same options mapping")
	}

	want := map[string]any{
		"languages": []any{
			map[string]any{"locale": "en", "name": "English", "build": true, "default": true},
			map[string]any{"locale": "fr", "name": "fr", "build": true, "default": false},
		},
		"docs_structure":       "folder",
		"fallback_to_default":  true,
		"reconfigure_material": false,
		"reconfigure_search":   true,
	}
	if diff := cmp.Diff(want, decode(t, opts)); diff != "" {
		t.Fatalf("migrated options mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrateMissingDefaultLanguage(t *testing.T) {
	opts := parse(t, "languages:\n  de:\n    build: false\n")

	if !Migrate(opts) {
		t.Fatal("Migrate() = false for legacy options")
	}
	got := decode(t, opts)["languages"]
	want := []any{
		map[string]any{"locale": "de", "name": "de", "build": false, "default": false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestMigratePreservesOrderAndSingleDefault(t *testing.T) {
	opts := parse(t, `
default_language: pt-BR
languages:
  zh: {name: 中文}
  ru: {name: Русский}
  pt-BR: {name: Português}
  ar: {}
`)
	Migrate(opts)

	langs, ok := decode(t, opts)["languages"].([]any)
	if !ok {
		t.Fatalf("languages is not a sequence after Migrate")
	}
	var locales []string
	defaults := 0
	for _, l := range langs {
		rec := l.(map[string]any)
		locales = append(locales, rec["locale"].(string))
		if rec["default"] == true {
			defaults++
			if rec["locale"] != "pt-BR" {
				t.Fatalf("default marked on %v, want pt-BR", rec["locale"])
			}
		}
	}
	if diff := cmp.Diff([]string{"zh", "ru", "pt-BR", "ar"}, locales); diff != "" {
		t.Fatalf("locale order mismatch (-want +got):\n%s", diff)
	}
	if defaults != 1 {
		t.Fatalf("%d records marked default, want 1", defaults)
	}
	if opts.Has("default_language") {
		t.Fatal("default_language still present after Migrate")
	}
}

func TestMigrateUnmatchedDefaultLanguage(t *testing.T) {
	for _, src := range []string{
		"default_language: it\nlanguages:\n  en: {}\n  fr: {}\n",
		"default_language:\nlanguages:\n  en: {}\n",
		"default_language: [en]\nlanguages:\n  en: {}\n",
	} {
		opts := parse(t, src)
		Migrate(opts)
		for _, l := range decode(t, opts)["languages"].([]any) {
			if l.(map[string]any)["default"] != false {
				t.Fatalf("%q: record %v marked default", src, l)
			}
		}
	}
}

func TestMigrateRecordDefaults(t *testing.T) {
	cases := []struct {
		name   string
		record string
	}{
		{name: "empty mapping", record: "{}"},
		{name: "null", record: "null"},
		{name: "bare key", record: ""},
		{name: "scalar", record: "yes please"},
		{name: "empty nav_translations", record: "{nav_translations: {}}"},
		{name: "null nav_translations", record: "{nav_translations: null}"},
	}
	want := []any{
		map[string]any{"locale": "en", "name": "en", "build": true, "default": true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := parse(t, "languages:\n  en: "+tc.record+"\n")
			Migrate(opts)
			if diff := cmp.Diff(want, decode(t, opts)["languages"]); diff != "" {
				t.Fatalf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMigrateKeepsNavTranslations(t *testing.T) {
	opts := parse(t, `
languages:
  fr:
    name: Français
    build: false
    nav_translations:
      Home: Accueil
default_language: fr
`)
	Migrate(opts)

	want := []any{
		map[string]any{
			"locale":           "fr",
			"name":             "Français",
			"build":            false,
			"default":          true,
			"nav_translations": map[string]any{"Home": "Accueil"},
		},
	}
	if diff := cmp.Diff(want, decode(t, opts)["languages"]); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrateDoesNotOverwriteExplicitValues(t *testing.T) {
	opts := parse(t, `
docs_structure: suffix
reconfigure_material: true
fallback_to_default: false
languages:
  en: {}
`)
	Migrate(opts)

	got := decode(t, opts)
	if got["docs_structure"] != "suffix" {
		t.Fatalf("docs_structure = %v, want suffix", got["docs_structure"])
	}
	if got["reconfigure_material"] != true {
		t.Fatalf("reconfigure_material = %v, want true", got["reconfigure_material"])
	}
	if got["fallback_to_default"] != false {
		t.Fatalf("fallback_to_default = %v, want false", got["fallback_to_default"])
	}
	if got["reconfigure_search"] != true {
		t.Fatalf("reconfigure_search = %v, want true", got["reconfigure_search"])
	}
}

func TestLoadConfigModernPassThrough(t *testing.T) {
	src := `
docs_structure: suffix
languages:
  - locale: en
    default: true
  - locale: fr
`
	for _, tc := range []struct {
		name string
		src  string
	}{
		{name: "modern sequence", src: src},
		{name: "no languages key", src: "docs_structure: folder\n"},
		{name: "scalar languages", src: "languages: en\n"},
		{name: "empty options", src: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := parse(t, tc.src)
			before, err := opts.Marshal()
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			next := &recordingLoader{cfg: &i18nconfig.Config{}}
			if _, err := New(next).LoadConfig(opts, ""); err != nil {
				t.Fatalf("LoadConfig error: %v", err)
			}

			after, err := opts.Marshal()
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if diff := cmp.Diff(string(before), string(after)); diff != "" {
				t.Fatalf("options changed (-before +after):\n%s", diff)
			}
			if next.calls != 1 {
				t.Fatalf("loader called %d times, want 1", next.calls)
			}
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	opts := parse(t, "languages:\n  en: {name: English}\n")
	if !Migrate(opts) {
		t.Fatal("first Migrate() = false")
	}
	first := decode(t, opts)
	if Migrate(opts) {
		t.Fatal("second Migrate() = true on migrated options")
	}
	if diff := cmp.Diff(first, decode(t, opts)); diff != "" {
		t.Fatalf("second Migrate changed options (-first +second):\n%s", diff)
	}
}

func TestLoadConfigForwardsResultAndError(t *testing.T) {
	wantCfg := &i18nconfig.Config{DocsStructure: "folder"}
	wantErr := errors.New("downstream rejected")
	next := &recordingLoader{cfg: wantCfg, err: wantErr}

	cfg, err := New(next).LoadConfig(parse(t, "languages:\n  en: {}\n"), "/site/mkdocs.yml")
	if cfg != wantCfg {
		t.Fatalf("config = %p, want %p", cfg, wantCfg)
	}
	if err != wantErr {
		t.Fatalf("error = %v, want the loader's error unchanged", err)
	}
	if next.filePath != "/site/mkdocs.yml" {
		t.Fatalf("filePath = %q, want /site/mkdocs.yml", next.filePath)
	}
}

func TestLoadConfigNilOptions(t *testing.T) {
	next := &recordingLoader{}
	if _, err := New(next).LoadConfig(nil, ""); err != nil {
		t.Fatalf("LoadConfig(nil) error: %v", err)
	}
	if next.calls != 1 || next.opts != nil {
		t.Fatalf("nil options not forwarded as is: calls=%d opts=%v", next.calls, next.opts)
	}
}

func TestRegisteredUnderLegacyName(t *testing.T) {
	f, ok := plugin.Lookup(Name)
	if !ok {
		t.Fatalf("plugin %q not registered", Name)
	}

	opts := parse(t, "default_language: fr\nlanguages:\n  en: {name: English}\n  fr: {name: Français}\n")
	cfg, err := f().LoadConfig(opts, "mkdocs.yml")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	def, ok := cfg.DefaultLanguage()
	if !ok || def.Locale != "fr" {
		t.Fatalf("DefaultLanguage() = %+v, %v; want fr", def, ok)
	}
	if cfg.DocsStructure != "folder" || cfg.ReconfigureMaterial {
		t.Fatalf("adapter defaults not applied: %+v", cfg)
	}
}

func TestRegisteredAdapterSurfacesLoaderErrors(t *testing.T) {
	f, _ := plugin.Lookup(Name)
	opts := parse(t, "default_language: it\nlanguages:\n  en: {}\n")

	_, err := f().LoadConfig(opts, "mkdocs.yml")
	if !errors.Is(err, i18nconfig.ErrInvalid) {
		t.Fatalf("error = %v, want i18nconfig.ErrInvalid", err)
	}
}

func TestSniff(t *testing.T) {
	if _, ok := Sniff(parse(t, "languages:\n  en: {}\n")).(LegacyLanguages); !ok {
		t.Fatal("mapping not sniffed as legacy")
	}
	if _, ok := Sniff(parse(t, "languages:\n  - locale: en\n")).(ModernLanguages); !ok {
		t.Fatal("sequence not sniffed as modern")
	}
	if got := Sniff(parse(t, "languages: null\n")); got != nil {
		t.Fatalf("Sniff(null) = %#v, want nil", got)
	}
	if Sniff(nil) != nil {
		t.Fatal("Sniff(nil) != nil")
	}
	if !IsLegacy(parse(t, "x: &l {en: {}}\nlanguages: *l\n")) {
		t.Fatal("aliased mapping not sniffed as legacy")
	}
}

func TestMigrateExpandsMergeKeys(t *testing.T) {
	languages := func(t *testing.T, opts *plugincfg.Options) any {
		t.Helper()
		if !Migrate(opts) {
			t.Fatal("Migrate reported no change")
		}
		return decode(t, opts)["languages"]
	}

	t.Run("merged record fields", func(t *testing.T) {
		opts := parse(t, `
base: &base {build: false, name: Base}
languages:
  en: {}
  fr:
    <<: *base
`)
		want := []any{
			map[string]any{"locale": "en", "name": "en", "build": true, "default": true},
			map[string]any{"locale": "fr", "name": "Base", "build": false, "default": false},
		}
		if diff := cmp.Diff(want, languages(t, opts)); diff != "" {
			t.Fatalf("languages mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("merged locales", func(t *testing.T) {
		opts := parse(t, `
common: &common
  de: {name: Deutsch}
languages:
  <<: *common
  fr: {}
default_language: fr
`)
		want := []any{
			map[string]any{"locale": "de", "name": "Deutsch", "build": true, "default": false},
			map[string]any{"locale": "fr", "name": "fr", "build": true, "default": true},
		}
		if diff := cmp.Diff(want, languages(t, opts)); diff != "" {
			t.Fatalf("languages mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("merged default language", func(t *testing.T) {
		opts := parse(t, `
shared: &shared {default_language: fr}
<<: *shared
languages: {en: {}, fr: {}}
`)
		want := []any{
			map[string]any{"locale": "en", "name": "en", "build": true, "default": false},
			map[string]any{"locale": "fr", "name": "fr", "build": true, "default": true},
		}
		if diff := cmp.Diff(want, languages(t, opts)); diff != "" {
			t.Fatalf("languages mismatch (-want +got):\n%s", diff)
		}
		if opts.Has("default_language") {
			t.Fatal("merged default_language survived migration")
		}
	})
}

func TestSniffExpandsMergeKeys(t *testing.T) {
	opts := parse(t, "common: &c {de: {}}\nlanguages: {<<: *c, fr: {}}\n")
	legacy, ok := Sniff(opts).(LegacyLanguages)
	if !ok {
		t.Fatal("mapping with merge key not sniffed as legacy")
	}
	var locales []string
	for _, e := range legacy.Entries {
		locales = append(locales, e.Locale)
	}
	if diff := cmp.Diff([]string{"de", "fr"}, locales); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
}
