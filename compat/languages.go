package compat

import (
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/i18ncompat/plugincfg"
)

// Languages is the shape of the languages option: LegacyLanguages or
// ModernLanguages.
type Languages interface {
	isLanguages()
}

// LegacyLanguages is a locale-keyed mapping, in document order with merge
// keys expanded.
type LegacyLanguages struct {
	Entries []LegacyEntry
}

// LegacyEntry is one locale of a legacy mapping. Record is the raw value
// and may be nil, null or a non-mapping.
type LegacyEntry struct {
	Locale string
	Record *yaml.Node
}

// ModernLanguages is a languages sequence, left as is.
type ModernLanguages struct {
	Node *yaml.Node
}

func (LegacyLanguages) isLanguages() {}
func (ModernLanguages) isLanguages() {}

// Sniff inspects the languages option. It returns nil when the key is absent
// or holds anything other than a mapping or a sequence.
func Sniff(opts *plugincfg.Options) Languages {
	if opts == nil {
		return nil
	}
	v, ok := opts.Get(keyLanguages)
	if !ok {
		return nil
	}
	switch v.Kind {
	case yaml.MappingNode:
		pairs := plugincfg.Pairs(v)
		legacy := LegacyLanguages{Entries: make([]LegacyEntry, 0, len(pairs))}
		for _, p := range pairs {
			legacy.Entries = append(legacy.Entries, LegacyEntry{
				Locale: p.Key.Value,
				Record: plugincfg.Resolve(p.Value),
			})
		}
		return legacy
	case yaml.SequenceNode:
		return ModernLanguages{Node: v}
	}
	return nil
}
