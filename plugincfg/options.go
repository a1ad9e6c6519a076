// Package plugincfg implements the raw options mapping handed to a plugin's
// configuration loader.
//
// Options are kept as a YAML mapping node rather than a Go map so that key
// order, scalar styles, comments and custom tags (e.g. !ENV) survive a
// load → rewrite → write cycle. Options created with FromNode edit the
// surrounding document in place.
package plugincfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Options is an ordered plugin options mapping.
type Options struct {
	node *yaml.Node
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// New returns an empty options mapping.
func New() *Options {
	return &Options{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Parse parses a YAML document into Options.
// An empty document yields an empty mapping.
func Parse(data []byte) (*Options, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return New(), nil
	}
	return FromNode(&doc)
}

// FromNode wraps an existing mapping node. Document nodes are unwrapped.
// A null node is not accepted; callers that allow "no options" should use New.
func FromNode(node *yaml.Node) (*Options, error) {
	if node == nil {
		return nil, fmt.Errorf("options node is nil")
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return New(), nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("options must be a mapping, got %s", KindName(node))
	}
	return &Options{node: node}, nil
}

// ---------------------------------------------------------------------------
// Dictionary operations
// ---------------------------------------------------------------------------

// Node returns the underlying mapping node.
func (o *Options) Node() *yaml.Node { return o.node }

// Len returns the number of keys.
func (o *Options) Len() int { return len(Pairs(o.node)) }

// Keys returns the keys in the order a YAML loader would see them, with
// merge keys (<<) expanded.
func (o *Options) Keys() []string {
	ps := Pairs(o.node)
	keys := make([]string, 0, len(ps))
	for _, p := range ps {
		keys = append(keys, p.Key.Value)
	}
	return keys
}

// index returns the position of key's explicit key node in Content, or -1.
// Keys that only arrive through a merge have no position.
func (o *Options) index(key string) int {
	for i := 0; i+1 < len(o.node.Content); i += 2 {
		k := o.node.Content[i]
		if k.Value == key && !IsMergeKey(k) {
			return i
		}
	}
	return -1
}

// lookup returns the effective value node for key, merges included.
func (o *Options) lookup(key string) (*yaml.Node, bool) {
	for _, p := range Pairs(o.node) {
		if p.Key.Value == key {
			return p.Value, true
		}
	}
	return nil, false
}

// merged reports whether key is supplied by one of the mapping's merge keys.
func (o *Options) merged(key string) bool {
	for i := 0; i+1 < len(o.node.Content); i += 2 {
		if !IsMergeKey(o.node.Content[i]) {
			continue
		}
		for _, src := range mergeSources(o.node.Content[i+1]) {
			for _, p := range Pairs(src) {
				if p.Key.Value == key {
					return true
				}
			}
		}
	}
	return false
}

// inlineMerges replaces the mapping's merge keys with explicit copies of
// the entries they supply. Anchored values are referenced by alias.
func (o *Options) inlineMerges() {
	ps := Pairs(o.node)
	explicit := make(map[*yaml.Node]bool, len(o.node.Content)/2)
	for i := 0; i < len(o.node.Content); i += 2 {
		explicit[o.node.Content[i]] = true
	}
	content := make([]*yaml.Node, 0, 2*len(ps))
	for _, p := range ps {
		if explicit[p.Key] {
			content = append(content, p.Key, p.Value)
			continue
		}
		key := *p.Key
		key.Anchor = ""
		content = append(content, &key, reference(p.Value))
	}
	o.node.Content = content
}

// reference returns an alias to n if n is anchored, and a copy otherwise.
func reference(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode {
		return &yaml.Node{Kind: yaml.AliasNode, Value: n.Value, Alias: n.Alias}
	}
	if n.Anchor != "" {
		return &yaml.Node{Kind: yaml.AliasNode, Value: n.Anchor, Alias: n}
	}
	return CloneNode(n)
}

// Has reports whether key is present (even with a null value).
func (o *Options) Has(key string) bool {
	_, ok := o.lookup(key)
	return ok
}

// Get returns the value node for key with aliases resolved.
func (o *Options) Get(key string) (*yaml.Node, bool) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, false
	}
	return Resolve(v), true
}

// Pop removes key and returns its value node. A key supplied by a merge key
// is removed by first expanding the merge into explicit entries.
func (o *Options) Pop(key string) (*yaml.Node, bool) {
	val, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	if o.merged(key) {
		o.inlineMerges()
	}
	if i := o.index(key); i >= 0 {
		o.node.Content = append(o.node.Content[:i], o.node.Content[i+2:]...)
	}
	return val, true
}

// Set stores value under key. An existing key keeps its position;
// a new key is appended. An explicit key overrides a merged one.
func (o *Options) Set(key string, value *yaml.Node) {
	if i := o.index(key); i >= 0 {
		o.node.Content[i+1] = value
		return
	}
	o.node.Content = append(o.node.Content, String(key), value)
}

// SetDefault stores value under key only if key is absent.
// It reports whether the value was stored.
func (o *Options) SetDefault(key string, value *yaml.Node) bool {
	if o.Has(key) {
		return false
	}
	o.node.Content = append(o.node.Content, String(key), value)
	return true
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Decode decodes the mapping into v using yaml.v3 rules.
func (o *Options) Decode(v any) error {
	return o.node.Decode(v)
}

// Marshal serialises the mapping as a standalone YAML document.
func (o *Options) Marshal() ([]byte, error) {
	return yaml.Marshal(o.node)
}

// Clone returns a deep copy detached from any surrounding document.
func (o *Options) Clone() *Options {
	return &Options{node: CloneNode(o.node)}
}

func (o *Options) String() string {
	data, err := o.Marshal()
	if err != nil {
		return fmt.Sprintf("<invalid options: %v>", err)
	}
	return string(data)
}
