// Package mkdocsfile reads and rewrites the plugins section of a MkDocs site
// configuration (mkdocs.yml).
//
// Both plugin list styles are understood:
//
//	plugins:
//	  - search
//	  - static-i18n:
//	      default_language: en
//
//	plugins:
//	  search: {}
//	  static-i18n:
//	    default_language: en
//
// The whole document is kept as a yaml.Node tree, so everything outside the
// edited plugin options (comments, key order, !ENV and !!python/name tags)
// survives a rewrite.
package mkdocsfile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/i18ncompat/plugincfg"
)

// FileName is the conventional site configuration file name.
const FileName = "mkdocs.yml"

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// File is a parsed site configuration.
type File struct {
	// Path is the file the document was read from, if any.
	Path string

	doc     *yaml.Node
	plugins []*PluginRef
}

// PluginRef is one entry of the plugins section.
type PluginRef struct {
	// Name is the plugin name as written in the file.
	Name string
	// Options are the entry's options. Edits are written back into the
	// document; entries without options get a detached empty mapping that is
	// attached on Marshal once it holds keys.
	Options *plugincfg.Options

	key    *yaml.Node
	attach func(*yaml.Node)
}

// Rename changes the plugin name in the document.
func (r *PluginRef) Rename(name string) {
	r.Name = name
	r.key.Value = name
	r.key.Tag = "!!str"
	r.key.Style = 0
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a site configuration file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse parses site configuration data.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	f := &File{doc: &doc}

	// Empty file: valid, just no plugins.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return f, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("site configuration must be a mapping, got %s", plugincfg.KindName(root))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "plugins" {
			continue
		}
		plugins, err := collectPlugins(plugincfg.Resolve(root.Content[i+1]))
		if err != nil {
			return nil, err
		}
		f.plugins = plugins
		break
	}
	return f, nil
}

// collectPlugins walks the value of the plugins key.
func collectPlugins(node *yaml.Node) ([]*PluginRef, error) {
	var refs []*PluginRef

	switch node.Kind {
	case yaml.SequenceNode:
		for i, item := range node.Content {
			item = plugincfg.Resolve(item)
			switch item.Kind {
			case yaml.ScalarNode:
				// "- search": a bare name, no options.
				seq, idx, key := node, i, item
				ref := &PluginRef{Name: item.Value, Options: plugincfg.New(), key: key}
				ref.attach = func(opts *yaml.Node) {
					seq.Content[idx] = &yaml.Node{
						Kind:    yaml.MappingNode,
						Tag:     "!!map",
						Content: []*yaml.Node{key, opts},
					}
				}
				refs = append(refs, ref)
			case yaml.MappingNode:
				// "- name: {options}": one key per item.
				if len(item.Content) != 2 {
					return nil, fmt.Errorf("plugins[%d]: expected a single plugin name, got %d keys", i, len(item.Content)/2)
				}
				ref, err := newMappingRef(item, 0)
				if err != nil {
					return nil, fmt.Errorf("plugins[%d]: %w", i, err)
				}
				refs = append(refs, ref)
			default:
				return nil, fmt.Errorf("plugins[%d]: unexpected %s", i, plugincfg.KindName(item))
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			ref, err := newMappingRef(node, i)
			if err != nil {
				return nil, fmt.Errorf("plugins.%s: %w", node.Content[i].Value, err)
			}
			refs = append(refs, ref)
		}
	case yaml.ScalarNode:
		if !plugincfg.IsNull(node) {
			return nil, fmt.Errorf("plugins: expected a list or mapping, got scalar %q", node.Value)
		}
	default:
		return nil, fmt.Errorf("plugins: expected a list or mapping, got %s", plugincfg.KindName(node))
	}
	return refs, nil
}

// newMappingRef builds a ref for the key at parent.Content[i].
func newMappingRef(parent *yaml.Node, i int) (*PluginRef, error) {
	key := parent.Content[i]
	val := plugincfg.Resolve(parent.Content[i+1])
	ref := &PluginRef{Name: key.Value, key: key}

	if plugincfg.IsNull(val) {
		ref.Options = plugincfg.New()
		ref.attach = func(opts *yaml.Node) { parent.Content[i+1] = opts }
		return ref, nil
	}
	opts, err := plugincfg.FromNode(val)
	if err != nil {
		return nil, err
	}
	ref.Options = opts
	return ref, nil
}

// ---------------------------------------------------------------------------
// Querying
// ---------------------------------------------------------------------------

// Plugins returns the plugin entries in document order.
func (f *File) Plugins() []*PluginRef {
	return f.plugins
}

// Plugin returns the first entry named name.
func (f *File) Plugin(name string) (*PluginRef, bool) {
	for _, ref := range f.plugins {
		if ref.Name == name {
			return ref, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal serialises the document with two-space indentation.
func (f *File) Marshal() ([]byte, error) {
	for _, ref := range f.plugins {
		if ref.attach != nil && ref.Options.Len() > 0 {
			ref.attach(ref.Options.Node())
			ref.attach = nil
		}
	}

	if f.doc.Kind == 0 {
		return nil, nil
	}
	rehomeAnchors(f.doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rehomeAnchors finds aliases whose anchored node is no longer part of the
// document, e.g. a languages mapping replaced during migration, and puts the
// node itself in place of the first such alias. Later aliases keep pointing
// at it.
func rehomeAnchors(doc *yaml.Node) {
	attached := make(map[*yaml.Node]bool)
	var mark func(n *yaml.Node)
	mark = func(n *yaml.Node) {
		if n == nil || attached[n] {
			return
		}
		attached[n] = true
		for _, c := range n.Content {
			mark(c)
		}
	}
	mark(doc)

	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		for i, c := range n.Content {
			if c.Kind == yaml.AliasNode && c.Alias != nil && !attached[c.Alias] {
				n.Content[i] = c.Alias
				mark(c.Alias)
				c = c.Alias
			}
			walk(c)
		}
	}
	walk(doc)
}

// WriteFile serialises the document and atomically replaces path with it.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("creating pending file for %s: %w", path, err)
	}
	// No-op once the file has been replaced.
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
