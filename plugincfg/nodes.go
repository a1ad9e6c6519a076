package plugincfg

import (
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// String returns a plain string scalar node.
func String(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Bool returns a boolean scalar node.
func Bool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

// Null returns a null scalar node.
func Null() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// Resolve follows alias nodes to the anchored value.
func Resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// IsNull reports whether n is absent or an explicit null.
func IsNull(n *yaml.Node) bool {
	n = Resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// Truthy applies the usual "empty is false" rule to a value node:
// null, false, zero numbers, empty strings and empty collections are falsy.
func Truthy(n *yaml.Node) bool {
	n = Resolve(n)
	if n == nil {
		return false
	}
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(n.Content) > 0
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return false
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return n.Value != ""
			}
			return b
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return true
			}
			return i != 0
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return true
			}
			return f != 0 && !math.IsNaN(f)
		default:
			return n.Value != ""
		}
	}
	return false
}

// KindName returns a readable name for a node kind, for error messages.
func KindName(n *yaml.Node) string {
	n = Resolve(n)
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "null"
		}
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}

// CloneNode deep-copies a node tree. Aliases inside the tree are re-pointed
// at the copied anchors. The first alias to an anchor outside the tree is
// replaced by a copy of the anchored value, so the copy marshals on its own.
func CloneNode(n *yaml.Node) *yaml.Node {
	return cloneNode(n, make(map[*yaml.Node]*yaml.Node))
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		if _, ok := seen[n.Alias]; !ok {
			return cloneNode(n.Alias, seen)
		}
	}
	c := *n
	seen[n] = &c
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	if n.Alias != nil {
		if target, ok := seen[n.Alias]; ok {
			c.Alias = target
		}
	}
	return &c
}

// Pair is one key/value entry of a mapping node.
type Pair struct {
	Key   *yaml.Node
	Value *yaml.Node
}

// IsMergeKey reports whether n is a "<<" merge key.
func IsMergeKey(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && n.Value == "<<" && n.ShortTag() == "!!merge"
}

// Pairs returns the entries of mapping n as a YAML loader sees them, with
// merge keys expanded. Merged entries come first. Explicit keys override
// merged ones, an earlier mapping in a merge list overrides a later one, and
// an overridden key keeps the position of its first occurrence.
func Pairs(n *yaml.Node) []Pair {
	return pairs(Resolve(n), make(map[*yaml.Node]bool))
}

func pairs(n *yaml.Node, active map[*yaml.Node]bool) []Pair {
	if n == nil || n.Kind != yaml.MappingNode || active[n] {
		return nil
	}
	active[n] = true
	defer delete(active, n)

	var out []Pair
	pos := make(map[string]int)
	add := func(p Pair) {
		if i, ok := pos[p.Key.Value]; ok {
			out[i].Value = p.Value
			return
		}
		pos[p.Key.Value] = len(out)
		out = append(out, p)
	}

	var explicit []Pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if !IsMergeKey(key) {
			explicit = append(explicit, Pair{Key: key, Value: val})
			continue
		}
		for _, src := range mergeSources(val) {
			for _, p := range pairs(src, active) {
				add(p)
			}
		}
	}
	for _, p := range explicit {
		add(p)
	}
	return out
}

// mergeSources returns the mappings named by a merge value, lowest
// precedence first.
func mergeSources(val *yaml.Node) []*yaml.Node {
	val = Resolve(val)
	if val == nil {
		return nil
	}
	switch val.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{val}
	case yaml.SequenceNode:
		srcs := make([]*yaml.Node, 0, len(val.Content))
		for i := len(val.Content) - 1; i >= 0; i-- {
			srcs = append(srcs, Resolve(val.Content[i]))
		}
		return srcs
	}
	return nil
}
