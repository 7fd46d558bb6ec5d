// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cfntemplate parses, walks, and rewrites CloudFormation
// templates without losing sections it doesn't understand. Templates
// are kept as a gopkg.in/yaml.v3 node tree -- the same representation
// internal/pkg/addon/cloudformation.go uses to merge addon templates --
// generalized here into a full reference-graph walker.
package cfntemplate

import "gopkg.in/yaml.v3"

// Template is a parsed CloudFormation template.
type Template struct {
	root *yaml.Node // always a MappingNode.
}

func newTemplate(root *yaml.Node) *Template {
	return &Template{root: root}
}

// Root returns the underlying mapping node. Callers that need direct
// node access (the codec, tests) may use it; general consumers should
// prefer the typed accessors below.
func (t *Template) Root() *yaml.Node {
	return t.root
}

// section returns the value node for a top-level key, or nil if absent.
func (t *Template) section(key string) *yaml.Node {
	return mappingValue(t.root, key)
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(m *yaml.Node) []string {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var out []string
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, m.Content[i].Value)
	}
	return out
}

// ResourceNames returns the logical identifiers declared in Resources,
// in template order.
func (t *Template) ResourceNames() []string {
	return mappingKeys(t.section("Resources"))
}

// ParameterNames returns the declared parameter names, in template order.
func (t *Template) ParameterNames() []string {
	return mappingKeys(t.section("Parameters"))
}

// HasResource reports whether name is declared under Resources.
func (t *Template) HasResource(name string) bool {
	return mappingValue(t.section("Resources"), name) != nil
}

// HasParameter reports whether name is declared under Parameters.
func (t *Template) HasParameter(name string) bool {
	return mappingValue(t.section("Parameters"), name) != nil
}

// Resource returns the value node of a declared resource, or nil.
func (t *Template) Resource(name string) *yaml.Node {
	return mappingValue(t.section("Resources"), name)
}

// Clone returns a deep copy of the template; mutating the clone never
// affects the receiver.
func (t *Template) Clone() *Template {
	return newTemplate(cloneNode(t.root))
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Content != nil {
		clone.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			clone.Content[i] = cloneNode(c)
		}
	}
	clone.Alias = cloneNode(n.Alias)
	return &clone
}

// WithoutResources returns a clone of t with the named resources removed
// from Resources. Names absent from Resources are ignored.
func (t *Template) WithoutResources(names []string) *Template {
	clone := t.Clone()
	res := clone.section("Resources")
	if res == nil {
		return clone
	}
	drop := toSet(names)
	res.Content = filterPairs(res.Content, func(key string) bool {
		return !drop[key]
	})
	return clone
}

// WithResourcesFrom returns a clone of t with the resources named in
// names copied over from src's Resources section (keyed by their
// *current* logical identifiers in src -- callers pass an already
// renamed src when moving resources under a mapping). Resources already
// present in t are left untouched; src's copies are deep-cloned so src
// is never observably mutated.
func (t *Template) WithResourcesFrom(src *Template, names []string) *Template {
	clone := t.Clone()
	res := clone.section("Resources")
	if res == nil {
		res = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		clone.root.Content = append(clone.root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "Resources"}, res)
	}
	want := toSet(names)
	srcRes := src.section("Resources")
	for i := 0; srcRes != nil && i+1 < len(srcRes.Content); i += 2 {
		name := srcRes.Content[i].Value
		if !want[name] {
			continue
		}
		res.Content = append(res.Content, cloneNode(srcRes.Content[i]), cloneNode(srcRes.Content[i+1]))
	}
	return clone
}

// HasDeletionPolicy reports whether resource declares a DeletionPolicy
// attribute.
func HasDeletionPolicy(resource *yaml.Node) bool {
	return mappingValue(resource, "DeletionPolicy") != nil
}

// SetDeletionPolicy sets resource's DeletionPolicy attribute, adding it
// if absent.
func SetDeletionPolicy(resource *yaml.Node, policy string) {
	if val := mappingValue(resource, "DeletionPolicy"); val != nil {
		val.Value = policy
		val.Tag = "!!str"
		return
	}
	resource.Content = append(resource.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "DeletionPolicy"},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: policy})
}

// ClearDeletionPolicy removes resource's DeletionPolicy attribute, if present.
func ClearDeletionPolicy(resource *yaml.Node) {
	resource.Content = filterPairs(resource.Content, func(key string) bool {
		return key != "DeletionPolicy"
	})
}

func toSet(vals []string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func filterPairs(content []*yaml.Node, keep func(key string) bool) []*yaml.Node {
	var out []*yaml.Node
	for i := 0; i+1 < len(content); i += 2 {
		if keep(content[i].Value) {
			out = append(out, content[i], content[i+1])
		}
	}
	return out
}
