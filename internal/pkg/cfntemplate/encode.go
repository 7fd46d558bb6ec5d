// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// wellKnownTopLevelOrder and wellKnownResourceOrder pin the key
// ordering on encode; any other key sorts alphabetically after these.
var wellKnownTopLevelOrder = []string{"Parameters", "Resources", "Outputs"}

var wellKnownResourceOrder = []string{"Type", "Properties", "DependsOn", "DeletionPolicy"}

// Encode serializes t in the given format. YAML output always uses
// long-form intrinsic functions: short-form preservation is out of
// scope (see the Decode warning instead).
func Encode(t *Template, format Format) ([]byte, error) {
	ordered := reorder(t.root)
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := writeJSON(&buf, ordered, 0); err != nil {
			return nil, &EncodeFailure{Format: format, Err: err}
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatYAML:
		out, err := yaml.Marshal(ordered)
		if err != nil {
			return nil, &EncodeFailure{Format: format, Err: err}
		}
		return out, nil
	default:
		return nil, &EncodeFailure{Format: format, Err: fmt.Errorf("unknown format %v", format)}
	}
}

type pair struct {
	key     string
	keyNode *yaml.Node
	val     *yaml.Node
}

func nodePairs(n *yaml.Node) []pair {
	var out []pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, keyNode: n.Content[i], val: n.Content[i+1]})
	}
	return out
}

// orderPairs sorts pairs so that keys named in priority come first (in
// priority's order), then every remaining key alphabetically.
func orderPairs(pairs []pair, priority []string) []pair {
	rank := make(map[string]int, len(priority))
	for i, k := range priority {
		rank[k] = i
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ri, iok := rank[pairs[i].key]
		rj, jok := rank[pairs[j].key]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return pairs[i].key < pairs[j].key
		}
	})
	return pairs
}

// reorder returns a new mapping node, sharing child pointers with root,
// with top-level keys ordered per wellKnownTopLevelOrder and each
// resource's own keys ordered per wellKnownResourceOrder. Nothing is
// mutated in place so the receiver Template is unaffected.
func reorder(root *yaml.Node) *yaml.Node {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: root.Style}
	for _, p := range orderPairs(nodePairs(root), wellKnownTopLevelOrder) {
		val := p.val
		if p.key == "Resources" {
			val = reorderResources(p.val)
		}
		out.Content = append(out.Content, p.keyNode, val)
	}
	return out
}

func reorderResources(resources *yaml.Node) *yaml.Node {
	if resources == nil || resources.Kind != yaml.MappingNode {
		return resources
	}
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: resources.Style}
	for _, p := range nodePairs(resources) {
		out.Content = append(out.Content, p.keyNode, reorderResource(p.val))
	}
	return out
}

func reorderResource(resource *yaml.Node) *yaml.Node {
	if resource == nil || resource.Kind != yaml.MappingNode {
		return resource
	}
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: resource.Style}
	for _, p := range orderPairs(nodePairs(resource), wellKnownResourceOrder) {
		out.Content = append(out.Content, p.keyNode, p.val)
	}
	return out
}

// writeJSON renders node as strict JSON. encoding/json can't be handed
// a yaml.Node directly (and marshaling a map loses key order), so this
// walks the tree itself, which also lets it preserve scalar tags
// (!!int/!!bool/!!null) instead of re-inferring types from strings.
func writeJSON(buf *bytes.Buffer, node *yaml.Node, indent int) error {
	switch node.Kind {
	case yaml.MappingNode:
		return writeJSONMapping(buf, node, indent)
	case yaml.SequenceNode:
		return writeJSONSequence(buf, node, indent)
	case yaml.ScalarNode:
		return writeJSONScalar(buf, node)
	case yaml.AliasNode:
		return writeJSON(buf, node.Alias, indent)
	default:
		return fmt.Errorf("unsupported node kind %v", node.Kind)
	}
}

func writeJSONMapping(buf *bytes.Buffer, node *yaml.Node, indent int) error {
	if len(node.Content) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	for i := 0; i+1 < len(node.Content); i += 2 {
		writeIndent(buf, indent+1)
		keyBytes, err := json.Marshal(node.Content[i].Value)
		if err != nil {
			return err
		}
		buf.Write(keyBytes)
		buf.WriteString(": ")
		if err := writeJSON(buf, node.Content[i+1], indent+1); err != nil {
			return err
		}
		if i+2 < len(node.Content) {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	writeIndent(buf, indent)
	buf.WriteByte('}')
	return nil
}

func writeJSONSequence(buf *bytes.Buffer, node *yaml.Node, indent int) error {
	if len(node.Content) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteString("[\n")
	for i, c := range node.Content {
		writeIndent(buf, indent+1)
		if err := writeJSON(buf, c, indent+1); err != nil {
			return err
		}
		if i+1 < len(node.Content) {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	writeIndent(buf, indent)
	buf.WriteByte(']')
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Tag {
	case "!!int", "!!float", "!!bool":
		buf.WriteString(node.Value)
		return nil
	case "!!null":
		buf.WriteString("null")
		return nil
	default:
		b, err := json.Marshal(node.Value)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func writeIndent(buf *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		buf.WriteString("  ")
	}
}
