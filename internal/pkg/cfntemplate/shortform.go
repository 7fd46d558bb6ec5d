// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// shortFormFn maps a short-form YAML tag name (without its leading "!")
// to the canonical long-form key it expands to. Ref, GetAtt and
// Condition aren't in this table: Ref/Condition expand to themselves
// with no Fn:: prefix, and GetAtt needs its own dotted-string handling.
var shortFormFn = map[string]string{
	"If":          "Fn::If",
	"Sub":         "Fn::Sub",
	"Join":        "Fn::Join",
	"Select":      "Fn::Select",
	"FindInMap":   "Fn::FindInMap",
	"Equals":      "Fn::Equals",
	"And":         "Fn::And",
	"Or":          "Fn::Or",
	"Not":         "Fn::Not",
	"Base64":      "Fn::Base64",
	"Cidr":        "Fn::Cidr",
	"ImportValue": "Fn::ImportValue",
	"Split":       "Fn::Split",
	"Transform":   "Fn::Transform",
}

// expandShortFormTags walks node in place, rewriting every short-form
// intrinsic tag it finds into a one-key mapping keyed by the long form.
// seen is populated with every short-form tag name encountered, so the
// caller can decide whether to raise an UnsupportedTagWarning.
func expandShortFormTags(node *yaml.Node, seen map[string]bool) error {
	if node == nil {
		return nil
	}
	for _, c := range node.Content {
		if err := expandShortFormTags(c, seen); err != nil {
			return err
		}
	}
	if !isShortFormTag(node.Tag) {
		return nil
	}
	name := node.Tag[1:]
	seen[name] = true

	switch name {
	case "Ref", "Condition":
		expandToOneKeyMapping(node, name, payloadNode(node))
	case "GetAtt":
		expandGetAtt(node)
	default:
		longKey, ok := shortFormFn[name]
		if !ok {
			return fmt.Errorf("unsupported short-form intrinsic tag %q", node.Tag)
		}
		expandToOneKeyMapping(node, longKey, payloadNode(node))
	}
	return nil
}

// isShortFormTag reports whether tag is a custom single-bang tag
// (e.g. "!Ref") as opposed to one of yaml.v3's resolved core-schema
// tags, which are always double-banged ("!!str", "!!map", ...).
func isShortFormTag(tag string) bool {
	return len(tag) > 1 && tag[0] == '!' && tag[1] != '!'
}

// payloadNode copies n's structural content (scalar value or children)
// into a fresh node carrying the appropriate core-schema tag instead of
// n's short-form tag.
func payloadNode(n *yaml.Node) *yaml.Node {
	payload := *n
	switch n.Kind {
	case yaml.ScalarNode:
		payload.Tag = "" // let the encoder infer !!str/!!int/etc. from Value.
	case yaml.SequenceNode:
		payload.Tag = "!!seq"
	case yaml.MappingNode:
		payload.Tag = "!!map"
	}
	return &payload
}

func expandToOneKeyMapping(node *yaml.Node, key string, payload *yaml.Node) {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	*node = yaml.Node{
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
		Content: []*yaml.Node{keyNode, payload},
	}
}

// expandGetAtt handles the two short forms CloudFormation allows:
// "!GetAtt Logical.Id.Path" (dotted scalar) and "!GetAtt [Logical, Id.Path]"
// (already a sequence).
func expandGetAtt(node *yaml.Node) {
	var value *yaml.Node
	if node.Kind == yaml.ScalarNode {
		if idx := strings.IndexByte(node.Value, '.'); idx >= 0 {
			value = &yaml.Node{
				Kind: yaml.SequenceNode,
				Tag:  "!!seq",
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Tag: "!!str", Value: node.Value[:idx]},
					{Kind: yaml.ScalarNode, Tag: "!!str", Value: node.Value[idx+1:]},
				},
			}
		}
	}
	if value == nil {
		value = payloadNode(node)
	}
	expandToOneKeyMapping(node, "Fn::GetAtt", value)
}
