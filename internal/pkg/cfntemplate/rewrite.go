// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Rewrite returns a new template with every Resources key renamed per
// mapping and every reference site pointing at a mapped key rewritten
// to its image, preserving each site's syntactic form. t itself is
// never mutated.
func Rewrite(t *Template, mapping map[string]string) *Template {
	clone := t.Clone()

	if res := clone.section("Resources"); res != nil {
		for i := 0; i+1 < len(res.Content); i += 2 {
			keyNode := res.Content[i]
			if newName, ok := mapping[keyNode.Value]; ok {
				keyNode.Value = newName
			}
			rewriteResource(res.Content[i+1], mapping)
		}
	}
	if out := clone.section("Outputs"); out != nil {
		for i := 0; i+1 < len(out.Content); i += 2 {
			rewriteNode(out.Content[i+1], mapping, nil)
		}
	}
	return clone
}

func rewriteResource(resource *yaml.Node, mapping map[string]string) {
	if resource == nil || resource.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(resource.Content); i += 2 {
		key := resource.Content[i].Value
		val := resource.Content[i+1]
		if key == "DependsOn" {
			rewriteDependsOn(val, mapping)
			continue
		}
		rewriteNode(val, mapping, nil)
	}
}

func rewriteDependsOn(val *yaml.Node, mapping map[string]string) {
	switch val.Kind {
	case yaml.ScalarNode:
		if newName, ok := mapping[val.Value]; ok {
			val.Value = newName
		}
	case yaml.SequenceNode:
		for _, c := range val.Content {
			if c.Kind == yaml.ScalarNode {
				if newName, ok := mapping[c.Value]; ok {
					c.Value = newName
				}
			}
		}
	}
}

// rewriteNode mirrors extractNode's traversal but mutates in place
// instead of collecting edges. locals holds Sub variable-binding names
// currently shadowing same-named interpolation tokens.
func rewriteNode(node *yaml.Node, mapping map[string]string, locals map[string]bool) {
	if node == nil {
		return
	}
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 {
		switch node.Content[0].Value {
		case "Ref":
			rewriteRef(node.Content[1], mapping, locals)
			return
		case "Fn::GetAtt":
			rewriteGetAtt(node.Content[1], mapping)
			return
		case "Fn::Sub":
			rewriteSub(node.Content[1], mapping, locals)
			return
		}
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			rewriteNode(node.Content[i+1], mapping, locals)
		}
	case yaml.SequenceNode:
		for _, c := range node.Content {
			rewriteNode(c, mapping, locals)
		}
	}
}

func rewriteRef(val *yaml.Node, mapping map[string]string, locals map[string]bool) {
	if val.Kind != yaml.ScalarNode || locals[val.Value] {
		return
	}
	if newName, ok := mapping[val.Value]; ok {
		val.Value = newName
	}
}

func rewriteGetAtt(val *yaml.Node, mapping map[string]string) {
	switch val.Kind {
	case yaml.ScalarNode:
		idx := strings.IndexByte(val.Value, '.')
		if idx < 0 {
			if newName, ok := mapping[val.Value]; ok {
				val.Value = newName
			}
			return
		}
		if newName, ok := mapping[val.Value[:idx]]; ok {
			val.Value = newName + val.Value[idx:]
		}
	case yaml.SequenceNode:
		if len(val.Content) >= 1 && val.Content[0].Kind == yaml.ScalarNode {
			if newName, ok := mapping[val.Content[0].Value]; ok {
				val.Content[0].Value = newName
			}
		}
	}
}

func rewriteSub(val *yaml.Node, mapping map[string]string, locals map[string]bool) {
	subStr, varsNode := subSplit(val)

	newLocals := cloneLocals(locals)
	if varsNode != nil && varsNode.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(varsNode.Content); i += 2 {
			newLocals[varsNode.Content[i].Value] = true
		}
	}

	if subStr != nil && subStr.Kind == yaml.ScalarNode {
		subStr.Value = rewriteSubString(subStr.Value, mapping, newLocals)
	}
	if varsNode != nil && varsNode.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(varsNode.Content); i += 2 {
			rewriteNode(varsNode.Content[i+1], mapping, locals)
		}
	}
}

// rewriteSubString rewrites every ${X} or ${X.path} token whose X is a
// mapping key, leaving ${!X} escapes and shadowed names untouched.
// Anything not matched is emitted byte-for-byte.
func rewriteSubString(s string, mapping map[string]string, locals map[string]bool) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			b.WriteString(s[i:])
			break
		}
		start += i
		b.WriteString(s[i:start])
		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			b.WriteString(s[start:])
			break
		}
		end += start + 2
		inner := s[start+2 : end]
		i = end + 1

		if strings.HasPrefix(inner, "!") {
			b.WriteString("${")
			b.WriteString(inner)
			b.WriteString("}")
			continue
		}

		name, attr := inner, ""
		if idx := strings.IndexByte(inner, '.'); idx >= 0 {
			name, attr = inner[:idx], inner[idx:]
		}
		if newName, ok := mapping[name]; ok && !locals[name] {
			b.WriteString("${")
			b.WriteString(newName)
			b.WriteString(attr)
			b.WriteString("}")
		} else {
			b.WriteString("${")
			b.WriteString(inner)
			b.WriteString("}")
		}
	}
	return b.String()
}
