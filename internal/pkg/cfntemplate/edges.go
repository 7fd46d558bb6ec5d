// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aws/cfn-teleport/internal/pkg/graph"
)

// Site identifies which reference construct produced an edge.
type Site int

const (
	SiteRef Site = iota
	SiteGetAtt
	SiteSubVariable
	SiteSubInterpolation
	SiteDependsOn
	SiteOutput
)

func (s Site) String() string {
	switch s {
	case SiteRef:
		return "Ref"
	case SiteGetAtt:
		return "GetAtt"
	case SiteSubVariable:
		return "Sub-variable"
	case SiteSubInterpolation:
		return "Sub-interpolation"
	case SiteDependsOn:
		return "DependsOn"
	case SiteOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ReferenceEdge is one (referrer, referent, site) triple.
type ReferenceEdge struct {
	Referrer string
	Referent string
	Site     Site
}

// OutputsReferrer is the pseudo-referrer identifier attributed to
// every reference found inside the Outputs section.
const OutputsReferrer = "Outputs"

// EdgeSet is the mapping-from-referrer-to-set-of-referents that
// Edges returns; it collapses site/detail information, matching the
// shape the validator and planner actually need.
type EdgeSet map[string]map[string]bool

// IsPseudoParameter reports whether name is one of CloudFormation's
// reserved AWS::* pseudo-parameters, which never constitute a
// dependency on a template-declared entity.
func IsPseudoParameter(name string) bool {
	return strings.HasPrefix(name, "AWS::")
}

// Edges walks t's Resources and Outputs sections and returns every
// reference edge, collapsed into referrer -> set-of-referents form.
// Ordering within a referent set is not observable.
//
// The edges are assembled into the name-keyed adjacency map of
// internal/pkg/graph -- names, not node pointers, so the cyclic
// relationships between resources never become ownership cycles --
// and then flattened into the map-of-sets shape the validator and
// planner consume directly.
func Edges(t *Template) EdgeSet {
	g := graph.New[string]()
	for _, e := range DetailedEdges(t) {
		g.Add(graph.Edge[string]{From: e.Referrer, To: e.Referent})
	}

	set := make(EdgeSet, len(g.Vertices()))
	for _, referrer := range g.Vertices() {
		neighbors := g.Neighbors(referrer)
		if len(neighbors) == 0 {
			continue
		}
		referents := make(map[string]bool, len(neighbors))
		for _, referent := range neighbors {
			referents[referent] = true
		}
		set[referrer] = referents
	}
	return set
}

// DetailedEdges is like Edges but preserves the site each edge was
// found at and doesn't deduplicate across sites, useful for
// diagnostics that want to say *how* something is referenced.
func DetailedEdges(t *Template) []ReferenceEdge {
	var edges []ReferenceEdge
	if res := t.section("Resources"); res != nil {
		for i := 0; i+1 < len(res.Content); i += 2 {
			edges = append(edges, extractResource(res.Content[i].Value, res.Content[i+1])...)
		}
	}
	if out := t.section("Outputs"); out != nil {
		for i := 0; i+1 < len(out.Content); i += 2 {
			edges = append(edges, extractNode(OutputsReferrer, out.Content[i+1], nil, SiteOutput)...)
		}
	}
	return edges
}

// extractResource walks one resource object, special-casing DependsOn
// (a plain reference site, not a {Fn::...: ...} construct) and handing
// every other attribute to the generic walker.
func extractResource(referrer string, resource *yaml.Node) []ReferenceEdge {
	if resource == nil || resource.Kind != yaml.MappingNode {
		return nil
	}
	var edges []ReferenceEdge
	for i := 0; i+1 < len(resource.Content); i += 2 {
		key := resource.Content[i].Value
		val := resource.Content[i+1]
		if key == "DependsOn" {
			edges = append(edges, dependsOnEdges(referrer, val)...)
			continue
		}
		edges = append(edges, extractNode(referrer, val, nil, SiteRef)...)
	}
	return edges
}

func dependsOnEdges(referrer string, val *yaml.Node) []ReferenceEdge {
	var edges []ReferenceEdge
	switch val.Kind {
	case yaml.ScalarNode:
		edges = append(edges, ReferenceEdge{referrer, val.Value, SiteDependsOn})
	case yaml.SequenceNode:
		for _, c := range val.Content {
			if c.Kind == yaml.ScalarNode {
				edges = append(edges, ReferenceEdge{referrer, c.Value, SiteDependsOn})
			}
		}
	}
	return edges
}

// extractNode recursively walks node looking for Ref/Fn::GetAtt/Fn::Sub
// one-key mappings, falling back to plain structural recursion
// otherwise. locals holds Sub variable-binding names currently in
// scope, which shadow same-named interpolation tokens. The trailing
// Site argument is ignored: each construct below picks its own site,
// so edges found under Outputs carry their construct's site too.
func extractNode(referrer string, node *yaml.Node, locals map[string]bool, _ Site) []ReferenceEdge {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 {
		switch node.Content[0].Value {
		case "Ref":
			return refEdge(referrer, node.Content[1], locals)
		case "Fn::GetAtt":
			return getAttEdge(referrer, node.Content[1])
		case "Fn::Sub":
			return subEdges(referrer, node.Content[1], locals)
		}
	}
	var edges []ReferenceEdge
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			edges = append(edges, extractNode(referrer, node.Content[i+1], locals, SiteRef)...)
		}
	case yaml.SequenceNode:
		for _, c := range node.Content {
			edges = append(edges, extractNode(referrer, c, locals, SiteRef)...)
		}
	}
	return edges
}

func refEdge(referrer string, val *yaml.Node, locals map[string]bool) []ReferenceEdge {
	if val.Kind != yaml.ScalarNode || locals[val.Value] || IsPseudoParameter(val.Value) {
		return nil
	}
	return []ReferenceEdge{{referrer, val.Value, SiteRef}}
}

func getAttEdge(referrer string, val *yaml.Node) []ReferenceEdge {
	referent, ok := getAttReferent(val)
	if !ok || IsPseudoParameter(referent) {
		return nil
	}
	return []ReferenceEdge{{referrer, referent, SiteGetAtt}}
}

func getAttReferent(val *yaml.Node) (string, bool) {
	switch val.Kind {
	case yaml.ScalarNode:
		if idx := strings.IndexByte(val.Value, '.'); idx > 0 {
			return val.Value[:idx], true
		}
		if val.Value != "" {
			return val.Value, true
		}
	case yaml.SequenceNode:
		if len(val.Content) >= 1 && val.Content[0].Kind == yaml.ScalarNode {
			return val.Content[0].Value, true
		}
	}
	return "", false
}

// subSplit breaks a {Fn::Sub: v} value into its template string and, if
// present, its variable-binding map.
func subSplit(val *yaml.Node) (subStr, varsNode *yaml.Node) {
	switch val.Kind {
	case yaml.ScalarNode:
		return val, nil
	case yaml.SequenceNode:
		if len(val.Content) >= 1 {
			subStr = val.Content[0]
		}
		if len(val.Content) >= 2 {
			varsNode = val.Content[1]
		}
	}
	return subStr, varsNode
}

func subEdges(referrer string, val *yaml.Node, locals map[string]bool) []ReferenceEdge {
	subStr, varsNode := subSplit(val)
	var edges []ReferenceEdge

	newLocals := cloneLocals(locals)
	if varsNode != nil && varsNode.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(varsNode.Content); i += 2 {
			newLocals[varsNode.Content[i].Value] = true
		}
	}

	if subStr != nil && subStr.Kind == yaml.ScalarNode {
		for _, tok := range subInterpolationTokens(subStr.Value) {
			referent := tok
			site := SiteSubInterpolation
			if idx := strings.IndexByte(tok, '.'); idx >= 0 {
				referent = tok[:idx]
			}
			if newLocals[referent] || IsPseudoParameter(referent) {
				continue
			}
			edges = append(edges, ReferenceEdge{referrer, referent, site})
		}
	}

	// Each binding expression is itself recursively extracted, evaluated
	// against the locals in scope *before* this Sub's own bindings (a
	// binding can't shadow itself).
	if varsNode != nil && varsNode.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(varsNode.Content); i += 2 {
			for _, e := range extractNode(referrer, varsNode.Content[i+1], locals, SiteSubVariable) {
				e.Site = SiteSubVariable
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// OutputReferents returns the set of resource/parameter names directly
// referenced anywhere in t's Outputs section.
func OutputReferents(t *Template) map[string]bool {
	return Edges(t)[OutputsReferrer]
}

func cloneLocals(locals map[string]bool) map[string]bool {
	out := make(map[string]bool, len(locals))
	for k, v := range locals {
		out[k] = v
	}
	return out
}

// subInterpolationTokens returns every ${X} token's inner text found in
// s, skipping ${!X} escapes.
func subInterpolationTokens(s string) []string {
	var tokens []string
	for i := 0; i < len(s); {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			break
		}
		start += i
		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			break
		}
		end += start + 2
		inner := s[start+2 : end]
		i = end + 1
		if strings.HasPrefix(inner, "!") {
			continue
		}
		tokens = append(tokens, inner)
	}
	return tokens
}
