// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Format identifies which textual dialect a template was decoded from,
// or should be encoded to.
type Format int

const (
	// FormatJSON is the structured data interchange format (strict JSON).
	FormatJSON Format = iota
	// FormatYAML is the human-friendly dialect, including short-form
	// intrinsic function tags.
	FormatYAML
)

func (f Format) String() string {
	if f == FormatJSON {
		return "JSON"
	}
	return "YAML"
}

// DecodeFailure is returned when a template could not be parsed in
// either format.
type DecodeFailure struct {
	FormatTried Format
	Err         error
}

func (e *DecodeFailure) Error() string {
	return fmt.Sprintf("decode template: format %s also failed: %v", e.FormatTried, e.Err)
}

func (e *DecodeFailure) Unwrap() error { return e.Err }

// EncodeFailure is returned when a template could not be serialized.
type EncodeFailure struct {
	Format Format
	Err    error
}

func (e *EncodeFailure) Error() string {
	return fmt.Sprintf("encode template as %s: %v", e.Format, e.Err)
}

func (e *EncodeFailure) Unwrap() error { return e.Err }

// UnsupportedTagWarning is raised when decode encounters one or more
// short-form intrinsic tags. It is not fatal: the template has already
// been fully decoded, with those tags expanded to long form. Callers
// should surface it once on stderr and keep going.
type UnsupportedTagWarning struct {
	Tags []string
}

func (w *UnsupportedTagWarning) Error() string {
	return fmt.Sprintf("template uses short-form intrinsic tag(s) %v; re-encoding will normalize them to long form", w.Tags)
}

// Decode parses raw template bytes. It tries strict format A first and
// falls back to the short-tag dialect (format B). A non-nil
// *UnsupportedTagWarning is returned alongside a successful decode if
// format B was used and short-form tags were present; it is not an
// error the caller needs to abort on.
func Decode(body []byte) (*Template, Format, *UnsupportedTagWarning, error) {
	if root, err := decodeJSON(body); err == nil {
		return newTemplate(root), FormatJSON, nil, nil
	}
	tpl, warning, err := decodeYAML(body)
	if err != nil {
		return nil, FormatYAML, nil, &DecodeFailure{FormatTried: FormatYAML, Err: err}
	}
	return tpl, FormatYAML, warning, nil
}

func decodeJSON(body []byte) (*yaml.Node, error) {
	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, err
	}
	if _, ok := generic.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("template root is not a JSON object")
	}
	// JSON is a syntactic subset of YAML; re-parse through yaml.v3 so every
	// downstream consumer works against one representation (yaml.Node).
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return documentRoot(&doc)
}

func decodeYAML(body []byte) (*Template, *UnsupportedTagWarning, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, nil, err
	}
	root, err := documentRoot(&doc)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool)
	if err := expandShortFormTags(root, seen); err != nil {
		return nil, nil, err
	}
	var warning *UnsupportedTagWarning
	if len(seen) > 0 {
		tags := make([]string, 0, len(seen))
		for tag := range seen {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		warning = &UnsupportedTagWarning{Tags: tags}
	}
	return newTemplate(root), warning, nil
}

func documentRoot(doc *yaml.Node) (*yaml.Node, error) {
	n := doc
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template root must be a mapping")
	}
	return n, nil
}
