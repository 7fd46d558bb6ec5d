// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Entry is one old-id -> new-id pair in a rename/move mapping. Identity
// entries (Old == New) are allowed and mean "move without rename".
type Entry struct {
	Old string
	New string
}

// Mapping is an ordered rename/move mapping: insertion order is
// preserved so a later --resource flag can override an earlier
// --migration-spec entry in place, rather than appending a duplicate.
type Mapping struct {
	entries []Entry
	index   map[string]int // Old -> position in entries
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Set adds an entry for old, or overwrites old's existing entry in
// place if one is already present (preserving its original position).
func (m *Mapping) Set(old, new string) {
	if i, ok := m.index[old]; ok {
		m.entries[i].New = new
		return
	}
	m.index[old] = len(m.entries)
	m.entries = append(m.entries, Entry{Old: old, New: new})
}

// Entries returns the mapping's entries in insertion order.
func (m *Mapping) Entries() []Entry {
	return m.entries
}

// Len returns the number of entries in the mapping.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// AsMap flattens the mapping into the plain old->new lookup the
// cfntemplate rewriter and edge-set checks operate on.
func (m *Mapping) AsMap() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Old] = e.New
	}
	return out
}

// OldNames returns every old identifier, in insertion order.
func (m *Mapping) OldNames() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Old
	}
	return out
}

// NewNames returns every new identifier, in insertion order.
func (m *Mapping) NewNames() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.New
	}
	return out
}

// migrationSpecFile is the shape --migration-spec accepts: a single
// "resources" key mapping each old logical identifier to its new one.
type migrationSpecFile struct {
	Resources yaml.Node `yaml:"resources"`
}

// LoadMigrationSpec parses a migration-spec document, preserving the
// order its "resources" keys were declared in.
func LoadMigrationSpec(r io.Reader) (*Mapping, error) {
	var doc migrationSpecFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse migration spec: %w", err)
	}
	if doc.Resources.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(`migration spec: "resources" must be a mapping of old id to new id`)
	}
	mapping := NewMapping()
	for i := 0; i+1 < len(doc.Resources.Content); i += 2 {
		mapping.Set(doc.Resources.Content[i].Value, doc.Resources.Content[i+1].Value)
	}
	return mapping, nil
}

// ParseResourceFlag parses one --resource flag value of the form
// "OLD[:NEW]"; a missing ":NEW" is an identity entry (move without rename).
func ParseResourceFlag(raw string) (old, new string, err error) {
	old, new, found := strings.Cut(raw, ":")
	if old == "" {
		return "", "", fmt.Errorf("--resource value %q is missing an OLD identifier", raw)
	}
	if !found || new == "" {
		new = old
	}
	return old, new, nil
}

// BuildMapping assembles the effective Rename/Move Mapping for a run:
// --migration-spec seeds it in file order, then each --resource flag is
// applied in the order given on the command line, overwriting any
// earlier entry sharing the same OLD key.
func BuildMapping(fs afero.Fs, migrationSpecPath string, resourceFlags []string) (*Mapping, error) {
	mapping := NewMapping()
	if migrationSpecPath != "" {
		f, err := fs.Open(migrationSpecPath)
		if err != nil {
			return nil, fmt.Errorf("open migration spec %s: %w", migrationSpecPath, err)
		}
		defer f.Close()
		loaded, err := LoadMigrationSpec(f)
		if err != nil {
			return nil, err
		}
		mapping = loaded
	}
	for _, raw := range resourceFlags {
		old, new, err := ParseResourceFlag(raw)
		if err != nil {
			return nil, err
		}
		mapping.Set(old, new)
	}
	if mapping.Len() == 0 {
		return nil, fmt.Errorf("no resources specified: pass --resource or --migration-spec")
	}
	return mapping, nil
}
