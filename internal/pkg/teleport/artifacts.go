// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

// Op names the operation a set of artifacts was produced for, used in
// the exported filename's <op> segment.
type Op string

const (
	OpRename   Op = "rename"
	OpRefactor Op = "refactor"
	OpImport   Op = "import"
)

// Artifact is one template named for export, keyed by the filename's
// <suffix> segment: "refactored", "source", "target",
// "import-retained", "import-removed", "import-target-with-policy",
// "import-target-final".
type Artifact struct {
	StackName string
	Suffix    string
	Template  *cfntemplate.Template
}

// RefactorArtifacts returns the one-or-two templates a Refactor Plan
// would submit, named for export.
func RefactorArtifacts(plan *RefactorPlan) []Artifact {
	artifacts := make([]Artifact, 0, len(plan.StackDefinitions))
	for _, def := range plan.StackDefinitions {
		artifacts = append(artifacts, Artifact{StackName: def.StackName, Suffix: "refactored", Template: def.Template})
	}
	return artifacts
}

// ImportArtifacts returns the Import Plan's four templates, named for
// export in their phase order.
func ImportArtifacts(plan *ImportPlan) []Artifact {
	return []Artifact{
		{StackName: plan.SourceStack, Suffix: "import-retained", Template: plan.SourceRetained},
		{StackName: plan.SourceStack, Suffix: "import-removed", Template: plan.SourceRemoved},
		{StackName: plan.TargetStack, Suffix: "import-target-with-policy", Template: plan.TargetWithPolicy},
		{StackName: plan.TargetStack, Suffix: "import-target-final", Template: plan.TargetFinal},
	}
}

// ExportTemplates writes every artifact's encoded template to dir,
// named "<stack>-<op>-<suffix>-<timestamp>.<ext>". failed substitutes
// "error" for the <op> segment, producing the failure-path filenames.
func ExportTemplates(fs afero.Fs, dir string, op Op, timestamp string, artifacts []Artifact, failed bool, format cfntemplate.Format) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory %q: %w", dir, err)
	}
	ext := "yml"
	if format == cfntemplate.FormatJSON {
		ext = "json"
	}
	opSegment := string(op)
	if failed {
		opSegment = "error"
	}

	var paths []string
	for _, a := range artifacts {
		body, err := cfntemplate.Encode(a.Template, format)
		if err != nil {
			return paths, fmt.Errorf("encode %s template for export: %w", a.StackName, err)
		}
		name := fmt.Sprintf("%s-%s-%s-%s.%s", a.StackName, opSegment, a.Suffix, timestamp, ext)
		path := filepath.Join(dir, name)
		f, err := fs.Create(path)
		if err != nil {
			return paths, fmt.Errorf("create export file %q: %w", path, err)
		}
		if _, err := f.Write(body); err != nil {
			f.Close()
			return paths, fmt.Errorf("write export file %q: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("close export file %q: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ErrorContext is the data a failed run's companion sidecar records:
// enough for a user to reconstruct what was attempted and where
// the saved templates came from.
type ErrorContext struct {
	Op          Op
	SourceStack string
	TargetStack string
	Mapping     []Entry
	Err         error
	Timestamp   string
}

// WriteErrorContext persists the error-context sidecar
// "<stack>-error-<op>-context-<timestamp>.txt" alongside a failed
// run's exported templates.
func WriteErrorContext(fs afero.Fs, dir, stackName string, ctx ErrorContext) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory %q: %w", dir, err)
	}
	name := fmt.Sprintf("%s-error-%s-context-%s.txt", stackName, ctx.Op, ctx.Timestamp)
	path := filepath.Join(dir, name)
	f, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create error context file %q: %w", path, err)
	}
	if _, err := f.WriteString(renderErrorContext(ctx)); err != nil {
		f.Close()
		return "", fmt.Errorf("write error context file %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close error context file %q: %w", path, err)
	}
	return path, nil
}

func renderErrorContext(ctx ErrorContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "timestamp: %s\n", ctx.Timestamp)
	fmt.Fprintf(&b, "operation: %s\n", ctx.Op)
	fmt.Fprintf(&b, "source stack: %s\n", ctx.SourceStack)
	if ctx.TargetStack != "" {
		fmt.Fprintf(&b, "target stack: %s\n", ctx.TargetStack)
	}
	b.WriteString("mapping:\n")
	for _, e := range ctx.Mapping {
		fmt.Fprintf(&b, "  %s -> %s\n", e.Old, e.New)
	}
	fmt.Fprintf(&b, "error: %v\n", ctx.Err)
	return b.String()
}

// LoadTemplate loads a template from disk, the --source-template /
// --target-template bypass for fetching from the provider.
func LoadTemplate(fs afero.Fs, path string) (*cfntemplate.Template, *cfntemplate.UnsupportedTagWarning, error) {
	body, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("read template %q: %w", path, err)
	}
	tpl, _, warning, err := cfntemplate.Decode(body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode template %q: %w", path, err)
	}
	return tpl, warning, nil
}
