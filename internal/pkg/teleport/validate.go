// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

// Violation is one independently-detected rule failure.
type Violation struct {
	Rule    string
	Message string
}

// ValidationError aggregates every violation found by Validate. The
// validator never guesses intent: it always reports everything it
// found rather than stopping at the first failure.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s found:\n", english.Plural(len(e.Violations), "violation", ""))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "  - [%s] %s\n", v.Rule, v.Message)
	}
	return b.String()
}

// Validate runs every safety check independently and concatenates
// their diagnostics. A nil return means the operation is safe to plan.
func Validate(source, target *cfntemplate.Template, mapping *Mapping, kind OperationKind, mode Mode) error {
	var violations []Violation
	violations = append(violations, imageCollisionViolations(source, target, mapping, kind)...)

	if kind == SameStackRename {
		violations = append(violations, sameStackDegenerateViolations(mapping)...)
	}

	moving := toSet(mapping.OldNames())
	if kind == CrossStackMove {
		edges := cfntemplate.Edges(source)
		violations = append(violations, inboundFromStayingViolations(edges, moving)...)
		violations = append(violations, outboundToStayingViolations(source, edges, moving)...)
		violations = append(violations, outputBoundViolations(source, moving)...)
	}

	violations = append(violations, parameterDependencyViolations(source, target, mapping, kind, mode)...)

	if len(violations) == 0 {
		return nil
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Rule != violations[j].Rule {
			return violations[i].Rule < violations[j].Rule
		}
		return violations[i].Message < violations[j].Message
	})
	return &ValidationError{Violations: violations}
}

// imageCollisionViolations requires the mapping's image to be
// injective and disjoint from the unmoved logical identifiers: it
// flags two mapping entries sharing one image, and an image colliding
// with an existing, un-moved destination resource.
func imageCollisionViolations(source, target *cfntemplate.Template, mapping *Mapping, kind OperationKind) []Violation {
	var violations []Violation

	firstOldFor := make(map[string]string)
	for _, e := range mapping.Entries() {
		if prevOld, ok := firstOldFor[e.New]; ok && prevOld != e.Old {
			violations = append(violations, Violation{
				Rule:    "image-collision",
				Message: fmt.Sprintf("%q and %q both map to the new identifier %q", prevOld, e.Old, e.New),
			})
			continue
		}
		firstOldFor[e.New] = e.Old
	}

	destination := source
	if kind == CrossStackMove {
		destination = target
	}
	moving := toSet(mapping.OldNames())
	for _, e := range mapping.Entries() {
		if !destination.HasResource(e.New) {
			continue
		}
		if kind == SameStackRename && moving[e.New] {
			// e.New is itself a mapping key being renamed away, not an
			// unmoved resource left behind to collide with.
			continue
		}
		violations = append(violations, Violation{
			Rule:    "image-collision",
			Message: fmt.Sprintf("new identifier %q collides with an existing resource in the destination stack", e.New),
		})
	}
	return violations
}

func sameStackDegenerateViolations(mapping *Mapping) []Violation {
	for _, e := range mapping.Entries() {
		if e.Old != e.New {
			return nil
		}
	}
	return []Violation{{
		Rule:    "same-stack-degenerate",
		Message: "a same-stack operation requires at least one non-identity rename",
	}}
}

func inboundFromStayingViolations(edges cfntemplate.EdgeSet, moving map[string]bool) []Violation {
	var violations []Violation
	for referrer, referents := range edges {
		if referrer == cfntemplate.OutputsReferrer || moving[referrer] {
			continue
		}
		for referent := range referents {
			if !moving[referent] {
				continue
			}
			violations = append(violations, Violation{
				Rule:    "inbound-from-staying",
				Message: fmt.Sprintf("staying resource %q depends on moving resource %q", referrer, referent),
			})
		}
	}
	return violations
}

func outboundToStayingViolations(source *cfntemplate.Template, edges cfntemplate.EdgeSet, moving map[string]bool) []Violation {
	var violations []Violation
	for referrer, referents := range edges {
		if !moving[referrer] {
			continue
		}
		for referent := range referents {
			if moving[referent] || !source.HasResource(referent) {
				continue // staying parameters/dangling refs aren't policed by this rule
			}
			violations = append(violations, Violation{
				Rule:    "outbound-to-staying",
				Message: fmt.Sprintf("moving %q depends on non-moving %q", referrer, referent),
			})
		}
	}
	return violations
}

func outputBoundViolations(source *cfntemplate.Template, moving map[string]bool) []Violation {
	var violations []Violation
	for referent := range cfntemplate.OutputReferents(source) {
		if !moving[referent] {
			continue
		}
		violations = append(violations, Violation{
			Rule:    "output-bound",
			Message: fmt.Sprintf("%q is referenced from Outputs and cannot move across stacks", referent),
		})
	}
	return violations
}

func parameterDependencyViolations(source, target *cfntemplate.Template, mapping *Mapping, kind OperationKind, mode Mode) []Violation {
	if kind == SameStackRename {
		return nil
	}
	edges := cfntemplate.Edges(source)
	moving := toSet(mapping.OldNames())
	var violations []Violation
	for referrer, referents := range edges {
		if !moving[referrer] {
			continue
		}
		for referent := range referents {
			if !source.HasParameter(referent) {
				continue
			}
			switch mode {
			case Import:
				violations = append(violations, Violation{
					Rule:    "parameter-dependency",
					Message: fmt.Sprintf("moving %q references parameter %q; Import mode blocks any parameter dependency", referrer, referent),
				})
			case Refactor:
				if !target.HasParameter(referent) {
					violations = append(violations, Violation{
						Rule:    "parameter-dependency",
						Message: fmt.Sprintf("moving %q references parameter %q, which is not declared in the target stack", referrer, referent),
					})
				}
			}
		}
	}
	return violations
}
