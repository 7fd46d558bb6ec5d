// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package teleport implements the Move/Rename Planner and Execution
// Driver that relocate or rename declared resources between
// CloudFormation stacks without destroying the underlying physical
// resources.
package teleport

// OperationKind is derived from source/target stack identity.
type OperationKind int

const (
	SameStackRename OperationKind = iota
	CrossStackMove
)

func (k OperationKind) String() string {
	if k == SameStackRename {
		return "SameStackRename"
	}
	return "CrossStackMove"
}

// OperationKindFor derives the operation kind from the two stack names
// a run was invoked with.
func OperationKindFor(sourceStack, targetStack string) OperationKind {
	if sourceStack == targetStack {
		return SameStackRename
	}
	return CrossStackMove
}

// Mode selects which plan type a cross-stack operation builds.
// Same-stack operations always run as Refactor: the CLI replaces the
// requested mode with Refactor once it derives SameStackRename, and
// only builds an Import plan for CrossStackMove. The Mode type itself
// does not rule out pairing Import with SameStackRename.
type Mode int

const (
	Refactor Mode = iota
	Import
)

func (m Mode) String() string {
	if m == Refactor {
		return "Refactor"
	}
	return "Import"
}

// ParseMode validates the --mode flag's raw value.
func ParseMode(raw string) (Mode, error) {
	switch raw {
	case "refactor", "":
		return Refactor, nil
	case "import":
		return Import, nil
	default:
		return 0, &UnknownModeError{Raw: raw}
	}
}

// UnknownModeError is returned for an unrecognized --mode value.
type UnknownModeError struct {
	Raw string
}

func (e *UnknownModeError) Error() string {
	return `unknown mode "` + e.Raw + `": must be "refactor" or "import"`
}

func toSet(vals []string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
