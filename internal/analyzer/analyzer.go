// Package analyzer defines the per-language capability contract driving the
// Hornet pipeline: discover callable units in a file, propose representative
// argument cases for a unit, and render a self-contained script exercising it.
// One implementation exists per source language; the Registry selects the
// implementation for a file without any central language switch.
package analyzer

import (
	"fmt"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Analyzer is the pluggable per-language implementation. All methods must be
// pure functions of their inputs: no network access and no mutation of the
// target repository.
type Analyzer interface {
	// Language returns the language tag stamped onto discovered Units.
	Language() string

	// Matches reports whether this analyzer can handle the given file.
	// head carries the first bytes of the file so implementations can apply
	// shebang heuristics to extensionless files.
	Matches(path string, head []byte) bool

	// Discover parses one file and returns the callable units it declares.
	// A failure is reported as *ParseError naming the file; callers skip the
	// file rather than aborting the scan.
	Discover(relPath string, src []byte) ([]unit.Unit, error)

	// Propose inspects the unit's declared parameter types and defaults and
	// returns at least one argument case plus the plan confidence. It never
	// fails on an untypeable unit: unhinted parameters receive the unknown
	// placeholder and the confidence drops to low.
	Propose(u unit.Unit) ([]unit.Case, unit.Confidence, error)

	// Render produces the source text of one independently executable script
	// that invokes the unit once per case and emits the summary line contract.
	// Rendering zero cases is invalid and returns *GenerationError.
	Render(u unit.Unit, cases []unit.Case) (string, error)

	// ScriptSuffix returns the file extension for rendered scripts (".py").
	ScriptSuffix() string
}

// ParseError reports that a single file could not be parsed. Scans treat it
// as zero units for that file, never as a scan abort.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GenerationError reports that a script could not be rendered for one unit.
// The generate step skips the unit and surfaces it as "not generated".
type GenerationError struct {
	Unit unit.ID
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("rendering script for %s: %v", e.Unit, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
