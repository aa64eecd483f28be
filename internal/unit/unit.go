// Package unit holds the shared data shapes flowing through the Hornet
// pipeline: discovered callables, proposed argument cases, and run outcomes.
package unit

import (
	"fmt"
	"time"
)

// ID uniquely identifies a discovered callable as (file, name).
// File is always relative to the scanned repository root.
type ID struct {
	File string
	Name string
}

// String returns the canonical "file::name" representation used as the
// persistence key for plans and unit runs.
func (id ID) String() string {
	return fmt.Sprintf("%s::%s", id.File, id.Name)
}

// Param is one declared parameter of a Unit. TypeHint and Default are the
// raw source text of the annotation and default expression; either may be
// empty when the source does not declare them.
type Param struct {
	Name     string `json:"name"`
	TypeHint string `json:"type_hint,omitempty"`
	Default  string `json:"default,omitempty"`
}

// Unit is one discovered callable. Units are created fresh on every scan
// and never mutated afterwards; a re-scan supersedes the previous Unit
// with the same ID.
type Unit struct {
	ID        ID      `json:"id"`
	Params    []Param `json:"params"`
	Docstring string  `json:"docstring,omitempty"`
	Language  string  `json:"language"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
}

// Case is one proposed set of argument values for exercising a Unit.
// Values are ordered to match the Unit's parameter list and hold
// JSON-compatible data (nil, bool, float64, string, []any, map[string]any);
// each analyzer renders them into its own language's literals.
type Case struct {
	Label  string `json:"label"`
	Values []any  `json:"values"`
}

// Confidence flags how well typed a Unit's plan is. Low confidence is not
// an error: it marks best-effort placeholder values so reports can surface
// them distinctly.
type Confidence string

const (
	ConfidenceFull Confidence = "full"
	ConfidenceLow  Confidence = "low"
)

// UnitPlan is the persisted planning result for one Unit.
type UnitPlan struct {
	File       string     `json:"file"`
	Name       string     `json:"name"`
	Language   string     `json:"language"`
	Confidence Confidence `json:"confidence"`
	Cases      []Case     `json:"cases"`
}

// ID returns the owning Unit's identity.
func (p UnitPlan) ID() ID {
	return ID{File: p.File, Name: p.Name}
}

// Plan maps every discovered Unit to its ordered Cases. It is persisted as
// a standalone artifact so many execution runs can reuse one planning pass.
type Plan struct {
	Repo      string     `json:"repo"`
	CreatedAt time.Time  `json:"created_at"`
	Units     []UnitPlan `json:"units"`
}

// Lookup returns the UnitPlan for id, or false if the plan does not cover it.
func (p *Plan) Lookup(id ID) (UnitPlan, bool) {
	for _, up := range p.Units {
		if up.File == id.File && up.Name == id.Name {
			return up, true
		}
	}
	return UnitPlan{}, false
}

// GeneratedScript is one rendered, independently executable artifact.
// Scripts are regenerated wholesale on every generate step.
type GeneratedScript struct {
	Unit     ID
	Language string
	Path     string
}

// RunStatus is the terminal classification of one script execution.
type RunStatus string

const (
	StatusPending RunStatus = "pending"
	StatusRunning RunStatus = "running"
	StatusPassed  RunStatus = "passed"
	StatusFailed  RunStatus = "failed"
	StatusErrored RunStatus = "errored"
)

// Terminal reports whether s is a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored:
		return true
	}
	return false
}

// Run is one execution batch over a set of generated scripts.
type Run struct {
	ID         string
	Repo       string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// UnitRun is the immutable recorded outcome of one Unit within one Run.
// Corrections are new Runs, never updates.
type UnitRun struct {
	RunID      string
	UnitName   string
	ScriptPath string
	Status     RunStatus
	Stdout     string
	Stderr     string
	Duration   time.Duration
	CreatedAt  time.Time
}
