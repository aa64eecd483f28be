// Package planner turns discovered units into a persisted plan of
// representative argument cases.
package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hornetlabs/hornet/internal/analyzer"
	"github.com/hornetlabs/hornet/internal/unit"
)

// Planner asks each unit's owning analyzer for case proposals and
// normalizes them into a Plan keyed by unit identity.
type Planner struct {
	registry *analyzer.Registry
	logger   *zap.Logger
}

// New creates a Planner over the given registry.
func New(registry *analyzer.Registry, logger *zap.Logger) *Planner {
	return &Planner{registry: registry, logger: logger}
}

// Plan proposes cases for every unit. Every unit ends up with at least one
// case: a unit the analyzer cannot fully type gets low-confidence
// placeholders, and a proposal failure degrades to a single unknown-value
// case rather than dropping the unit, because every discovered unit must
// reach the execution engine.
func (p *Planner) Plan(repo string, units []unit.Unit) (*unit.Plan, error) {
	plan := &unit.Plan{
		Repo:      repo,
		CreatedAt: time.Now().UTC(),
	}

	for _, u := range units {
		a, ok := p.registry.ByLanguage(u.Language)
		if !ok {
			// A unit can only come from a registered analyzer; treat a
			// missing one as untypeable rather than failing the batch.
			plan.Units = append(plan.Units, fallbackPlan(u))
			continue
		}

		cases, confidence, err := a.Propose(u)
		if err != nil || len(cases) == 0 {
			p.logger.Warn("case proposal failed, using fallback",
				zap.String("unit", u.ID.String()),
				zap.Error(err))
			plan.Units = append(plan.Units, fallbackPlan(u))
			continue
		}

		if confidence == unit.ConfidenceLow {
			p.logger.Debug("low-confidence plan", zap.String("unit", u.ID.String()))
		}
		plan.Units = append(plan.Units, unit.UnitPlan{
			File:       u.ID.File,
			Name:       u.ID.Name,
			Language:   u.Language,
			Confidence: confidence,
			Cases:      cases,
		})
	}

	p.logger.Info("planning complete",
		zap.String("repo", repo),
		zap.Int("units", len(plan.Units)))
	return plan, nil
}

// fallbackPlan emits the minimum valid plan for a unit: one low-confidence
// case with the unknown placeholder for every parameter.
func fallbackPlan(u unit.Unit) unit.UnitPlan {
	values := make([]any, len(u.Params))
	for i := range values {
		values[i] = analyzer.Placeholder(analyzer.KindUnknown)
	}
	return unit.UnitPlan{
		File:       u.ID.File,
		Name:       u.ID.Name,
		Language:   u.Language,
		Confidence: unit.ConfidenceLow,
		Cases:      []unit.Case{{Label: "typical", Values: values}},
	}
}

// Save persists the plan as a standalone JSON artifact so later runs can
// reload it without re-invoking analyzers.
func Save(plan *unit.Plan, path string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// Load reads a previously saved plan artifact.
func Load(path string) (*unit.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan unit.Plan
	dec := json.NewDecoder(bytes.NewReader(data))
	// Keep numeric case values verbatim so an integer default is not
	// reloaded as a float.
	dec.UseNumber()
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &plan, nil
}
