// Package generator renders one self-contained executable script per
// planned unit into the workspace scripts directory.
package generator

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hornetlabs/hornet/internal/analyzer"
	"github.com/hornetlabs/hornet/internal/unit"
	"github.com/hornetlabs/hornet/internal/workspace"
)

// generatedMarker is the first-line tag identifying scripts this generator
// owns. Scripts without it (hand-written or produced externally) are left
// untouched by regeneration.
const generatedMarker = "Generated by hornet"

// Skipped records a unit that could not be rendered; the batch continues
// and the unit is surfaced as "not generated" in reports.
type Skipped struct {
	Unit unit.ID
	Err  error
}

// Generator renders scripts for a plan.
type Generator struct {
	registry *analyzer.Registry
	logger   *zap.Logger
}

// New creates a Generator over the given registry.
func New(registry *analyzer.Registry, logger *zap.Logger) *Generator {
	return &Generator{registry: registry, logger: logger}
}

// Generate renders one script per planned unit into dir, regenerating
// wholesale: previously generated scripts are removed first, then every unit
// is rendered fresh. A unit whose analyzer cannot render it is skipped and
// reported, never aborting the batch. Generation is idempotent for an
// unchanged plan.
func (g *Generator) Generate(plan *unit.Plan, dir string) ([]unit.GeneratedScript, []Skipped, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating scripts dir: %w", err)
	}
	if err := removeGenerated(dir); err != nil {
		return nil, nil, err
	}

	var scripts []unit.GeneratedScript
	var skipped []Skipped

	for _, up := range plan.Units {
		a, ok := g.registry.ByLanguage(up.Language)
		if !ok {
			skipped = append(skipped, Skipped{Unit: up.ID(), Err: fmt.Errorf("no analyzer for language %q", up.Language)})
			continue
		}
		if len(up.Cases) == 0 {
			// A planned unit with zero cases is a planner bug; refuse to
			// render rather than emit a script with invalid summary output.
			skipped = append(skipped, Skipped{Unit: up.ID(), Err: fmt.Errorf("plan has no cases")})
			continue
		}

		u := unit.Unit{ID: up.ID(), Language: up.Language}
		text, err := a.Render(u, up.Cases)
		if err != nil {
			g.logger.Warn("script not generated", zap.String("unit", up.ID().String()), zap.Error(err))
			skipped = append(skipped, Skipped{Unit: up.ID(), Err: err})
			continue
		}

		path := filepath.Join(dir, ScriptName(up.ID(), a.ScriptSuffix()))
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			skipped = append(skipped, Skipped{Unit: up.ID(), Err: fmt.Errorf("writing script: %w", err)})
			continue
		}
		scripts = append(scripts, unit.GeneratedScript{Unit: up.ID(), Language: up.Language, Path: path})
	}

	g.logger.Info("generation complete",
		zap.Int("scripts", len(scripts)),
		zap.Int("skipped", len(skipped)))
	return scripts, skipped, nil
}

// Resolve attaches plan identities to scripts loaded back from the scripts
// directory, matching on the deterministic filename. Scripts the plan does
// not cover (dropped in by an external producer) pass through unchanged.
func (g *Generator) Resolve(plan *unit.Plan, scripts []unit.GeneratedScript) []unit.GeneratedScript {
	byName := make(map[string]unit.UnitPlan, len(plan.Units))
	for _, up := range plan.Units {
		a, ok := g.registry.ByLanguage(up.Language)
		if !ok {
			continue
		}
		byName[ScriptName(up.ID(), a.ScriptSuffix())] = up
	}

	out := make([]unit.GeneratedScript, len(scripts))
	for i, s := range scripts {
		if up, ok := byName[filepath.Base(s.Path)]; ok {
			s.Unit = up.ID()
			s.Language = up.Language
		}
		out[i] = s
	}
	return out
}

// ScriptName derives the deterministic script filename for a unit. The full
// relative path feeds the slug so same-named functions in same-named files
// under different directories keep distinct scripts.
func ScriptName(id unit.ID, suffix string) string {
	stem := strings.TrimSuffix(id.File, filepath.Ext(id.File))
	return workspace.Slugify(stem) + "__" + workspace.Slugify(id.Name) + suffix
}

// removeGenerated deletes scripts carrying the generated marker on their
// first line. Anything else in the directory is preserved.
func removeGenerated(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading scripts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isGenerated(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing stale script: %w", err)
		}
	}
	return nil
}

func isGenerated(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false
	}
	return strings.Contains(scanner.Text(), generatedMarker)
}
