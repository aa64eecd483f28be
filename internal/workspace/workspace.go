// Package workspace manages hornet's per-repository state directory under
// the store root (default ~/.hornet/<repo-slug>/).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var slugRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slugify turns a name into a filesystem-safe slug. Empty or fully
// unsafe names fall back to "repo".
func Slugify(name string) string {
	s := slugRe.ReplaceAllString(strings.TrimSpace(name), "-")
	s = strings.Trim(s, "-_")
	if s == "" {
		return "repo"
	}
	return s
}

// Paths locates all per-repository state files.
type Paths struct {
	Repo         string // absolute path of the target repository
	Base         string // <storeRoot>/<slug>
	Scripts      string // generated scripts directory
	PlanPath     string // persisted plan artifact
	Requirements string // synthesized requirements document
	DBPath       string // run ledger database
}

// Ensure resolves and creates the state directory for a target repository.
func Ensure(storeRoot, repo string) (*Paths, error) {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("target repo: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target repo %s is not a directory", abs)
	}

	base := filepath.Join(storeRoot, Slugify(filepath.Base(abs)))
	scripts := filepath.Join(base, "scripts")
	for _, dir := range []string{base, scripts} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
	}

	return &Paths{
		Repo:         abs,
		Base:         base,
		Scripts:      scripts,
		PlanPath:     filepath.Join(base, "plan.json"),
		Requirements: filepath.Join(base, "requirements.md"),
		DBPath:       filepath.Join(base, "hornet.db"),
	}, nil
}
