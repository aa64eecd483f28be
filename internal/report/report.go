// Package report formats run outcomes for terminal display.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/hornetlabs/hornet/internal/unit"
)

var (
	passColor  = color.New(color.FgHiGreen)
	failColor  = color.New(color.FgRed)
	errColor   = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
	titleColor = color.New(color.Bold)
)

func statusLabel(s unit.RunStatus) string {
	switch s {
	case unit.StatusPassed:
		return passColor.Sprint("PASS")
	case unit.StatusFailed:
		return failColor.Sprint("FAIL")
	case unit.StatusErrored:
		return errColor.Sprint("ERROR")
	case unit.StatusRunning:
		return dimColor.Sprint("RUNNING")
	default:
		return dimColor.Sprint("PENDING")
	}
}

// Tally counts unit runs by outcome.
type Tally struct {
	Passed  int
	Failed  int
	Errored int
	Total   int
}

func tally(runs []unit.UnitRun) Tally {
	var t Tally
	for _, r := range runs {
		t.Total++
		switch r.Status {
		case unit.StatusPassed:
			t.Passed++
		case unit.StatusFailed:
			t.Failed++
		case unit.StatusErrored:
			t.Errored++
		}
	}
	return t
}

// WriteRun prints a per-unit breakdown of a run followed by a tally line.
// Units in the plan that have no recorded run are listed as not generated.
func WriteRun(w io.Writer, run *unit.Run, unitRuns []unit.UnitRun, plan *unit.Plan) {
	fmt.Fprintf(w, "%s %s\n", titleColor.Sprint("Run"), run.ID)
	fmt.Fprintf(w, "Repository: %s\n", run.Repo)
	fmt.Fprintf(w, "Started: %s (%s)\n", run.StartedAt.Format(time.RFC3339), humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	seen := make(map[string]bool, len(unitRuns))
	for _, ur := range unitRuns {
		seen[ur.UnitName] = true
		fmt.Fprintf(w, "  %-7s %s (%s)\n", statusLabel(ur.Status), ur.UnitName, ur.Duration.Round(time.Millisecond))
		if ur.Status == unit.StatusErrored && ur.Stderr != "" {
			fmt.Fprintf(w, "          %s\n", dimColor.Sprint(firstLine(ur.Stderr)))
		}
	}

	missing := 0
	if plan != nil {
		names := make([]string, 0, len(plan.Units))
		for _, up := range plan.Units {
			names = append(names, up.ID().String())
		}
		sort.Strings(names)
		for _, name := range names {
			if !seen[name] {
				missing++
				fmt.Fprintf(w, "  %-7s %s\n", dimColor.Sprint("NOGEN"), name)
			}
		}
	}

	t := tally(unitRuns)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s passed, %s failed, %s errored",
		titleColor.Sprintf("%d units", t.Total),
		passColor.Sprintf("%d", t.Passed),
		failColor.Sprintf("%d", t.Failed),
		errColor.Sprintf("%d", t.Errored))
	if missing > 0 {
		fmt.Fprintf(w, ", %s", dimColor.Sprintf("%d not generated", missing))
	}
	fmt.Fprintln(w)
}

// WriteHistory prints the newest-first run history of a single unit.
func WriteHistory(w io.Writer, unitName string, runs []unit.UnitRun) {
	fmt.Fprintf(w, "%s %s\n\n", titleColor.Sprint("History for"), unitName)
	if len(runs) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("  no recorded runs"))
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  %-7s %s  run %s  (%s)\n",
			statusLabel(r.Status),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			shortID(r.RunID),
			humanize.Time(r.CreatedAt))
	}
}

// WriteLatest prints the most recent outcome per unit across all runs.
func WriteLatest(w io.Writer, repo string, runs []unit.UnitRun) {
	fmt.Fprintf(w, "%s %s\n\n", titleColor.Sprint("Latest outcomes for"), repo)
	if len(runs) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("  no recorded runs"))
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  %-7s %s  (%s)\n", statusLabel(r.Status), r.UnitName, humanize.Time(r.CreatedAt))
	}
	t := tally(runs)
	fmt.Fprintf(w, "\n%d units: %d passed, %d failed, %d errored\n", t.Total, t.Passed, t.Failed, t.Errored)
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
