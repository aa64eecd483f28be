package planner

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hornetlabs/hornet/internal/analyzer"
	"github.com/hornetlabs/hornet/internal/unit"
)

type failingAnalyzer struct{}

func (f *failingAnalyzer) Language() string            { return "python" }
func (f *failingAnalyzer) ScriptSuffix() string        { return ".py" }
func (f *failingAnalyzer) Matches(string, []byte) bool { return true }
func (f *failingAnalyzer) Discover(string, []byte) ([]unit.Unit, error) {
	return nil, nil
}
func (f *failingAnalyzer) Propose(unit.Unit) ([]unit.Case, unit.Confidence, error) {
	return nil, unit.ConfidenceLow, errors.New("boom")
}
func (f *failingAnalyzer) Render(unit.Unit, []unit.Case) (string, error) {
	return "", nil
}

func TestPlan_EveryUnitGetsACase(t *testing.T) {
	units := []unit.Unit{
		{
			ID:       unit.ID{File: "calc.py", Name: "add"},
			Language: "python",
			Params: []unit.Param{
				{Name: "a", TypeHint: "int"},
				{Name: "b", TypeHint: "int", Default: "2"},
			},
		},
		{
			ID:       unit.ID{File: "calc.py", Name: "mystery"},
			Language: "python",
			Params:   []unit.Param{{Name: "x"}},
		},
	}

	plan, err := New(analyzer.Default(), zap.NewNop()).Plan("/repo", units)
	if err != nil {
		t.Fatal(err)
	}

	if plan.Repo != "/repo" {
		t.Errorf("Repo = %q", plan.Repo)
	}
	if len(plan.Units) != 2 {
		t.Fatalf("got %d planned units, want 2", len(plan.Units))
	}
	for _, up := range plan.Units {
		if len(up.Cases) == 0 {
			t.Errorf("unit %s has no cases", up.ID())
		}
	}

	add, ok := plan.Lookup(unit.ID{File: "calc.py", Name: "add"})
	if !ok {
		t.Fatal("add not planned")
	}
	if add.Confidence != unit.ConfidenceFull {
		t.Errorf("add confidence = %q, want full", add.Confidence)
	}
	if add.Cases[0].Values[1] != json.Number("2") {
		t.Errorf("default not used: %v", add.Cases[0].Values)
	}

	mystery, _ := plan.Lookup(unit.ID{File: "calc.py", Name: "mystery"})
	if mystery.Confidence != unit.ConfidenceLow {
		t.Errorf("mystery confidence = %q, want low", mystery.Confidence)
	}
}

func TestPlan_ProposeFailureFallsBack(t *testing.T) {
	registry := analyzer.NewRegistry(&failingAnalyzer{})
	units := []unit.Unit{{
		ID:       unit.ID{File: "a.py", Name: "f"},
		Language: "python",
		Params:   []unit.Param{{Name: "x"}, {Name: "y"}},
	}}

	plan, err := New(registry, zap.NewNop()).Plan("/repo", units)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Units) != 1 {
		t.Fatalf("got %d planned units, want 1", len(plan.Units))
	}
	up := plan.Units[0]
	if up.Confidence != unit.ConfidenceLow {
		t.Errorf("confidence = %q, want low", up.Confidence)
	}
	if len(up.Cases) != 1 || up.Cases[0].Label != "typical" {
		t.Fatalf("cases = %+v, want single typical case", up.Cases)
	}
	if len(up.Cases[0].Values) != 2 {
		t.Errorf("got %d values, want one per parameter", len(up.Cases[0].Values))
	}
}

func TestPlan_UnknownLanguageFallsBack(t *testing.T) {
	units := []unit.Unit{{
		ID:       unit.ID{File: "a.rb", Name: "f"},
		Language: "ruby",
	}}

	plan, err := New(analyzer.Default(), zap.NewNop()).Plan("/repo", units)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Units) != 1 || plan.Units[0].Confidence != unit.ConfidenceLow {
		t.Fatalf("plan = %+v, want low-confidence fallback", plan.Units)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	plan := &unit.Plan{
		Repo: "/repo",
		Units: []unit.UnitPlan{{
			File:       "calc.py",
			Name:       "add",
			Language:   "python",
			Confidence: unit.ConfidenceFull,
			Cases:      []unit.Case{{Label: "typical", Values: []any{json.Number("0.0"), json.Number("2")}}},
		}},
	}

	if err := Save(plan, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.Repo != plan.Repo {
		t.Errorf("Repo = %q", got.Repo)
	}
	up, ok := got.Lookup(unit.ID{File: "calc.py", Name: "add"})
	if !ok {
		t.Fatal("unit lost in round trip")
	}
	if up.Cases[0].Values[0] != json.Number("0.0") {
		t.Errorf("float value rewritten in round trip: %v", up.Cases[0].Values)
	}
	if up.Cases[0].Values[1] != json.Number("2") {
		t.Errorf("Values = %v", up.Cases[0].Values)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error")
	}
}
