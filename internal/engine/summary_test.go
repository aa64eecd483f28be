package engine

import (
	"strings"
	"testing"
)

func TestParseSummary(t *testing.T) {
	stdout := "debug noise\nmore noise\n" +
		`{"unit_name":"calc.py::add","cases":[{"label":"typical","status":"pass"}],"overall":"pass"}` + "\n"

	s, err := ParseSummary(stdout)
	if err != nil {
		t.Fatal(err)
	}
	if s.UnitName != "calc.py::add" {
		t.Errorf("UnitName = %q", s.UnitName)
	}
	if len(s.Cases) != 1 || s.Cases[0].Label != "typical" {
		t.Errorf("Cases = %+v", s.Cases)
	}
	if s.Overall != "pass" {
		t.Errorf("Overall = %q", s.Overall)
	}
}

func TestParseSummary_FailWithErrorMessage(t *testing.T) {
	stdout := `{"unit_name":"u","cases":[{"label":"typical","status":"fail","error_message":"division by zero"}],"overall":"fail"}`

	s, err := ParseSummary(stdout)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overall != "fail" {
		t.Errorf("Overall = %q", s.Overall)
	}
	if s.Cases[0].ErrorMessage != "division by zero" {
		t.Errorf("ErrorMessage = %q", s.Cases[0].ErrorMessage)
	}
}

func TestParseSummary_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		reason string
	}{
		{"empty output", "", "no summary line"},
		{"not json", "hello world\n", "not parseable"},
		{"missing unit name", `{"cases":[{"label":"a","status":"pass"}],"overall":"pass"}`, "missing unit_name"},
		{"zero cases", `{"unit_name":"u","cases":[],"overall":"pass"}`, "zero cases"},
		{"bad overall", `{"unit_name":"u","cases":[{"label":"a","status":"pass"}],"overall":"maybe"}`, "not pass or fail"},
		{"bad case status", `{"unit_name":"u","cases":[{"label":"a","status":"crashed"}],"overall":"pass"}`, "unknown status"},
		{"inconsistent pass", `{"unit_name":"u","cases":[{"label":"a","status":"fail"}],"overall":"pass"}`, "inconsistent"},
		{"inconsistent fail", `{"unit_name":"u","cases":[{"label":"a","status":"pass"}],"overall":"fail"}`, "inconsistent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSummary(tt.stdout)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", err, tt.reason)
			}
		})
	}
}

func TestParseSummary_LastLineWins(t *testing.T) {
	stdout := `{"unit_name":"old","cases":[{"label":"a","status":"pass"}],"overall":"pass"}` + "\n" +
		`{"unit_name":"new","cases":[{"label":"a","status":"pass"}],"overall":"pass"}` + "\n\n"

	s, err := ParseSummary(stdout)
	if err != nil {
		t.Fatal(err)
	}
	if s.UnitName != "new" {
		t.Errorf("UnitName = %q, want the last line's", s.UnitName)
	}
}
