package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CaseResult is one case outcome reported by a generated script.
type CaseResult struct {
	Label        string `json:"label"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Summary is the machine-parseable final stdout line every script must
// emit. The contract is fixed across analyzers and external producers alike.
type Summary struct {
	UnitName string       `json:"unit_name"`
	Cases    []CaseResult `json:"cases"`
	Overall  string       `json:"overall"`
}

// ParseSummary extracts and validates the summary from a script's captured
// stdout. The summary must be the last non-empty line; zero cases, an
// unknown overall value, or an overall inconsistent with the case statuses
// all make the output malformed.
func ParseSummary(stdout string) (*Summary, error) {
	line := lastLine(stdout)
	if line == "" {
		return nil, fmt.Errorf("no summary line in output")
	}

	var s Summary
	if err := json.Unmarshal([]byte(line), &s); err != nil {
		return nil, fmt.Errorf("summary line not parseable: %w", err)
	}
	if s.UnitName == "" {
		return nil, fmt.Errorf("summary missing unit_name")
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("summary reports zero cases")
	}
	if s.Overall != "pass" && s.Overall != "fail" {
		return nil, fmt.Errorf("summary overall %q is not pass or fail", s.Overall)
	}

	allPass := true
	for _, c := range s.Cases {
		switch c.Status {
		case "pass":
		case "fail":
			allPass = false
		default:
			return nil, fmt.Errorf("case %q has unknown status %q", c.Label, c.Status)
		}
	}
	if allPass != (s.Overall == "pass") {
		return nil, fmt.Errorf("summary overall %q inconsistent with case statuses", s.Overall)
	}
	return &s, nil
}

func lastLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
