package analyzer

import (
	"encoding/json"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Kind classifies a declared parameter type into the fixed placeholder
// policy table. The table is shared by every analyzer so plans stay
// reproducible across languages.
type Kind int

const (
	KindUnknown Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindSequence
	KindMapping
)

// Placeholder returns the canonical placeholder value for a kind:
// 0 for integers, 0.0 for floats, "" for strings, false for booleans,
// [] for sequences, {} for mappings, and nil for unknown.
func Placeholder(k Kind) any {
	switch k {
	case KindInt:
		return 0
	case KindFloat:
		// json.Number keeps the decimal point through plan round trips,
		// so the rendered argument stays a float literal.
		return json.Number("0.0")
	case KindString:
		return ""
	case KindBool:
		return false
	case KindSequence:
		return []any{}
	case KindMapping:
		return map[string]any{}
	}
	return nil
}

// proposeCases builds the case list for a unit from its declared defaults
// and type hints. kindOf maps a language's raw type annotation to a Kind and
// parseDefault turns a default expression's source text into a plan value.
//
// The "typical" case is always emitted: defaults win over type placeholders,
// and a parameter with neither a parseable default nor a recognized hint gets
// the unknown placeholder and drags the unit's confidence down to low. When
// every parameter resolved to an emptiable kind an additional "empty" case
// exercises the zero-size inputs.
func proposeCases(u unit.Unit, kindOf func(string) Kind, parseDefault func(string) (any, bool)) ([]unit.Case, unit.Confidence) {
	typical := make([]any, len(u.Params))
	empty := make([]any, len(u.Params))
	confidence := unit.ConfidenceFull
	emptiable := len(u.Params) > 0

	for i, p := range u.Params {
		kind := KindUnknown
		if p.TypeHint != "" {
			kind = kindOf(p.TypeHint)
		}

		resolved := false
		if p.Default != "" {
			if v, ok := parseDefault(p.Default); ok {
				typical[i] = v
				resolved = true
			}
		}
		if !resolved {
			typical[i] = Placeholder(kind)
			resolved = kind != KindUnknown
		}
		if !resolved {
			confidence = unit.ConfidenceLow
		}

		switch kind {
		case KindString, KindSequence, KindMapping:
			empty[i] = Placeholder(kind)
		default:
			emptiable = false
		}
	}

	cases := []unit.Case{{Label: "typical", Values: typical}}
	if emptiable {
		cases = append(cases, unit.Case{Label: "empty", Values: empty})
	}
	return cases, confidence
}
