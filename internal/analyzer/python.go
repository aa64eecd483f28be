package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Python discovers module-level functions in .py files and renders python3
// runner scripts for them.
type Python struct {
	lang *sitter.Language
}

// NewPython creates the Python analyzer.
func NewPython() *Python {
	return &Python{lang: python.GetLanguage()}
}

func (p *Python) Language() string { return "python" }

func (p *Python) ScriptSuffix() string { return ".py" }

// Matches claims .py files and extensionless files with a python shebang.
func (p *Python) Matches(path string, head []byte) bool {
	if filepath.Ext(path) == ".py" {
		return true
	}
	if filepath.Ext(path) == "" && bytes.HasPrefix(head, []byte("#!")) {
		firstLine, _, _ := bytes.Cut(head, []byte("\n"))
		return bytes.Contains(firstLine, []byte("python"))
	}
	return false
}

// Discover parses the file and returns one Unit per public module-level
// function, in declaration order. Methods and underscore-prefixed names are
// not exercised.
func (p *Python) Discover(relPath string, src []byte) ([]unit.Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &ParseError{File: relPath, Err: err}
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		return nil, &ParseError{File: relPath, Err: fmt.Errorf("syntax errors in source")}
	}

	var units []unit.Unit
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		def := root.NamedChild(i)
		if def.Type() == "decorated_definition" {
			if inner := def.ChildByFieldName("definition"); inner != nil {
				def = inner
			}
		}
		if def.Type() != "function_definition" {
			continue
		}

		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, src)
		if strings.HasPrefix(name, "_") {
			continue
		}

		units = append(units, unit.Unit{
			ID:        unit.ID{File: relPath, Name: name},
			Params:    pythonParams(def.ChildByFieldName("parameters"), src),
			Docstring: pythonDocstring(def.ChildByFieldName("body"), src),
			Language:  p.Language(),
			StartLine: int(def.StartPoint().Row) + 1,
			EndLine:   int(def.EndPoint().Row) + 1,
		})
	}
	return units, nil
}

func pythonParams(params *sitter.Node, src []byte) []unit.Param {
	if params == nil {
		return nil
	}
	var out []unit.Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, unit.Param{Name: nodeText(child, src)})
		case "typed_parameter":
			param := unit.Param{}
			if id := child.NamedChild(0); id != nil && id.Type() == "identifier" {
				param.Name = nodeText(id, src)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.TypeHint = nodeText(typ, src)
			}
			if param.Name != "" {
				out = append(out, param)
			}
		case "default_parameter", "typed_default_parameter":
			param := unit.Param{}
			if id := child.ChildByFieldName("name"); id != nil {
				param.Name = nodeText(id, src)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.TypeHint = nodeText(typ, src)
			}
			if val := child.ChildByFieldName("value"); val != nil {
				param.Default = nodeText(val, src)
			}
			if param.Name != "" {
				out = append(out, param)
			}
		}
		// *args / **kwargs are variadic and carry no plannable shape.
	}
	return out
}

func pythonDocstring(body *sitter.Node, src []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	doc := nodeText(str, src)
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(doc, q) && strings.HasSuffix(doc, q) && len(doc) >= 2*len(q) {
			return strings.TrimSpace(doc[len(q) : len(doc)-len(q)])
		}
	}
	return strings.TrimSpace(doc)
}

// Propose applies the shared placeholder policy with python type hints.
func (p *Python) Propose(u unit.Unit) ([]unit.Case, unit.Confidence, error) {
	cases, confidence := proposeCases(u, pythonKindOf, pythonParseLiteral)
	return cases, confidence, nil
}

func pythonKindOf(hint string) Kind {
	base := strings.TrimSpace(hint)
	// typing.List[int] -> list
	if idx := strings.IndexByte(base, '['); idx >= 0 {
		base = base[:idx]
	}
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[idx+1:]
	}
	switch strings.ToLower(base) {
	case "int":
		return KindInt
	case "float":
		return KindFloat
	case "str":
		return KindString
	case "bool":
		return KindBool
	case "list", "tuple", "set", "sequence", "iterable":
		return KindSequence
	case "dict", "mapping":
		return KindMapping
	}
	return KindUnknown
}

// pythonParseLiteral interprets a default expression's source text as a plan
// value. Non-literal defaults (calls, names) are not interpretable and the
// parameter falls back to its type placeholder.
func pythonParseLiteral(text string) (any, bool) {
	text = strings.TrimSpace(text)
	switch text {
	case "None":
		return nil, true
	case "True":
		return true, true
	case "False":
		return false, true
	}
	if len(text) >= 2 {
		if (text[0] == '\'' && text[len(text)-1] == '\'') || (text[0] == '"' && text[len(text)-1] == '"') {
			return text[1 : len(text)-1], true
		}
	}
	// UseNumber keeps integer and float literals distinct so a default of 2
	// is not rewritten to 2.0 in the generated script.
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil {
		if _, err := dec.Token(); err == io.EOF {
			return v, true
		}
	}
	return nil, false
}

// pythonLiteral renders a plan value as python source.
func pythonLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = pythonLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(val))
		for _, k := range sortedKeys(val) {
			parts = append(parts, strconv.Quote(k)+": "+pythonLiteral(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case json.Number:
		return val.String()
	case float64:
		// Keep the decimal point so 0.0 stays a python float, not an int.
		s := strconv.FormatFloat(val, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprintf("%v", val)
	}
}

var pythonScriptTmpl = template.Must(template.New("python").Parse(`# Generated by hornet for {{.UnitName}} ({{.File}}). Regenerated wholesale; do not edit.
import json
import os
import sys
import traceback
import importlib.util

_target = os.environ.get("HORNET_TARGET_REPO_PATH", "")
if _target and _target not in sys.path:
    sys.path.insert(0, _target)

_spec = importlib.util.spec_from_file_location("hornet_target", os.path.join(_target, {{.FileLiteral}}))
_mod = importlib.util.module_from_spec(_spec)
_spec.loader.exec_module(_mod)
_fn = getattr(_mod, {{.NameLiteral}})

_cases = []
_overall = "pass"
for _label, _args in [
{{- range .Cases}}
    ({{.Label}}, [{{.Args}}]),
{{- end}}
]:
    try:
        _fn(*_args)
        _cases.append({"label": _label, "status": "pass"})
    except BaseException as _exc:
        traceback.print_exc(file=sys.stderr)
        _cases.append({"label": _label, "status": "fail", "error_message": str(_exc)})
        _overall = "fail"

print(json.dumps({"unit_name": {{.IDLiteral}}, "cases": _cases, "overall": _overall}))
`))

type scriptData struct {
	UnitName    string
	File        string
	FileLiteral string
	NameLiteral string
	IDLiteral   string // canonical "file::name" identity reported in the summary
	Cases       []renderedCase
}

type renderedCase struct {
	Label string
	Args  string
}

// Render produces a python3 script invoking the unit once per case. The
// target module is loaded by file path so nothing in the repository is
// imported as a package or mutated.
func (p *Python) Render(u unit.Unit, cases []unit.Case) (string, error) {
	if len(cases) == 0 {
		return "", &GenerationError{Unit: u.ID, Err: fmt.Errorf("no cases to render")}
	}

	data := scriptData{
		UnitName:    u.ID.Name,
		File:        u.ID.File,
		FileLiteral: strconv.Quote(filepath.ToSlash(u.ID.File)),
		NameLiteral: strconv.Quote(u.ID.Name),
		IDLiteral:   strconv.Quote(u.ID.String()),
	}
	for _, c := range cases {
		args := make([]string, len(c.Values))
		for i, v := range c.Values {
			args[i] = pythonLiteral(v)
		}
		data.Cases = append(data.Cases, renderedCase{
			Label: strconv.Quote(c.Label),
			Args:  strings.Join(args, ", "),
		})
	}

	var buf bytes.Buffer
	if err := pythonScriptTmpl.Execute(&buf, data); err != nil {
		return "", &GenerationError{Unit: u.ID, Err: err}
	}
	return buf.String(), nil
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}
