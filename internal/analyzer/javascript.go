package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/hornetlabs/hornet/internal/unit"
)

// JavaScript discovers top-level function declarations in .js files and
// renders node runner scripts for them. JavaScript carries no type
// annotations, so planning relies on defaults and every hintless parameter
// is low-confidence.
type JavaScript struct {
	lang *sitter.Language
}

// NewJavaScript creates the JavaScript analyzer.
func NewJavaScript() *JavaScript {
	return &JavaScript{lang: javascript.GetLanguage()}
}

func (j *JavaScript) Language() string { return "javascript" }

func (j *JavaScript) ScriptSuffix() string { return ".js" }

// Matches claims .js/.mjs/.cjs files and extensionless files with a node
// shebang.
func (j *JavaScript) Matches(path string, head []byte) bool {
	switch filepath.Ext(path) {
	case ".js", ".mjs", ".cjs":
		return true
	case "":
		if bytes.HasPrefix(head, []byte("#!")) {
			firstLine, _, _ := bytes.Cut(head, []byte("\n"))
			return bytes.Contains(firstLine, []byte("node"))
		}
	}
	return false
}

// Discover returns one Unit per top-level function declaration, including
// exported ones, in declaration order.
func (j *JavaScript) Discover(relPath string, src []byte) ([]unit.Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(j.lang)

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
		if def.Type() == "export_statement" {
			if decl := def.ChildByFieldName("declaration"); decl != nil {
				def = decl
			}
		}
		if def.Type() != "function_declaration" {
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
			Params:    jsParams(def.ChildByFieldName("parameters"), src),
			Docstring: jsLeadingComment(root.NamedChild(i), src),
			Language:  j.Language(),
			StartLine: int(def.StartPoint().Row) + 1,
			EndLine:   int(def.EndPoint().Row) + 1,
		})
	}
	return units, nil
}

func jsParams(params *sitter.Node, src []byte) []unit.Param {
	if params == nil {
		return nil
	}
	var out []unit.Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, unit.Param{Name: nodeText(child, src)})
		case "assignment_pattern":
			param := unit.Param{}
			if left := child.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				param.Name = nodeText(left, src)
			}
			if right := child.ChildByFieldName("right"); right != nil {
				param.Default = nodeText(right, src)
			}
			if param.Name != "" {
				out = append(out, param)
			}
		}
		// rest and destructuring patterns carry no plannable shape
	}
	return out
}

// jsLeadingComment returns the comment block immediately above a declaration,
// stripped of comment markers. The closest JavaScript has to a docstring.
func jsLeadingComment(def *sitter.Node, src []byte) string {
	prev := def.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	if int(def.StartPoint().Row)-int(prev.EndPoint().Row) > 1 {
		return ""
	}
	text := nodeText(prev, src)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Propose applies the shared placeholder policy. There are no JS type hints,
// so confidence is full only when every parameter declares a literal default.
func (j *JavaScript) Propose(u unit.Unit) ([]unit.Case, unit.Confidence, error) {
	cases, confidence := proposeCases(u, func(string) Kind { return KindUnknown }, jsParseLiteral)
	return cases, confidence, nil
}

func jsParseLiteral(text string) (any, bool) {
	text = strings.TrimSpace(text)
	switch text {
	case "undefined", "null":
		return nil, true
	}
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return text[1 : len(text)-1], true
	}
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

var jsScriptTmpl = template.Must(template.New("javascript").Parse(`// Generated by hornet for {{.UnitName}} ({{.File}}). Regenerated wholesale; do not edit.
"use strict";
const path = require("path");

const target = process.env.HORNET_TARGET_REPO_PATH || "";
const mod = require(path.join(target, {{.FileLiteral}}));
const name = {{.NameLiteral}};
let fn = mod ? mod[name] : undefined;
if (fn === undefined && typeof mod === "function" && mod.name === name) {
  fn = mod;
}

const inputs = [
{{- range .Cases}}
  [{{.Label}}, [{{.Args}}]],
{{- end}}
];

const cases = [];
let overall = "pass";
for (const [label, args] of inputs) {
  try {
    if (typeof fn !== "function") {
      throw new Error(name + " is not an exported function");
    }
    fn(...args);
    cases.push({ label: label, status: "pass" });
  } catch (err) {
    console.error(err && err.stack ? err.stack : String(err));
    cases.push({
      label: label,
      status: "fail",
      error_message: String(err && err.message ? err.message : err),
    });
    overall = "fail";
  }
}

console.log(JSON.stringify({ unit_name: {{.IDLiteral}}, cases: cases, overall: overall }));
`))

// Render produces a node script invoking the unit once per case.
func (j *JavaScript) Render(u unit.Unit, cases []unit.Case) (string, error) {
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
			args[i] = jsLiteral(v)
		}
		data.Cases = append(data.Cases, renderedCase{
			Label: strconv.Quote(c.Label),
			Args:  strings.Join(args, ", "),
		})
	}

	var buf bytes.Buffer
	if err := jsScriptTmpl.Execute(&buf, data); err != nil {
		return "", &GenerationError{Unit: u.ID, Err: err}
	}
	return buf.String(), nil
}

func jsLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
