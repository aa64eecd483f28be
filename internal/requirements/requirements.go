// Package requirements renders a behavioral requirements document from
// discovered units and their planned cases.
package requirements

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/hornetlabs/hornet/internal/unit"
)

const docTmpl = `# Behavioral Requirements

Repository: {{.Repo}}
Generated: {{.Generated}}
Units: {{.UnitCount}} callable units across {{len .Files}} files

{{range .Files}}## {{.Path}}

{{range .Units}}### {{.Unit.ID.Name}}

{{if .Unit.Docstring}}{{.Unit.Docstring}}

{{end}}- Language: {{.Unit.Language}}
- Location: lines {{.Unit.StartLine}}-{{.Unit.EndLine}}
{{- if .Unit.Params}}
- Parameters:
{{- range .Unit.Params}}
  - ` + "`{{.Name}}`" + `{{if .TypeHint}} ({{.TypeHint}}){{end}}{{if .Default}} = {{.Default}}{{end}}
{{- end}}
{{- else}}
- Parameters: none
{{- end}}
{{- if .Planned}}
- Confidence: {{.Confidence}}
- Proposed cases:
{{- range .Cases}}
  - {{.Label}}
{{- end}}
{{- end}}

{{end}}{{end}}`

type docUnit struct {
	Unit       unit.Unit
	Planned    bool
	Cases      []unit.Case
	Confidence unit.Confidence
}

type docFile struct {
	Path  string
	Units []docUnit
}

type docData struct {
	Repo      string
	Generated string
	UnitCount int
	Files     []docFile
}

var tmpl = template.Must(template.New("requirements").Parse(docTmpl))

// Render produces the requirements document for a set of discovered units.
// The plan supplies case labels and confidence; it may be nil.
func Render(repo string, units []unit.Unit, plan *unit.Plan) (string, error) {
	byFile := map[string][]docUnit{}
	for _, u := range units {
		du := docUnit{Unit: u}
		if plan != nil {
			if up, ok := plan.Lookup(u.ID); ok {
				du.Planned = true
				du.Cases = up.Cases
				du.Confidence = up.Confidence
			}
		}
		byFile[u.ID.File] = append(byFile[u.ID.File], du)
	}

	files := make([]docFile, 0, len(byFile))
	for path, dus := range byFile {
		sort.Slice(dus, func(i, j int) bool {
			return dus[i].Unit.StartLine < dus[j].Unit.StartLine
		})
		files = append(files, docFile{Path: path, Units: dus})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	generated := time.Now().UTC()
	if plan != nil {
		generated = plan.CreatedAt.UTC()
	}
	data := docData{
		Repo:      repo,
		Generated: generated.Format(time.RFC3339),
		UnitCount: len(units),
		Files:     files,
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render requirements: %w", err)
	}
	return b.String(), nil
}

// Write renders the document and writes it to path.
func Write(repo string, units []unit.Unit, plan *unit.Plan, path string) error {
	doc, err := Render(repo, units, plan)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write requirements: %w", err)
	}
	return nil
}
