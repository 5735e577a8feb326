package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

const markdownTemplate = `# Synthesis: {{.Task}}

Session ` + "`{{.SessionID}}`" + `{{if .Strategy}} ({{.Strategy}}){{end}}, status **{{.Status}}**.

## Workers
{{range .Workers}}
- **{{.Worker}}** ({{.Kind}}): {{.Focus}}{{if .Summary}}
  {{.Summary}}{{end}}
{{- end}}

## Findings
{{range .Findings}}
- [{{.Worker}}] {{.Text}}
{{- else}}
_None reported._
{{- end}}

## Recommendations
{{range .Recommendations}}
- [{{.Worker}}] {{.Text}}
{{- else}}
_None reported._
{{- end}}
{{if .FollowUps}}
## Follow-ups
{{range .FollowUps}}
- [{{.Worker}}] {{.Text}}
{{- end}}
{{end}}`

var mdTemplate = template.Must(template.New("synthesis").Parse(markdownTemplate))

// Render encodes a as indented JSON and as a markdown report.
func Render(a *Artifact) (jsonData, mdData []byte, err error) {
	jsonData, err = json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode synthesis: %w", err)
	}
	jsonData = append(jsonData, '\n')

	var md bytes.Buffer
	if err := mdTemplate.Execute(&md, a); err != nil {
		return nil, nil, fmt.Errorf("failed to render synthesis: %w", err)
	}
	return jsonData, md.Bytes(), nil
}
