package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/textgen"
)

// oraclePrompt is the planning prompt sent to the text-generation collaborator.
const oraclePrompt = `You are the coordinator of a team of specialist workers.

## Task
{{.Task}}

## Available Worker Kinds
{{range .Kinds}}- {{.}}
{{end}}
## Instructions

Choose the workers needed for the task and what each should focus on.
Use each kind at most once unless the task clearly needs two workers of a kind.
Declare a dependency only when a worker needs another worker's findings first.

## Response Format

Respond ONLY with a JSON object of this shape:
{"strategy": "parallel" | "sequential" | "hybrid",
 "workers": [{"worker": "<id>", "kind": "<kind>", "focus": "<focus>", "depends_on": ["<id>"]}]}

Worker ids must be lowercase letters, digits, '-' or '_', starting with a letter.
`

var oracleTemplate = template.Must(template.New("plan").Parse(oraclePrompt))

// Oracle asks a text generator for a plan. An answer that cannot be parsed
// or fails validation falls back to the Static plan.
type Oracle struct {
	Generator textgen.Generator
	Logger    *logging.Logger
	// MaxWorkers bounds the accepted plan when positive.
	MaxWorkers int
}

// Plan implements Planner.
func (o *Oracle) Plan(ctx context.Context, task string, kinds []string) (*Plan, error) {
	log := o.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithPhase("planning")

	var prompt bytes.Buffer
	if err := oracleTemplate.Execute(&prompt, struct {
		Task  string
		Kinds []string
	}{task, kinds}); err != nil {
		return nil, fmt.Errorf("failed to build planning prompt: %w", err)
	}

	resp, err := o.Generator.Generate(ctx, textgen.Request{Prompt: prompt.String()})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("oracle planning failed, using static plan", "error", err)
		return (&Static{MaxWorkers: o.MaxWorkers}).Plan(ctx, task, kinds)
	}

	p, err := parseOracle(resp.Text)
	if err == nil {
		// Validate before the strategy adds edges so a bad answer is caught
		// here and not after the caller commits to it.
		err = Validate(p, kinds, o.MaxWorkers)
	}
	if err != nil {
		log.Warn("oracle plan rejected, using static plan", "error", err)
		return (&Static{MaxWorkers: o.MaxWorkers}).Plan(ctx, task, kinds)
	}
	return p, nil
}

func parseOracle(text string) (*Plan, error) {
	raw, err := textgen.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("malformed plan: %w", err)
	}
	return &p, nil
}
