package planner

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/hivemind/internal/errors"
)

// File loads a plan from a YAML document:
//
//	strategy: hybrid
//	workers:
//	  - worker: architect
//	    kind: architect
//	    focus: Map the module boundaries
//	  - worker: backend
//	    kind: backend
//	    focus: Review the storage layer
//	    depends_on: [architect]
type File struct {
	Path string
}

// Plan implements Planner. The task is not consulted.
func (f *File) Plan(_ context.Context, _ string, _ []string) (*Plan, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML plan. Unknown fields are rejected.
func ParseYAML(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, errors.NewPlanError(fmt.Sprintf("malformed plan file: %v", err), errors.ErrPlanInvalid)
	}
	return &p, nil
}
