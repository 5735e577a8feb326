package event

import (
	"errors"
	"fmt"
	"sort"
)

// Class groups event types by who may emit them.
type Class int

const (
	// ClassWorker events are emitted by a worker about itself.
	ClassWorker Class = iota
	// ClassOrchestration events are emitted by the queen.
	ClassOrchestration
)

// String returns the class name.
func (c Class) String() string {
	if c == ClassOrchestration {
		return "orchestration"
	}
	return "worker"
}

// Schema describes a known event type.
type Schema struct {
	Type     Type
	Class    Class
	Required []string
}

// Schema validation errors. Validation happens when an event is consumed,
// never when it is appended.
var (
	ErrUnknownType   = errors.New("unknown event type")
	ErrMissingDetail = errors.New("missing required detail")
	ErrWrongAgent    = errors.New("event type not permitted for agent")
)

var registry = map[Type]Schema{}

func register(t Type, class Class, required ...string) {
	registry[t] = Schema{Type: t, Class: class, Required: required}
}

func init() {
	register(WorkerSpawned, ClassWorker)
	register(SessionValidated, ClassWorker)
	register(WorkerConfigured, ClassWorker)
	register(AnalysisStarted, ClassWorker)
	register(ProgressUpdate, ClassWorker)
	register(NotesCreated, ClassWorker, KeyPath)
	register(JSONCreated, ClassWorker, KeyPath)
	register(WorkerCompleted, ClassWorker)
	register(WorkerFailed, ClassWorker, KeyReason)

	register(SessionCreated, ClassOrchestration, KeyTask)
	register(TasksAssigned, ClassOrchestration, KeyAssignments)
	register(WorkerTimedOut, ClassOrchestration, KeyWorker)
	register(AuditPassed, ClassOrchestration, KeyWorker)
	register(AuditFailed, ClassOrchestration, KeyWorker, KeyReason)
	register(WorkerRespawned, ClassOrchestration, KeyWorker)
	register(WorkerEscalated, ClassOrchestration, KeyWorker, KeyReason)
	register(SynthesisDelegated, ClassOrchestration)
	register(SessionCompleted, ClassOrchestration, KeyArtifact)
	register(SessionFailed, ClassOrchestration, KeyReason)
}

// Lookup returns the schema for a type.
func Lookup(t Type) (Schema, bool) {
	s, ok := registry[t]
	return s, ok
}

// Types returns every registered type in lexical order.
func Types() []Type {
	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate checks an event against its schema: the type must be registered,
// the agent must belong to the type's class, and required details must be
// present. It does not check that a worker agent is assigned in the session.
func Validate(e Event) error {
	schema, ok := registry[e.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}

	isQueen := e.Agent == QueenAgent
	switch {
	case e.Agent == "":
		return fmt.Errorf("%w: %s has no agent", ErrWrongAgent, e.Type)
	case schema.Class == ClassOrchestration && !isQueen:
		return fmt.Errorf("%w: %s emitted by %q", ErrWrongAgent, e.Type, e.Agent)
	case schema.Class == ClassWorker && isQueen:
		return fmt.Errorf("%w: %s emitted by %q", ErrWrongAgent, e.Type, e.Agent)
	}

	for _, key := range schema.Required {
		v, ok := e.Details[key]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("%w: %s requires %q", ErrMissingDetail, e.Type, key)
		}
	}
	return nil
}
