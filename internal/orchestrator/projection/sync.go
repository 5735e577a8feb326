package projection

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// Source is the part of the session store the projector reads and writes.
type Source interface {
	ReadEvents(id string, since session.Cursor) ([]session.Record, session.Cursor, error)
	UpdateState(ctx context.Context, id string, mutate session.Mutation) (*types.State, error)
}

// Projector keeps state documents in step with their event logs.
type Projector struct {
	src    Source
	logger *logging.Logger
}

// NewProjector creates a Projector over src. A nil logger discards output.
func NewProjector(src Source, logger *logging.Logger) *Projector {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Projector{src: src, logger: logger}
}

// Sync applies every record appended after the state's cursor and commits
// the result. It returns the committed state and the events it applied, in
// log order. Nothing is written when the log has not grown.
func (p *Projector) Sync(ctx context.Context, id string) (*types.State, []event.Event, error) {
	var applied []event.Event
	var before int

	state, err := p.src.UpdateState(ctx, id, func(s *types.State) error {
		// The mutation may be retried, so start over each time.
		applied = applied[:0]
		before = len(s.Anomalies)

		records, _, err := p.src.ReadEvents(id, session.Cursor(s.Cursor))
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return session.ErrNoChange
		}
		for _, rec := range records {
			apply(s, rec.Event)
			s.Cursor = int64(rec.Next)
			applied = append(applied, rec.Event)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sync state: %w", err)
	}

	p.logAnomalies(id, state, before)
	return state, applied, nil
}

// Rebuild discards the stored projection and recomputes it from the whole
// log. The revision keeps increasing so concurrent writers still detect the
// change.
func (p *Projector) Rebuild(ctx context.Context, id string) (*types.State, error) {
	state, err := p.src.UpdateState(ctx, id, func(s *types.State) error {
		records, cursor, err := p.src.ReadEvents(id, 0)
		if err != nil {
			return err
		}
		events := make([]event.Event, len(records))
		for i, rec := range records {
			events[i] = rec.Event
		}

		rebuilt := Replay(id, events)
		rebuilt.Revision = s.Revision
		rebuilt.Cursor = int64(cursor)
		*s = *rebuilt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild state: %w", err)
	}
	p.logger.WithSession(id).Info("state rebuilt from event log",
		"events", state.Applied, "anomalies", len(state.Anomalies))
	return state, nil
}

func (p *Projector) logAnomalies(id string, state *types.State, before int) {
	if before > len(state.Anomalies) {
		return
	}
	log := p.logger.WithSession(id).WithPhase("projection")
	for _, a := range state.Anomalies[before:] {
		log.Warn("event had no effect",
			"type", string(a.Type), "agent", a.Agent, "reason", a.Reason)
	}
}
