package orchestratornode

import (
	"strings"
	"time"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

type GraphInput struct {
	RunID     string
	Query     string
	StartedAt time.Time
}

type GraphOutput struct {
	Output contractx.EntityOutput
	// Failed carries GraphState.Failed so the caller can decide whether the
	// output is worth caching.
	Failed []contractx.Stage
}

type GraphState struct {
	RunID     string
	Query     string
	StartedAt time.Time

	Context *contractx.PipelineContext
	Record  contractx.Record

	// Failed lists the stages that contributed nothing.
	Failed []contractx.Stage
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, contractx.ErrInvalidQuery
	}

	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = nowFn()
	}

	return &GraphState{
		RunID:     in.RunID,
		Query:     query,
		StartedAt: startedAt,
	}, nil
}
