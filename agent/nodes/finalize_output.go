package orchestratornode

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
	reconcilex "github.com/tanpawarit/entity-research/agent/reconcile"
)

func Reconcile(in *GraphState) (*GraphState, error) {
	if in == nil || in.Context == nil {
		return nil, fmt.Errorf("%w: graph state has no pipeline context", contractx.ErrValidation)
	}
	in.Record = reconcilex.Reconcile(in.Context)
	return in, nil
}

func FinalizeOutput(in *GraphState, nowFn func() time.Time) (GraphOutput, error) {
	if in == nil || in.Context == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state has no pipeline context", contractx.ErrValidation)
	}
	if in.Record == nil {
		return GraphOutput{}, fmt.Errorf("%w: record was not reconciled", contractx.ErrValidation)
	}

	now := nowFn()
	elapsed := now.Sub(in.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return GraphOutput{Output: contractx.EntityOutput{
		EntityType:            in.Context.EntityType,
		Data:                  in.Record,
		QueryTimestamp:        now.UTC().Format(time.RFC3339),
		ProcessingTimeSeconds: elapsed,
	}, Failed: in.Failed}, nil
}
