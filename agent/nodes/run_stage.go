package orchestratornode

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

type AgentRunner interface {
	Run(ctx context.Context, agent contractx.Agent, query string, pc *contractx.PipelineContext) contractx.AgentResult
}

// RunStage runs one agent and merges its items into the section owned by
// stage. A failed agent is logged and contributes nothing.
func RunStage(
	ctx context.Context,
	in *GraphState,
	runner AgentRunner,
	agent contractx.Agent,
	stage contractx.Stage,
) (*GraphState, error) {
	if in == nil || in.Context == nil {
		return nil, fmt.Errorf("%w: graph state has no pipeline context", contractx.ErrValidation)
	}

	res := runner.Run(ctx, agent, in.Query, in.Context)
	if res.Failed() {
		log.Warn().
			Str("run_id", in.RunID).
			Str("stage", string(stage)).
			Str("error", res.Error).
			Msg("pipeline: stage failed, continuing with an empty contribution")
		in.Failed = append(in.Failed, stage)
		return in, ValidateContext(in)
	}

	rejected, err := in.Context.Merge(stage, res.Items)
	if err != nil {
		return nil, err
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		log.Warn().
			Str("run_id", in.RunID).
			Str("stage", string(stage)).
			Strs("keys", rejected).
			Msg("pipeline: keys already written, keeping earlier values")
	}

	log.Debug().
		Str("run_id", in.RunID).
		Str("stage", string(stage)).
		Int("items", len(res.Items)-len(rejected)).
		Float64("processing_time", res.ProcessingTime).
		Msg("pipeline: stage done")
	return in, ValidateContext(in)
}

func ValidateContext(in *GraphState) error {
	if in == nil {
		return fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := in.Context.Validate(); err != nil {
		return fmt.Errorf("pipeline context validation failed: %w", err)
	}
	return nil
}
