package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

// ClassifyEntity fixes the entity type for the rest of the run and creates
// the pipeline context.
func ClassifyEntity(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	et := classifier.Classify(ctx, in.Query)
	if !et.Valid() {
		et = contractx.EntityPerson
	}
	in.Context = contractx.NewPipelineContext(in.Query, et)

	log.Info().Str("run_id", in.RunID).Str("entity_type", string(et)).Msg("pipeline: entity classified")
	return in, ValidateContext(in)
}
