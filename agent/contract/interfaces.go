package contract

import "context"

// Agent is one research stage. Process must report failures through
// AgentResult.Error instead of panicking or returning early with nothing.
type Agent interface {
	Name() AgentName
	Process(ctx context.Context, query string, pc *PipelineContext) AgentResult
}

// Classifier decides which output schema a query should be reconciled into.
type Classifier interface {
	Classify(ctx context.Context, query string) EntityType
}

type ClassifierFunc func(ctx context.Context, query string) EntityType

func (f ClassifierFunc) Classify(ctx context.Context, query string) EntityType {
	return f(ctx, query)
}
