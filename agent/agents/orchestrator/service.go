package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	cachex "github.com/tanpawarit/entity-research/agent/cache"
	classifyx "github.com/tanpawarit/entity-research/agent/classify"
	contractx "github.com/tanpawarit/entity-research/agent/contract"
	nodex "github.com/tanpawarit/entity-research/agent/nodes"
)

// Namespace is the cache namespace for finished pipeline outputs.
const Namespace = "orchestrator"

// Agents are the four research stages in run order.
type Agents struct {
	Facts   contractx.Agent
	Media   contractx.Agent
	Content contractx.Agent
	Summary contractx.Agent
}

func (a Agents) validate() error {
	for _, s := range []struct {
		name  string
		agent contractx.Agent
	}{
		{"facts", a.Facts},
		{"media", a.Media},
		{"content", a.Content},
		{"summary", a.Summary},
	} {
		if s.agent == nil {
			return fmt.Errorf("%s agent is required", s.name)
		}
	}
	return nil
}

type Option func(*Orchestrator)

// WithClassifier replaces the keyword heuristic.
func WithClassifier(c contractx.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

type Orchestrator struct {
	runner     nodex.AgentRunner
	agents     Agents
	cache      *cachex.Service
	classifier contractx.Classifier

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(runner nodex.AgentRunner, agents Agents, cache *cachex.Service, opts ...Option) (*Orchestrator, error) {
	if runner == nil {
		return nil, errors.New("agent runner is required")
	}
	if err := agents.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		runner:     runner,
		agents:     agents,
		cache:      cache,
		classifier: classifyx.Heuristic{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileResearchGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// ProcessQuery researches query end to end. Stage failures only leave
// sections empty, and such partial outputs are not cached. An error is
// returned for a blank query or when the graph itself cannot run.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (contractx.EntityOutput, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return contractx.EntityOutput{}, contractx.ErrInvalidQuery
	}

	var cached contractx.EntityOutput
	if o.cache.Get(ctx, query, Namespace, &cached) {
		log.Info().Str("query", query).Msg("pipeline: cache hit")
		return cached, nil
	}

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("query", query).Msg("pipeline: started")

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		RunID:     runID,
		Query:     query,
		StartedAt: o.now(),
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("pipeline: run failed")
		return contractx.EntityOutput{}, err
	}

	if len(out.Failed) == 0 {
		o.cache.Set(ctx, query, Namespace, out.Output)
	} else {
		log.Warn().
			Str("run_id", runID).
			Interface("failed_stages", out.Failed).
			Msg("pipeline: output not cached, stages failed")
	}
	log.Info().
		Str("run_id", runID).
		Str("entity_type", string(out.Output.EntityType)).
		Float64("processing_time_seconds", out.Output.ProcessingTimeSeconds).
		Msg("pipeline: finished")
	return out.Output, nil
}

// ClearCache purges every cached exchange, agent result and pipeline output.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.cache.Clear(ctx, "", "")
}
