package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	researchx "github.com/tanpawarit/entity-research/agent/agents/research"
	orchestratorx "github.com/tanpawarit/entity-research/agent/agents/orchestrator"
	cachex "github.com/tanpawarit/entity-research/agent/cache"
	classifyx "github.com/tanpawarit/entity-research/agent/classify"
	contractx "github.com/tanpawarit/entity-research/agent/contract"
	gatewayx "github.com/tanpawarit/entity-research/agent/gateway"
	llmx "github.com/tanpawarit/entity-research/agent/llm"
	promptx "github.com/tanpawarit/entity-research/agent/prompt"
	ratelimitx "github.com/tanpawarit/entity-research/agent/ratelimit"
	configx "github.com/tanpawarit/entity-research/pkg/config"
)

// app is everything a command needs, built once per process.
type app struct {
	cache        *cachex.Service
	orchestrator *orchestratorx.Orchestrator
}

func (a *app) Close() error {
	return a.cache.Close()
}

func openCache(ctx context.Context) (*cachex.Service, error) {
	cfg, err := configx.New[cachex.Config]("CACHE")
	if err != nil {
		return nil, fmt.Errorf("loading cache config: %w", err)
	}
	svc, err := cachex.Open(ctx, *cfg)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return svc, nil
}

func buildApp(ctx context.Context) (*app, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("loading llm config: %w", err)
	}
	exchanger, err := llmCfg.NewExchanger(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating %s exchanger: %w", llmCfg.Provider, err)
	}

	cache, err := openCache(ctx)
	if err != nil {
		return nil, err
	}

	limiter := ratelimitx.New(llmCfg.RequestsPerMinute)
	gw, err := gatewayx.New(exchanger, cache, limiter, llmCfg.Model)
	if err != nil {
		cache.Close()
		return nil, err
	}

	orch, err := newOrchestrator(gw, cache, *llmCfg)
	if err != nil {
		cache.Close()
		return nil, err
	}
	log.Debug().
		Str("provider", llmCfg.Provider).
		Str("default_model", gw.DefaultModel()).
		Int("requests_per_minute", llmCfg.RequestsPerMinute).
		Msg("research pipeline ready")
	return &app{cache: cache, orchestrator: orch}, nil
}

func newOrchestrator(gw *gatewayx.Gateway, cache *cachex.Service, cfg llmx.Config) (*orchestratorx.Orchestrator, error) {
	prompts, err := promptx.Load()
	if err != nil {
		return nil, err
	}

	facts, err := researchx.NewFactExtraction(gw, prompts, cfg.ModelFor(contractx.AgentFactExtraction))
	if err != nil {
		return nil, err
	}
	media, err := researchx.NewMediaLookup(gw, prompts, cfg.ModelFor(contractx.AgentMediaLookup))
	if err != nil {
		return nil, err
	}
	content, err := researchx.NewContentAggregation(gw, prompts, cfg.ModelFor(contractx.AgentContentAggregation))
	if err != nil {
		return nil, err
	}
	summary, err := researchx.NewSummarization(gw, prompts, cfg.ModelFor(contractx.AgentSummarization))
	if err != nil {
		return nil, err
	}

	var opts []orchestratorx.Option
	if cfg.ModelClassifier {
		classifier, err := classifyx.NewModel(gw, prompts, cfg.ModelFor(contractx.AgentClassifier), classifyx.Heuristic{})
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestratorx.WithClassifier(classifier))
	}

	return orchestratorx.New(
		researchx.NewRunner(cache),
		orchestratorx.Agents{Facts: facts, Media: media, Content: content, Summary: summary},
		cache,
		opts...,
	)
}
