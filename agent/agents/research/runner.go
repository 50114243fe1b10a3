// Package research holds the four research agents and the cache-aware
// runner that wraps them.
package research

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	cachex "github.com/tanpawarit/entity-research/agent/cache"
	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

type RunnerOption func(*Runner)

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner adds per-agent result caching and timing around Agent.Process.
type Runner struct {
	cache *cachex.Service
	now   func() time.Time
}

func NewRunner(cache *cachex.Service, opts ...RunnerOption) *Runner {
	r := &Runner{cache: cache, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run returns the cached result for (query, agent) when there is one and
// otherwise processes, stamps and caches. Failed results are not cached.
func (r *Runner) Run(ctx context.Context, agent contractx.Agent, query string, pc *contractx.PipelineContext) contractx.AgentResult {
	if agent == nil {
		return contractx.ErrorResult("agent is nil")
	}
	namespace := string(agent.Name())

	var cached contractx.AgentResult
	if r.cache.Get(ctx, query, namespace, &cached) {
		log.Debug().Str("agent", namespace).Msg("research: agent cache hit")
		return cached
	}

	start := r.now()
	result := agent.Process(ctx, query, pc)
	result.ProcessingTime = r.now().Sub(start).Seconds()

	if result.Failed() {
		log.Warn().Str("agent", namespace).Str("error", result.Error).Msg("research: agent failed")
		return result
	}
	r.cache.Set(ctx, query, namespace, result)
	return result
}
