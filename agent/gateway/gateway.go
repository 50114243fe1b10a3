// Package gateway performs single request/response exchanges with a model
// provider, behind the response cache and the shared rate limiter.
package gateway

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	cachex "github.com/tanpawarit/entity-research/agent/cache"
)

// Namespace is the cache namespace for raw exchange responses.
const Namespace = "gateway"

type Request struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Structured   bool   `json:"want_structured"`
	Model        string `json:"model"`
}

// Exchanger sends one request to a provider and returns the raw reply text.
type Exchanger interface {
	Exchange(ctx context.Context, req Request) (string, error)
}

type ExchangerFunc func(ctx context.Context, req Request) (string, error)

func (f ExchangerFunc) Exchange(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

type Limiter interface {
	Wait(ctx context.Context) error
}

type cachedResponse struct {
	Object  map[string]any `json:"object"`
	Content string         `json:"content,omitempty"`
}

type Gateway struct {
	exchanger    Exchanger
	cache        *cachex.Service
	limiter      Limiter
	defaultModel string
}

// New builds a Gateway. cache and limiter are optional.
func New(exchanger Exchanger, cache *cachex.Service, limiter Limiter, defaultModel string) (*Gateway, error) {
	if exchanger == nil {
		return nil, errors.New("exchanger is required")
	}
	return &Gateway{
		exchanger:    exchanger,
		cache:        cache,
		limiter:      limiter,
		defaultModel: strings.TrimSpace(defaultModel),
	}, nil
}

func (g *Gateway) DefaultModel() string {
	return g.defaultModel
}

// Call runs one exchange. It never returns an error; failures come back as
// ParseFailure or TransportFailure results.
func (g *Gateway) Call(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Model) == "" {
		req.Model = g.defaultModel
	}
	key := responseKey(req)

	var cached cachedResponse
	if g.cache.Get(ctx, key, Namespace, &cached) {
		log.Debug().Str("model", req.Model).Msg("gateway: response cache hit")
		if cached.Object != nil {
			return Structured(cached.Object)
		}
		return Text(cached.Content)
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return TransportFailure(err)
		}
	}

	text, err := g.exchanger.Exchange(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("model", req.Model).Msg("gateway: exchange failed")
		return TransportFailure(err)
	}

	res := interpret(ctx, text, req.Structured)
	if !res.OK() {
		log.Warn().Str("model", req.Model).Int("raw_len", len(text)).Msg("gateway: response is not valid JSON")
		return res
	}
	g.cache.Set(ctx, key, Namespace, cachedResponse{Object: res.Object, Content: res.Content})
	return res
}

func responseKey(req Request) string {
	return strings.Join([]string{
		req.Prompt,
		req.SystemPrompt,
		req.Model,
		strconv.FormatBool(req.Structured),
	}, "\x1f")
}
