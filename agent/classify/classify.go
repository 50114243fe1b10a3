// Package classify decides whether a query names a person, a company or
// something else.
package classify

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
	gatewayx "github.com/tanpawarit/entity-research/agent/gateway"
	promptx "github.com/tanpawarit/entity-research/agent/prompt"
)

var (
	companyMarkers = markerSet(
		"inc", "llc", "ltd", "limited", "corp", "corporation", "company", "co",
		"gmbh", "plc", "pty", "holdings", "group", "technologies", "technology",
		"labs", "systems", "software", "bank", "airlines", "motors", "enterprises",
		"industries", "pharmaceuticals", "startup",
	)
	otherMarkers = markerSet(
		"river", "mountain", "mount", "lake", "ocean", "sea", "island", "city",
		"country", "village", "park", "bridge", "tower", "museum", "film", "movie",
		"album", "song", "book", "novel", "series", "war", "battle", "revolution",
		"festival", "planet", "galaxy", "star", "species", "disease", "game",
	)
)

func markerSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// Heuristic is the keyword classifier. Company markers win over other
// markers; a query with neither is a person.
type Heuristic struct{}

var _ contractx.Classifier = Heuristic{}

func (Heuristic) Classify(_ context.Context, query string) contractx.EntityType {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	other := false
	for _, tok := range tokens {
		if companyMarkers[tok] {
			return contractx.EntityCompany
		}
		if otherMarkers[tok] {
			other = true
		}
	}
	if other {
		return contractx.EntityOther
	}
	return contractx.EntityPerson
}

type Caller interface {
	Call(ctx context.Context, req gatewayx.Request) gatewayx.Result
}

// Model asks the model for the entity type and falls back to another
// classifier when the call fails or the answer is not a known type.
type Model struct {
	caller   Caller
	prompts  *promptx.Set
	model    string
	fallback contractx.Classifier
}

var _ contractx.Classifier = (*Model)(nil)

func NewModel(caller Caller, prompts *promptx.Set, model string, fallback contractx.Classifier) (*Model, error) {
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt set is required")
	}
	if fallback == nil {
		fallback = Heuristic{}
	}
	return &Model{caller: caller, prompts: prompts, model: strings.TrimSpace(model), fallback: fallback}, nil
}

func (m *Model) Classify(ctx context.Context, query string) contractx.EntityType {
	msgs, err := m.prompts.Render(ctx, promptx.Classify, promptx.Data{Query: query})
	if err != nil {
		log.Warn().Err(err).Msg("classify: render prompt failed, using fallback")
		return m.fallback.Classify(ctx, query)
	}

	res := m.caller.Call(ctx, gatewayx.Request{
		Prompt:       msgs.User,
		SystemPrompt: msgs.System,
		Structured:   true,
		Model:        m.model,
	})
	if !res.OK() {
		log.Warn().Err(res.Err()).Msg("classify: model call failed, using fallback")
		return m.fallback.Classify(ctx, query)
	}

	raw, _ := res.Object["entity_type"].(string)
	et := contractx.EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if !et.Valid() {
		log.Warn().Str("answer", raw).Msg("classify: unknown entity type from model, using fallback")
		return m.fallback.Classify(ctx, query)
	}
	return et
}
