package research

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
	gatewayx "github.com/tanpawarit/entity-research/agent/gateway"
	promptx "github.com/tanpawarit/entity-research/agent/prompt"
)

type Caller interface {
	Call(ctx context.Context, req gatewayx.Request) gatewayx.Result
}

// fieldHints are the schema fields fact extraction asks for first.
var fieldHints = map[contractx.EntityType][]string{
	contractx.EntityPerson: {
		"full_name", "date_of_birth", "place_of_birth", "date_of_death", "nationality",
		"profession", "education", "known_for", "awards", "spouse", "children", "notable_works",
	},
	contractx.EntityCompany: {
		"name", "founded", "founders", "headquarters", "industry", "ceo",
		"employees", "revenue", "products", "website",
	},
	contractx.EntityOther: {
		"name", "category", "description", "location", "date",
	},
}

// FieldHints returns the preferred fact keys for an entity type.
func FieldHints(et contractx.EntityType) []string {
	return append([]string(nil), fieldHints[contractx.ParseEntityType(string(et))]...)
}

type buildPrompt func(query string, pc *contractx.PipelineContext) promptx.Data

// agent is one prompt, one structured gateway call and one decoded section.
type agent struct {
	name     contractx.AgentName
	template promptx.Name
	section  string
	build    buildPrompt

	caller  Caller
	prompts *promptx.Set
	model   string
}

var _ contractx.Agent = (*agent)(nil)

func newAgent(name contractx.AgentName, template promptx.Name, section string, build buildPrompt, caller Caller, prompts *promptx.Set, model string) (contractx.Agent, error) {
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt set is required")
	}
	return &agent{
		name:     name,
		template: template,
		section:  section,
		build:    build,
		caller:   caller,
		prompts:  prompts,
		model:    strings.TrimSpace(model),
	}, nil
}

func (a *agent) Name() contractx.AgentName {
	return a.name
}

func (a *agent) Process(ctx context.Context, query string, pc *contractx.PipelineContext) contractx.AgentResult {
	if pc == nil {
		pc = contractx.NewPipelineContext(query, contractx.EntityPerson)
	}
	msgs, err := a.prompts.Render(ctx, a.template, a.build(query, pc))
	if err != nil {
		return contractx.ErrorResult("%s: %v", a.name, err)
	}

	res := a.caller.Call(ctx, gatewayx.Request{
		Prompt:       msgs.User,
		SystemPrompt: msgs.System,
		Structured:   true,
		Model:        a.model,
	})
	if !res.OK() {
		return contractx.ErrorResult("%s: %v", a.name, res.Err())
	}

	items, err := decodeSection(a.name, res.Object, a.section)
	if err != nil {
		return contractx.ErrorResult("%s: %v", a.name, err)
	}
	return contractx.AgentResult{Items: items}
}

func NewFactExtraction(caller Caller, prompts *promptx.Set, model string) (contractx.Agent, error) {
	return newAgent(contractx.AgentFactExtraction, promptx.Facts, "facts", func(query string, pc *contractx.PipelineContext) promptx.Data {
		return promptx.Data{
			Query:      query,
			EntityType: string(pc.EntityType),
			Fields:     FieldHints(pc.EntityType),
		}
	}, caller, prompts, model)
}

func NewMediaLookup(caller Caller, prompts *promptx.Set, model string) (contractx.Agent, error) {
	return newAgent(contractx.AgentMediaLookup, promptx.Media, "media", withKnownFacts, caller, prompts, model)
}

func NewContentAggregation(caller Caller, prompts *promptx.Set, model string) (contractx.Agent, error) {
	return newAgent(contractx.AgentContentAggregation, promptx.Content, "content", withKnownFacts, caller, prompts, model)
}

func NewSummarization(caller Caller, prompts *promptx.Set, model string) (contractx.Agent, error) {
	return newAgent(contractx.AgentSummarization, promptx.Summary, "summary", func(query string, pc *contractx.PipelineContext) promptx.Data {
		data := withKnownFacts(query, pc)
		data.Extra = renderSection(pc.Content)
		return data
	}, caller, prompts, model)
}

func withKnownFacts(query string, pc *contractx.PipelineContext) promptx.Data {
	return promptx.Data{
		Query:      query,
		EntityType: string(pc.EntityType),
		Known:      renderSection(pc.Facts),
	}
}
