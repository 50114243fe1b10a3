package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

type stubAgent struct {
	name   contractx.AgentName
	result contractx.AgentResult
}

func (a stubAgent) Name() contractx.AgentName { return a.name }

func (a stubAgent) Process(context.Context, string, *contractx.PipelineContext) contractx.AgentResult {
	return a.result
}

type directRunner struct{}

func (directRunner) Run(ctx context.Context, agent contractx.Agent, query string, pc *contractx.PipelineContext) contractx.AgentResult {
	return agent.Process(ctx, query, pc)
}

func TestValidateRequestRejectsBlankQuery(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{Query: "  "}, time.Now); !errors.Is(err, contractx.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}

	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	st, err := ValidateRequest(GraphInput{Query: " Marie Curie "}, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.Query != "Marie Curie" || !st.StartedAt.Equal(fixed) {
		t.Fatalf("unexpected state: %#v", st)
	}
}

func TestClassifyEntityDefaultsInvalidToPerson(t *testing.T) {
	t.Parallel()

	st := &GraphState{Query: "x"}
	st, err := ClassifyEntity(context.Background(), st, contractx.ClassifierFunc(func(context.Context, string) contractx.EntityType {
		return "planet"
	}))
	if err != nil {
		t.Fatalf("ClassifyEntity() error = %v", err)
	}
	if st.Context.EntityType != contractx.EntityPerson {
		t.Fatalf("entity type = %s, want person", st.Context.EntityType)
	}
}

func TestRunStageMergesAndSkipsFailures(t *testing.T) {
	t.Parallel()

	st := &GraphState{Query: "Marie Curie", Context: contractx.NewPipelineContext("Marie Curie", contractx.EntityPerson)}
	st.Context.Facts.Add("profession", contractx.NewDataPoint("physicist", 0.9))

	ok := stubAgent{name: contractx.AgentFactExtraction, result: contractx.AgentResult{Items: map[string]contractx.DataPoint{
		"profession":  contractx.NewDataPoint("chemist", 0.5),
		"nationality": contractx.NewDataPoint("Polish", 0.8),
	}}}
	st, err := RunStage(context.Background(), st, directRunner{}, ok, contractx.StageFacts)
	if err != nil {
		t.Fatalf("RunStage() error = %v", err)
	}
	if st.Context.Facts["profession"].Value != "physicist" {
		t.Fatalf("earlier value must not be overwritten: %#v", st.Context.Facts["profession"])
	}
	if st.Context.Facts["nationality"].Value != "Polish" {
		t.Fatalf("new key must be merged: %#v", st.Context.Facts)
	}

	failing := stubAgent{name: contractx.AgentMediaLookup, result: contractx.ErrorResult("media_lookup: boom")}
	st, err = RunStage(context.Background(), st, directRunner{}, failing, contractx.StageMedia)
	if err != nil {
		t.Fatalf("RunStage() error = %v", err)
	}
	if len(st.Context.Media) != 0 || len(st.Failed) != 1 || st.Failed[0] != contractx.StageMedia {
		t.Fatalf("failed stage must contribute nothing: media=%#v failed=%v", st.Context.Media, st.Failed)
	}
}

func TestFinalizeOutput(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	st := &GraphState{Query: "Acme", StartedAt: start, Context: contractx.NewPipelineContext("Acme", contractx.EntityCompany)}
	if _, err := FinalizeOutput(st, time.Now); err == nil {
		t.Fatal("expected error before reconcile")
	}

	st, err := Reconcile(st)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	out, err := FinalizeOutput(st, func() time.Time { return start.Add(2500 * time.Millisecond) })
	if err != nil {
		t.Fatalf("FinalizeOutput() error = %v", err)
	}
	if out.Output.EntityType != contractx.EntityCompany || out.Output.ProcessingTimeSeconds != 2.5 {
		t.Fatalf("unexpected output: %#v", out.Output)
	}
	if out.Output.QueryTimestamp != "2026-05-01T12:00:02Z" {
		t.Fatalf("unexpected timestamp: %s", out.Output.QueryTimestamp)
	}
	if _, ok := out.Output.Data.(contractx.CompanyRecord); !ok {
		t.Fatalf("unexpected record type %T", out.Output.Data)
	}
	if len(out.Failed) != 0 {
		t.Fatalf("no stage failed, got %v", out.Failed)
	}

	st.Failed = []contractx.Stage{contractx.StageMedia}
	out, err = FinalizeOutput(st, time.Now)
	if err != nil {
		t.Fatalf("FinalizeOutput() error = %v", err)
	}
	if len(out.Failed) != 1 || out.Failed[0] != contractx.StageMedia {
		t.Fatalf("failed stages must reach the output, got %v", out.Failed)
	}
}
