package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
	nodex "github.com/tanpawarit/entity-research/agent/nodes"
)

func (o *Orchestrator) compileResearchGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify_entity",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyEntity(ctx, in, o.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_entity: %w", err)
	}

	stages := []struct {
		node  string
		agent contractx.Agent
		stage contractx.Stage
	}{
		{"fact_extraction", o.agents.Facts, contractx.StageFacts},
		{"media_lookup", o.agents.Media, contractx.StageMedia},
		{"content_aggregation", o.agents.Content, contractx.StageContent},
		{"summarization", o.agents.Summary, contractx.StageSummary},
	}
	for _, s := range stages {
		agent, stage := s.agent, s.stage
		if err := graph.AddLambdaNode(s.node,
			compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
				return nodex.RunStage(ctx, in, o.runner, agent, stage)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.node, err)
		}
	}

	if err := graph.AddLambdaNode("reconcile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Reconcile(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node reconcile: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_output",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeOutput(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_output: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify_entity"},
		{"classify_entity", "fact_extraction"},
		{"fact_extraction", "media_lookup"},
		{"media_lookup", "content_aggregation"},
		{"content_aggregation", "summarization"},
		{"summarization", "reconcile"},
		{"reconcile", "finalize_output"},
		{"finalize_output", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.process_query"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
