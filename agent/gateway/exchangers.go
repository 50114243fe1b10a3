package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/openai/openai-go"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

// ModelFactory builds an eino chat model for the given model name.
type ModelFactory func(ctx context.Context, modelName string) (model.BaseChatModel, error)

// EinoExchanger talks to any eino chat model through a compiled
// prompt→model graph. Graphs are built lazily and reused per model name.
type EinoExchanger struct {
	factory ModelFactory

	mu     sync.Mutex
	graphs map[string]compose.Runnable[map[string]any, *schema.Message]
}

var _ Exchanger = (*EinoExchanger)(nil)

func NewEinoExchanger(factory ModelFactory) (*EinoExchanger, error) {
	if factory == nil {
		return nil, errors.New("model factory is required")
	}
	return &EinoExchanger{
		factory: factory,
		graphs:  make(map[string]compose.Runnable[map[string]any, *schema.Message]),
	}, nil
}

func (e *EinoExchanger) Exchange(ctx context.Context, req Request) (string, error) {
	runner, err := e.graph(ctx, req.Model)
	if err != nil {
		return "", err
	}

	vars := map[string]any{"input": req.Prompt}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		vars["system"] = []*schema.Message{schema.SystemMessage(req.SystemPrompt)}
	}

	out, err := runner.Invoke(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty response", contractx.ErrModelInvoke)
	}
	return out.Content, nil
}

func (e *EinoExchanger) graph(ctx context.Context, name string) (compose.Runnable[map[string]any, *schema.Message], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if g, ok := e.graphs[name]; ok {
		return g, nil
	}
	m, err := e.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: build model %q: %v", contractx.ErrModelInvoke, name, err)
	}
	g, err := compileExchangeGraph(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: model %q: %v", contractx.ErrModelInvoke, name, err)
	}
	e.graphs[name] = g
	return g, nil
}

// compileExchangeGraph chains an optional system message and the user input
// into the chat model.
func compileExchangeGraph(ctx context.Context, chatModel model.BaseChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system", true),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add exchange prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add exchange model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add exchange edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add exchange edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add exchange edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("gateway.exchange_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile exchange graph: %w", err)
	}
	return runner, nil
}

type OpenAIExchanger struct {
	client      *openai.Client
	maxTokens   int64
	temperature float64
}

var _ Exchanger = (*OpenAIExchanger)(nil)

func NewOpenAIExchanger(client *openai.Client, maxTokens int, temperature float32) (*OpenAIExchanger, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	return &OpenAIExchanger{client: client, maxTokens: int64(maxTokens), temperature: float64(temperature)}, nil
}

func (e *OpenAIExchanger) Exchange(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: openai.Float(e.temperature),
	}
	if e.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(e.maxTokens)
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", contractx.ErrModelInvoke)
	}
	return resp.Choices[0].Message.Content, nil
}

type AnthropicExchanger struct {
	client      *anthropic.Client
	maxTokens   int
	temperature float32
}

var _ Exchanger = (*AnthropicExchanger)(nil)

func NewAnthropicExchanger(apiKey, baseURL string, maxTokens int, temperature float32) (*AnthropicExchanger, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: anthropic api key is required", contractx.ErrValidation)
	}
	var opts []anthropic.ClientOption
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &AnthropicExchanger{
		client:      anthropic.NewClient(strings.TrimSpace(apiKey), opts...),
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (e *AnthropicExchanger) Exchange(ctx context.Context, req Request) (string, error) {
	temperature := e.temperature
	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:  anthropic.Model(req.Model),
		System: req.SystemPrompt,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(req.Prompt),
				},
			},
		},
		MaxTokens:   e.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return *resp.Content[0].Text, nil
	}
	return "", fmt.Errorf("%w: no response content", contractx.ErrModelInvoke)
}
