package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

type LLMBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

var (
	ReasoningBlacklist = map[string]bool{
		"x-ai/grok-4.1-fast": true,
	}
)

// Config describes an OpenAI-compatible chat endpoint. OpenRouter is the
// default; any compatible base URL works.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

// WithModel returns a copy of c targeting another model.
func (c Config) WithModel(name string) Config {
	if name = strings.TrimSpace(name); name != "" {
		c.Model = name
	}
	return c
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	modelName := strings.TrimSpace(c.Model)
	temperature := c.Temperature

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}

	if ReasoningBlacklist[modelName] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{
				"exclude": true,
				"effort":  "none",
			},
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %q: %w", modelName, err)
	}

	return m, nil
}

// ModelFactory builds one chat model per requested model name, sharing the
// rest of c.
func (c Config) ModelFactory() func(ctx context.Context, modelName string) (model.BaseChatModel, error) {
	return func(ctx context.Context, modelName string) (model.BaseChatModel, error) {
		conf := c.WithModel(modelName)
		return conf.New(ctx)
	}
}

// NewClient creates an OpenAI SDK client for the endpoint. It returns nil
// when no API key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}

	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
