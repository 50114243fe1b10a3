package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
	gatewayx "github.com/tanpawarit/entity-research/agent/gateway"
	openrouterx "github.com/tanpawarit/entity-research/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	RequestsPerMinute  int           `envconfig:"REQUESTS_PER_MINUTE" split_words:"true" default:"50"`

	// Model-backed classification; the keyword heuristic is used otherwise.
	ModelClassifier bool `envconfig:"MODEL_CLASSIFIER" split_words:"true" default:"false"`

	ClassifierModel string `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	FactsModel      string `envconfig:"FACTS_MODEL" split_words:"true"`
	MediaModel      string `envconfig:"MEDIA_MODEL" split_words:"true"`
	ContentModel    string `envconfig:"CONTENT_MODEL" split_words:"true"`
	SummaryModel    string `envconfig:"SUMMARY_MODEL" split_words:"true"`
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: %s api key is required", contractx.ErrValidation, c.provider())
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests per minute must not be negative", contractx.ErrValidation)
	}
	return nil
}

// ModelFor returns the model an agent should use, falling back to Model.
func (c Config) ModelFor(agent contractx.AgentName) string {
	var override string
	switch agent {
	case contractx.AgentClassifier:
		override = c.ClassifierModel
	case contractx.AgentFactExtraction:
		override = c.FactsModel
	case contractx.AgentMediaLookup:
		override = c.MediaModel
	case contractx.AgentContentAggregation:
		override = c.ContentModel
	case contractx.AgentSummarization:
		override = c.SummaryModel
	}
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}

func (c Config) OpenRouter() openrouterx.Config {
	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL == "" && c.provider() == ProviderOpenRouter {
		baseURL = openrouterx.DefaultBaseURL
	}
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            baseURL,
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// NewExchanger builds the provider exchanger: eino chat models for
// OpenRouter, the openai-go client for OpenAI and go-anthropic for Anthropic.
func (c Config) NewExchanger(ctx context.Context) (gatewayx.Exchanger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.provider() {
	case ProviderOpenAI:
		client := openrouterx.NewClient(c.OpenRouter())
		if client == nil {
			return nil, fmt.Errorf("%w: openai client could not be created", contractx.ErrValidation)
		}
		return gatewayx.NewOpenAIExchanger(client, c.MaxCompletionToken, c.Temperature)
	case ProviderAnthropic:
		return gatewayx.NewAnthropicExchanger(c.APIKey, c.BaseURL, c.MaxCompletionToken, c.Temperature)
	default:
		return gatewayx.NewEinoExchanger(c.OpenRouter().ModelFactory())
	}
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}
