package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

type Name string

const (
	Classify Name = "classify"
	Facts    Name = "facts"
	Media    Name = "media"
	Content  Name = "content"
	Summary  Name = "summary"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/classify.txt
	classifyRaw string

	//go:embed template/facts.txt
	factsRaw string

	//go:embed template/media.txt
	mediaRaw string

	//go:embed template/content.txt
	contentRaw string

	//go:embed template/summary.txt
	summaryRaw string
)

// Data is what a template can see. Known and Extra are pre-rendered blocks.
type Data struct {
	Query      string
	EntityType string
	Fields     []string
	Known      string
	Extra      string
}

func (d Data) vars() map[string]any {
	return map[string]any{
		"Query":      d.Query,
		"EntityType": d.EntityType,
		"Fields":     strings.Join(d.Fields, ", "),
		"Known":      d.Known,
		"Extra":      d.Extra,
	}
}

// Messages is a formatted template split by role.
type Messages struct {
	System string
	User   string
}

// Set holds one eino chat template per prompt. Every template carries the
// shared system message followed by its own user message.
type Set struct {
	templates map[Name]einoprompt.ChatTemplate
}

func Load() (*Set, error) {
	system := strings.TrimSpace(systemRaw)
	set := &Set{templates: make(map[Name]einoprompt.ChatTemplate)}
	for name, raw := range map[Name]string{
		Classify: classifyRaw,
		Facts:    factsRaw,
		Media:    mediaRaw,
		Content:  contentRaw,
		Summary:  summaryRaw,
	} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("%w: %s template is empty", contractx.ErrPromptMissing, name)
		}
		set.templates[name] = einoprompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(system),
			schema.UserMessage(raw),
		)
	}
	return set, nil
}

func MustLoad() *Set {
	set, err := Load()
	if err != nil {
		panic(err)
	}
	return set
}

func (s *Set) Render(ctx context.Context, name Name, data Data) (Messages, error) {
	if s == nil {
		return Messages{}, fmt.Errorf("%w: prompt set not loaded", contractx.ErrPromptMissing)
	}
	tpl, ok := s.templates[name]
	if !ok {
		return Messages{}, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
	}

	msgs, err := tpl.Format(ctx, data.vars())
	if err != nil {
		return Messages{}, fmt.Errorf("%w: render %s: %v", contractx.ErrPromptMissing, name, err)
	}

	var out Messages
	for _, msg := range msgs {
		switch msg.Role {
		case schema.System:
			out.System = strings.TrimSpace(msg.Content)
		case schema.User:
			out.User = msg.Content
		}
	}
	if out.User == "" {
		return Messages{}, fmt.Errorf("%w: %s rendered no user message", contractx.ErrPromptMissing, name)
	}
	return out, nil
}
