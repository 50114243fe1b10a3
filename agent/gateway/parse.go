package gateway

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var objectParser = schema.NewMessageJSONParser[map[string]any](&schema.MessageJSONParseConfig{
	ParseFrom: schema.MessageParseFromContent,
})

func interpret(ctx context.Context, text string, structured bool) Result {
	if !structured {
		return Text(strings.TrimSpace(text))
	}
	body := stripFences(text)
	if body == "" {
		return ParseFailure(text)
	}
	obj, err := objectParser.Parse(ctx, &schema.Message{Role: schema.Assistant, Content: body})
	if err != nil || obj == nil {
		return ParseFailure(text)
	}
	return Structured(obj)
}

// stripFences removes a surrounding ``` or ```json block and any prose
// before the first '{' or after the last '}'.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
