package prompt

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/outputparser"
	"github.com/tmc/langchaingo/prompts"

	"slack-summarizer/internal/summary"
)

// SchemaVersion identifies the summary/keywords output schema the instructions describe.
const SchemaVersion = "summary-keywords/v1"

const systemPrompt = "You are a helpful assistant that summarizes web pages."

const userTemplate = `Your task is to summarize the given content and extract keywords.
1. Generate a short summary of 120 to 150 words.
2. Extract up to 10 keywords.
Content: '''{{.content}}'''
{{.format_instructions}}
`

// Schema is the reply shape the format instructions ask for. parser.Parse accepts it
// along with the looser shapes models actually return.
var Schema = outputparser.NewStructured([]outputparser.ResponseSchema{
	{Name: "summary", Description: "Short summary of the content, 120 to 150 words."},
	{Name: "keywords", Description: "Comma-separated list of up to 10 keywords."},
})

var template = newTemplate()

func newTemplate() prompts.PromptTemplate {
	t := prompts.NewPromptTemplate(userTemplate, []string{"content"})
	t.PartialVariables = map[string]any{
		"format_instructions": Schema.GetFormatInstructions(),
	}
	if _, err := t.Format(map[string]any{"content": ""}); err != nil {
		panic(fmt.Sprintf("prompt template: %v", err))
	}
	return t
}

// Role is a chat message author.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-neutral model request.
type Request struct {
	SchemaVersion string
	Messages      []Message
}

// System returns the concatenated system messages.
func (r Request) System() string {
	return r.join(RoleSystem)
}

// User returns the concatenated user messages.
func (r Request) User() string {
	return r.join(RoleUser)
}

func (r Request) join(role Role) string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == role {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Build embeds content verbatim into the summarization instructions.
// The template is checked when the package loads, so Format only fails on a broken build.
func Build(content summary.Content) Request {
	user, err := template.Format(map[string]any{"content": content.Text})
	if err != nil {
		panic(fmt.Sprintf("format prompt: %v", err))
	}

	return Request{
		SchemaVersion: SchemaVersion,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: user},
		},
	}
}
