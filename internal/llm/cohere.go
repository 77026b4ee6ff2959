package llm

import (
	"context"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"

	"slack-summarizer/internal/prompt"
)

const defaultCohereModel = "command-r"

// CohereClient calls the Cohere Chat API. The system message becomes the preamble.
type CohereClient struct {
	model  string
	client *cohereclient.Client
}

// NewCohereClient builds a client for the Cohere API. baseURL may be empty.
func NewCohereClient(apiKey, model, baseURL string) (*CohereClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = defaultCohereModel
	}
	opts := []cohereoption.RequestOption{
		cohereoption.WithToken(apiKey),
		cohereoption.WithHTTPClient(&http.Client{Timeout: defaultChatTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, cohereoption.WithBaseURL(baseURL))
	}
	return &CohereClient{
		model:  model,
		client: cohereclient.NewClient(opts...),
	}, nil
}

func (c *CohereClient) Complete(ctx context.Context, req prompt.Request) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil cohere client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultChatTimeout)
	defer cancel()

	temperature := float64(defaultChatTemperature)
	chatReq := &cohere.ChatRequest{
		Message:     req.User(),
		Model:       &c.model,
		Temperature: &temperature,
	}
	if system := req.System(); system != "" {
		chatReq.Preamble = &system
	}
	resp, err := c.client.Chat(reqCtx, chatReq)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", fmt.Errorf("cohere: empty response")
	}
	return resp.Text, nil
}
