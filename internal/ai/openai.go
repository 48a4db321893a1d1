package ai

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// systemPrompt steers the model toward the payload shapes the normalizer
// understands: prose, or a JSON object with text/fileTree/buildCommand.
const systemPrompt = `You are a senior developer assisting a team inside a shared project room.
Answer questions in concise markdown. When asked to generate a project or
code spanning multiple files, respond with a single JSON object of the form:
{"text": "<short explanation>", "fileTree": {"<name>": {"file": {"contents": "<full file contents>"}} | <nested directory>}, "buildCommand": {"mainItem": "<command>", "commands": ["<arg>", ...]}}
Use relative paths, include complete file contents, and do not wrap the JSON
in a code fence.`

// OpenAIGenerator calls the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator. Returns nil if apiKey is empty
// so callers can wire an unconfigured adapter.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Generate returns the raw completion text for the prompt. No retry: a
// failed call surfaces immediately to the adapter.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrUpstreamUnavailable
	}
	return resp.Choices[0].Message.Content, nil
}
