package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAICompleter talks to OpenAI or any OpenAI-compatible endpoint.
type openAICompleter struct {
	client openai.Client
	model  string
}

var _ Completer = (*openAICompleter)(nil)

func newOpenAI(opts Options) *openAICompleter {
	var clientOpts []option.RequestOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	model := opts.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &openAICompleter{client: openai.NewClient(clientOpts...), model: model}
}

// Complete implements Completer. Temperature stays at zero so extraction and
// planning replies are deterministic.
func (c *openAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       c.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
