package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModelArgs holds the arguments for creating an OpenAI-compatible model.
type OpenAIModelArgs struct {
	// Model is the served model name, e.g. "nvidia-reason-3b".
	Model string
	// BaseURL points at an OpenAI-compatible server such as vLLM,
	// e.g. "http://localhost:8000/v1".
	BaseURL string
	APIKey  string
	// Timeout bounds one generation. Zero means no limit.
	Timeout time.Duration
}

// OpenAIModel generates reports through the chat completions API.
type OpenAIModel struct {
	client openai.Client
	name   string
}

// NewOpenAIModel creates an [OpenAIModel]. Requests are never retried.
func NewOpenAIModel(args OpenAIModelArgs) (*OpenAIModel, error) {
	if args.Model == "" {
		return nil, fmt.Errorf("inference: model name is required")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if args.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(args.BaseURL))
	}
	if args.APIKey != "" {
		opts = append(opts, option.WithAPIKey(args.APIKey))
	}
	if args.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(args.Timeout))
	}

	return &OpenAIModel{
		client: openai.NewClient(opts...),
		name:   args.Model,
	}, nil
}

func (m *OpenAIModel) Name() string { return m.name }

func (m *OpenAIModel) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	if req.Image == nil {
		return "", fmt.Errorf("inference: request has no image")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: req.Image.DataURL(),
				}),
				openai.TextContentPart(req.Instructions),
			}),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(0),
	}

	start := time.Now()
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("inference: generating with %s: %w", m.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("inference: %s returned no choices", m.name)
	}

	slog.Debug("Generated report",
		"model", m.name,
		"durationMs", time.Since(start).Milliseconds(),
		"completionTokens", resp.Usage.CompletionTokens,
		"finishReason", resp.Choices[0].FinishReason)

	return resp.Choices[0].Message.Content, nil
}
