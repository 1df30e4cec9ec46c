package chat

import (
	"context"
	"fmt"
	"io"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/voxdeck/voxdeck/pkg/preset"
)

// Default playground models per provider, used when the preset does
// not pin one.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Playground runs one-shot text turns against the preset's provider,
// outside any stored session. It is the console's "test your agent"
// surface; nothing it does is persisted.
type Playground struct {
	key     *preset.ProviderKey
	baseURL string
}

// PlaygroundOption configures a Playground.
type PlaygroundOption func(*Playground)

// WithProviderBaseURL overrides the provider endpoint, for gateways
// and tests.
func WithProviderBaseURL(u string) PlaygroundOption {
	return func(pg *Playground) {
		pg.baseURL = u
	}
}

// NewPlayground creates a playground over the given credential.
func NewPlayground(key *preset.ProviderKey, opts ...PlaygroundOption) *Playground {
	pg := &Playground{key: key}
	for _, opt := range opts {
		opt(pg)
	}
	return pg
}

// Run sends the prompt with the preset's instructions and parameters
// and writes the model's reply to out. history carries prior turns of
// the same playground conversation, oldest first.
func (pg *Playground) Run(ctx context.Context, p *preset.Preset, history []*Message, prompt string, out io.Writer) error {
	if pg.key == nil {
		return fmt.Errorf("chat: preset %s has no provider credential", p.Name)
	}
	switch pg.key.Provider {
	case preset.ProviderOpenAI:
		return pg.runOpenAI(ctx, p, history, prompt, out)
	case preset.ProviderGemini:
		return pg.runGemini(ctx, p, history, prompt, out)
	default:
		return fmt.Errorf("chat: unsupported provider %q", string(pg.key.Provider))
	}
}

func (pg *Playground) runOpenAI(ctx context.Context, p *preset.Preset, history []*Message, prompt string, out io.Writer) error {
	opts := []option.RequestOption{option.WithAPIKey(pg.key.Secret)}
	if pg.baseURL != "" {
		opts = append(opts, option.WithBaseURL(pg.baseURL))
	}
	client := openai.NewClient(opts...)

	stream := client.Chat.Completions.NewStreaming(ctx, openAIParams(p, history, prompt))
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			fmt.Fprint(out, chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("chat: openai stream: %w", err)
	}
	return nil
}

// openAIParams builds the completion request from the preset. Split
// out so tests can assert the derivation without a network.
func openAIParams(p *preset.Preset, history []*Message, prompt string) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if p.Instructions != "" {
		messages = append(messages, openai.SystemMessage(p.Instructions))
	}
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Text))
		case RoleUser:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	model := p.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if p.Temperature != nil {
		params.Temperature = openai.Float(*p.Temperature)
	}
	return params
}

func (pg *Playground) runGemini(ctx context.Context, p *preset.Preset, history []*Message, prompt string, out io.Writer) error {
	cc := &genai.ClientConfig{APIKey: pg.key.Secret}
	if pg.baseURL != "" {
		cc.HTTPOptions.BaseURL = pg.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return fmt.Errorf("chat: gemini client: %w", err)
	}

	model, contents, config := geminiRequest(p, history, prompt)
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return fmt.Errorf("chat: gemini generate: %w", err)
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			fmt.Fprint(out, part.Text)
		}
	}
	return nil
}

// geminiRequest builds the generate call from the preset. Split out
// so tests can assert the derivation without a network.
func geminiRequest(p *preset.Preset, history []*Message, prompt string) (string, []*genai.Content, *genai.GenerateContentConfig) {
	var contents []*genai.Content
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})

	var config *genai.GenerateContentConfig
	if p.Instructions != "" || p.Temperature != nil {
		config = &genai.GenerateContentConfig{}
		if p.Instructions != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: p.Instructions}},
			}
		}
		if p.Temperature != nil {
			t := float32(*p.Temperature)
			config.Temperature = &t
		}
	}

	model := p.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return model, contents, config
}
