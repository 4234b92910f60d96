package generation

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// TextGenerator is the contract for text-generation services. The returned
// text may contain a JSON payload, possibly wrapped in fenced code markers;
// callers are expected to parse it permissively.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// VisionComparer compares two images and returns a free-form textual analysis
// with the same JSON-embedding tolerance as TextGenerator.
type VisionComparer interface {
	Compare(ctx context.Context, imageA, imageB string) (string, error)
}

// OpenAIClient implements TextGenerator and VisionComparer against the OpenAI
// chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIClient creates a client with the given API key.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModelGPT4oMini,
	}
}

// FromEnv returns a client configured from OPENAI_API_KEY, or nil when no key
// is set. A nil client means mock mode, which is a valid runtime mode rather
// than an error: callers fall back to deterministic output.
func FromEnv() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	return NewOpenAIClient(apiKey)
}

// Generate sends a single-turn chat completion and returns the raw text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	if rawResponse == "" {
		return "", fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	return rawResponse, nil
}

// GenerateStructured sends a chat completion with JSON schema enforcement and
// returns the raw JSON text of the response.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, prompt, schemaName string, schema interface{}) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        schemaName,
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	if rawResponse == "" {
		return "", fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	return rawResponse, nil
}

// Compare sends two images alongside a comparison prompt and returns the raw
// text of the model's analysis. Images are passed as data URLs or plain URLs.
func (c *OpenAIClient) Compare(ctx context.Context, imageA, imageB string) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(visualDiffPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageA}),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageB}),
	}

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return chatCompletion.Choices[0].Message.Content, nil
}

// visualDiffPrompt asks the model to explain what the user changed between the
// generated slide and their manually edited version.
const visualDiffPrompt = `Compare these two educational-video slide images.
Image 1 is the AI-generated original; image 2 is the user's manual edit.
Describe what the user preferred, covering:
- layout and whitespace
- color scheme and contrast
- fonts and text size
- style of diagrams and icons
- text content changes
- overall mood and tone

Output JSON in this form:
{
  "changes": [
    {"aspect": "color scheme", "before": "bright blue background", "after": "dark gray background",
     "preference": "prefers dark backgrounds for code walkthrough slides"}
  ],
  "overall_preference": "one sentence summarizing the overall preference"
}`
