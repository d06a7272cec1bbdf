package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"keeperbot/internal/models"
)

// classifyPrompt pins the taxonomy. Classification runs at temperature
// zero so the same input always lands in the same bucket.
const classifyPrompt = `You are a capture classifier for a personal knowledge system.
Classify the input into exactly one category:
- People: a person, a relationship, something to remember about someone
- Project: a multi-step undertaking with an outcome
- Idea: a thought, insight or thing to explore
- Admin: a chore, errand, appointment or administrative task

Extract any structured fields you can (e.g. name, topic, deadline, url).

Return a JSON object with this structure:
{
    "category": "People|Project|Idea|Admin",
    "confidence": 0.0,
    "fields": {"field_name": "value"},
    "reasoning": "one short sentence"
}

Input: %s`

type OpenAIClient struct {
	client     *openai.Client
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIClient(apiKey, model string, maxTokens int, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:     openai.NewClient(apiKey),
		model:      model,
		maxTokens:  maxTokens,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
}

func (c *OpenAIClient) Classify(ctx context.Context, text string) (models.Classification, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(classifyPrompt, text),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return models.Classification{}, fmt.Errorf("classification request: %w", err)
	}

	var parsed struct {
		Category   string            `json:"category"`
		Confidence float64           `json:"confidence"`
		Fields     map[string]string `json:"fields"`
		Reasoning  string            `json:"reasoning"`
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Error("Failed to parse classification response",
			zap.Error(err),
			zap.String("response", raw))
		return models.Classification{}, fmt.Errorf("parsing classification response: %w", err)
	}

	category, ok := models.ParseCategory(parsed.Category)
	if !ok || category == models.CategoryNote {
		c.logger.Warn("Classifier returned out-of-taxonomy category",
			zap.String("category", parsed.Category))
		category = models.CategoryNote
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return models.Classification{
		Category:   category,
		Confidence: confidence,
		Fields:     parsed.Fields,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading voice file: status %d", resp.StatusCode)
	}

	transcript, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   resp.Body,
		FilePath: "voice.ogg",
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return strings.TrimSpace(transcript.Text), nil
}

func (c *OpenAIClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: "Describe this image in one or two sentences, focusing on anything worth remembering.",
						},
						{
							Type:     openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
						},
					},
				},
			},
			MaxTokens: c.maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("image description request: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Ask(ctx context.Context, question string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are the assistant behind a personal knowledge manager. Answer briefly and concretely.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: question,
				},
			},
			MaxTokens: c.maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
