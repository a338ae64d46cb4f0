// Package llm writes report narratives with the OpenAI chat API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"chartdeck/internal/logger"
	"chartdeck/internal/report"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1500
)

// DefaultSystemPrompt instructs the model how to write the narrative.
const DefaultSystemPrompt = "You are an experienced data analyst. Write a concise narrative in markdown " +
	"for a data report based on the provided dataset summary, column profiles and automated insights. " +
	"Describe what the data contains, call out data quality problems, and suggest next steps for analysis. " +
	"Do not invent values that are not present in the input."

// ErrEmptyResponse is returned when the API answers without choices.
var ErrEmptyResponse = errors.New("no response from OpenAI")

// OpenAIClient is a report.Narrator backed by a chat completion model.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
	timeout      time.Duration
	log          *logger.Logger
}

// Option customises an OpenAIClient.
type Option func(*OpenAIClient)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *OpenAIClient) { c.systemPrompt = prompt }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *OpenAIClient) { c.maxTokens = n }
}

// WithTimeout bounds a single narration request.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenAIClient) { c.timeout = d }
}

// NewOpenAIClient creates a narrator for the given API key and model.
func NewOpenAIClient(apiKey, model string, options ...Option) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model, options...)
}

// NewOpenAIClientWithConfig creates a narrator from a full client config,
// e.g. to point at a compatible endpoint.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string, options ...Option) *OpenAIClient {
	c := &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: DefaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
		timeout:      defaultTimeout,
		log:          logger.WithComponent("llm"),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Narrate implements report.Narrator.
func (c *OpenAIClient) Narrate(ctx context.Context, in report.NarrativeInput) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("OpenAI client not initialized")
	}

	prompt, err := BuildPrompt(in)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("Requesting narrative", map[string]interface{}{
		"model": c.model,
		"title": in.Title,
	})
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		c.log.Error("OpenAI API error", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Info("Generated narrative", map[string]interface{}{
		"characters": len(text),
	})
	return text, nil
}

// BuildPrompt renders the narrative input as the user message.
func BuildPrompt(in report.NarrativeInput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Report: %s\n\n", in.Title)

	sections := []struct {
		heading string
		value   any
		present bool
	}{
		{"Dataset Summary", in.Summary, in.Summary != nil},
		{"Columns", in.Columns, len(in.Columns) > 0},
		{"Automated Insights", in.Insights, len(in.Insights) > 0},
	}
	for _, s := range sections {
		if !s.present {
			continue
		}
		data, err := json.MarshalIndent(s.value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", strings.ToLower(s.heading), err)
		}
		fmt.Fprintf(&b, "### %s:\n```json\n%s\n```\n\n", s.heading, data)
	}

	b.WriteString(`### Instructions:
Write the narrative section of this report:
1. What the dataset describes and its size
2. Data quality observations (missing values, duplicates, constant columns)
3. Notable distributions and outliers
4. Suggested next steps for analysis`)
	return b.String(), nil
}
