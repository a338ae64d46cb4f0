package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartdeck/internal/dataset"
	"chartdeck/internal/report"
)

func sampleInput() report.NarrativeInput {
	return report.NarrativeInput{
		Title:   "Sales",
		Summary: &report.Summary{TotalRows: 12, TotalColumns: 3, Completeness: 97.5},
		Columns: []dataset.ColumnSummary{{Name: "region", Kind: dataset.KindText}},
		Insights: []report.Insight{{
			Type:        report.InsightDataQuality,
			Severity:    report.SeverityInfo,
			Title:       "Duplicate Rows",
			Description: "Found 1 duplicate rows (8.3%)",
		}},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(sampleInput())
	require.NoError(t, err)

	assert.Contains(t, prompt, "## Report: Sales")
	assert.Contains(t, prompt, "### Dataset Summary:")
	assert.Contains(t, prompt, `"total_rows": 12`)
	assert.Contains(t, prompt, "### Columns:")
	assert.Contains(t, prompt, `"Found 1 duplicate rows (8.3%)"`)
	assert.Contains(t, prompt, "### Instructions:")

	prompt, err = BuildPrompt(report.NarrativeInput{Title: "Empty"})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "### Columns:")
	assert.NotContains(t, prompt, "### Automated Insights:")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIClientWithConfig(cfg, "gpt-test", WithMaxTokens(200))
}

func TestNarrate(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  ## Overview\nLooks fine.\n"},
			}},
		})
	})

	text, err := c.Narrate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "## Overview\nLooks fine.", text)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "## Report: Sales")
}

func TestNarrateErrors(t *testing.T) {
	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := empty.Narrate(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrEmptyResponse)

	failing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})
	_, err = failing.Narrate(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API error")

	var nilClient *OpenAIClient
	_, err = nilClient.Narrate(context.Background(), sampleInput())
	assert.EqualError(t, err, "OpenAI client not initialized")
}

func TestImplementsNarrator(t *testing.T) {
	var _ report.Narrator = NewOpenAIClient("key", "model")
}
