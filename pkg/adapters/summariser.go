// Package adapters provides the default, swappable implementations of
// the narrow interfaces the Transcript Buffer and HTTP API consume:
// an HTTP chat-completions Summariser and a Postgres LISTEN/NOTIFY
// Broadcaster (Publisher) with its WebSocket fan-out Hub. The
// Postgres-backed store lives in pkg/database.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/transcript"
)

const (
	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"
)

// HTTPSummariser calls an OpenAI-compatible chat/completions endpoint
// to summarize a speaker's recent transcript segments.
type HTTPSummariser struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewHTTPSummariser constructs a Summariser backed by baseURL +
// "/v1/chat/completions". timeout <= 0 uses a 30s default.
func NewHTTPSummariser(baseURL, model string, timeout time.Duration) *HTTPSummariser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSummariser{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize implements transcript.Summariser, asking the completion
// endpoint for a short rolling summary plus topic keywords in one call.
func (s *HTTPSummariser) Summarize(ctx context.Context, meetingID, speakerID, speakerName, recentText string, segmentCount int) (transcript.SummaryResult, error) {
	prompt := fmt.Sprintf(
		"%s (speaker id %s) contributed %d segment(s) to the meeting so far:\n\n%s\n\n"+
			"Reply with strict JSON of the form {\"summary\": \"one or two sentence rolling summary\", \"topics\": [\"short topic keyword\", ...]}.",
		speakerName, speakerID, segmentCount, recentText,
	)
	content, err := s.Complete(ctx, "You summarize live meeting transcript segments concisely and reply with strict JSON.", prompt)
	if err != nil {
		return transcript.SummaryResult{}, err
	}
	return parseSummaryResult(content), nil
}

// parseSummaryResult decodes the {summary, topics} JSON the Summarize
// prompt asks for. A completion that doesn't return valid JSON (a
// plain-text reply from a model that ignored the instruction) degrades
// to treating the whole reply as the summary with no topics, rather
// than failing the call.
func parseSummaryResult(content string) transcript.SummaryResult {
	var parsed struct {
		Summary string   `json:"summary"`
		Topics  []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.Summary == "" {
		return transcript.SummaryResult{Summary: content}
	}
	return transcript.SummaryResult{Summary: parsed.Summary, Topics: parsed.Topics}
}

// Complete implements the chat-endpoint Completer: a single-turn
// system+user prompt against the same chat/completions endpoint
// Summarize uses, with a caller-supplied fallback on any failure so
// the HTTP layer never surfaces a raw adapter error to a chat client.
func (s *HTTPSummariser) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("adapters: failed to marshal completion request: %w", err)
	}

	url := s.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("adapters: failed to build completion request: %w", err)
	}
	httpReq.Header.Set(contentTypeHeader, applicationJSON)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("adapters: completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("adapters: failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("adapters: completion request to %s failed with status %d: %s", url, resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("adapters: failed to unmarshal completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("adapters: completion API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("adapters: completion response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
