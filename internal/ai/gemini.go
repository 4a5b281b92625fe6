package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAdvisor implements Advisor using Google's Gemini models.
type GeminiAdvisor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiAdvisor initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiAdvisor(ctx context.Context, apiKey string) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Flash keeps latency and cost low; the advice is throwaway text.
	model := client.GenerativeModel("gemini-2.0-flash")
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	return &GeminiAdvisor{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (a *GeminiAdvisor) Close() {
	a.client.Close()
}

// AdviseDriver asks the model which of the top-ranked rides the driver
// should consider first and why.
func (a *GeminiAdvisor) AdviseDriver(ctx context.Context, driverName string, board BoardDigest) (*Advice, error) {
	prompt := buildAdvicePrompt(driverName, board)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	cleanJSON := cleanJSONString(responseText.String())

	var advice Advice
	if err := json.Unmarshal([]byte(cleanJSON), &advice); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	return &advice, nil
}

func buildAdvicePrompt(driverName string, board BoardDigest) string {
	var rides strings.Builder
	for _, r := range board.Top {
		fmt.Fprintf(&rides, "- ride %s: rank %d, score %.0f, eligible=%v, urgent=%v, %s %s (%s)\n",
			r.RideID, r.Rank, r.Score, r.Eligible, r.IsUrgent,
			r.AppointmentDate, r.AppointmentTime, r.Reason)
	}

	return fmt.Sprintf(`Role: You are the dispatch assistant for a volunteer
non-emergency medical transport program. A driver named %q is looking at
their ranked ride board.

Board summary: %d rides total, %d within range, average score %.0f, top score %.0f.
Top-ranked rides:
%s
Task: Recommend exactly one ride ID from the list above and explain briefly
why it is the best fit. If a recommended ride is urgent or short-notice,
mention it in caution_note.

Respond with JSON only, shaped as:
{"recommendation": "<ride id>", "rationale": "<1-2 sentences>", "caution_note": "<optional>"}`,
		driverName,
		board.Summary.TotalCount, board.Summary.EligibleCount,
		board.Summary.AverageScore, board.Summary.TopScore,
		rides.String())
}

// cleanJSONString strips markdown code fences the model sometimes wraps
// around its JSON despite the response MIME type.
func cleanJSONString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
