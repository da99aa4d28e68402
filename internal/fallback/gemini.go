package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// GeminiAdapter implements Adapter against the Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter creates a Gemini-backed adapter.
func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAdapter{client: client, model: model}, nil
}

func (g *GeminiAdapter) Process(ctx context.Context, req Request) Response {
	prompt := req.SystemPrompt + "\n\nINPUT: " + req.Input + "\n\nRespond with valid JSON only:"

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return classifyCallError(err)
	}
	text := resp.Text()
	if text == "" {
		return failure(CodeNotProcessable, "model returned an empty response", false)
	}
	return parseAdapterResponse(text)
}

func classifyCallError(err error) Response {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return failure(CodeTimeout, err.Error(), true)
	case errors.Is(err, context.Canceled):
		return failure(CodeNetwork, err.Error(), false)
	case strings.Contains(err.Error(), "429"):
		return failure(CodeRateLimit, err.Error(), true)
	default:
		return failure(CodeServerError, err.Error(), true)
	}
}

// parseAdapterResponse extracts the adapter response from the model's text,
// tolerating markdown code fences around the JSON.
func parseAdapterResponse(text string) Response {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var body struct {
		Value     string `json:"value"`
		Unit      string `json:"unit"`
		Formatted string `json:"formatted"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return failure(CodeParseError, fmt.Sprintf("unparseable model response: %.120s", text), false)
	}
	if body.Error != "" {
		return failure(CodeNotProcessable, body.Error, false)
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(body.Value, ",", ""))
	if err != nil {
		return failure(CodeParseError, fmt.Sprintf("model returned non-numeric value %q", body.Value), false)
	}
	return Response{OK: true, Value: &v, Unit: body.Unit, Formatted: body.Formatted}
}
