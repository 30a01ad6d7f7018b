package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const promptTemplate = `You are a helpful AI assistant that suggests GPS coordinates based on a text description of a desired location.

The user will provide a text description of a desired location, and you should respond with suggested GPS coordinates.
Respond with the coordinates only, as "lat,lng" in decimal degrees, and nothing else.

For example, if the user provides the description 'near downtown', you might respond with '34.0522,-118.2437' (Los Angeles downtown).

Description: %s
`

// Suggester implements ports.LocationSuggester with a Gemini model.
type Suggester struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Gemini client for model.
func New(ctx context.Context, apiKey, model string) (*Suggester, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0.2)
	m.SetMaxOutputTokens(64)
	return &Suggester{client: client, model: m}, nil
}

// SuggestLocation asks the model for coordinates matching description and
// returns its raw text reply.
func (s *Suggester) SuggestLocation(ctx context.Context, description string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(Prompt(description)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return replyText(resp)
}

// Close releases the client.
func (s *Suggester) Close() error {
	return s.client.Close()
}

// Prompt renders the suggestion prompt for description.
func Prompt(description string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(description))
}

// replyText joins the text parts of the first candidate.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", errors.New("empty response from gemini")
	}
	return reply, nil
}
