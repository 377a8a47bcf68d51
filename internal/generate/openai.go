package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/roundtable/internal/intent"
)

// OpenAIConfig configures the OpenAI-compatible chat completions adapter.
type OpenAIConfig struct {
	BaseURL    string // defaults to https://api.openai.com/v1
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// OpenAIClient implements the provider contracts against any
// OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cfg OpenAIConfig
}

// NewOpenAIClient builds an OpenAI-compatible provider.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &OpenAIClient{cfg: cfg}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// GenerateDirectorTurn produces a director utterance. The adapter returns
// text only; routing metadata stays nil so classification falls back to the
// documented text path.
func (c *OpenAIClient) GenerateDirectorTurn(ctx context.Context, input DirectorInput) (Utterance, error) {
	system := "You are the director of a tabletop role-playing session. Narrate vividly but briefly."
	user := input.Prompt
	if input.Window != "" {
		user = fmt.Sprintf("Recent events:\n%s\n\n%s", input.Window, input.Prompt)
	}
	text, err := c.complete(ctx, system, user)
	if err != nil {
		return Utterance{}, fmt.Errorf("generate director turn: %w", err)
	}
	return Utterance{Text: text}, nil
}

type intentPayload struct {
	WantsToAct    bool   `json:"wants_to_act"`
	Relevance     int    `json:"relevance"`
	Justification string `json:"justification"`
}

// GenerateIntent asks the model whether the actor wants to act and how
// relevant acting would be, expecting a strict JSON object back.
func (c *OpenAIClient) GenerateIntent(ctx context.Context, input IntentInput) (intent.Signal, error) {
	system := fmt.Sprintf(
		"You decide whether the character %s should act next. Respond with only a JSON object: "+
			`{"wants_to_act": bool, "relevance": 0-10, "justification": "one sentence"}.`,
		input.Actor.Name)
	user := fmt.Sprintf("Character profile: %s\n\nDirector said: %s\n\nRecent events:\n%s",
		input.Actor.Profile, input.DirectorText, input.Window)

	text, err := c.complete(ctx, system, user)
	if err != nil {
		return intent.Signal{}, fmt.Errorf("generate intent for %s: %w", input.Actor.ID, err)
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &payload); err != nil {
		return intent.Signal{}, fmt.Errorf("decode intent for %s: %w", input.Actor.ID, err)
	}
	return intent.Signal{
		ActorID:       input.Actor.ID,
		WantsToAct:    payload.WantsToAct,
		Relevance:     intent.ClampRelevance(payload.Relevance),
		Justification: payload.Justification,
	}, nil
}

// GenerateTurn produces a full in-character turn for the actor.
func (c *OpenAIClient) GenerateTurn(ctx context.Context, input TurnInput) (string, error) {
	system := fmt.Sprintf("You are playing %s in a tabletop role-playing session. Stay in character and keep the turn short.\n\nProfile: %s",
		input.Actor.Name, input.Actor.Profile)
	user := fmt.Sprintf("Recent events:\n%s\n\nTake your turn.", input.Window)

	text, err := c.complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("generate turn for %s: %w", input.Actor.ID, err)
	}
	return text, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add even when told not to.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
