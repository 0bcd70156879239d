package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrUpstream covers transport failures, non-200 statuses and undecodable bodies.
	ErrUpstream = errors.New("hint oracle request failed")
	// ErrEmptyAnswer means the oracle answered without any suggestion text.
	ErrEmptyAnswer = errors.New("hint oracle returned no suggestion")
	// ErrDisabled is returned when no oracle is configured.
	ErrDisabled = errors.New("hint oracle disabled")
)

// maxResponseBytes caps how much of an oracle response is read.
const maxResponseBytes = 1 << 20

// Oracle turns a board description into a free-text move suggestion.
type Oracle interface {
	Suggest(ctx context.Context, prompt string) (string, error)
}

// SystemPrompt frames the oracle as a Klondike expert giving one short suggestion.
const SystemPrompt = "You are an expert Klondike solitaire player. Your only job is to analyse the " +
	"game state you are given and suggest the best possible move in one short, direct sentence. " +
	"Do not greet the player and do not explain the rules; give only the suggestion. If no move " +
	"is possible, say so. For example: 'Move the 5 of hearts onto the 6 of spades.' or " +
	"'Turn over a card from the stock.'"

// GeminiClient implements Oracle against the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	fallbackModels []string
	logger         *zap.Logger
}

// NewGeminiClient creates a client. baseURL is the API root, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewGeminiClient(httpClient *http.Client, apiKey, baseURL, model string, fallbackModels []string, logger *zap.Logger) *GeminiClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		httpClient:     httpClient,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		fallbackModels: fallbackModels,
		logger:         logger,
	}
}

type textPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Suggest asks each configured model in turn until one answers.
func (c *GeminiClient) Suggest(ctx context.Context, prompt string) (string, error) {
	models := make([]string, 0, 1+len(c.fallbackModels))
	models = append(models, c.model)
	models = append(models, c.fallbackModels...)

	var lastErr error
	for _, model := range models {
		text, err := c.generate(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if len(models) > 1 {
			c.logger.Warn("hint model failed, trying next", zap.String("model", model), zap.Error(err))
		}
	}
	return "", lastErr
}

func (c *GeminiClient) generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:          []content{{Role: "user", Parts: []textPart{{Text: prompt}}}},
		SystemInstruction: &content{Parts: []textPart{{Text: SystemPrompt}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http call: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrUpstream, err)
	}
	if len(respBody) > maxResponseBytes {
		return "", fmt.Errorf("%w: response exceeds %d bytes", ErrUpstream, maxResponseBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: upstream status %d: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}
