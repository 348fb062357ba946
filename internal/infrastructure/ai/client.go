package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"golang.org/x/time/rate"
)

// Client handles communication with the OpenAI-compatible chat completions
// API used for both receipt extraction (vision) and name normalization
// (text). Transient failures are not retried here; callers degrade to
// their fallback path instead, to bound request latency.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	visionModel string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new AI API client. requestsPerSecond bounds the
// outbound call rate across all request handlers sharing this client.
func NewClient(apiKey, baseURL, model, visionModel string, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		visionModel: visionModel,
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 5),
	}
}

// SetDebug enables request/response logging
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

// chat request/response shapes (OpenAI chat completions)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat executes one chat completion call and returns the raw text of the
// first choice, with any markdown/prose wrapper around the JSON stripped.
func (c *Client) chat(ctx context.Context, model string, messages []chatMessage) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.2,
		// json_object keeps the collaborator from chatting around the payload
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAIService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrAIService, err)
	}

	if resp.StatusCode != http.StatusOK {
		if c.debug {
			log.Printf("[AI] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("%w: status %d", domain.ErrAIService, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrAIService, err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrAIService)
	}

	content := StripJSONWrapper(chatResp.Choices[0].Message.Content)
	if c.debug {
		log.Printf("[AI] completion (%d bytes): %s", len(content), content)
	}

	return content, nil
}

// Complete sends a text prompt to the text model and returns the JSON
// payload of the completion.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []chatMessage{
		{
			Role:    "user",
			Content: []contentPart{{Type: "text", Text: prompt}},
		},
	}
	return c.chat(ctx, c.model, messages)
}

const extractPrompt = `Extract all data from this receipt image. Respond with JSON only, no commentary, using exactly this shape:
{"store_name": string, "date": "YYYY-MM-DD", "items": [{"name": string, "price": number, "quantity": integer}], "subtotal": number, "tax": number, "total": number}
Use the item text exactly as printed. If a field is unreadable use "" for strings and 0 for numbers. Quantity defaults to 1.`

// ExtractReceipt sends a receipt image to the vision model and parses the
// structured result. A response with no items is treated as an extraction
// failure: there is no line item data to proceed with.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*domain.ExtractedReceipt, error) {
	if len(image) == 0 {
		return nil, domain.ErrValidation
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	messages := []chatMessage{
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extractPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		},
	}

	content, err := c.chat(ctx, c.visionModel, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	var extracted domain.ExtractedReceipt
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		return nil, fmt.Errorf("%w: unparseable JSON: %v", domain.ErrExtraction, err)
	}

	if len(extracted.Items) == 0 {
		return nil, fmt.Errorf("%w: no items extracted", domain.ErrExtraction)
	}

	for i := range extracted.Items {
		if extracted.Items[i].Quantity < 1 {
			extracted.Items[i].Quantity = 1
		}
	}

	return &extracted, nil
}
