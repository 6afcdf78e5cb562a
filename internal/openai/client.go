// Package openai wraps the two OpenAI endpoints calo needs: Whisper
// transcription and chat completions for structured food extraction.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when no API key has been configured.
var ErrMissingAPIKey = errors.New("OpenAI API key not set")

// KeyFunc returns the current API key. It is called on every request so a
// key saved in settings takes effect immediately.
type KeyFunc func() string

// Client talks to an OpenAI-compatible API.
type Client struct {
	key                KeyFunc
	baseURL            string
	transcriptionModel string
	extractionModel    string
	client             *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL            string
	TranscriptionModel string
	ExtractionModel    string
}

// NewClient returns a client that reads its API key through key.
func NewClient(key KeyFunc, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.TranscriptionModel == "" {
		opts.TranscriptionModel = "whisper-1"
	}
	if opts.ExtractionModel == "" {
		opts.ExtractionModel = "gpt-4o-mini"
	}
	return &Client{
		key:                key,
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		transcriptionModel: opts.TranscriptionModel,
		extractionModel:    opts.ExtractionModel,
		client:             &http.Client{Timeout: 120 * time.Second},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends compressed audio to the transcription endpoint and returns
// the trimmed transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	apiKey := c.key()
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	data, err := c.do(req)
	if err != nil {
		return "", err
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("parse transcription: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}

const extractionPrompt = `The user said: %q. Extract the food items and their amounts. ` +
	`Respond with a valid JSON object of the form {"foods": [{"name": string, "quantity": number, "unit": string}]}. ` +
	`Use grams ("g") as the unit whenever possible. If the amount is not specified, use 100 grams. ` +
	`For example: {"foods": [{"name": "chicken breast", "quantity": 200, "unit": "g"}, {"name": "banana", "quantity": 100, "unit": "g"}]}`

// ExtractFoods asks the chat model for the food items in transcript and
// normalises whatever JSON shape comes back into a list.
func (c *Client) ExtractFoods(ctx context.Context, transcript string) ([]FoodItem, error) {
	content, err := c.chat(ctx, []message{
		{Role: "system", Content: fmt.Sprintf(extractionPrompt, transcript)},
	})
	if err != nil {
		return nil, err
	}
	return NormalizeItems([]byte(content))
}

func (c *Client) chat(ctx context.Context, messages []message) (string, error) {
	apiKey := c.key()
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	reqBody := chatRequest{
		Model:          c.extractionModel,
		Messages:       messages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	data, err := c.do(req)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", &FormatError{Reason: "no content in response"}
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: truncate(string(body), 300)}
	}
	return body, nil
}

// APIError is a non-200 response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
