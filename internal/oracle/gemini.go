// Package oracle provides the default reasoning backend for pattern
// classification, backed by the Gemini API. Everything behind the
// pattern.Oracle interface is replaceable; tests use in-memory fakes.
package oracle

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// #region config
// Config holds the Gemini connection settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultConfig returns standard settings. Classification wants stable,
// low-temperature output.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       "gemini-2.5-flash",
		Temperature: 0.2,
	}
}

// #endregion config

// #region client
// Gemini satisfies pattern.Oracle using Google's genai SDK.
type Gemini struct {
	client *genai.Client
	config Config
}

// NewGemini creates the client. The API key is required.
func NewGemini(ctx context.Context, config Config) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("oracle: api key required")
	}
	if config.Model == "" {
		config.Model = DefaultConfig("").Model
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: create client: %w", err)
	}
	return &Gemini{client: client, config: config}, nil
}

// #endregion client

// #region classify
// Classify sends the prompts and returns the raw model text. The caller
// owns the deadline on ctx and lenient parsing of the result.
func (g *Gemini) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model,
		genai.Text(userPrompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(g.config.Temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("oracle: generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("oracle: empty response")
	}
	return text, nil
}

// #endregion classify
