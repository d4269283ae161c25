package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGemini(ctx context.Context, s config.ProviderSettings) (*gemini, error) {
	if s.Key == "" {
		return nil, errors.New("gemini: api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.Key))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model := client.GenerativeModel(s.Model)
	if s.Temperature > 0 {
		model.SetTemperature(float32(s.Temperature))
	}
	if s.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(s.MaxTokens))
	}
	return &gemini{client: client, model: model}, nil
}

func (g *gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
		break
	}
	if b.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return b.String(), nil
}

func (g *gemini) Close() error {
	return g.client.Close()
}
