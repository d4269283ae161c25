package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/report"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Narrate when no provider is active.
var ErrDisabled = errors.New("ai narration disabled")

// Provider generates text for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Client writes short narrative summaries of comparison results.
type Client struct {
	provider Provider
	logger   zerolog.Logger
}

// NewClient picks the driver of the active provider. With no active provider
// the client is valid but disabled.
func NewClient(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Client, error) {
	c := &Client{logger: logger.With().Str("component", "AI").Logger()}

	settings, ok := cfg.Active()
	if !ok {
		return c, nil
	}

	switch settings.Driver {
	case "gemini":
		p, err := newGemini(ctx, settings)
		if err != nil {
			return nil, err
		}
		c.provider = p
	case "mock":
		c.provider = Mock{}
	default:
		return nil, fmt.Errorf("unknown ai driver %q", settings.Driver)
	}

	c.logger.Info().Str("driver", settings.Driver).Str("model", settings.Model).Msg("AI narration enabled")
	return c, nil
}

// NewWithProvider is used when the provider is built elsewhere.
func NewWithProvider(p Provider, logger zerolog.Logger) *Client {
	return &Client{provider: p, logger: logger.With().Str("component", "AI").Logger()}
}

func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// Narrate summarises res in a few sentences of Markdown.
func (c *Client) Narrate(ctx context.Context, res *models.ComparisonResult) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if res == nil || res.Error {
		return "", errors.New("nothing to narrate")
	}

	out, err := c.provider.Generate(ctx, Prompt(res))
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.provider.Close()
}

// Prompt is the instruction sent to the model for res.
func Prompt(res *models.ComparisonResult) string {
	var b strings.Builder
	b.WriteString("You review changes between two revisions of a slide deck.\n")
	b.WriteString("Summarise the report below in at most five short Markdown bullet points for a busy reader. ")
	b.WriteString("Mention slide numbers. Do not invent changes that are not in the report.\n\n")
	b.WriteString(report.Markdown(res, "en"))
	return b.String()
}

// Mock is a deterministic provider for development and tests.
type Mock struct{}

func (Mock) Generate(_ context.Context, prompt string) (string, error) {
	n := strings.Count(prompt, "\n## Slide ")
	return fmt.Sprintf("- Mock summary: %d slide(s) changed.", n), nil
}

func (Mock) Close() error { return nil }
