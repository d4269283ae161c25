package extract

import (
	"context"
	"fmt"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/pptx"
	"github.com/rs/zerolog"
)

// Parser turns deck bytes into slides. pptx.Parser is the production one.
type Parser interface {
	Parse(data []byte) (*pptx.Presentation, error)
}

// DeckExtractor produces the ordered DeckRecord of a whole deck.
type DeckExtractor struct {
	parser Parser
	slides *SlideExtractor
	logger zerolog.Logger
}

func NewDeckExtractor(parser Parser, slides *SlideExtractor, logger zerolog.Logger) *DeckExtractor {
	if parser == nil {
		parser = pptx.Parser{}
	}
	if slides == nil {
		slides = NewSlideExtractor(nil)
	}
	return &DeckExtractor{
		parser: parser,
		slides: slides,
		logger: logger.With().Str("component", "DeckExtractor").Logger(),
	}
}

// Extract parses data and extracts every slide, numbered from 1. Parse errors
// are returned unchanged so callers can match pptx.ErrMalformedDocument.
func (d *DeckExtractor) Extract(ctx context.Context, data []byte) (*models.DeckRecord, error) {
	pres, err := d.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	deck := &models.DeckRecord{Slides: make([]models.SlideRecord, 0, len(pres.Slides))}
	for i, slide := range pres.Slides {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract slide %d: %w", i+1, err)
		}

		var shapes []*pptx.Shape
		if slide != nil {
			shapes = slide.Shapes
		}
		rec, diag := d.slides.Extract(i+1, shapes)
		if slide != nil && slide.Truncated && diag.Count(models.IssueDepthTruncated) == 0 {
			diag.Add(models.Issue{
				Kind:       models.IssueDepthTruncated,
				Slide:      i + 1,
				Provenance: fmt.Sprintf("Slide %d", i+1),
				Message:    "shapes in deeply nested groups were skipped while parsing",
			})
		}
		deck.Slides = append(deck.Slides, rec)
		for _, is := range diag.Issues {
			d.logger.Debug().
				Int("slide", is.Slide).
				Str("kind", string(is.Kind)).
				Str("provenance", is.Provenance).
				Msg(is.Message)
			deck.Diagnostics.Add(is)
		}
	}

	d.logger.Debug().
		Int("slides", len(deck.Slides)).
		Int("issues", len(deck.Diagnostics.Issues)).
		Msg("Deck extracted")
	return deck, nil
}
