package compare

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Extractor turns deck bytes into a DeckRecord. *extract.DeckExtractor
// implements it.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*models.DeckRecord, error)
}

// Observer is told about every finished comparison.
type Observer interface {
	ObserveComparison(res *models.ComparisonResult, elapsed time.Duration)
}

// Options tune a Service.
type Options struct {
	// Parallel extracts both decks concurrently.
	Parallel bool
	Observer Observer
}

// Service is the entry point that never fails: every error or panic becomes
// an error result.
type Service struct {
	extractor  Extractor
	comparator *Comparator
	opts       Options
	logger     zerolog.Logger
}

func NewService(extractor Extractor, comparator *Comparator, opts Options, logger zerolog.Logger) *Service {
	if comparator == nil {
		comparator = NewComparator(nil)
	}
	return &Service{
		extractor:  extractor,
		comparator: comparator,
		opts:       opts,
		logger:     logger.With().Str("component", "CompareService").Logger(),
	}
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// CompareBytes extracts deck a and deck b and compares them.
func (s *Service) CompareBytes(ctx context.Context, a, b []byte) (res *models.ComparisonResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = s.errorResult(&panicError{value: r, stack: debug.Stack()})
		}
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveComparison(res, time.Since(start))
		}
	}()

	deckA, deckB, err := s.extractBoth(ctx, a, b)
	if err != nil {
		return s.errorResult(err)
	}

	res = s.comparator.Compare(deckA, deckB)
	s.logger.Info().
		Bool("identical", res.Identical).
		Int("compared", res.SlidesCompared).
		Int("different", len(res.SlideDiffs)).
		Dur("elapsed", time.Since(start)).
		Msg(res.Summary())
	return res
}

func (s *Service) extractBoth(ctx context.Context, a, b []byte) (*models.DeckRecord, *models.DeckRecord, error) {
	if s.extractor == nil {
		return nil, nil, errors.New("no deck extractor configured")
	}

	var deckA, deckB *models.DeckRecord
	if !s.opts.Parallel {
		var err error
		if deckA, err = s.extractSafe(ctx, models.DeckA, a); err != nil {
			return nil, nil, err
		}
		if deckB, err = s.extractSafe(ctx, models.DeckB, b); err != nil {
			return nil, nil, err
		}
		return deckA, deckB, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deckA, err = s.extractSafe(gctx, models.DeckA, a)
		return err
	})
	g.Go(func() error {
		var err error
		deckB, err = s.extractSafe(gctx, models.DeckB, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return deckA, deckB, nil
}

// extractSafe converts a panic in the extractor into an error so it can
// cross the errgroup goroutine boundary.
func (s *Service) extractSafe(ctx context.Context, side models.DeckSide, data []byte) (deck *models.DeckRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			deck, err = nil, fmt.Errorf("deck %s: %w", side, &panicError{value: r, stack: debug.Stack()})
		}
	}()

	deck, err = s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", side, err)
	}
	return deck, nil
}

func (s *Service) errorResult(err error) *models.ComparisonResult {
	details := fmt.Sprintf("%v\n\n%s", err, debug.Stack())
	var pe *panicError
	if errors.As(err, &pe) {
		details = fmt.Sprintf("%v\n\n%s", err, pe.stack)
	}

	s.logger.Error().Err(err).Msg("Comparison failed")
	return models.NewErrorResult(err, details)
}
