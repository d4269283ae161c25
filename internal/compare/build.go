package compare

import (
	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/extract"
	"github.com/gnemet/SlideDiff/internal/imaging"
	"github.com/gnemet/SlideDiff/internal/pptx"
	"github.com/rs/zerolog"
)

// NewExtractorFromConfig builds the parser and extractor chain for one deck.
func NewExtractorFromConfig(cfg config.CompareConfig, logger zerolog.Logger) *extract.DeckExtractor {
	walker := extract.NewWalker(imaging.NewFingerprinter(cfg.PreviewMaxSide), cfg.MaxGroupDepth)
	return extract.NewDeckExtractor(pptx.Parser{MaxGroupDepth: cfg.MaxGroupDepth}, extract.NewSlideExtractor(walker), logger)
}

// NewServiceFromConfig wires the extractor and comparator. obs may be nil.
func NewServiceFromConfig(cfg config.CompareConfig, obs Observer, logger zerolog.Logger) *Service {
	return NewService(NewExtractorFromConfig(cfg, logger), NewComparator(NewLineDiffer(cfg.DiffTimeout)),
		Options{Parallel: cfg.ParallelExtraction, Observer: obs}, logger)
}
