package models

import "fmt"

// DiffOperation defines the type of a line change.
type DiffOperation int

const (
	// DiffEqual marks a line present in both texts.
	DiffEqual DiffOperation = 0
	// DiffInsert marks a line present only in deck B.
	DiffInsert DiffOperation = 1
	// DiffDelete marks a line present only in deck A.
	DiffDelete DiffOperation = -1
)

func (op DiffOperation) String() string {
	switch op {
	case DiffInsert:
		return "insert"
	case DiffDelete:
		return "delete"
	default:
		return "equal"
	}
}

// Prefix is the ndiff-style marker for the operation.
func (op DiffOperation) Prefix() string {
	switch op {
	case DiffInsert:
		return "+ "
	case DiffDelete:
		return "- "
	default:
		return "  "
	}
}

// DiffOp is one line of a line-based text diff.
type DiffOp struct {
	Kind DiffOperation `json:"kind"`
	Text string        `json:"text"`
}

func (d DiffOp) String() string {
	return d.Kind.Prefix() + d.Text
}

// DeckSide identifies one of the two compared decks.
type DeckSide string

const (
	DeckA DeckSide = "A"
	DeckB DeckSide = "B"
)

// SlideDiff describes every difference found at one slide position.
type SlideDiff struct {
	Index       int      `json:"index"`
	TextChanged bool     `json:"text_changed"`
	TextA       string   `json:"text_a"`
	TextB       string   `json:"text_b"`
	TextDiffOps []DiffOp `json:"text_diff_ops,omitempty"`

	ImageChanged       bool          `json:"image_changed"`
	ImageCountA        int           `json:"image_count_a"`
	ImageCountB        int           `json:"image_count_b"`
	ImagesOnlyInA      []ImageRecord `json:"images_only_in_a"`
	ImagesOnlyInB      []ImageRecord `json:"images_only_in_b"`
	ImageCountMismatch bool          `json:"image_count_mismatch"`
}

// ExtraSlide is a slide beyond the end of the shorter deck.
type ExtraSlide struct {
	Index      int      `json:"index"`
	OwnerDeck  DeckSide `json:"owner_deck"`
	Text       string   `json:"text"`
	ImageCount int      `json:"image_count"`
}

// ComparisonResult is the root output of one comparison.
type ComparisonResult struct {
	Identical          bool         `json:"identical"`
	SlidesCompared     int          `json:"slides_compared"`
	IdenticalCount     int          `json:"identical_count"`
	TextDiffCount      int          `json:"text_diff_count"`
	ImageDiffCount     int          `json:"image_diff_count"`
	SlideDiffs         []SlideDiff  `json:"slide_diffs"`
	ExtraSlides        []ExtraSlide `json:"extra_slides"`
	DeckLengthMismatch bool         `json:"deck_length_mismatch"`
	SlideCountA        int          `json:"slide_count_a"`
	SlideCountB        int          `json:"slide_count_b"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`

	DiagnosticsA Diagnostics `json:"diagnostics_a"`
	DiagnosticsB Diagnostics `json:"diagnostics_b"`
}

// NewErrorResult builds the result reported when a comparison could not run.
func NewErrorResult(err error, details string) *ComparisonResult {
	return &ComparisonResult{
		Identical:    false,
		Error:        true,
		ErrorMessage: err.Error(),
		ErrorDetails: details,
		SlideDiffs:   []SlideDiff{},
		ExtraSlides:  []ExtraSlide{},
	}
}

// Summary is the one-line verdict of the comparison.
func (r *ComparisonResult) Summary() string {
	switch {
	case r.Error:
		return fmt.Sprintf("Error comparing presentations: %s", r.ErrorMessage)
	case r.Identical:
		return fmt.Sprintf("All %d slides have identical text and image content", r.SlidesCompared)
	default:
		return fmt.Sprintf("Found differences in %d out of %d compared slides (%d slides identical)",
			len(r.SlideDiffs), r.SlidesCompared, r.IdenticalCount)
	}
}

func (r *ComparisonResult) DetailedSummary() string {
	if r.Error || r.Identical {
		return ""
	}
	return fmt.Sprintf("Text differences: %d slides, Image differences: %d slides", r.TextDiffCount, r.ImageDiffCount)
}

func (r *ComparisonResult) SlideCountMessage() string {
	if !r.DeckLengthMismatch {
		return ""
	}
	return fmt.Sprintf("Presentations have different number of slides: %d vs %d. Comparing the first %d slides.",
		r.SlideCountA, r.SlideCountB, r.SlidesCompared)
}
