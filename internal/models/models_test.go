package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	identical := &ComparisonResult{Identical: true, SlidesCompared: 3, IdenticalCount: 3}
	assert.Equal(t, "All 3 slides have identical text and image content", identical.Summary())
	assert.Empty(t, identical.DetailedSummary())

	different := &ComparisonResult{
		SlidesCompared: 4, IdenticalCount: 2, TextDiffCount: 2, ImageDiffCount: 1,
		SlideDiffs: []SlideDiff{{Index: 1}, {Index: 3}},
	}
	assert.Equal(t, "Found differences in 2 out of 4 compared slides (2 slides identical)", different.Summary())
	assert.Equal(t, "Text differences: 2 slides, Image differences: 1 slides", different.DetailedSummary())

	failed := NewErrorResult(errors.New("zip: not a valid zip file"), "trace")
	assert.Equal(t, "Error comparing presentations: zip: not a valid zip file", failed.Summary())
	assert.Empty(t, failed.DetailedSummary())
	assert.False(t, failed.Identical)
	assert.NotNil(t, failed.SlideDiffs)
	assert.NotNil(t, failed.ExtraSlides)
	assert.Equal(t, "trace", failed.ErrorDetails)
}

func TestSlideCountMessage(t *testing.T) {
	r := &ComparisonResult{SlidesCompared: 2, SlideCountA: 2, SlideCountB: 5}
	assert.Empty(t, r.SlideCountMessage())

	r.DeckLengthMismatch = true
	assert.Equal(t, "Presentations have different number of slides: 2 vs 5. Comparing the first 2 slides.", r.SlideCountMessage())
}

func TestDiffOpString(t *testing.T) {
	assert.Equal(t, "+ new", DiffOp{Kind: DiffInsert, Text: "new"}.String())
	assert.Equal(t, "- old", DiffOp{Kind: DiffDelete, Text: "old"}.String())
	assert.Equal(t, "  same", DiffOp{Kind: DiffEqual, Text: "same"}.String())
	assert.Equal(t, "insert", DiffInsert.String())
}

func TestPreviewDataURI(t *testing.T) {
	assert.Empty(t, ImageRecord{}.PreviewDataURI())
	assert.Equal(t, "data:image/png;base64,AQI=", ImageRecord{PreviewData: []byte{1, 2}}.PreviewDataURI())
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	d.Add(Issue{Kind: IssueImageDecode})
	d.Add(Issue{Kind: IssueImageDecode})
	d.Add(Issue{Kind: IssuePreview})
	assert.Equal(t, 2, d.Count(IssueImageDecode))
	assert.Zero(t, d.Count(IssueDepthTruncated))

	var deck *DeckRecord
	assert.Zero(t, deck.Len())
}

func TestSlideDiffKeepsEmptySideText(t *testing.T) {
	out, err := json.Marshal(SlideDiff{Index: 1, TextChanged: true, TextA: "", TextB: "X"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Contains(t, fields, "text_a")
	assert.Equal(t, "", fields["text_a"])
	assert.Equal(t, "X", fields["text_b"])
}
