package extract

import (
	"fmt"
	"strings"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/pptx"
)

// SlideExtractor turns the top-level shapes of one slide into a SlideRecord.
type SlideExtractor struct {
	walker *Walker
}

func NewSlideExtractor(walker *Walker) *SlideExtractor {
	if walker == nil {
		walker = NewWalker(nil, DefaultMaxDepth)
	}
	return &SlideExtractor{walker: walker}
}

// Extract reads text from top-level shapes and table cells only; images come
// from the full subtree of every top-level shape.
func (e *SlideExtractor) Extract(index int, shapes []*pptx.Shape) (models.SlideRecord, models.Diagnostics) {
	rec := models.SlideRecord{Index: index, Images: []models.ImageRecord{}}
	var diag models.Diagnostics
	var lines []string
	prov := fmt.Sprintf("Slide %d", index)

	for _, s := range shapes {
		if s == nil {
			continue
		}

		if s.HasTextFrame {
			if t := strings.TrimSpace(s.Text); t != "" {
				lines = append(lines, t)
			}
		}
		if s.Table != nil {
			for _, row := range s.Table.Rows {
				for _, cell := range row {
					if t := strings.TrimSpace(cell); t != "" {
						lines = append(lines, t)
					}
				}
			}
		}

		res := e.walker.Walk(s, prov)
		rec.Images = append(rec.Images, res.Images...)

		for _, f := range res.Failures {
			diag.Add(models.Issue{
				Kind:       models.IssueShapeExtraction,
				Slide:      index,
				Provenance: f.Provenance,
				Message:    fmt.Sprintf("%s image: %v", f.Source, f.Err),
			})
		}
		for _, is := range res.Degraded {
			is.Slide = index
			diag.Add(is)
		}
		if res.Truncated {
			diag.Add(models.Issue{
				Kind:       models.IssueDepthTruncated,
				Slide:      index,
				Provenance: prov + " -> " + describe(s),
				Message:    fmt.Sprintf("group nesting deeper than %d levels was not visited", e.walker.maxDepth),
			})
		}
	}

	rec.Text = strings.Join(lines, "\n")
	return rec, diag
}
