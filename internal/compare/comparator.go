package compare

import (
	"github.com/gnemet/SlideDiff/internal/models"
)

// Comparator diffs two extracted decks position by position.
type Comparator struct {
	differ *LineDiffer
}

func NewComparator(differ *LineDiffer) *Comparator {
	if differ == nil {
		differ = NewLineDiffer(0)
	}
	return &Comparator{differ: differ}
}

// Compare never mutates its inputs. Slides are paired by index only; an
// insertion early in one deck shows up as differences on every later slide.
func (c *Comparator) Compare(a, b *models.DeckRecord) *models.ComparisonResult {
	lenA, lenB := a.Len(), b.Len()
	n := min(lenA, lenB)

	res := &models.ComparisonResult{
		SlidesCompared:     n,
		SlideCountA:        lenA,
		SlideCountB:        lenB,
		DeckLengthMismatch: lenA != lenB,
		SlideDiffs:         []models.SlideDiff{},
		ExtraSlides:        []models.ExtraSlide{},
	}
	if a != nil {
		res.DiagnosticsA = a.Diagnostics
	}
	if b != nil {
		res.DiagnosticsB = b.Diagnostics
	}

	for i := 0; i < n; i++ {
		sa, sb := a.Slides[i], b.Slides[i]
		diff, changed := c.compareSlide(i+1, sa, sb)
		if !changed {
			res.IdenticalCount++
			continue
		}
		if diff.TextChanged {
			res.TextDiffCount++
		}
		if diff.ImageChanged {
			res.ImageDiffCount++
		}
		res.SlideDiffs = append(res.SlideDiffs, diff)
	}

	switch {
	case lenA > lenB:
		res.ExtraSlides = extras(a.Slides[n:], n, models.DeckA)
	case lenB > lenA:
		res.ExtraSlides = extras(b.Slides[n:], n, models.DeckB)
	}

	res.Identical = len(res.SlideDiffs) == 0 && !res.DeckLengthMismatch
	return res
}

func (c *Comparator) compareSlide(index int, a, b models.SlideRecord) (models.SlideDiff, bool) {
	diff := models.SlideDiff{
		Index:       index,
		ImageCountA: len(a.Images),
		ImageCountB: len(b.Images),
	}

	if a.Text != b.Text {
		diff.TextChanged = true
		diff.TextA = a.Text
		diff.TextB = b.Text
		diff.TextDiffOps = c.differ.Diff(a.Text, b.Text)
	}

	onlyA, onlyB := imageDiff(a.Images, b.Images)
	diff.ImageCountMismatch = len(a.Images) != len(b.Images)
	if len(onlyA) > 0 || len(onlyB) > 0 || diff.ImageCountMismatch {
		diff.ImageChanged = true
		diff.ImagesOnlyInA = onlyA
		diff.ImagesOnlyInB = onlyB
	}

	return diff, diff.TextChanged || diff.ImageChanged
}

// imageDiff returns, per side, one record for every hash missing from the
// other side. Duplicate hashes within a slide keep their first record.
func imageDiff(a, b []models.ImageRecord) (onlyA, onlyB []models.ImageRecord) {
	uniqA, setA := uniqueByHash(a)
	uniqB, setB := uniqueByHash(b)

	onlyA = []models.ImageRecord{}
	for _, img := range uniqA {
		if _, ok := setB[img.Hash]; !ok {
			onlyA = append(onlyA, img)
		}
	}
	onlyB = []models.ImageRecord{}
	for _, img := range uniqB {
		if _, ok := setA[img.Hash]; !ok {
			onlyB = append(onlyB, img)
		}
	}
	return onlyA, onlyB
}

func uniqueByHash(images []models.ImageRecord) ([]models.ImageRecord, map[string]struct{}) {
	seen := make(map[string]struct{}, len(images))
	uniq := make([]models.ImageRecord, 0, len(images))
	for _, img := range images {
		if _, ok := seen[img.Hash]; ok {
			continue
		}
		seen[img.Hash] = struct{}{}
		uniq = append(uniq, img)
	}
	return uniq, seen
}

func extras(slides []models.SlideRecord, offset int, owner models.DeckSide) []models.ExtraSlide {
	out := make([]models.ExtraSlide, 0, len(slides))
	for i, s := range slides {
		out = append(out, models.ExtraSlide{
			Index:      offset + i + 1,
			OwnerDeck:  owner,
			Text:       s.Text,
			ImageCount: len(s.Images),
		})
	}
	return out
}
