package extract

import (
	"errors"
	"fmt"

	"github.com/gnemet/SlideDiff/internal/imaging"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/pptx"
)

// DefaultMaxDepth is the deepest group nesting the walker descends into.
const DefaultMaxDepth = pptx.DefaultMaxGroupDepth

// ImageSource names where on a shape an image was looked for.
type ImageSource string

const (
	SourcePicture     ImageSource = "picture"
	SourceFill        ImageSource = "fill"
	SourcePlaceholder ImageSource = "placeholder"
)

// ShapeFailure records an image that exists on a shape but could not be read.
type ShapeFailure struct {
	Provenance string
	Source     ImageSource
	Err        error
}

func (f ShapeFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Provenance, f.Source, f.Err)
}

func (f ShapeFailure) Unwrap() error { return f.Err }

// WalkResult is everything collected from one shape subtree.
type WalkResult struct {
	Images   []models.ImageRecord
	Failures []ShapeFailure
	// Degraded lists images kept without dimensions or preview.
	Degraded  []models.Issue
	Truncated bool
}

// ImageFingerprinter is satisfied by *imaging.Fingerprinter.
type ImageFingerprinter interface {
	Fingerprint(data []byte, provenance string) imaging.Result
}

// Walker collects image records from a shape tree.
type Walker struct {
	fingerprinter ImageFingerprinter
	maxDepth      int
}

func NewWalker(fp ImageFingerprinter, maxDepth int) *Walker {
	if fp == nil {
		fp = imaging.NewFingerprinter(imaging.DefaultPreviewMaxSide)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{fingerprinter: fp, maxDepth: maxDepth}
}

type walkFrame struct {
	shape      *pptx.Shape
	depth      int
	provenance string
}

// Walk visits root and its descendants in document order. Per shape it looks
// at the direct picture, then the picture fill, then the placeholder image,
// and finally descends into group children.
func (w *Walker) Walk(root *pptx.Shape, provenance string) WalkResult {
	var res WalkResult
	if root == nil {
		return res
	}

	stack := []walkFrame{{shape: root, provenance: provenance}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s := f.shape
		prov := f.provenance + " -> " + describe(s)

		if s.Kind == pptx.KindPicture {
			w.collect(&res, prov, SourcePicture, s.Image)
		}
		w.collect(&res, prov, SourceFill, s.FillImage)
		if s.Kind == pptx.KindPlaceholder {
			w.collect(&res, prov, SourcePlaceholder, s.Image)
		}

		if s.Kind != pptx.KindGroup || len(s.Children) == 0 {
			continue
		}
		if f.depth+1 > w.maxDepth {
			res.Truncated = true
			continue
		}
		for i := len(s.Children) - 1; i >= 0; i-- {
			if s.Children[i] == nil {
				continue
			}
			stack = append(stack, walkFrame{
				shape:      s.Children[i],
				depth:      f.depth + 1,
				provenance: prov + " -> group child",
			})
		}
	}

	return res
}

func (w *Walker) collect(res *WalkResult, prov string, src ImageSource, read func() ([]byte, error)) {
	data, err := read()
	if errors.Is(err, pptx.ErrNoImage) {
		return
	}
	if err != nil {
		res.Failures = append(res.Failures, ShapeFailure{Provenance: prov, Source: src, Err: err})
		return
	}

	recordProv := prov
	if src != SourcePicture {
		recordProv = fmt.Sprintf("%s (from %s)", prov, src)
	}

	fp := w.fingerprinter.Fingerprint(data, recordProv)
	if fp.Record == nil {
		err := fp.DecodeErr
		if err == nil {
			err = errors.New("image could not be fingerprinted")
		}
		res.Failures = append(res.Failures, ShapeFailure{Provenance: prov, Source: src, Err: err})
		return
	}

	if fp.DecodeErr != nil {
		res.Degraded = append(res.Degraded, models.Issue{
			Kind:       models.IssueImageDecode,
			Provenance: recordProv,
			Message:    fp.DecodeErr.Error(),
		})
	}
	if fp.PreviewErr != nil {
		res.Degraded = append(res.Degraded, models.Issue{
			Kind:       models.IssuePreview,
			Provenance: recordProv,
			Message:    fp.PreviewErr.Error(),
		})
	}
	res.Images = append(res.Images, *fp.Record)
}

func describe(s *pptx.Shape) string {
	if s.Name == "" {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s %q", s.Kind, s.Name)
}
