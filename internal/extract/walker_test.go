package extract

import (
	"errors"
	"testing"

	"github.com/gnemet/SlideDiff/internal/imaging"
	"github.com/gnemet/SlideDiff/internal/pptx"
	"github.com/gnemet/SlideDiff/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func picture(name string, data []byte) *pptx.Shape {
	return &pptx.Shape{Kind: pptx.KindPicture, Name: name, Picture: pptx.NewImageRef(name, data)}
}

func group(name string, children ...*pptx.Shape) *pptx.Shape {
	return &pptx.Shape{Kind: pptx.KindGroup, Name: name, Children: children}
}

// nest wraps inner in n groups; inner ends up at depth n.
func nest(n int, inner *pptx.Shape) *pptx.Shape {
	out := inner
	for i := 0; i < n; i++ {
		out = group("g", out)
	}
	return out
}

func TestWalk_OrderPerShape(t *testing.T) {
	pic := pptxtest.PNG(2, 2, 1)
	fill := pptxtest.PNG(2, 2, 2)
	ph := pptxtest.PNG(2, 2, 3)

	shapes := []*pptx.Shape{
		{Kind: pptx.KindPicture, Name: "both", Picture: pptx.NewImageRef("p", pic), Fill: pptx.NewImageRef("f", fill)},
		{Kind: pptx.KindPlaceholder, Name: "ph", Picture: pptx.NewImageRef("ph", ph)},
	}

	w := NewWalker(nil, 0)
	var hashes []string
	for _, s := range shapes {
		res := w.Walk(s, "Slide 1")
		assert.Empty(t, res.Failures)
		for _, img := range res.Images {
			hashes = append(hashes, img.Hash)
		}
	}

	assert.Equal(t, []string{imaging.Hash(pic), imaging.Hash(fill), imaging.Hash(ph)}, hashes)
}

func TestWalk_GroupChildrenInDocumentOrder(t *testing.T) {
	a, b, c := pptxtest.PNG(1, 1, 10), pptxtest.PNG(1, 1, 20), pptxtest.PNG(1, 1, 30)
	root := group("outer",
		picture("a", a),
		group("inner", picture("b", b)),
		picture("c", c),
	)

	res := NewWalker(nil, DefaultMaxDepth).Walk(root, "Slide 4")
	require.Len(t, res.Images, 3)
	assert.Equal(t, imaging.Hash(a), res.Images[0].Hash)
	assert.Equal(t, imaging.Hash(b), res.Images[1].Hash)
	assert.Equal(t, imaging.Hash(c), res.Images[2].Hash)
	assert.False(t, res.Truncated)
	assert.Contains(t, res.Images[1].Provenance, "Slide 4 -> group \"outer\" -> group child")
}

func TestWalk_FailuresDoNotStopTheWalk(t *testing.T) {
	good := pptxtest.PNG(1, 1, 5)
	root := group("g",
		&pptx.Shape{Kind: pptx.KindPicture, Name: "broken", Picture: pptx.BrokenImageRef("x", errors.New("boom"))},
		picture("ok", good),
	)

	res := NewWalker(nil, 0).Walk(root, "Slide 1")
	require.Len(t, res.Images, 1)
	assert.Equal(t, imaging.Hash(good), res.Images[0].Hash)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, SourcePicture, res.Failures[0].Source)
	assert.ErrorContains(t, res.Failures[0], "boom")
}

func TestWalk_PlaceholderWithoutImageIsNotAFailure(t *testing.T) {
	res := NewWalker(nil, 0).Walk(&pptx.Shape{Kind: pptx.KindPlaceholder, Placeholder: "body"}, "Slide 1")
	assert.Empty(t, res.Images)
	assert.Empty(t, res.Failures)
}

func TestWalk_UndecodableImageIsKeptDegraded(t *testing.T) {
	res := NewWalker(nil, 0).Walk(picture("odd", []byte("not an image")), "Slide 1")
	require.Len(t, res.Images, 1)
	assert.Equal(t, imaging.UnknownFormat, res.Images[0].Format)
	assert.Empty(t, res.Failures)
	assert.NotEmpty(t, res.Degraded)
}

func TestWalk_EmptyImageIsAFailure(t *testing.T) {
	res := NewWalker(nil, 0).Walk(picture("empty", []byte{}), "Slide 1")
	assert.Empty(t, res.Images)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], imaging.ErrEmptyImage)
}

func TestWalk_DepthCap(t *testing.T) {
	img := pptxtest.PNG(1, 1, 9)

	t.Run("at the cap", func(t *testing.T) {
		res := NewWalker(nil, DefaultMaxDepth).Walk(nest(DefaultMaxDepth, picture("deep", img)), "Slide 1")
		assert.Len(t, res.Images, 1)
		assert.False(t, res.Truncated)
	})

	t.Run("beyond the cap", func(t *testing.T) {
		res := NewWalker(nil, DefaultMaxDepth).Walk(nest(DefaultMaxDepth+1, picture("deep", img)), "Slide 1")
		assert.Empty(t, res.Images)
		assert.Empty(t, res.Failures)
		assert.True(t, res.Truncated)
	})

	t.Run("custom cap keeps shallow siblings", func(t *testing.T) {
		root := group("g", picture("shallow", img), nest(3, picture("deep", img)))
		res := NewWalker(nil, 2).Walk(root, "Slide 1")
		assert.Len(t, res.Images, 1)
		assert.True(t, res.Truncated)
	})
}

func TestWalk_DoesNotMutateInput(t *testing.T) {
	root := group("g", picture("a", pptxtest.PNG(1, 1, 1)))
	before := len(root.Children)
	NewWalker(nil, 0).Walk(root, "Slide 1")
	assert.Len(t, root.Children, before)
	assert.Equal(t, "a", root.Children[0].Name)
}
