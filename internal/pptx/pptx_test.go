package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gnemet/SlideDiff/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SlideOrderFollowsPresentation(t *testing.T) {
	data, err := pptxtest.Deck{
		ReverseParts: true,
		Slides: []pptxtest.Slide{
			{Shapes: []string{pptxtest.TextBox(2, "first")}},
			{Shapes: []string{pptxtest.TextBox(2, "second")}},
			{Shapes: []string{pptxtest.TextBox(2, "third")}},
		},
	}.Bytes()
	require.NoError(t, err)

	pres, err := Open(data)
	require.NoError(t, err)
	require.Len(t, pres.Slides, 3)

	assert.Equal(t, "ppt/slides/slide3.xml", pres.Slides[0].Part)
	assert.Equal(t, 1, pres.Slides[0].Number)
	assert.Equal(t, "first", pres.Slides[0].Shapes[0].Text)
	assert.Equal(t, "third", pres.Slides[2].Shapes[0].Text)
}

func TestOpen_TextFrames(t *testing.T) {
	data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
		pptxtest.Title(2, "Quarterly <review>"),
		pptxtest.TextBox(3, "line one", "", "line three"),
		pptxtest.EmptyPlaceholder(4),
	}})

	pres, err := Open(data)
	require.NoError(t, err)
	shapes := pres.Slides[0].Shapes
	require.Len(t, shapes, 3)

	assert.Equal(t, KindPlaceholder, shapes[0].Kind)
	assert.Equal(t, "title", shapes[0].Placeholder)
	assert.Equal(t, "Quarterly <review>", shapes[0].Text)
	assert.True(t, shapes[0].HasTextFrame)

	assert.Equal(t, KindAutoShape, shapes[1].Kind)
	assert.Equal(t, "line one\n\nline three", shapes[1].Text)
	assert.Equal(t, "3", shapes[1].ID)
	assert.Equal(t, "TextBox 3", shapes[1].Name)

	assert.Equal(t, KindPlaceholder, shapes[2].Kind)
	assert.Equal(t, "body", shapes[2].Placeholder)
	assert.False(t, shapes[2].HasTextFrame)
}

func TestOpen_LineBreakInsideParagraph(t *testing.T) {
	sp := `<p:sp><p:nvSpPr><p:cNvPr id="2" name="x"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr/><a:p><a:r><a:t>left</a:t></a:r><a:br/><a:r><a:t>right</a:t></a:r></a:p></p:txBody></p:sp>`
	pres, err := Open(pptxtest.Build(pptxtest.Slide{Shapes: []string{sp}}))
	require.NoError(t, err)
	assert.Equal(t, "left\nright", pres.Slides[0].Shapes[0].Text)
}

func TestOpen_ImagesAndFills(t *testing.T) {
	img1 := pptxtest.PNG(4, 2, 10)
	img2 := pptxtest.PNG(2, 2, 200)
	data := pptxtest.Build(pptxtest.Slide{
		Shapes: []string{
			pptxtest.Picture(2, "rId2"),
			pptxtest.FilledShape(3, "rId3"),
			pptxtest.PicturePlaceholder(4, "rId2"),
		},
		Media: map[string][]byte{"rId2": img1, "rId3": img2},
	})

	pres, err := Open(data)
	require.NoError(t, err)
	shapes := pres.Slides[0].Shapes
	require.Len(t, shapes, 3)

	got, err := shapes[0].Image()
	require.NoError(t, err)
	assert.Equal(t, img1, got)
	assert.Equal(t, KindPicture, shapes[0].Kind)
	_, err = shapes[0].FillImage()
	assert.ErrorIs(t, err, ErrNoImage)

	fill, err := shapes[1].FillImage()
	require.NoError(t, err)
	assert.Equal(t, img2, fill)
	_, err = shapes[1].Image()
	assert.ErrorIs(t, err, ErrNoImage)

	assert.Equal(t, KindPlaceholder, shapes[2].Kind)
	assert.Equal(t, "picture", shapes[2].Placeholder)
	ph, err := shapes[2].Image()
	require.NoError(t, err)
	assert.Equal(t, img1, ph)
}

func TestOpen_BrokenImageReferences(t *testing.T) {
	data := pptxtest.Build(pptxtest.Slide{
		Shapes: []string{
			pptxtest.Picture(2, "rId9"),
			pptxtest.LinkedPicture(3, "rId4"),
		},
		External: map[string]string{"rId4": "https://example.com/logo.png"},
	})

	pres, err := Open(data)
	require.NoError(t, err)
	shapes := pres.Slides[0].Shapes

	_, err = shapes[0].Image()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoImage))

	_, err = shapes[1].Image()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linked externally")
}

func TestOpen_GroupsTablesConnectors(t *testing.T) {
	data := pptxtest.Build(pptxtest.Slide{
		Shapes: []string{
			pptxtest.Group(10,
				pptxtest.TextBox(11, "inside"),
				pptxtest.Group(12, pptxtest.Picture(13, "rId2")),
			),
			pptxtest.Table(20, [][]string{{"a", "b"}, {"", "d"}}),
			pptxtest.Connector(30),
		},
		Media: map[string][]byte{"rId2": pptxtest.PNG(1, 1, 0)},
	})

	pres, err := Open(data)
	require.NoError(t, err)
	shapes := pres.Slides[0].Shapes
	require.Len(t, shapes, 3)

	group := shapes[0]
	assert.Equal(t, KindGroup, group.Kind)
	assert.Equal(t, "Group 10", group.Name)
	require.Len(t, group.Children, 2)
	assert.Equal(t, "inside", group.Children[0].Text)
	require.Len(t, group.Children[1].Children, 1)
	assert.Equal(t, KindPicture, group.Children[1].Children[0].Kind)

	table := shapes[1]
	assert.Equal(t, KindGraphicFrame, table.Kind)
	require.NotNil(t, table.Table)
	assert.Equal(t, [][]string{{"a", "b"}, {"", "d"}}, table.Table.Rows)
	assert.False(t, table.HasTextFrame)

	assert.Equal(t, KindConnector, shapes[2].Kind)
}

func TestOpen_AlternateContent(t *testing.T) {
	t.Run("choice wins", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.AlternateContent(pptxtest.TextBox(2, "choice"), pptxtest.TextBox(3, "fallback")),
		}})
		pres, err := Open(data)
		require.NoError(t, err)
		require.Len(t, pres.Slides[0].Shapes, 1)
		assert.Equal(t, "choice", pres.Slides[0].Shapes[0].Text)
	})

	t.Run("fallback when choice is empty", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.AlternateContent("", pptxtest.TextBox(3, "fallback")),
		}})
		pres, err := Open(data)
		require.NoError(t, err)
		require.Len(t, pres.Slides[0].Shapes, 1)
		assert.Equal(t, "fallback", pres.Slides[0].Shapes[0].Text)
	})
}

// groupChain follows the first child of each group and returns how many
// groups were nested and the innermost shape.
func groupChain(s *Shape) (int, *Shape) {
	n := 0
	for s != nil && s.Kind == KindGroup {
		n++
		if len(s.Children) == 0 {
			return n, nil
		}
		s = s.Children[0]
	}
	return n, s
}

func TestOpen_GroupDepthLimit(t *testing.T) {
	t.Run("innermost shape at the limit is kept", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.NestedGroups(DefaultMaxGroupDepth, pptxtest.TextBox(2, "deep")),
		}})
		pres, err := Open(data)
		require.NoError(t, err)
		slide := pres.Slides[0]
		assert.False(t, slide.Truncated)

		n, inner := groupChain(slide.Shapes[0])
		assert.Equal(t, DefaultMaxGroupDepth, n)
		require.NotNil(t, inner)
		assert.Equal(t, "deep", inner.Text)
	})

	t.Run("one level deeper is skipped", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.NestedGroups(DefaultMaxGroupDepth+1, pptxtest.TextBox(2, "too deep")),
			pptxtest.TextBox(3, "sibling"),
		}})
		pres, err := Open(data)
		require.NoError(t, err)
		slide := pres.Slides[0]
		assert.True(t, slide.Truncated)

		require.Len(t, slide.Shapes, 2)
		n, inner := groupChain(slide.Shapes[0])
		assert.Equal(t, DefaultMaxGroupDepth+1, n)
		assert.Nil(t, inner)
		assert.Equal(t, "sibling", slide.Shapes[1].Text)
	})

	t.Run("configured depth", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.NestedGroups(5, pptxtest.TextBox(2, "x")),
		}})
		pres, err := Parser{MaxGroupDepth: 2}.Parse(data)
		require.NoError(t, err)
		assert.True(t, pres.Slides[0].Truncated)
		n, _ := groupChain(pres.Slides[0].Shapes[0])
		assert.Equal(t, 3, n)
	})
}

func TestOpen_HostileNestingDoesNotExhaustStack(t *testing.T) {
	t.Run("groups", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{
			pptxtest.NestedGroups(100_000, pptxtest.Picture(2, "rId2")),
		}})
		pres, err := Open(data)
		require.NoError(t, err)
		assert.True(t, pres.Slides[0].Truncated)
	})

	t.Run("alternate content", func(t *testing.T) {
		const depth = 100_000
		var b strings.Builder
		for i := 0; i < depth; i++ {
			b.WriteString(`<mc:AlternateContent><mc:Choice Requires="p14">`)
		}
		b.WriteString(pptxtest.TextBox(2, "buried"))
		for i := 0; i < depth; i++ {
			b.WriteString(`</mc:Choice></mc:AlternateContent>`)
		}
		data := pptxtest.Build(pptxtest.Slide{Shapes: []string{b.String(), pptxtest.TextBox(3, "visible")}})

		pres, err := Open(data)
		require.NoError(t, err)
		slide := pres.Slides[0]
		assert.True(t, slide.Truncated)
		require.Len(t, slide.Shapes, 1)
		assert.Equal(t, "visible", slide.Shapes[0].Text)
	})
}

func TestOpen_GroupFillIsIgnored(t *testing.T) {
	group := `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="5" name="Backdrop"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:blipFill><a:blip r:embed="rId2"/></a:blipFill></p:grpSpPr>` +
		pptxtest.TextBox(6, "child") + `</p:grpSp>`
	data := pptxtest.Build(pptxtest.Slide{
		Shapes: []string{group},
		Media:  map[string][]byte{"rId2": pptxtest.PNG(2, 2, 9)},
	})

	pres, err := Open(data)
	require.NoError(t, err)
	g := pres.Slides[0].Shapes[0]
	assert.Equal(t, "Backdrop", g.Name)
	_, err = g.FillImage()
	assert.ErrorIs(t, err, ErrNoImage)
	require.Len(t, g.Children, 1)
}

func TestOpen_EmptyDeck(t *testing.T) {
	pres, err := Open(pptxtest.Build())
	require.NoError(t, err)
	assert.Empty(t, pres.Slides)
}

func TestOpen_Malformed(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := Open([]byte("definitely not a pptx"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedDocument)
	})

	t.Run("missing presentation part", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("hello.txt")
		require.NoError(t, err)
		_, _ = w.Write([]byte("hi"))
		require.NoError(t, zw.Close())

		_, err = Open(buf.Bytes())
		require.Error(t, err)
		var mde *MalformedDocumentError
		require.True(t, errors.As(err, &mde))
		assert.Equal(t, "ppt/presentation.xml", mde.Part)
	})

	t.Run("broken slide xml", func(t *testing.T) {
		data := pptxtest.Build(pptxtest.Slide{Raw: `<p:sld xmlns:p="x"><p:cSld><p:spTree><p:sp>`})
		_, err := Open(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedDocument)
		assert.Contains(t, err.Error(), "ppt/slides/slide1.xml")
	})
}

func TestNormalizePlaceholder(t *testing.T) {
	cases := map[string]string{
		"title":    "title",
		"ctrTitle": "title",
		"":         "body",
		"subTitle": "body",
		"pic":      "picture",
		"dt":       "other",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePlaceholder(in), in)
	}
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "ppt/media/image1.png", resolveTarget("ppt/slides", "../media/image1.png"))
	assert.Equal(t, "ppt/presentation.xml", resolveTarget("", "/ppt/presentation.xml"))
	assert.Equal(t, "ppt/slides/_rels/slide7.xml.rels", relsPartFor("ppt/slides/slide7.xml"))
}
