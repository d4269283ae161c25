package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDeck(t *testing.T, name string, slides ...pptxtest.Slide) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, pptxtest.Build(slides...), 0o644))
	return path
}

func textSlide(text string) pptxtest.Slide {
	return pptxtest.Slide{Shapes: []string{pptxtest.TextBox(2, text)}}
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Identical(t *testing.T) {
	a := writeDeck(t, "a.pptx", textSlide("Hello"))
	b := writeDeck(t, "b.pptx", textSlide("Hello"))

	code, out, _ := runCLI(a, b)
	assert.Equal(t, exitIdentical, code)
	assert.Contains(t, out, "identical")
}

func TestRun_DifferentJSON(t *testing.T) {
	a := writeDeck(t, "a.pptx", textSlide("Hello"), textSlide("Same"))
	b := writeDeck(t, "b.pptx", textSlide("Hello world"), textSlide("Same"))

	code, out, _ := runCLI("-format", "json", a, b)
	assert.Equal(t, exitDifferent, code)

	var res models.ComparisonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.TextDiffCount)
	require.Len(t, res.SlideDiffs, 1)
	assert.Equal(t, 1, res.SlideDiffs[0].Index)
}

func TestRun_Formats(t *testing.T) {
	a := writeDeck(t, "a.pptx", textSlide("Alpha"))
	b := writeDeck(t, "b.pptx", textSlide("Beta"))

	code, out, _ := runCLI("-format", "markdown", a, b)
	assert.Equal(t, exitDifferent, code)
	assert.Contains(t, out, "## Slide 1")

	code, out, _ = runCLI("-format", "html", "-lang", "hu", a, b)
	assert.Equal(t, exitDifferent, code)
	assert.Contains(t, out, `lang="hu"`)
	assert.Contains(t, out, "a.pptx")
}

func TestRun_Errors(t *testing.T) {
	good := writeDeck(t, "good.pptx", textSlide("x"))
	broken := filepath.Join(t.TempDir(), "broken.pptx")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))

	code, out, _ := runCLI(good, broken)
	assert.Equal(t, exitError, code)
	assert.NotEmpty(t, out)

	code, _, stderr := runCLI(good)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "usage")

	code, _, _ = runCLI(good, filepath.Join(t.TempDir(), "missing.pptx"))
	assert.Equal(t, exitError, code)

	code, _, stderr = runCLI("-format", "pdf", good, good)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "unknown format")

	code, _, stderr = runCLI("-lang", "xx", good, good)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "unsupported language")
}

func TestRun_Dump(t *testing.T) {
	path := writeDeck(t, "d.pptx",
		textSlide("First"),
		pptxtest.Slide{
			Shapes: []string{pptxtest.Picture(3, "rIdImg1")},
			Media:  map[string][]byte{"rIdImg1": pptxtest.PNG(4, 4, 50)},
		},
	)

	code, out, _ := runCLI("-dump", path)
	require.Equal(t, exitIdentical, code)

	var deck models.DeckRecord
	require.NoError(t, json.Unmarshal([]byte(out), &deck))
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, "First", deck.Slides[0].Text)
	require.Len(t, deck.Slides[1].Images, 1)
	assert.Equal(t, "PNG", deck.Slides[1].Images[0].Format)
}
