package compare

import (
	"strings"
	"time"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiffer produces line-level edit scripts between two slide texts.
type LineDiffer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewLineDiffer creates a differ. A non-positive timeout lets the diff run to
// the minimal script.
func NewLineDiffer(timeout time.Duration) *LineDiffer {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout
	return &LineDiffer{dmp: dmp}
}

// Diff returns one DiffOp per line. Keeping Equal and Delete ops gives back
// the lines of a; keeping Equal and Insert ops gives back the lines of b.
func (d *LineDiffer) Diff(a, b string) []models.DiffOp {
	chars1, chars2, lines := d.dmp.DiffLinesToChars(terminate(a), terminate(b))
	diffs := d.dmp.DiffMain(chars1, chars2, false)
	diffs = d.dmp.DiffCharsToLines(diffs, lines)

	ops := make([]models.DiffOp, 0, len(diffs))
	for _, diff := range diffs {
		kind := models.DiffEqual
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			kind = models.DiffInsert
		case diffmatchpatch.DiffDelete:
			kind = models.DiffDelete
		}
		for _, line := range splitLines(diff.Text) {
			ops = append(ops, models.DiffOp{Kind: kind, Text: line})
		}
	}
	return ops
}

// terminate ends every line with "\n" so the last line compares equal to the
// same line followed by more text. Empty text has no lines.
func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func splitLines(chunk string) []string {
	if chunk == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(chunk, "\n"), "\n")
}

// Lines splits slide text the way Diff does.
func Lines(s string) []string {
	return splitLines(terminate(s))
}
