package compare

import (
	"testing"

	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/stretchr/testify/assert"
)

func keep(ops []models.DiffOp, drop models.DiffOperation) []string {
	out := []string{}
	for _, op := range ops {
		if op.Kind != drop {
			out = append(out, op.Text)
		}
	}
	return out
}

func TestLineDiffer_Reconstruction(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"append line", "Hello", "Hello\nWorld"},
		{"replace line", "Hello", "Hello World"},
		{"both empty", "", ""},
		{"from empty", "", "one\ntwo"},
		{"to empty", "one\ntwo", ""},
		{"blank lines", "a\n\nb", "a\nb\n\nc"},
		{"repeated lines", "x\nx\ny\nx", "x\ny\ny\nx\nx"},
		{"reorder", "1\n2\n3\n4", "4\n3\n2\n1"},
	}

	d := NewLineDiffer(0)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ops := d.Diff(tc.a, tc.b)
			assert.Equal(t, nonNil(Lines(tc.a)), keep(ops, models.DiffInsert), "dropping inserts gives a")
			assert.Equal(t, nonNil(Lines(tc.b)), keep(ops, models.DiffDelete), "dropping deletes gives b")
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func TestLineDiffer_HelloWorld(t *testing.T) {
	ops := NewLineDiffer(0).Diff("Hello", "Hello World")
	assert.Equal(t, []models.DiffOp{
		{Kind: models.DiffDelete, Text: "Hello"},
		{Kind: models.DiffInsert, Text: "Hello World"},
	}, ops)
}

func TestLineDiffer_SharedPrefixStaysEqual(t *testing.T) {
	ops := NewLineDiffer(0).Diff("Title\nold", "Title\nnew")
	assert.Equal(t, []models.DiffOp{
		{Kind: models.DiffEqual, Text: "Title"},
		{Kind: models.DiffDelete, Text: "old"},
		{Kind: models.DiffInsert, Text: "new"},
	}, ops)

	var rendered []string
	for _, op := range ops {
		rendered = append(rendered, op.String())
	}
	assert.Equal(t, []string{"  Title", "- old", "+ new"}, rendered)
}

func TestLines(t *testing.T) {
	assert.Empty(t, Lines(""))
	assert.Equal(t, []string{"a"}, Lines("a"))
	assert.Equal(t, []string{"a", "", "b"}, Lines("a\n\nb"))
}
