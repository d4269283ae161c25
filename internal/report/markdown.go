package report

import (
	"fmt"
	"strings"

	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/models"
)

// Markdown renders the result as a Markdown document. The AI narration prompt
// is built from it as well.
func Markdown(res *models.ComparisonResult, lang string) string {
	t := func(key string) string { return i18n.T(lang, key) }
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("title"))
	fmt.Fprintf(&b, "**%s**\n\n", res.Summary())
	if res.Error {
		if res.ErrorDetails != "" {
			fmt.Fprintf(&b, "## %s\n\n```\n%s\n```\n", t("error_details"), res.ErrorDetails)
		}
		return b.String()
	}
	if s := res.DetailedSummary(); s != "" {
		fmt.Fprintf(&b, "%s\n\n", s)
	}
	if s := res.SlideCountMessage(); s != "" {
		fmt.Fprintf(&b, "> %s\n\n", s)
	}

	for _, d := range res.SlideDiffs {
		fmt.Fprintf(&b, "## %s %d\n\n", t("slide"), d.Index)
		if d.TextChanged {
			fmt.Fprintf(&b, "### %s\n\n```diff\n", t("text_changes"))
			for _, op := range d.TextDiffOps {
				b.WriteString(op.String())
				b.WriteByte('\n')
			}
			b.WriteString("```\n\n")
		}
		if d.ImageChanged {
			fmt.Fprintf(&b, "### %s\n\n", t("image_changes"))
			fmt.Fprintf(&b, "- %s: A=%d, B=%d\n", t("image_count"), d.ImageCountA, d.ImageCountB)
			if d.ImageCountMismatch {
				fmt.Fprintf(&b, "- %s\n", t("image_count_mismatch"))
			}
			for _, img := range d.ImagesOnlyInA {
				fmt.Fprintf(&b, "- %s: `%s`\n", t("images_only_in_a"), imageLine(img))
			}
			for _, img := range d.ImagesOnlyInB {
				fmt.Fprintf(&b, "- %s: `%s`\n", t("images_only_in_b"), imageLine(img))
			}
			b.WriteByte('\n')
		}
	}

	if len(res.ExtraSlides) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("extra_slides"))
		for _, e := range res.ExtraSlides {
			text := strings.ReplaceAll(strings.TrimSpace(e.Text), "\n", " / ")
			if text == "" {
				text = t("no_text")
			}
			fmt.Fprintf(&b, "- %s %d (%s %s, %s: %d): %s\n",
				t("slide"), e.Index, t("extra_slide_in"), deckLabel(e.OwnerDeck, t), t("image_count"), e.ImageCount, text)
		}
	}

	return b.String()
}
