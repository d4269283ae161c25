package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/models"
)

// Text writes a console report.
func Text(w io.Writer, res *models.ComparisonResult, lang string) error {
	bw := bufio.NewWriter(w)
	t := func(key string) string { return i18n.T(lang, key) }

	fmt.Fprintln(bw, res.Summary())
	if res.Error {
		if res.ErrorDetails != "" {
			fmt.Fprintf(bw, "\n%s:\n%s\n", t("error_details"), res.ErrorDetails)
		}
		return bw.Flush()
	}
	if s := res.DetailedSummary(); s != "" {
		fmt.Fprintln(bw, s)
	}
	if s := res.SlideCountMessage(); s != "" {
		fmt.Fprintln(bw, s)
	}

	for _, d := range res.SlideDiffs {
		fmt.Fprintf(bw, "\n%s %d\n", t("slide"), d.Index)
		if d.TextChanged {
			fmt.Fprintf(bw, "  %s:\n", t("text_changes"))
			for _, op := range d.TextDiffOps {
				fmt.Fprintf(bw, "    %s\n", op)
			}
		}
		if d.ImageChanged {
			fmt.Fprintf(bw, "  %s: %s A=%d, B=%d\n", t("image_changes"), t("image_count"), d.ImageCountA, d.ImageCountB)
			if d.ImageCountMismatch {
				fmt.Fprintf(bw, "    %s\n", t("image_count_mismatch"))
			}
			writeImages(bw, t("images_only_in_a"), d.ImagesOnlyInA)
			writeImages(bw, t("images_only_in_b"), d.ImagesOnlyInB)
		}
	}

	if len(res.ExtraSlides) > 0 {
		fmt.Fprintf(bw, "\n%s:\n", t("extra_slides"))
		for _, e := range res.ExtraSlides {
			fmt.Fprintf(bw, "  %s %d (%s %s), %s: %d\n",
				t("slide"), e.Index, t("extra_slide_in"), deckLabel(e.OwnerDeck, t), t("image_count"), e.ImageCount)
			text := e.Text
			if strings.TrimSpace(text) == "" {
				text = t("no_text")
			}
			for _, line := range strings.Split(text, "\n") {
				fmt.Fprintf(bw, "    %s\n", line)
			}
		}
	}

	return bw.Flush()
}

func writeImages(w io.Writer, label string, images []models.ImageRecord) {
	if len(images) == 0 {
		return
	}
	fmt.Fprintf(w, "    %s:\n", label)
	for _, img := range images {
		fmt.Fprintf(w, "      %s  %s\n", imageLine(img), img.Provenance)
	}
}

func imageLine(img models.ImageRecord) string {
	return fmt.Sprintf("%s %s %dx%d, %d bytes", img.Hash, img.Format, img.Width, img.Height, img.ByteSize)
}

func deckLabel(side models.DeckSide, t func(string) string) string {
	if side == models.DeckA {
		return t("deck_a")
	}
	return t("deck_b")
}
