package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/russross/blackfriday/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"diffClass": func(op models.DiffOp) string {
		switch op.Kind {
		case models.DiffInsert:
			return "diff-added"
		case models.DiffDelete:
			return "diff-removed"
		default:
			return "diff-equal"
		}
	},
	// Previews are PNGs we encoded ourselves.
	"previewURL": func(img models.ImageRecord) template.URL {
		return template.URL(img.PreviewDataURI())
	},
	"deckClass": func(side models.DeckSide) string {
		if side == models.DeckA {
			return "deck-a"
		}
		return "deck-b"
	},
}).ParseFS(templateFS, "templates/*.html"))

// Options controls the HTML page.
type Options struct {
	Lang  string
	NameA string
	NameB string
	// Narrative is Markdown; it is rendered with blackfriday.
	Narrative string
}

type htmlPage struct {
	Lang      string
	T         func(string) string
	Result    *models.ComparisonResult
	NameA     string
	NameB     string
	Narrative template.HTML
}

// HTML writes a standalone report page.
func HTML(w io.Writer, res *models.ComparisonResult, opts Options) error {
	lang := opts.Lang
	if lang == "" {
		lang = i18n.DefaultLang
	}
	page := htmlPage{
		Lang:   lang,
		T:      func(key string) string { return i18n.T(lang, key) },
		Result: res,
		NameA:  opts.NameA,
		NameB:  opts.NameB,
	}
	if opts.Narrative != "" {
		page.Narrative = RenderMarkdown(opts.Narrative)
	}
	return templates.ExecuteTemplate(w, "report.html", page)
}

// RenderMarkdown converts Markdown to HTML. The input is model output or our
// own report, never raw user HTML, so raw HTML in it is escaped.
func RenderMarkdown(md string) template.HTML {
	out := blackfriday.Run([]byte(md),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML,
		})),
	)
	return template.HTML(out)
}

// IndexPage is the upload form.
type IndexPage struct {
	Lang        string
	Languages   []string
	MaxUploadMB int
	RunsEnabled bool
}

func Index(w io.Writer, p IndexPage) error {
	if p.Lang == "" {
		p.Lang = i18n.DefaultLang
	}
	data := struct {
		IndexPage
		T func(string) string
	}{p, func(key string) string { return i18n.T(p.Lang, key) }}
	return templates.ExecuteTemplate(w, "index.html", data)
}

// JSON writes v, a result or an extracted deck, as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
