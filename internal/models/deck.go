package models

import "encoding/base64"

// ImageRecord is the fingerprint of one image blob found on a slide.
type ImageRecord struct {
	Hash        string `json:"hash"`
	ByteSize    int    `json:"byte_size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	PreviewData []byte `json:"preview_data,omitempty"`
	Provenance  string `json:"provenance"`
}

// PreviewDataURI returns the preview as an inline PNG data URI, or "" when
// no preview could be produced.
func (r ImageRecord) PreviewDataURI() string {
	if len(r.PreviewData) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(r.PreviewData)
}

// SlideRecord holds the comparable content of a single slide.
type SlideRecord struct {
	Index  int           `json:"index"`
	Text   string        `json:"text"`
	Images []ImageRecord `json:"images"`
}

func (s SlideRecord) ImageCount() int {
	return len(s.Images)
}

// DeckRecord is the ordered extraction of one deck.
type DeckRecord struct {
	Slides      []SlideRecord `json:"slides"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

func (d *DeckRecord) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Slides)
}

// IssueKind classifies a locally recovered extraction problem.
type IssueKind string

const (
	IssueShapeExtraction IssueKind = "shape_extraction_failure"
	IssueImageDecode     IssueKind = "image_decode_failure"
	IssuePreview         IssueKind = "preview_failure"
	IssueDepthTruncated  IssueKind = "depth_truncated"
)

// Issue is a degraded-but-recovered event recorded during extraction.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Slide      int       `json:"slide"`
	Provenance string    `json:"provenance"`
	Message    string    `json:"message"`
}

// Diagnostics collects extraction issues. It never affects comparison.
type Diagnostics struct {
	Issues []Issue `json:"issues,omitempty"`
}

func (d *Diagnostics) Add(issue Issue) {
	d.Issues = append(d.Issues, issue)
}

// Count returns the number of issues of the given kind.
func (d Diagnostics) Count(kind IssueKind) int {
	n := 0
	for _, is := range d.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}
