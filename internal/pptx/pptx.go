package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypeOfficeDocument = "/officeDocument"
	relTypeSlide          = "/slide"

	defaultPresentationPart = "ppt/presentation.xml"
)

// ErrMalformedDocument is matched by every error that prevents a deck from
// being parsed at all.
var ErrMalformedDocument = errors.New("malformed document")

// MalformedDocumentError names the package part that could not be read.
type MalformedDocumentError struct {
	Part string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("malformed document: %v", e.Err)
	}
	return fmt.Sprintf("malformed document: %s: %v", e.Part, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

func (e *MalformedDocumentError) Is(target error) bool { return target == ErrMalformedDocument }

func malformed(part string, err error) error {
	return &MalformedDocumentError{Part: part, Err: err}
}

// Slide is one slide in document order.
type Slide struct {
	Number int      `json:"number"`
	Part   string   `json:"part"`
	Shapes []*Shape `json:"shapes"`
	// Truncated reports that shapes nested deeper than the parser's group
	// depth were skipped.
	Truncated bool `json:"truncated,omitempty"`
}

// Presentation is the parsed shape content of a deck.
type Presentation struct {
	Slides []*Slide `json:"slides"`
}

// DefaultMaxGroupDepth is the deepest group level whose shapes are parsed.
const DefaultMaxGroupDepth = 64

// Parser adapts Open to an interface-friendly method.
type Parser struct {
	// MaxGroupDepth bounds group nesting; zero means DefaultMaxGroupDepth.
	MaxGroupDepth int
}

func (p Parser) Parse(data []byte) (*Presentation, error) {
	return open(data, p.MaxGroupDepth)
}

// OpenFile reads and parses a deck from disk.
func OpenFile(pptxPath string) (*Presentation, error) {
	data, err := os.ReadFile(pptxPath)
	if err != nil {
		return nil, err
	}
	return Open(data)
}

// Open parses PPTX bytes into slides ordered as the presentation lists them.
// Shapes in groups nested deeper than DefaultMaxGroupDepth are skipped and the
// slide is marked Truncated.
func Open(data []byte) (*Presentation, error) {
	return open(data, DefaultMaxGroupDepth)
}

func open(data []byte, maxDepth int) (*Presentation, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxGroupDepth
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformed("", err)
	}

	pkg := &pkg{files: make(map[string]*zip.File, len(r.File)), maxDepth: maxDepth}
	for _, f := range r.File {
		pkg.files[f.Name] = f
	}

	presPart := defaultPresentationPart
	if rootRels, err := pkg.readRels("_rels/.rels"); err == nil {
		for _, rel := range rootRels {
			if strings.HasSuffix(rel.Type, relTypeOfficeDocument) {
				presPart = resolveTarget("", rel.Target)
				break
			}
		}
	}

	presXML, err := pkg.read(presPart)
	if err != nil {
		return nil, malformed(presPart, err)
	}
	slideRelIDs, err := parseSlideIDList(presXML)
	if err != nil {
		return nil, malformed(presPart, err)
	}

	presRels, err := pkg.readRels(relsPartFor(presPart))
	if err != nil && len(slideRelIDs) > 0 {
		return nil, malformed(relsPartFor(presPart), err)
	}
	byID := make(map[string]relationship, len(presRels))
	for _, rel := range presRels {
		byID[rel.ID] = rel
	}

	pres := &Presentation{}
	for i, rid := range slideRelIDs {
		rel, ok := byID[rid]
		if !ok || !strings.HasSuffix(rel.Type, relTypeSlide) {
			return nil, malformed(presPart, fmt.Errorf("slide relationship %q not found", rid))
		}
		slidePart := resolveTarget(path.Dir(presPart), rel.Target)
		slide, err := pkg.parseSlide(slidePart, i+1)
		if err != nil {
			return nil, err
		}
		pres.Slides = append(pres.Slides, slide)
	}

	return pres, nil
}

type relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

type pkg struct {
	files    map[string]*zip.File
	maxDepth int
}

func (p *pkg) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readRels parses a relationships part.
func (p *pkg) readRels(name string) ([]relationship, error) {
	data, err := p.read(name)
	if err != nil {
		return nil, err
	}

	var rels []relationship
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "Relationship" {
			var rel relationship
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "Id":
					rel.ID = a.Value
				case "Type":
					rel.Type = a.Value
				case "Target":
					rel.Target = a.Value
				case "TargetMode":
					rel.TargetMode = a.Value
				}
			}
			rels = append(rels, rel)
		}
	}
	return rels, nil
}

func (p *pkg) parseSlide(part string, number int) (*Slide, error) {
	data, err := p.read(part)
	if err != nil {
		return nil, malformed(part, err)
	}

	// A slide without a rels part simply has no images.
	rels := map[string]relationship{}
	if list, err := p.readRels(relsPartFor(part)); err == nil {
		for _, rel := range list {
			rels[rel.ID] = rel
		}
	}

	sp := &slideParser{
		dec: xml.NewDecoder(bytes.NewReader(data)),
		ref: func(relID string) *ImageRef {
			return p.imageRef(part, rels, relID)
		},
		maxDepth: p.maxDepth,
	}
	shapes, err := sp.parse()
	if err != nil {
		return nil, malformed(part, err)
	}

	return &Slide{Number: number, Part: part, Shapes: shapes, Truncated: sp.truncated}, nil
}

func (p *pkg) imageRef(slidePart string, rels map[string]relationship, relID string) *ImageRef {
	rel, ok := rels[relID]
	if !ok {
		return BrokenImageRef(relID, fmt.Errorf("relationship %q not found in %s", relID, slidePart))
	}
	if strings.EqualFold(rel.TargetMode, "External") {
		return BrokenImageRef(rel.Target, fmt.Errorf("image is linked externally"))
	}
	target := resolveTarget(path.Dir(slidePart), rel.Target)
	return &ImageRef{
		RelID:  relID,
		Target: target,
		load:   func() ([]byte, error) { return p.read(target) },
	}
}

// parseSlideIDList returns the r:id of every p:sldId in document order.
func parseSlideIDList(data []byte) ([]string, error) {
	var ids []string
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "sldId" {
			for _, a := range el.Attr {
				if a.Name.Space == nsRelationships && a.Name.Local == "id" {
					ids = append(ids, a.Value)
				}
			}
		}
	}
	return ids, nil
}

// relsPartFor maps ppt/slides/slide1.xml to ppt/slides/_rels/slide1.xml.rels.
func relsPartFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Clean(path.Join(baseDir, target)), "/")
}
