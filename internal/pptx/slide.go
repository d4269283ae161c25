package pptx

import (
	"encoding/xml"
	"io"
	"strings"
)

// maxAlternateNesting bounds mc:AlternateContent inside mc:Choice or mc:Fallback.
const maxAlternateNesting = 16

// slideParser decodes the p:spTree of one slide into a shape tree.
type slideParser struct {
	dec *xml.Decoder
	ref func(relID string) *ImageRef
	// maxDepth is the deepest group level whose shapes are kept. Top-level
	// shapes are at level 0.
	maxDepth  int
	altDepth  int
	truncated bool
}

func (p *slideParser) parse() ([]*Shape, error) {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "spTree" {
			continue
		}

		root := &Shape{Kind: KindGroup}
		if err := p.parseGroupBody(root, 0); err != nil {
			return nil, err
		}
		// Drain the rest so trailing garbage still fails the part.
		for {
			if _, err := p.dec.Token(); err == io.EOF {
				break
			} else if err != nil {
				return nil, err
			}
		}
		return root.Children, nil
	}
}

func (p *slideParser) token() (xml.Token, error) {
	tok, err := p.dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

// skipTruncated consumes the current element without building shapes.
func (p *slideParser) skipTruncated() error {
	p.truncated = true
	return p.dec.Skip()
}

// parseGroupBody reads the content of p:spTree or p:grpSp up to its end tag.
// depth is the level of the shapes it contains; past maxDepth they are skipped.
func (p *slideParser) parseGroupBody(g *Shape, depth int) error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "nvGrpSpPr":
				if err := p.parseNonVisual(g); err != nil {
					return err
				}
			case "grpSpPr":
				// A group has no fill of its own.
				if err := p.dec.Skip(); err != nil {
					return err
				}
			case "AlternateContent":
				if depth > p.maxDepth || p.altDepth >= maxAlternateNesting {
					if err := p.skipTruncated(); err != nil {
						return err
					}
					continue
				}
				shapes, err := p.parseAlternateContent(depth)
				if err != nil {
					return err
				}
				g.Children = append(g.Children, shapes...)
			default:
				if depth > p.maxDepth && isShapeElement(el.Name.Local) {
					if err := p.skipTruncated(); err != nil {
						return err
					}
					continue
				}
				child, err := p.parseShape(el, depth)
				if err != nil {
					return err
				}
				if child != nil {
					g.Children = append(g.Children, child)
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func isShapeElement(local string) bool {
	switch local {
	case "grpSp", "sp", "pic", "cxnSp", "graphicFrame", "contentPart":
		return true
	}
	return false
}

func (p *slideParser) parseShape(el xml.StartElement, depth int) (*Shape, error) {
	switch el.Name.Local {
	case "grpSp":
		g := &Shape{Kind: KindGroup}
		if err := p.parseGroupBody(g, depth+1); err != nil {
			return nil, err
		}
		return g, nil
	case "sp", "pic", "cxnSp", "graphicFrame", "contentPart":
		return p.parseLeaf(el)
	default:
		return nil, p.dec.Skip()
	}
}

// parseAlternateContent keeps the first mc:Choice branch, or mc:Fallback
// when the choice produced no shapes.
func (p *slideParser) parseAlternateContent(depth int) ([]*Shape, error) {
	p.altDepth++
	defer func() { p.altDepth-- }()

	var choice, fallback []*Shape
	seenChoice := false
	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "Choice" && !seenChoice:
				holder := &Shape{Kind: KindGroup}
				if err := p.parseGroupBody(holder, depth); err != nil {
					return nil, err
				}
				choice, seenChoice = holder.Children, true
			case el.Name.Local == "Fallback":
				holder := &Shape{Kind: KindGroup}
				if err := p.parseGroupBody(holder, depth); err != nil {
					return nil, err
				}
				fallback = holder.Children
			default:
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if len(choice) > 0 {
				return choice, nil
			}
			return fallback, nil
		}
	}
}

// parseNonVisual reads p:nvXxPr for the shape id, name and placeholder type.
func (p *slideParser) parseNonVisual(s *Shape) error {
	depth := 0
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch el.Name.Local {
			case "cNvPr":
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "id":
						s.ID = a.Value
					case "name":
						s.Name = a.Value
					}
				}
			case "ph":
				if s.Kind == KindGroup {
					break
				}
				phType := ""
				for _, a := range el.Attr {
					if a.Name.Local == "type" {
						phType = a.Value
					}
				}
				s.Kind = KindPlaceholder
				s.Placeholder = normalizePlaceholder(phType)
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

// parseProperties reads p:spPr and records a picture fill.
func (p *slideParser) parseProperties(s *Shape) error {
	depth := 0
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if el.Name.Local == "blip" && s.Fill == nil {
				s.Fill = p.blipRef(el)
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

func (p *slideParser) blipRef(el xml.StartElement) *ImageRef {
	for _, a := range el.Attr {
		if a.Name.Space == nsRelationships && (a.Name.Local == "embed" || a.Name.Local == "link") && a.Value != "" {
			return p.ref(a.Value)
		}
	}
	return nil
}

// parseLeaf reads p:sp, p:pic, p:cxnSp, p:graphicFrame or p:contentPart.
func (p *slideParser) parseLeaf(start xml.StartElement) (*Shape, error) {
	s := &Shape{Kind: leafKind(start.Name.Local)}
	isPicture := start.Name.Local == "pic"

	var (
		stack    []string
		frame    textFrame
		row      []string
		cellText string
	)

	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			name := el.Name.Local
			inText := contains(stack, "txBody")

			switch {
			case strings.HasPrefix(name, "nv") && strings.HasSuffix(name, "Pr") && len(stack) == 0:
				if err := p.parseNonVisual(s); err != nil {
					return nil, err
				}
				continue
			case name == "spPr" && len(stack) == 0:
				if err := p.parseProperties(s); err != nil {
					return nil, err
				}
				continue
			case name == "t" && inText:
				var text string
				if err := p.dec.DecodeElement(&text, &el); err != nil {
					return nil, err
				}
				frame.write(text)
				continue
			case name == "blip" && isPicture && top(stack) == "blipFill" && s.Picture == nil:
				s.Picture = p.blipRef(el)
			case name == "txBody":
				frame.reset()
			case name == "p" && inText:
				frame.startParagraph()
			case name == "br" && inText:
				frame.write("\n")
			case name == "tbl" && s.Table == nil:
				s.Table = &Table{}
			case name == "tr" && s.Table != nil:
				row = nil
			case name == "tc" && s.Table != nil:
				cellText = ""
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) == 0 {
				return s, nil
			}
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch name {
			case "p":
				if contains(stack, "txBody") {
					frame.endParagraph()
				}
			case "txBody":
				if contains(stack, "tc") {
					cellText = frame.text()
				} else {
					s.Text = frame.text()
					s.HasTextFrame = true
				}
			case "tc":
				if s.Table != nil {
					row = append(row, cellText)
				}
			case "tr":
				if s.Table != nil {
					s.Table.Rows = append(s.Table.Rows, row)
				}
			}
		}
	}
}

func leafKind(local string) ShapeKind {
	switch local {
	case "pic":
		return KindPicture
	case "cxnSp":
		return KindConnector
	case "graphicFrame":
		return KindGraphicFrame
	default:
		return KindAutoShape
	}
}

// textFrame accumulates a:p paragraphs of one a:txBody / p:txBody.
type textFrame struct {
	paras []string
	cur   strings.Builder
	open  bool
}

func (f *textFrame) reset() {
	f.paras = f.paras[:0]
	f.cur.Reset()
	f.open = false
}

func (f *textFrame) startParagraph() {
	f.cur.Reset()
	f.open = true
}

func (f *textFrame) write(s string) {
	f.cur.WriteString(s)
}

func (f *textFrame) endParagraph() {
	if !f.open {
		return
	}
	f.paras = append(f.paras, f.cur.String())
	f.cur.Reset()
	f.open = false
}

func (f *textFrame) text() string {
	return strings.Join(f.paras, "\n")
}

func top(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func contains(stack []string, name string) bool {
	for _, s := range stack {
		if s == name {
			return true
		}
	}
	return false
}
