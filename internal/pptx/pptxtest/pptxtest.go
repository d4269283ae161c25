// Package pptxtest builds small PPTX packages in memory for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
)

const slideHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
	`xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
	`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

const slideFooter = `</p:spTree></p:cSld></p:sld>`

// Slide describes one slide. Media maps relationship ids used by the shapes
// to image bytes. External maps relationship ids to linked URLs.
type Slide struct {
	Shapes   []string
	Media    map[string][]byte
	External map[string]string
	// Raw replaces the generated slide XML entirely.
	Raw string
}

// Deck is a presentation under construction.
type Deck struct {
	Slides []Slide
	// ReverseParts names slide parts in reverse so that part names disagree
	// with presentation order.
	ReverseParts bool
}

// Build returns PPTX bytes for the given slides.
func Build(slides ...Slide) []byte {
	data, err := Deck{Slides: slides}.Bytes()
	if err != nil {
		panic(err)
	}
	return data
}

func (d Deck) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, body string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(body))
		return err
	}

	if err := write("[Content_Types].xml", contentTypes); err != nil {
		return nil, err
	}
	if err := write("_rels/.rels", rootRels); err != nil {
		return nil, err
	}

	var ids, presRels strings.Builder
	mediaN := 0
	for i, s := range d.Slides {
		partN := i + 1
		if d.ReverseParts {
			partN = len(d.Slides) - i
		}
		rid := fmt.Sprintf("rIdS%d", i+1)
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)
		fmt.Fprintf(&presRels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, rid, partN)

		body := s.Raw
		if body == "" {
			body = slideHeader + strings.Join(s.Shapes, "") + slideFooter
		}
		if err := write(fmt.Sprintf("ppt/slides/slide%d.xml", partN), body); err != nil {
			return nil, err
		}

		var rels strings.Builder
		for _, relID := range sortedKeys(s.Media) {
			mediaN++
			name := fmt.Sprintf("image%d.png", mediaN)
			if err := write("ppt/media/"+name, string(s.Media[relID])); err != nil {
				return nil, err
			}
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/%s"/>`, relID, name)
		}
		for _, relID := range sortedKeys(s.External) {
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s" TargetMode="External"/>`, relID, s.External[relID])
		}
		if rels.Len() > 0 {
			if err := write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", partN), relsHeader+rels.String()+relsFooter); err != nil {
				return nil, err
			}
		}
	}

	pres := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:sldIdLst>` + ids.String() + `</p:sldIdLst><p:sldSz cx="9144000" cy="6858000"/></p:presentation>`
	if err := write("ppt/presentation.xml", pres); err != nil {
		return nil, err
	}
	if err := write("ppt/_rels/presentation.xml.rels", relsHeader+presRels.String()+relsFooter); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TextBox is a plain shape whose text frame holds one paragraph per argument.
func TextBox(id int, paragraphs ...string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr/>%s</p:sp>`,
		id, id, txBody(paragraphs))
}

// Title is a title placeholder with text.
func Title(id int, text string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Title %d"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/>%s</p:sp>`,
		id, id, txBody([]string{text}))
}

// FilledShape is a rectangle with a picture fill and no text frame.
func FilledShape(id int, relID string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Rectangle %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></a:blipFill></p:spPr></p:sp>`,
		id, id, relID)
}

// Picture is a p:pic referencing relID.
func Picture(id int, relID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr/></p:pic>`,
		id, id, relID)
}

// LinkedPicture is a p:pic whose blip links to an external relationship.
func LinkedPicture(id int, relID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:link="%s"/></p:blipFill><p:spPr/></p:pic>`,
		id, id, relID)
}

// PicturePlaceholder is a filled picture placeholder.
func PicturePlaceholder(id int, relID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture Placeholder %d"/><p:cNvPicPr/><p:nvPr><p:ph type="pic" idx="1"/></p:nvPr></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/></p:blipFill><p:spPr/></p:pic>`,
		id, id, relID)
}

// EmptyPlaceholder is a body placeholder with no text frame.
func EmptyPlaceholder(id int) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Placeholder %d"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`, id, id)
}

// Group wraps children in a p:grpSp.
func Group(id int, children ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group %d"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:grpSp>`,
		id, id, strings.Join(children, ""))
}

// NestedGroups wraps inner in depth levels of groups.
func NestedGroups(depth int, inner string) string {
	var b strings.Builder
	for i := 1; i <= depth; i++ {
		fmt.Fprintf(&b, `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group %d"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`,
			1000+i, 1000+i)
	}
	b.WriteString(inner)
	for i := 0; i < depth; i++ {
		b.WriteString(`</p:grpSp>`)
	}
	return b.String()
}

// Table is a graphic frame holding an a:tbl with the given cell text.
func Table(id int, rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(`<a:tr h="370840">`)
		for _, cell := range row {
			b.WriteString(`<a:tc>` + aTxBody([]string{cell}) + `<a:tcPr/></a:tc>`)
		}
		b.WriteString(`</a:tr>`)
	}
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblPr/><a:tblGrid/>%s</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`,
		id, id, b.String())
}

// Connector is a p:cxnSp.
func Connector(id int) string {
	return fmt.Sprintf(`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="%d" name="Connector %d"/><p:cNvCxnSpPr/><p:nvPr/></p:nvCxnSpPr><p:spPr/></p:cxnSp>`, id, id)
}

// AlternateContent wraps choice and fallback shapes in mc:AlternateContent.
func AlternateContent(choice, fallback string) string {
	return `<mc:AlternateContent><mc:Choice Requires="p14">` + choice + `</mc:Choice><mc:Fallback>` + fallback + `</mc:Fallback></mc:AlternateContent>`
}

// PNG encodes a solid w x h image of the given gray level.
func PNG(w, h int, gray uint8) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func txBody(paragraphs []string) string {
	return `<p:txBody><a:bodyPr/><a:lstStyle/>` + paragraphsXML(paragraphs) + `</p:txBody>`
}

func aTxBody(paragraphs []string) string {
	return `<a:txBody><a:bodyPr/><a:lstStyle/>` + paragraphsXML(paragraphs) + `</a:txBody>`
}

func paragraphsXML(paragraphs []string) string {
	var b strings.Builder
	for _, p := range paragraphs {
		if p == "" {
			b.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
			continue
		}
		b.WriteString(`<a:p><a:r><a:rPr lang="en-US"/><a:t>` + escape(p) + `</a:t></a:r></a:p>`)
	}
	return b.String()
}

func escape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const relsHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`

const relsFooter = `</Relationships>`

const rootRels = relsHeader +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	relsFooter

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>` +
	`</Types>`
