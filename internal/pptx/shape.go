package pptx

import (
	"errors"
	"fmt"
)

// ShapeKind is the classification of a shape element in a slide's shape tree.
type ShapeKind int

const (
	KindAutoShape ShapeKind = iota
	KindPicture
	KindPlaceholder
	KindGroup
	KindGraphicFrame
	KindConnector
)

func (k ShapeKind) String() string {
	switch k {
	case KindPicture:
		return "picture"
	case KindPlaceholder:
		return "placeholder"
	case KindGroup:
		return "group"
	case KindGraphicFrame:
		return "graphic frame"
	case KindConnector:
		return "connector"
	default:
		return "shape"
	}
}

// ErrNoImage is returned when a shape carries no image of the requested kind.
var ErrNoImage = errors.New("shape has no image")

// ImageRef points at an image part. The bytes are read on demand.
type ImageRef struct {
	RelID  string
	Target string
	load   func() ([]byte, error)
}

// NewImageRef wraps bytes that are already in memory.
func NewImageRef(target string, data []byte) *ImageRef {
	return &ImageRef{Target: target, load: func() ([]byte, error) { return data, nil }}
}

// BrokenImageRef returns a reference whose read always fails with err.
func BrokenImageRef(target string, err error) *ImageRef {
	return &ImageRef{Target: target, load: func() ([]byte, error) { return nil, err }}
}

func (r *ImageRef) Bytes() ([]byte, error) {
	if r == nil || r.load == nil {
		return nil, ErrNoImage
	}
	data, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", r.Target, err)
	}
	return data, nil
}

// Table is the cell text of a table graphic frame, row-major.
type Table struct {
	Rows [][]string `json:"rows"`
}

// Shape is one node of a slide's shape tree.
type Shape struct {
	Kind        ShapeKind `json:"kind"`
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`

	// Text is set only for shapes that own a text frame.
	Text         string `json:"text,omitempty"`
	HasTextFrame bool   `json:"has_text_frame"`

	Table    *Table   `json:"table,omitempty"`
	Children []*Shape `json:"children,omitempty"`

	Picture *ImageRef `json:"-"`
	Fill    *ImageRef `json:"-"`
}

// Image returns the bytes of the shape's own picture.
func (s *Shape) Image() ([]byte, error) {
	if s.Picture == nil {
		return nil, ErrNoImage
	}
	return s.Picture.Bytes()
}

// FillImage returns the bytes of the picture used as the shape's fill.
func (s *Shape) FillImage() ([]byte, error) {
	if s.Fill == nil {
		return nil, ErrNoImage
	}
	return s.Fill.Bytes()
}

func normalizePlaceholder(ph string) string {
	switch ph {
	case "title", "ctrTitle":
		return "title"
	case "", "body", "subTitle", "obj":
		return "body"
	case "pic", "clipArt":
		return "picture"
	default:
		return "other"
	}
}
