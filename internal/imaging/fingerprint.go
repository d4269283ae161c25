package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultPreviewMaxSide bounds the longest side of a generated preview.
const DefaultPreviewMaxSide = 100

// UnknownFormat is reported when the image header cannot be decoded.
const UnknownFormat = "Unknown"

// ErrEmptyImage is returned for a zero-length blob.
var ErrEmptyImage = errors.New("empty image data")

// Status tells how complete a fingerprint is.
type Status int

const (
	StatusOK Status = iota
	// StatusDegraded means the record exists but dimensions or preview are missing.
	StatusDegraded
	// StatusFailed means no record could be produced.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return "ok"
	}
}

// Result is the outcome of fingerprinting one blob.
type Result struct {
	Record     *models.ImageRecord
	Status     Status
	DecodeErr  error
	PreviewErr error
}

// Fingerprinter turns image bytes into ImageRecords. The zero value uses
// DefaultPreviewMaxSide.
type Fingerprinter struct {
	PreviewMaxSide int
}

func NewFingerprinter(previewMaxSide int) *Fingerprinter {
	return &Fingerprinter{PreviewMaxSide: previewMaxSide}
}

// Fingerprint hashes data, reads its dimensions and builds a PNG preview.
func (f *Fingerprinter) Fingerprint(data []byte, provenance string) Result {
	if len(data) == 0 {
		return Result{Status: StatusFailed, DecodeErr: ErrEmptyImage}
	}

	rec := &models.ImageRecord{
		Hash:       Hash(data),
		ByteSize:   len(data),
		Format:     UnknownFormat,
		Provenance: provenance,
	}
	res := Result{Record: rec, Status: StatusOK}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		res.Status = StatusDegraded
		res.DecodeErr = fmt.Errorf("decode image config: %w", err)
	} else {
		rec.Width = cfg.Width
		rec.Height = cfg.Height
		rec.Format = strings.ToUpper(format)
	}

	preview, err := f.preview(data)
	if err != nil {
		res.Status = StatusDegraded
		res.PreviewErr = err
	} else {
		rec.PreviewData = preview
	}

	return res
}

func (f *Fingerprinter) maxSide() uint {
	if f == nil || f.PreviewMaxSide <= 0 {
		return DefaultPreviewMaxSide
	}
	return uint(f.PreviewMaxSide)
}

func (f *Fingerprinter) preview(data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("build preview: %v", r)
		}
	}()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build preview: %w", err)
	}

	side := f.maxSide()
	thumb := resize.Thumbnail(side, side, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash is the lower-case hex xxhash64 of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
