package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/gnemet/SlideDiff/internal/models"
)

// Where a comparison was started from.
const (
	SourceUpload  = "upload"
	SourceWatcher = "watcher"
)

// Run is the stored summary of one comparison.
type Run struct {
	ID             int       `json:"id"`
	Source         string    `json:"source"`
	NameA          string    `json:"name_a"`
	NameB          string    `json:"name_b"`
	ChecksumA      string    `json:"checksum_a"`
	ChecksumB      string    `json:"checksum_b"`
	Identical      bool      `json:"identical"`
	Failed         bool      `json:"failed"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	SlidesCompared int       `json:"slides_compared"`
	SlideCountA    int       `json:"slide_count_a"`
	SlideCountB    int       `json:"slide_count_b"`
	TextDiffCount  int       `json:"text_diff_count"`
	ImageDiffCount int       `json:"image_diff_count"`
	Summary        string    `json:"summary"`
	Narrative      string    `json:"narrative,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Checksum is the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewRun summarises res for the run log.
func NewRun(source, nameA, nameB string, dataA, dataB []byte, res *models.ComparisonResult) *Run {
	return &Run{
		Source:         source,
		NameA:          nameA,
		NameB:          nameB,
		ChecksumA:      Checksum(dataA),
		ChecksumB:      Checksum(dataB),
		Identical:      res.Identical,
		Failed:         res.Error,
		ErrorMessage:   res.ErrorMessage,
		SlidesCompared: res.SlidesCompared,
		SlideCountA:    res.SlideCountA,
		SlideCountB:    res.SlideCountB,
		TextDiffCount:  res.TextDiffCount,
		ImageDiffCount: res.ImageDiffCount,
		Summary:        res.Summary(),
	}
}

func SaveRun(ctx context.Context, db *sql.DB, r *Run) (int, error) {
	query := `
		INSERT INTO comparison_runs (source, name_a, name_b, checksum_a, checksum_b, identical, failed, error_message,
			slides_compared, slide_count_a, slide_count_b, text_diff_count, image_diff_count, summary, narrative)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	err := db.QueryRowContext(ctx, query,
		r.Source, r.NameA, r.NameB, r.ChecksumA, r.ChecksumB, r.Identical, r.Failed, r.ErrorMessage,
		r.SlidesCompared, r.SlideCountA, r.SlideCountB, r.TextDiffCount, r.ImageDiffCount, r.Summary, r.Narrative,
	).Scan(&r.ID, &r.CreatedAt)
	return r.ID, err
}

// RecentRuns returns the newest runs first.
func RecentRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, source, name_a, name_b, checksum_a, checksum_b, identical, failed, error_message,
			slides_compared, slide_count_a, slide_count_b, text_diff_count, image_diff_count, summary, narrative, created_at
		FROM comparison_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.NameA, &r.NameB, &r.ChecksumA, &r.ChecksumB, &r.Identical, &r.Failed,
			&r.ErrorMessage, &r.SlidesCompared, &r.SlideCountA, &r.SlideCountB, &r.TextDiffCount, &r.ImageDiffCount,
			&r.Summary, &r.Narrative, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunStore adapts the run log functions to a value that can be passed around.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) SaveRun(ctx context.Context, r *Run) error {
	_, err := SaveRun(ctx, s.db, r)
	return err
}

func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	return RecentRuns(ctx, s.db, limit)
}
