package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/database"
	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/report"
	"github.com/rs/zerolog"
)

// Comparer is satisfied by *compare.Service.
type Comparer interface {
	CompareBytes(ctx context.Context, a, b []byte) *models.ComparisonResult
}

// Narrator is satisfied by *ai.Client.
type Narrator interface {
	Enabled() bool
	Narrate(ctx context.Context, res *models.ComparisonResult) (string, error)
}

// RunStore is satisfied by *database.RunStore.
type RunStore interface {
	SaveRun(ctx context.Context, r *database.Run) error
	RecentRuns(ctx context.Context, limit int) ([]database.Run, error)
}

// Middleware wraps the whole mux, e.g. request metrics.
type Middleware func(http.Handler) http.Handler

type server struct {
	app      config.ApplicationConfig
	comparer Comparer
	narrator Narrator
	runs     RunStore
	metrics  http.Handler
	logger   zerolog.Logger
}

func (s *server) routes(wrap Middleware) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /compare", s.handleCompare)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.runs != nil {
		mux.HandleFunc("GET /runs", s.handleRuns)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if wrap == nil {
		return mux
	}
	return wrap(mux)
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromRequest(r)
	if q := r.URL.Query().Get("lang"); q != "" && i18n.Supported(q) {
		http.SetCookie(w, &http.Cookie{Name: "lang", Value: q, Path: "/", MaxAge: 365 * 24 * 3600})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := report.Index(w, report.IndexPage{
		Lang:        lang,
		Languages:   i18n.Languages(),
		MaxUploadMB: s.app.MaxUploadMB,
		RunsEnabled: s.runs != nil,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to render index")
	}
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	// Two decks plus multipart overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.app.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.uploadError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	limit := s.app.MaxUploadBytes()
	dataA, nameA, err := readUpload(r, "file_a", limit)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	dataB, nameB, err := readUpload(r, "file_b", limit)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	res := s.comparer.CompareBytes(r.Context(), dataA, dataB)
	s.logger.Info().
		Str("a", nameA).Str("b", nameB).
		Bool("identical", res.Identical).Bool("error", res.Error).
		Msg(res.Summary())

	narrative := ""
	if s.narrator != nil && s.narrator.Enabled() && !res.Error && !res.Identical {
		if narrative, err = s.narrator.Narrate(r.Context(), res); err != nil {
			s.logger.Warn().Err(err).Msg("Narration failed")
			narrative = ""
		}
	}

	if s.runs != nil {
		run := database.NewRun(database.SourceUpload, nameA, nameB, dataA, dataB, res)
		run.Narrative = narrative
		if err := s.runs.SaveRun(r.Context(), run); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to record run")
		}
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		if err := report.JSON(w, res); err != nil {
			s.logger.Error().Err(err).Msg("Failed to write JSON report")
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = report.HTML(w, res, report.Options{
		Lang:      i18n.FromRequest(r),
		NameA:     nameA,
		NameB:     nameB,
		Narrative: narrative,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to render report")
	}
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}

	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

func (s *server) uploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, errDeckTooLarge) {
		http.Error(w, fmt.Sprintf("upload exceeds %d MB per deck", s.app.MaxUploadMB), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

var errDeckTooLarge = errors.New("deck exceeds upload limit")

func readUpload(r *http.Request, field string, limit int64) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", field, err)
	}
	defer file.Close()

	if header.Size > limit {
		return nil, "", fmt.Errorf("%s: %w", field, errDeckTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", field, err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("%s: %w", field, errDeckTooLarge)
	}
	return data, header.Filename, nil
}

func wantsJSON(r *http.Request) bool {
	if r.FormValue("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
