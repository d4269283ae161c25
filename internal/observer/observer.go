package observer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/database"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/report"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a file must stay quiet before it is compared.
const DefaultDebounce = 2 * time.Second

// Comparer is satisfied by *compare.Service.
type Comparer interface {
	CompareBytes(ctx context.Context, a, b []byte) *models.ComparisonResult
}

// RunLog stores comparison summaries. *database.RunStore implements it.
type RunLog interface {
	SaveRun(ctx context.Context, r *database.Run) error
}

// Narrator is satisfied by *ai.Client.
type Narrator interface {
	Enabled() bool
	Narrate(ctx context.Context, res *models.ComparisonResult) (string, error)
}

// Observer watches a directory and compares every new revision of a deck with
// the previous one kept in the baseline directory.
type Observer struct {
	storage  config.StorageConfig
	comparer Comparer
	runs     RunLog
	narrator Narrator
	logger   zerolog.Logger
	debounce time.Duration
	lang     string

	activeTasks int
	mu          sync.Mutex
	LogChan     chan string
}

// NewObserver builds an observer. runs and narrator may be nil.
func NewObserver(storage config.StorageConfig, comparer Comparer, runs RunLog, narrator Narrator, logger zerolog.Logger, logChan chan string) *Observer {
	return &Observer{
		storage:  storage,
		comparer: comparer,
		runs:     runs,
		narrator: narrator,
		logger:   logger.With().Str("component", "Observer").Logger(),
		debounce: DefaultDebounce,
		lang:     "en",
		LogChan:  logChan,
	}
}

// SetDebounce changes the quiet period before a changed file is processed.
func (o *Observer) SetDebounce(d time.Duration) {
	o.debounce = d
}

func (o *Observer) log(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	o.logger.Info().Msg(msg)
	if o.LogChan != nil {
		select {
		case o.LogChan <- msg:
		default:
			// drop when nobody is listening
		}
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}

// Start blocks until ctx is done or the watcher fails.
func (o *Observer) Start(ctx context.Context) error {
	watchDir := o.storage.Watch
	if watchDir == "" {
		return errors.New("watch directory not configured")
	}
	for _, dir := range []string{watchDir, o.storage.Baseline, o.storage.Reports} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(watchDir); err != nil {
		return err
	}
	o.log("Revision watcher started, watching: %s", watchDir)

	o.scanDirectory(ctx, watchDir)

	// Files are processed one at a time on this loop.
	deb := newDebouncer(o.debounce, ctx.Done())
	defer deb.stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) || !isDeck(event.Name) {
				continue
			}
			deb.touch(event.Name)

		case ev := <-deb.out:
			if !deb.accept(ev) {
				continue
			}
			o.log("Detected new revision: %s", filepath.Base(ev.name))
			if err := o.Process(ctx, ev.name); err != nil {
				o.log("Failed to process %s: %v", filepath.Base(ev.name), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log("Watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		o.log("Failed to scan directory: %v", err)
		return
	}

	for _, f := range files {
		if f.IsDir() || !isDeck(f.Name()) {
			continue
		}
		if err := o.Process(ctx, filepath.Join(dir, f.Name())); err != nil {
			o.log("Failed to process %s: %v", f.Name(), err)
		}
	}
}

// Process compares path with its baseline, writes the report, and makes path
// the new baseline. A file without a baseline only seeds it.
func (o *Observer) Process(ctx context.Context, path string) error {
	o.incrementTask()
	defer o.decrementTask()

	filename := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}

	baselinePath := filepath.Join(o.storage.Baseline, filename)
	baseline, err := os.ReadFile(baselinePath)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeFileAtomic(baselinePath, data); err != nil {
			return fmt.Errorf("seed baseline: %w", err)
		}
		o.log("Baseline recorded for %s", filename)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read baseline: %w", err)
	}

	if bytes.Equal(baseline, data) {
		o.log("%s is unchanged, skipping", filename)
		return nil
	}

	res := o.comparer.CompareBytes(ctx, baseline, data)

	narrative := ""
	if o.narrator != nil && o.narrator.Enabled() && !res.Error && !res.Identical {
		if narrative, err = o.narrator.Narrate(ctx, res); err != nil {
			o.logger.Warn().Err(err).Str("file", filename).Msg("Narration failed")
			narrative = ""
		}
	}

	reportPath, err := o.writeReport(filename, res, narrative)
	if err != nil {
		o.log("Failed to write report for %s: %v", filename, err)
	} else {
		o.log("Report for %s written to %s", filename, reportPath)
	}

	if o.runs != nil {
		run := database.NewRun(database.SourceWatcher, "baseline/"+filename, filename, baseline, data, res)
		run.Narrative = narrative
		if err := o.runs.SaveRun(ctx, run); err != nil {
			o.log("Failed to record run for %s: %v", filename, err)
		}
	}

	o.log("%s: %s", filename, res.Summary())

	// A failed comparison leaves the old baseline in place so the next good
	// revision is still compared against it.
	if res.Error {
		return nil
	}
	if err := writeFileAtomic(baselinePath, data); err != nil {
		return fmt.Errorf("update baseline: %w", err)
	}
	return nil
}

func (o *Observer) writeReport(filename string, res *models.ComparisonResult, narrative string) (string, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	path := filepath.Join(o.storage.Reports, fmt.Sprintf("%s-%s.html", stem, time.Now().Format("20060102-150405.000")))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	err = report.HTML(f, res, report.Options{
		Lang:      o.lang,
		NameA:     filename + " (baseline)",
		NameB:     filename,
		Narrative: narrative,
	})
	if err != nil {
		return "", err
	}
	return path, f.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".baseline-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func isDeck(name string) bool {
	base := filepath.Base(name)
	// Office lock files look like ~$deck.pptx.
	return strings.HasSuffix(strings.ToLower(base), ".pptx") && !strings.HasPrefix(base, "~$")
}
