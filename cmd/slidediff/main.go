package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gnemet/SlideDiff/internal/ai"
	"github.com/gnemet/SlideDiff/internal/compare"
	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/logger"
	"github.com/gnemet/SlideDiff/internal/models"
	"github.com/gnemet/SlideDiff/internal/report"
	"github.com/rs/zerolog"
)

// Exit codes.
const (
	exitIdentical = 0
	exitDifferent = 1
	exitError     = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	format     string
	lang       string
	configPath string
	dump       bool
	narrate    bool
	verbose    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slidediff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: slidediff [flags] a.pptx b.pptx")
		fmt.Fprintln(stderr, "       slidediff -dump deck.pptx")
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.format, "format", "text", "output format: text, markdown, html or json")
	fs.StringVar(&opts.lang, "lang", i18n.DefaultLang, "report language")
	fs.StringVar(&opts.configPath, "config", "", "optional config file")
	fs.BoolVar(&opts.dump, "dump", false, "print the extracted deck as JSON")
	fs.BoolVar(&opts.narrate, "narrate", false, "add an AI summary (markdown and html only)")
	fs.BoolVar(&opts.verbose, "v", false, "log extraction details to stderr")

	if err := fs.Parse(args); err != nil {
		return exitError
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	if !opts.verbose {
		cfg.Log.Level = "warn"
	}
	cfg.Log.File = ""
	lg, err := logger.NewWithWriter(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitError
	}
	log := lg.Logger

	if err := i18n.Init(); err != nil {
		fmt.Fprintf(stderr, "i18n: %v\n", err)
		return exitError
	}
	if !i18n.Supported(opts.lang) {
		fmt.Fprintf(stderr, "unsupported language %q (have %s)\n", opts.lang, strings.Join(i18n.Languages(), ", "))
		return exitError
	}

	if opts.dump {
		if fs.NArg() != 1 {
			fs.Usage()
			return exitError
		}
		return dump(ctx, cfg.Compare, fs.Arg(0), stdout, stderr, log)
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return exitError
	}
	pathA, pathB := fs.Arg(0), fs.Arg(1)

	dataA, err := os.ReadFile(pathA)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	dataB, err := os.ReadFile(pathB)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	res := compare.NewServiceFromConfig(cfg.Compare, nil, log).CompareBytes(ctx, dataA, dataB)

	narrative := ""
	if opts.narrate && !res.Error && !res.Identical {
		narrative = narrate(ctx, cfg.AI, res, stderr, log)
	}

	if err := write(stdout, res, opts, filepath.Base(pathA), filepath.Base(pathB), narrative); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return exitError
	}

	switch {
	case res.Error:
		return exitError
	case res.Identical:
		return exitIdentical
	default:
		return exitDifferent
	}
}

func write(w io.Writer, res *models.ComparisonResult, opts options, nameA, nameB, narrative string) error {
	switch opts.format {
	case "text":
		return report.Text(w, res, opts.lang)
	case "markdown", "md":
		md := report.Markdown(res, opts.lang)
		if narrative != "" {
			md += "\n## " + i18n.T(opts.lang, "narrative") + "\n\n" + narrative + "\n"
		}
		_, err := io.WriteString(w, md)
		return err
	case "html":
		return report.HTML(w, res, report.Options{Lang: opts.lang, NameA: nameA, NameB: nameB, Narrative: narrative})
	case "json":
		return report.JSON(w, res)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

func narrate(ctx context.Context, cfg config.AIConfig, res *models.ComparisonResult, stderr io.Writer, log zerolog.Logger) string {
	client, err := ai.NewClient(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "ai: %v\n", err)
		return ""
	}
	defer client.Close()

	out, err := client.Narrate(ctx, res)
	if errors.Is(err, ai.ErrDisabled) {
		fmt.Fprintln(stderr, "ai: no active provider configured")
		return ""
	}
	if err != nil {
		fmt.Fprintf(stderr, "ai: %v\n", err)
		return ""
	}
	return out
}

func dump(ctx context.Context, cfg config.CompareConfig, path string, stdout, stderr io.Writer, log zerolog.Logger) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	deck, err := compare.NewExtractorFromConfig(cfg, log).Extract(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", path, err)
		return exitError
	}
	if err := report.JSON(stdout, deck); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitIdentical
}
