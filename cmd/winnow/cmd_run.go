package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/winnow/internal/version"
	"github.com/jmylchreest/winnow/pkg/config"
	"github.com/jmylchreest/winnow/pkg/discover"
	"github.com/jmylchreest/winnow/pkg/logging"
	"github.com/jmylchreest/winnow/pkg/metrics"
	"github.com/jmylchreest/winnow/pkg/present"
	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// runner holds everything one analysis needs. Watch mode reuses it across
// reruns so that metrics accumulate.
type runner struct {
	cfg     *config.Config
	paths   []string
	logger  *slog.Logger
	stdout  io.Writer
	metrics *metrics.Metrics
}

func newRunner(args []string, stdout io.Writer, stderr io.Writer) (*runner, error) {
	cli, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cli.ConfigFile, Flags: cli.Flags})
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:    cfg,
		paths:  cli.Paths,
		logger: logging.Setup(cfg.LogLevel, cfg.LogFormat, stderr),
		stdout: stdout,
	}
	if cfg.MetricsFile != "" {
		r.metrics = metrics.New()
	}
	return r, nil
}

func cmdRun(args []string) error {
	r, err := newRunner(args, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	_, err = r.analyze(context.Background())
	return err
}

// analyze discovers, tokenizes and compares the files, then writes the
// report and metrics.
func (r *runner) analyze(ctx context.Context) (*report.Report, error) {
	cfg := r.cfg
	files, err := discover.Discover(r.paths, discover.Options{
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      logging.WithComponent("discover"),
	})
	if err != nil {
		return nil, err
	}

	b, err := report.NewBuilder(cfg.Options, logging.WithComponent("report"))
	if err != nil {
		return nil, err
	}

	tokenized, err := r.tokenizeFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	for _, tf := range tokenized {
		if tf != nil {
			b.AddFile(tf)
		}
	}

	if cfg.IgnoreFile != "" {
		f, err := discover.ReadFile(cfg.IgnoreFile, len(files))
		if err != nil {
			return nil, fmt.Errorf("ignore template: %w", err)
		}
		tf, err := r.tokenize(f)
		if err != nil {
			return nil, fmt.Errorf("ignore template: %w", err)
		}
		b.AddIgnoredFile(tf)
	}

	rep, err := b.Finish(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.write(rep); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.Observe(rep)
		if err := r.metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// tokenizeFiles tokenizes files in parallel. A file that fails to tokenize
// is logged and left nil so the rest of the run can continue.
func (r *runner) tokenizeFiles(ctx context.Context, files []tokenizer.File) ([]*tokenizer.TokenizedFile, error) {
	out := make([]*tokenizer.TokenizedFile, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(r.cfg.Workers))
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tf, err := r.tokenize(&files[i])
			if err != nil {
				r.logger.Warn("skipping file", "path", files[i].Path, "error", err)
				return nil
			}
			out[i] = tf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *runner) tokenize(f *tokenizer.File) (*tokenizer.TokenizedFile, error) {
	lang := r.cfg.Language
	if lang == "" {
		lang = tokenizer.LanguageForPath(f.Path)
	}
	t, err := tokenizer.New(lang, tokenizer.Options{IncludeComments: r.cfg.IncludeComments})
	if err != nil {
		return nil, err
	}
	return t.Tokenize(f)
}

// write renders the report in the configured format, to the output path
// when one is set.
func (r *runner) write(rep *report.Report) error {
	cfg := r.cfg
	docOpts := present.DocumentOptions{Version: version.Short(), WithData: cfg.ShowFragments}

	if cfg.Format == config.FormatCSV {
		return present.CSV(cfg.Output, present.NewDocument(rep, docOpts))
	}

	if cfg.Output == "" {
		return r.render(r.stdout, rep, docOpts, &present.DefaultTheme)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := r.render(f, rep, docOpts, &present.PlainTheme); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *runner) render(w io.Writer, rep *report.Report, docOpts present.DocumentOptions, theme *present.Theme) error {
	switch r.cfg.Format {
	case config.FormatJSON:
		return present.JSON(w, present.NewDocument(rep, docOpts))
	case config.FormatYAML:
		return present.YAML(w, present.NewDocument(rep, docOpts))
	default:
		return present.Terminal(w, rep, present.TerminalOptions{ShowFragments: r.cfg.ShowFragments, Theme: theme})
	}
}

// workers returns n, or GOMAXPROCS capped at maxWorkers when n is zero.
func workers(n int) int {
	if n > 0 {
		return n
	}
	return max(1, min(runtime.GOMAXPROCS(0), maxWorkers))
}
