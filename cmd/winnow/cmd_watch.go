package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/winnow/pkg/config"
	"github.com/jmylchreest/winnow/pkg/logging"
	"github.com/jmylchreest/winnow/pkg/watcher"
)

func cmdWatch(args []string) error {
	r, err := newRunner(args, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	rerun := func(files map[string]fsnotify.Op) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if len(files) > 0 {
			removed := 0
			for _, op := range files {
				if watcher.IsRemove(op) {
					removed++
				}
			}
			r.logger.Info("files changed, re-running", "files", len(files), "removed", removed)
		}
		if r.cfg.Format == config.FormatTerminal && r.cfg.Output == "" {
			fmt.Fprint(r.stdout, clearScreen)
		}
		runCtx, cancel := context.WithTimeout(ctx, DefaultRerunTimeout)
		defer cancel()
		if _, err := r.analyze(runCtx); err != nil {
			r.logger.Error("analysis failed", "error", err)
		}
	}
	rerun(nil)

	w, err := r.startWatcher(watcher.HandlerFunc(rerun))
	if err != nil {
		return err
	}

	<-ctx.Done()
	return w.Stop()
}

// startWatcher watches the runner's paths. A watcher that fails to start is
// stopped before returning.
func (r *runner) startWatcher(h watcher.Handler) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.Config{
		Paths:         r.paths,
		DebounceDelay: r.cfg.Debounce,
		FileFilter:    r.watchFilter(),
		Logger:        logging.WithComponent("watcher"),
	}, h)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return nil, errors.Join(fmt.Errorf("start watcher: %w", err), w.Stop())
	}
	return w, nil
}

// watchFilter rejects the files the run itself writes, including the
// temporary files the metrics textfile is renamed from.
func (r *runner) watchFilter() func(string) bool {
	var own []string
	for _, p := range []string{r.cfg.Output, r.cfg.MetricsFile} {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			own = append(own, abs)
		}
	}
	return func(path string) bool {
		abs, err := filepath.Abs(path)
		if err != nil {
			return true
		}
		for _, o := range own {
			if strings.HasPrefix(abs, o) {
				return false
			}
		}
		return true
	}
}
