package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const debounceInterval = 300 * time.Millisecond

type watchOptions struct {
	out string
}

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [flake.lock]",
		Short: "Re-render the graph whenever the lock file changes",
		Long: `Render the lock file once, then watch it and render again after every
change. Errors while re-rendering are logged and watching continues.`,
		Example: `  flake-graph watch --out flake.dot
  flake-graph watch ./flake.lock --out /tmp/flake.dot --rankdir=TB`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx, cmd.OutOrStdout(), root, opts, root.lockFile(args))
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "O", "", "write DOT to this file instead of stdout")

	return cmd
}

func runWatch(ctx context.Context, stdout io.Writer, root *rootOptions, opts *watchOptions, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve lock path: %w", err)
	}

	render := func() error {
		g, err := loadGraph(absPath)
		if err != nil {
			return err
		}
		return writeOutput(stdout, opts.out, g.DOT(root.render))
	}

	// The first render must succeed; later failures only get logged
	if err := render(); err != nil {
		return err
	}

	return watchFile(ctx, absPath, func() {
		if err := render(); err != nil {
			slog.Error("graph rebuild failed", "path", absPath, "error", err)
			return
		}
		slog.Debug("graph rebuilt", "path", absPath)
	})
}

func writeOutput(stdout io.Writer, out, dot string) error {
	if out == "" {
		_, err := io.WriteString(stdout, dot)
		return err
	}
	if err := os.WriteFile(out, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}

// watchFile calls onChange once things settle after path is written,
// created, replaced or removed, until ctx is done. The parent directory is
// watched so editors that replace the file are still followed.
func watchFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	slog.Debug("watching lock file", "path", path)

	// onChange runs on this goroutine only, so renders never overlap and
	// none is in flight once watchFile returns.
	var (
		debounceTimer *time.Timer
		fire          <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case <-fire:
			fire = nil
			onChange()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevantChange(event, path) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(debounceInterval)
			fire = debounceTimer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func isRelevantChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
