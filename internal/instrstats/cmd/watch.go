package cmd

import (
	"context"
	"fmt"
	pathpkg "path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"la32rstats/internal/elfx"
)

// settleDelay lets a burst of writes from a linker finish before decoding.
const settleDelay = 150 * time.Millisecond

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Print the histogram again whenever the file changes",
		Long: `Watch a binary and print a fresh report each time it is rewritten,
for example by a build in another terminal. The report is printed once the
file has been quiet for a moment, so a continuous stream of writes delays
it until the writes stop. Each decode reads a private copy of the file.
Decode errors are printed and watching continues. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			s.snapshot = true

			file, err := checkInput(args[0])
			if err != nil {
				return err
			}
			if file == "-" {
				return fmt.Errorf("cannot watch standard input")
			}

			out := cmd.OutOrStdout()
			render := func() error {
				d, err := s.decodeFile(nil, file)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", pathpkg.Base(file), err)
					return nil
				}
				fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.Kitchen), watchSummary(d))
				return writeReport(out, newReport(d, s.pipeline.Categories(), s.cfg.Top), 100)
			}
			if err := render(); err != nil {
				return err
			}
			return watchFile(cmd.Context(), file, s.log.Logger, render)
		},
	}
	cmd.Flags().IntP("top", "k", 20, "Histogram rows to show (0 shows all)")
	return cmd
}

func watchSummary(d *decoded) string {
	if len(d.Sections) == 0 {
		return fmt.Sprintf("%d instructions", len(d.Result.Instructions))
	}
	v := sectionVerdicts(d.Sections)
	return fmt.Sprintf("%d instructions from %d sections, %d skipped",
		len(d.Result.Instructions), v[elfx.Selected], len(d.Sections)-v[elfx.Selected]-v[elfx.NotCode])
}

// watchFile calls onChange after path is written or replaced, until ctx is
// done. The parent directory is watched so that editors and linkers that
// replace the file by renaming are seen.
func watchFile(ctx context.Context, path string, logger *log.Logger, onChange func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(pathpkg.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", pathpkg.Dir(path), err)
	}
	logger.Debug("watching", "file", path)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if pathpkg.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			logger.Debug("file changed", "op", ev.Op)
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				timer.Reset(settleDelay)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-pending:
			pending = nil
			if err := onChange(); err != nil {
				return err
			}
		}
	}
}
