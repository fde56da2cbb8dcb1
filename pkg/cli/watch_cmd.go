package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlrickert/stanza/pkg/site"
)

// NewWatchCmd returns the `stanza watch` cobra command. It builds once,
// then rebuilds whenever a source file changes until interrupted.
func NewWatchCmd() *cobra.Command {
	var sourceDir string
	var incremental bool
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "rebuild the site when source files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, sourceDir)
			if err != nil {
				return err
			}
			if incremental {
				s.Config().SetIncremental(true)
			}

			w := site.NewWatcher(s, debounce)
			if err := w.Run(cmd.Context()); err != nil &&
				!errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "",
		"site directory (default working directory)")
	cmd.Flags().BoolVar(&incremental, "incremental", true,
		"skip outputs whose content fingerprint is unchanged")
	cmd.Flags().DurationVar(&debounce, "debounce", site.DefaultDebounce,
		"delay before rebuilding after a change")

	return cmd
}
