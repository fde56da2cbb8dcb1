package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewBuildCmd returns the `stanza build` cobra command.
//
// Usage examples:
//
//	stanza build
//	stanza build --source ./site
//	stanza build --incremental
func NewBuildCmd() *cobra.Command {
	var sourceDir string
	var incremental bool
	var clean bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "build the site into the destination directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, sourceDir)
			if err != nil {
				return err
			}
			if incremental {
				s.Config().SetIncremental(true)
			}

			ctx := cmd.Context()
			if clean {
				if err := s.Clean(ctx); err != nil {
					return err
				}
			}

			start := time.Now()
			if err := s.Update(ctx); err != nil {
				return err
			}
			if err := s.Build(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %d outputs in %s\n",
				len(s.Destinations()), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "",
		"site directory (default working directory)")
	cmd.Flags().BoolVar(&incremental, "incremental", false,
		"skip outputs whose content fingerprint is unchanged")
	cmd.Flags().BoolVar(&clean, "clean", false,
		"remove the destination and cache before building")

	return cmd
}
