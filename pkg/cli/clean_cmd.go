package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanCmd returns the `stanza clean` cobra command. It removes the
// destination directory and empties the fingerprint cache.
func NewCleanCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "remove the destination directory and the build cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, sourceDir)
			if err != nil {
				return err
			}
			if err := s.Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n",
				s.Config().DestinationPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "",
		"site directory (default working directory)")

	return cmd
}
