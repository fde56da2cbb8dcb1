package cli

// NewRootCmd builds the root cobra command and wires persistent flags. The
// command's PersistentPreRunE only creates a production logger when the
// incoming command context does not already carry one (this lets tests set
// a test context via cmd.SetContext before Execute).

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jlrickert/stanza/pkg/log"
	"github.com/jlrickert/stanza/pkg/site"
)

func NewRootCmd() *cobra.Command {
	var logFile string
	var logLevel string
	var logJSON bool
	var shutdown func() error

	cmd := &cobra.Command{
		Use:           "stanza",
		Short:         "incremental static site builder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Respect an existing context; tests install their own logger.
			ctx := cmd.Context()
			if log.FromContext(ctx) != log.FromContext(nil) {
				return nil
			}

			lg, sd, err := log.NewLogger(log.LoggerConfig{
				Version: Version,
				File:    logFile,
				Level:   log.ParseLevel(logLevel),
				JSON:    logJSON,
			})
			if err != nil {
				return err
			}
			shutdown = sd
			cmd.SetContext(log.ContextWithLogger(ctx, lg))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdown != nil {
				return shutdown()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file (default stderr)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"minimum log level")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"output logs as JSON")

	cmd.AddCommand(
		NewBuildCmd(),
		NewCleanCmd(),
		NewWatchCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// loadSite resolves the config file relative to dir and constructs the
// site against the OS filesystem. An empty dir means the working
// directory.
func loadSite(cmd *cobra.Command, dir string, opts ...site.Option) (*site.Site, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	fs := afero.NewOsFs()

	cfgPath := filepath.Join(dir, site.DefaultConfigFile)
	cfg, err := site.LoadConfig(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfgPath, err)
	}

	lg := log.FromContext(cmd.Context())
	opts = append([]site.Option{site.WithLogger(lg)}, opts...)
	return site.NewSite(fs, cfg, opts...)
}
