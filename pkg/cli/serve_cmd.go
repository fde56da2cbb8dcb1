package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlrickert/stanza/pkg/log"
	"github.com/jlrickert/stanza/pkg/site"
)

// NewServeCmd returns the `stanza serve` cobra command: a development
// server that renders pages on demand from the in-memory destination map
// and rebuilds that map when source files change.
func NewServeCmd() *cobra.Command {
	var sourceDir string
	var addr string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the site locally, rebuilding on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, sourceDir)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			lg := log.FromContext(ctx)

			if err := s.Update(ctx); err != nil {
				return err
			}

			w := site.NewWatcher(s, debounce)
			go func() {
				if werr := w.Run(ctx); werr != nil &&
					!errors.Is(werr, context.Canceled) {
					lg.Error("watcher stopped", "error", werr)
				}
			}()

			srv := &http.Server{
				Addr:    addr,
				Handler: serveHandler(s, lg),
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(
					context.Background(), 3*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", addr)
			if err := srv.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "",
		"site directory (default working directory)")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080",
		"address to listen on")
	cmd.Flags().DurationVar(&debounce, "debounce", site.DefaultDebounce,
		"delay before rebuilding after a change")

	return cmd
}

// serveHandler renders straight from the destination map so the served
// content always reflects the latest successful update, no disk write
// required.
func serveHandler(s *site.Site, lg *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextWithLogger(r.Context(), lg)

		out, ok, err := s.RenderPath(ctx, r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			lg.Error("render failed", "url", r.URL.Path, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if ct := mime.TypeByExtension(path.Ext(r.URL.Path)); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write(out)
	})
}
