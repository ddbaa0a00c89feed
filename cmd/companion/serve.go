package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/board"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/queue"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the companion HTTP API",
	Long: `Starts the HTTP API, the offline queue replay watcher and the
background schedule boards configured via WATCH_VIEWS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		boards := buildBoards(a)
		for _, b := range boards {
			go b.Run(ctx)
		}

		watcher := queue.NewWatcher(a.queue, a.probe, a.deliver, a.cfg.ProbeInterval)
		go watcher.Run(ctx)

		// Keep the queue depth gauge current.
		go func() {
			ticker := time.NewTicker(a.cfg.ProbeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if depth, err := a.queue.Depth(ctx); err == nil {
						a.collector.QueueDepth.Set(float64(depth))
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		srv := server.New(server.Config{
			Catalog:        a.catalog,
			Sources:        a.sources,
			Reports:        a.reports,
			Dispatcher:     a.dispatcher,
			Queue:          a.queue,
			Deliver:        a.deliver,
			Boards:         boards,
			Limiter:        a.limiter,
			Telemetry:      a.tel,
			SOSLimit:       a.cfg.SOSLimit,
			SOSWindow:      a.cfg.SOSWindow,
			CacheTTL:       a.cfg.CacheTTL,
			AllowedOrigins: a.cfg.AllowedOrigins,
			Metrics:        a.collector.Handler(),
		})

		httpSrv := &http.Server{
			Addr:    a.cfg.ListenAddr,
			Handler: srv.Router(),
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("Server: listening on %s", a.cfg.ListenAddr)
			errCh <- httpSrv.ListenAndServe()
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case s := <-sig:
			log.Printf("Server: received %v, shutting down", s)
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server: shutdown failed: %v", err)
		}
		return nil
	},
}

// buildBoards creates one background schedule board per configured watch
// view. Malformed entries are skipped with a warning rather than failing
// startup.
func buildBoards(a *app) map[string]*board.Board {
	boards := make(map[string]*board.Board, len(a.cfg.WatchViews))
	for _, view := range a.cfg.WatchViews {
		parts := strings.SplitN(view, ":", 3)
		if len(parts) != 3 {
			log.Printf("Server: ignoring malformed watch view %q (want city:line:station)", view)
			continue
		}
		city, line, station := parts[0], parts[1], parts[2]
		source, ok := a.sources[city]
		if !ok {
			log.Printf("Server: ignoring watch view %q: no feed for city %s", view, city)
			continue
		}
		key := fmt.Sprintf("%s-%s-%s", city, line, station)
		boards[key] = board.New(key, func(ctx context.Context) ([]arrival.Arrival, error) {
			return source.Arrivals(ctx, line, station)
		}, a.cfg.RefreshInterval, a.tel)
	}
	return boards
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
