package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/history"
	"github.com/banshee-data/pointdiff/internal/monitoring"
)

func newHistoryCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run history",
	}
	cmd.AddCommand(newHistoryListCmd(o), newHistoryServeCmd(o))
	return cmd
}

func (o *options) openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path := cfg.GetHistoryDB()
	if path == "" {
		return nil, errors.New("no history database configured; set --history-db or history_db")
	}
	if !(fsutil.OSFileSystem{}).Exists(path) {
		return nil, fmt.Errorf("no history database at %s; record a run with --history-db first", path)
	}
	return history.Open(path)
}

func newHistoryListCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s  %-20s  %9s  %7s  %9s  %s\n", "RUN", "STARTED", "THRESHOLD", "POINTS", "EXCEEDING", "RESULT")
			for _, r := range runs {
				result := fmt.Sprintf("%.2f%%", r.ExceedingPercentage)
				if r.Error != "" {
					result = "error: " + r.Error
				}
				fmt.Fprintf(out, "%-36s  %-20s  %9g  %7d  %9d  %s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Threshold, r.Total, r.Exceeding, result)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryServeCmd(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history API and a SQL console on /debug/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			mux := http.NewServeMux()
			if err := store.AttachAdminRoutes(mux); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			errc := make(chan error, 1)
			go func() {
				monitoring.Logf("history server listening on %s", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			monitoring.Logf("shutting down history server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				monitoring.Logf("history server shutdown error: %v", err)
				return server.Close()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8090", "Listen address")
	return cmd
}
