package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/shell"
)

func newRunCmd(o *options) *cobra.Command {
	var (
		threshold string
		stats     bool
	)
	cmd := &cobra.Command{
		Use:   "run --threshold T FIRST.csv SECOND.csv",
		Short: "Compare two exports once and render the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			out := cmd.OutOrStdout()
			onReady := func(target string) {
				fmt.Fprintf(out, "showing %s; press Enter to close\n", target)
				go func() {
					_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					cancel()
				}()
			}

			color := out == os.Stdout && isTerminal(os.Stdout)
			p, closeHistory, err := newPipeline(cfg, fsutil.OSFileSystem{}, out, color, onReady)
			if err != nil {
				return err
			}
			defer closeHistory()
			p.PrintStats = stats

			s := shell.NewSession(p)
			if err := s.EnterThreshold(threshold); err != nil {
				return err
			}
			if err := s.SelectFiles(args[0], args[1]); err != nil {
				return err
			}
			res, err := s.Process(ctx)
			if err != nil {
				return err
			}
			if res.Export != "" {
				fmt.Fprintf(out, "merged table: %s\n", res.Export)
			}
			if res.Output != "" {
				fmt.Fprintf(out, "output: %s\n", res.Output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&threshold, "threshold", "t", "", "Deviation threshold, in the same unit as X, Y and Z")
	cmd.Flags().BoolVar(&stats, "stats", false, "Also print per-axis deviation statistics")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}
