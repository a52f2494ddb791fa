package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/shell"
)

func runShell(cmd *cobra.Command, o *options) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	var prog *tea.Program
	onReady := func(url string) {
		if prog != nil {
			prog.Send(shell.ViewerReadyMsg{URL: url})
		}
	}

	// The shell renders the report itself, so the pipeline prints nothing.
	p, closeHistory, err := newPipeline(cfg, fsutil.OSFileSystem{}, nil, false, onReady)
	if err != nil {
		return err
	}
	defer closeHistory()

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	m := shell.NewModel(shell.NewSession(p), dir, deviation.ReportOptions{Agreement: cfg.GetReportAgreement()})
	prog = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = prog.Run()
	return err
}
