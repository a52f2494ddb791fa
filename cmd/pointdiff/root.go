package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/pointdiff/internal/config"
	"github.com/banshee-data/pointdiff/internal/monitoring"
)

// options holds the flags shared by every subcommand.
type options struct {
	configPath string
	verbose    bool
	logFile    string

	keyColumns      []string
	positionColumns []string
	duplicates      string
	renderer        string
	axisOrder       string
	outputDir       string
	imageFormat     string
	listen          string
	noOpen          bool
	agreement       bool
	export          bool
	historyDB       string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&options{})
}

func newRootCmdWithOptions(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pointdiff",
		Short: "Compare two point-cloud CSV exports against a deviation threshold",
		Long: `pointdiff joins two point-cloud CSV exports on their pixel key, flags
every point whose X, Y or Z moved by more than a threshold, prints a
summary and renders the cloud.

Run without arguments to start the interactive shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.initLogging(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, o)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "Path to a .json or .yaml config file")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	f.StringVar(&o.logFile, "log-file", "", "Write logs to this file instead of stderr (the shell uses "+shellLogFile+" when verbose)")
	f.StringSliceVar(&o.keyColumns, "key-columns", nil, "The two key column names (default //Pixel_X,Pixel_Y)")
	f.StringSliceVar(&o.positionColumns, "position-columns", nil, "The three position column names (default X,Y,Z)")
	f.StringVar(&o.duplicates, "duplicates", "", "Duplicate key policy: reject or fanout (default reject)")
	f.StringVar(&o.renderer, "renderer", "", "Renderer: static or viewer (default viewer)")
	f.StringVar(&o.axisOrder, "axis-order", "", "Axis permutation for display, e.g. xzy")
	f.StringVar(&o.outputDir, "output-dir", "", "Directory for images and exports (default pointdiff-output)")
	f.StringVar(&o.imageFormat, "format", "", "Static image format: png, svg or pdf (default png)")
	f.StringVar(&o.listen, "listen", "", "Viewer listen address (default 127.0.0.1:0)")
	f.BoolVar(&o.noOpen, "no-open", false, "Do not open the rendered output in a browser or viewer")
	f.BoolVar(&o.agreement, "agreement", false, "Print the agreement score")
	f.BoolVar(&o.export, "export", false, "Write the merged table as CSV to the output dir")
	f.StringVar(&o.historyDB, "history-db", "", "SQLite run history path (empty disables history)")

	cmd.AddCommand(newRunCmd(o), newHistoryCmd(o), newVersionCmd())
	return cmd
}

// shellLogFile receives verbose logs from the interactive shell, which owns
// the terminal.
const shellLogFile = "pointdiff-debug.log"

func (o *options) initLogging(cmd *cobra.Command) error {
	path := o.logFile
	if cmd.Parent() == nil && path == "" {
		if !o.verbose {
			monitoring.UseZap(nil)
			return nil
		}
		path = shellLogFile
	}

	var (
		logger *zap.Logger
		err    error
	)
	if path != "" {
		logger, err = monitoring.NewZapFileLogger(path, o.verbose)
	} else {
		logger, err = monitoring.NewZapLogger(o.verbose)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger
	monitoring.UseZap(logger)
	return nil
}

// loadConfig reads the config file, if any, and overlays the flags the
// operator set explicitly.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Empty()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	ov := config.Empty()
	if flags.Changed("key-columns") {
		ov.KeyColumns = o.keyColumns
	}
	if flags.Changed("position-columns") {
		ov.PositionColumns = o.positionColumns
	}
	if flags.Changed("duplicates") {
		ov.DuplicateKeys = config.String(o.duplicates)
	}
	if flags.Changed("renderer") {
		ov.Renderer = config.String(o.renderer)
	}
	if flags.Changed("axis-order") {
		ov.AxisOrder = config.String(o.axisOrder)
	}
	if flags.Changed("output-dir") {
		ov.OutputDir = config.String(o.outputDir)
	}
	if flags.Changed("format") {
		ov.ImageFormat = config.String(o.imageFormat)
	}
	if flags.Changed("listen") {
		ov.Listen = config.String(o.listen)
	}
	if flags.Changed("no-open") {
		ov.Open = config.Bool(!o.noOpen)
	}
	if flags.Changed("agreement") {
		ov.ReportAgreement = config.Bool(o.agreement)
	}
	if flags.Changed("export") {
		ov.ExportCSV = config.Bool(o.export)
	}
	if flags.Changed("history-db") {
		ov.HistoryDB = config.String(o.historyDB)
	}
	cfg.Overlay(ov)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
