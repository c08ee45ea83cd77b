// Package cli implements the vbranch command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	outDir    string
	storeDir  string
	workers   int
	verbose   bool
}

var (
	flags  rootFlags
	logger = zap.NewNop()
	sess   *session
)

// Commands annotated with skipConfig run without reading config.yaml.
const skipConfig = "vbranch/skip-config"

// NewRootCmd creates the top-level "vbranch" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	logger = zap.NewNop()
	sess = nil

	root := &cobra.Command{
		Use:     "vbranch",
		Short:   "Normalize embryo cell-type annotations and plot them",
		Long:    "vbranch maps free-text cell-type annotations onto a fixed embryo\ntaxonomy, colors a cached 2-D embedding by the result, and records each run.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/vbranch)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "input directory (default: current directory)")
	pf.StringVar(&flags.outDir, "out-dir", "", "output directory (default: ./out)")
	pf.StringVar(&flags.storeDir, "store-dir", "", "run store directory (default: $XDG_DATA_HOME/vbranch)")
	pf.IntVar(&flags.workers, "workers", 0, "labelling goroutines, 0 or 1 runs sequentially (default: config workers)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newTaxonomyCmd())
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newAssignCmd())
	root.AddCommand(newPlotCmd())
	root.AddCommand(newCoordsCmd())
	root.AddCommand(newRunsCmd())

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

func setup(cmd *cobra.Command, args []string) error {
	log, err := newLogger(flags.verbose)
	if err != nil {
		return systemError(fmt.Errorf("init logger: %w", err))
	}
	logger = log

	if cmd.Name() == "help" || cmd.Annotations[skipConfig] != "" ||
		(cmd.HasParent() && cmd.Parent().Name() == "completion") {
		return nil
	}
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	sess = s
	logger.Debug("Resolved directories",
		zap.String("config", s.configDir),
		zap.String("data", s.cfg.DataDir),
		zap.String("out", s.cfg.OutDir),
		zap.String("store", s.cfg.StoreDir))
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// sysError marks a failure of the environment rather than of the input.
type sysError struct{ err error }

func (e sysError) Error() string { return e.err.Error() }
func (e sysError) Unwrap() error { return e.err }

func systemError(err error) error {
	if err == nil {
		return nil
	}
	return sysError{err: err}
}

// exitCode maps err to a process exit code. Errors wrapped with systemError
// exit with 2; every other failure is attributed to the input.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se sysError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}
