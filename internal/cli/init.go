package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vbranch/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the run store",
		Long:  "Write the default config.yaml if none exists, then create the run store.\nRunning init again leaves an existing configuration untouched.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	// config.yaml was written while loading the session.
	store, err := sess.openStore()
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return systemError(fmt.Errorf("finalize store: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config: %s\n", filepath.Join(sess.configDir, config.FileExt))
	fmt.Fprintf(out, "Store:  %s\n", sess.cfg.StoreDir)
	fmt.Fprintln(out, "vbranch initialized successfully")
	return nil
}
