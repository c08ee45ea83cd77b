package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vbranch/internal/config"
	"github.com/mesh-intelligence/vbranch/internal/paths"
	"github.com/mesh-intelligence/vbranch/internal/pipeline"
	"github.com/mesh-intelligence/vbranch/internal/sqlite"
	"github.com/mesh-intelligence/vbranch/pkg/taxonomy"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// session is the resolved configuration of one invocation.
type session struct {
	configDir string
	cfg       types.Config
}

// loadSession reads config.yaml, writing the default on first run, and
// applies the directory precedence flag > config.yaml > env > default.
func loadSession(cmd *cobra.Command) (*session, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, systemError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := config.Load(configDir)
	if err != nil {
		return nil, systemError(err)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	if cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, cfg.DataDir); err != nil {
		return nil, systemError(fmt.Errorf("resolve data dir: %w", err))
	}
	if cfg.OutDir, err = paths.ResolveOutDir(flags.outDir, cfg.OutDir); err != nil {
		return nil, systemError(fmt.Errorf("resolve out dir: %w", err))
	}
	if cfg.StoreDir, err = paths.ResolveStoreDir(flags.storeDir, cfg.StoreDir); err != nil {
		return nil, systemError(fmt.Errorf("resolve store dir: %w", err))
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flags.workers
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &session{configDir: configDir, cfg: cfg}, nil
}

// normalizer builds the reference normalizer extended with the aliases from
// config.yaml.
func (s *session) normalizer() (*taxonomy.Normalizer, error) {
	tax, err := taxonomy.ReferenceTaxonomy()
	if err != nil {
		return nil, err
	}
	extra, err := taxonomy.EntriesFromMap(tax, s.cfg.Aliases)
	if err != nil {
		return nil, fmt.Errorf("config aliases: %w", err)
	}
	return taxonomy.NewReferenceNormalizer(extra)
}

// openStore attaches the run store. The caller must Detach it.
func (s *session) openStore() (*sqlite.Backend, error) {
	store := sqlite.NewBackend()
	if err := store.Attach(s.cfg.StoreDir); err != nil {
		return nil, systemError(fmt.Errorf("attach store: %w", err))
	}
	return store, nil
}

// pipeline returns a pipeline recording into store.
func (s *session) pipeline(store *sqlite.Backend) (*pipeline.Pipeline, error) {
	n, err := s.normalizer()
	if err != nil {
		return nil, err
	}
	return pipeline.New(s.cfg, n, store, logger), nil
}
