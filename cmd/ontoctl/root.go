package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ontomap/internal/store"
	"ontomap/internal/store/memory"
	"ontomap/pkg/config"
	"ontomap/pkg/logger"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Backend  string
	Snapshot string
	Graph    string

	conn *store.Connection
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ontoctl",
		Short:         "Inspect the statements of an ontology store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.conn != nil {
				_ = opts.conn.Close()
			}
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend, overrides STORE_BACKEND (memory|sqlite|postgres|neo4j)")
	cmd.PersistentFlags().StringVar(&opts.Snapshot, "snapshot", "", "msgpack snapshot loaded into the memory backend")
	cmd.PersistentFlags().StringVarP(&opts.Graph, "graph", "g", "", "named graph, defaults to ONTO_DEFAULT_CONTEXT")

	cmd.AddCommand(newDescribeCommand(opts))
	cmd.AddCommand(newContainsCommand(opts))
	cmd.AddCommand(newListCommand(opts))

	return cmd
}

// open loads configuration, initializes logging and connects to the store.
func (o *rootOptions) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.Backend != "" {
		cfg.StoreBackend = o.Backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("graph") {
		o.Graph = cfg.DefaultContext
	}
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	conn, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	o.conn = conn

	if o.Snapshot == "" {
		return nil
	}
	mem, ok := conn.Backend().(*memory.Store)
	if !ok {
		return fmt.Errorf("--snapshot requires the %s backend", config.BackendMemory)
	}
	data, err := os.ReadFile(o.Snapshot)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := mem.Restore(data); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	logger.Get().Debug("Snapshot restored", zap.String("path", o.Snapshot), zap.Int("statements", mem.Len()))
	return nil
}
