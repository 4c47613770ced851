// Package cli wires the peregrine command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deanwagman/peregrine/internal/config"
	"github.com/deanwagman/peregrine/internal/db"
	"github.com/deanwagman/peregrine/internal/logging"
	"github.com/deanwagman/peregrine/internal/repository"
	"github.com/deanwagman/peregrine/internal/service"
)

// runtime carries state shared by every command of one process run.
type runtime struct {
	args   []string
	cfg    config.Config
	logger *zap.SugaredLogger
}

// NewRootCmd creates the root command. args is the raw argument list, kept
// for the audit log.
func NewRootCmd(args []string) *cobra.Command {
	rt := &runtime{args: args, logger: zap.NewNop().Sugar()}

	rootCmd := &cobra.Command{
		Use:               "peregrine",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Filter entities and count their property values",
		Long: `peregrine reads entities from files or a relational store, keeps those that match
the requested models and property filters, and prints how often each property value occurs.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newAggregateCmd(rt))
	rootCmd.AddCommand(newLoadCmd(rt))
	rootCmd.AddCommand(newMigrateCmd(rt))
	rootCmd.AddCommand(newHistoryCmd(rt))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.SetArgs(args)
	return rootCmd
}

// Execute runs the command tree with args and returns the first error.
func Execute(ctx context.Context, args []string) error {
	return NewRootCmd(args).ExecuteContext(ctx)
}

func (rt *runtime) init(cmd *cobra.Command) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("failed to get debug flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, debug)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.logger = logger
	if cfg.Source != "" {
		logger.Debugw("Loaded config", "path", cfg.Source)
	}
	return nil
}

// openStore brings the schema up to date and connects to the database.
func (rt *runtime) openStore(ctx context.Context) (*db.Connection, error) {
	if err := db.MigrateUp(ctx, rt.cfg.Database, rt.logger); err != nil {
		return nil, err
	}
	return db.NewConnection(ctx, rt.cfg.Database, rt.logger)
}

func (rt *runtime) closeStore(conn *db.Connection) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		rt.logger.Warnw("Failed to close database", "error", err)
	}
}

// auditRecorder returns nil when auditing is disabled or conn is missing.
func (rt *runtime) auditRecorder(conn *db.Connection) *service.AuditRecorder {
	if !rt.cfg.Audit.Enabled || conn == nil {
		return nil
	}
	return service.NewAuditRecorder(repository.NewInvocationRepository(conn))
}

// recordFailure logs a failed run. It never changes the command's error.
func (rt *runtime) recordFailure(ctx context.Context, recorder *service.AuditRecorder) {
	if recorder == nil {
		return
	}
	if err := recorder.RecordFailure(ctx, rt.commandLine(), currentUser()); err != nil {
		rt.logger.Warnw("Failed to record invocation", "error", err)
	}
}

func (rt *runtime) commandLine() string {
	return strings.Join(append([]string{"peregrine"}, rt.args...), " ")
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

var errXLSXToTerminal = errors.New("xlsx output requires --out")
