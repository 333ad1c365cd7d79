// Package cli wires configuration, logging and the store into the taskboard commands
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/auth"
	"github.com/tgienger/taskboard/internal/config"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/logging"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
)

// app is the state shared by every command of one invocation
type app struct {
	cfgFile string
	as      string
	cfg     *config.Config
	out     io.Writer
}

// NewRootCmd builds the command tree. The TUI is the default action.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Projects, tasks and who changed what",
		Long: `taskboard tracks projects and their tasks. Every task change is written to an
audit trail and the people affected are notified.

Run without a subcommand to open the terminal UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/taskboard/config.yaml)")
	root.PersistentFlags().StringVar(&a.as, "as", "", "act as this user (default: the configured admin)")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newMigrateCmd(a),
		newUserCmd(a),
		newSeedCmd(a),
		newNotifyCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args
func Execute(version string) error {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	// a missing .env is normal
	_ = godotenv.Overload()

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	return logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stderr: cmd.Name() == "serve",
		Source: "taskboard",
	})
}

// open returns a migrated store and a service over it, creating the first admin if needed
func (a *app) open(ctx context.Context) (*services.Service, *db.DB, error) {
	store, err := db.New(a.cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	svc := services.New(store, services.WithTokens(auth.NewTokens(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)))
	created, err := svc.EnsureAdmin(ctx, a.cfg.Admin.Username, a.cfg.Admin.Password)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logging.Logger.WithField("username", a.cfg.Admin.Username).Warn("created initial admin account")
	}
	return svc, store, nil
}

// actor resolves the --as user, falling back to the configured admin
func (a *app) actor(ctx context.Context, svc *services.Service) (*models.User, error) {
	name := a.as
	if name == "" {
		name = a.cfg.Admin.Username
	}
	u, err := svc.UserByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("act as %q: %w", name, err)
	}
	return u, nil
}
