package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	dbfs "github.com/dynamicdna/academy/db"
	"github.com/dynamicdna/academy/internal/config"
	"github.com/dynamicdna/academy/internal/db"
	"github.com/dynamicdna/academy/internal/repository/sqlrepo"
)

type rootOptions struct {
	configPath  string
	databaseURL string
	verbose     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "academyctl",
		Short:         "Maintenance commands for the academy backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelInfo
			}
			db.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config YAML file")
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Database URL (overrides DATABASE_URL)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log migration progress")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newUserCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	return cmd
}

// resolveURL picks the database URL from the flag, then the config file and environment.
func (o *rootOptions) resolveURL() (string, error) {
	if o.databaseURL != "" {
		return o.databaseURL, nil
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", errors.New("no database configured: pass --database-url or set DATABASE_URL")
	}
	return cfg.DatabaseURL, nil
}

// open connects and migrates, so every command sees the current schema.
func (o *rootOptions) open(ctx context.Context) (*db.Provider, error) {
	u, err := o.resolveURL()
	if err != nil {
		return nil, err
	}
	p := db.NewProvider(u, dbfs.Migrations)
	if _, err := p.Get(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (o *rootOptions) repo(ctx context.Context) (*sqlrepo.Repo, func(), error) {
	p, err := o.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return sqlrepo.New(p, sqlrepo.WithLogger(quiet)), func() { p.Close() }, nil
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrated successfully.")
			return nil
		},
	}
}
