package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dynamicdna/academy/internal/db"
)

func newBackupCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of a SQLite database",
		Long: `Backup uses VACUUM INTO, so it is safe to run while the server is up.
MySQL deployments should use mysqldump instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer p.Close()
			d, err := p.Get(ctx)
			if err != nil {
				return err
			}
			if d.Dialect() != db.DialectSQLite {
				return errors.New("backup supports sqlite databases only; use mysqldump for mysql")
			}

			if out == "" {
				out = fmt.Sprintf("academy-%s.db.bak", time.Now().UTC().Format("20060102-150405"))
			}
			if _, err := os.Stat(out); err == nil {
				return fmt.Errorf("backup target %s already exists", out)
			}
			if _, err := d.Exec(ctx, "VACUUM INTO ?", out); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backup written to %s.\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Backup file path (default academy-<timestamp>.db.bak)")
	return cmd
}
