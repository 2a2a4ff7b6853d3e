// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canonical/rdb"
	"github.com/canonical/rdb/internal/config"
)

// command holds the state shared by the subcommands.
type command struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	cmd := &command{v: config.New()}

	root := &cobra.Command{
		Use:           "rdb",
		Short:         "Inspect and query rdb databases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return cmd.load(c)
		},
	}

	flags := root.PersistentFlags()
	flags.String(config.KeyDB, "", "name of the database")
	flags.String(config.KeyDir, ".", "directory of the database files")
	flags.String(config.KeyStorage, string(rdb.Persistent), "storage type: persistent, temporary or dqlite")
	flags.String(config.KeyAddress, "", "address of the dqlite node")
	flags.StringSlice(config.KeyCluster, nil, "addresses of the dqlite cluster")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	cmd.v.BindPFlags(flags)
	cmd.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newTablesCommand(cmd),
		newDescribeCommand(cmd),
		newQueryCommand(cmd),
	)
	return root
}

func (cmd *command) load(c *cobra.Command) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(cmd.v)
	if err != nil {
		return err
	}
	cmd.cfg = cfg
	cmd.logger = slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
	return nil
}

func (cmd *command) open(ctx context.Context) (*rdb.Connection, error) {
	return rdb.Open(ctx, cmd.cfg.DB, cmd.cfg.Options(cmd.logger))
}
