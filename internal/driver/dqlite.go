// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build libdqlite

package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canonical/go-dqlite/app"
)

// DqliteConfig locates a dqlite node and the cluster it joins.
type DqliteConfig struct {
	// Dir holds the node's data.
	Dir string
	// Address is the address the node listens on.
	Address string
	// Cluster lists the addresses of existing nodes to join. It is empty
	// for the first node.
	Cluster []string
}

// dqliteDB closes the dqlite node along with the database.
type dqliteDB struct {
	*DB
	node *app.App
}

func (db *dqliteDB) Close() error {
	err := db.DB.Close()
	if herr := db.node.Handover(context.Background()); herr != nil {
		db.logger.Warn("dqlite handover failed", "err", herr)
	}
	if cerr := db.node.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenDqlite starts a dqlite node and opens the named database on it.
func OpenDqlite(ctx context.Context, cfg DqliteConfig, name string, logger *slog.Logger) (Native, error) {
	opts := []app.Option{}
	if cfg.Address != "" {
		opts = append(opts, app.WithAddress(cfg.Address))
	}
	if len(cfg.Cluster) > 0 {
		opts = append(opts, app.WithCluster(cfg.Cluster))
	}
	node, err := app.New(cfg.Dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot start dqlite node: %w", err)
	}
	if err := node.Ready(ctx); err != nil {
		node.Close()
		return nil, fmt.Errorf("dqlite node not ready: %w", err)
	}
	sqldb, err := node.Open(ctx, name)
	if err != nil {
		node.Close()
		return nil, fmt.Errorf("cannot open dqlite database %q: %w", name, err)
	}
	return &dqliteDB{DB: New(sqldb, SQLite, logger), node: node}, nil
}
