// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build !libdqlite

package driver

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// DqliteConfig locates a dqlite node and the cluster it joins.
type DqliteConfig struct {
	Dir     string
	Address string
	Cluster []string
}

// ErrNoDqlite is returned by OpenDqlite in builds without dqlite support.
var ErrNoDqlite = errors.New("dqlite support not built in (build with -tags libdqlite)")

// OpenDqlite fails: dqlite needs the libdqlite build tag.
func OpenDqlite(ctx context.Context, cfg DqliteConfig, name string, logger *slog.Logger) (Native, error) {
	return nil, ErrNoDqlite
}
