// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package driver

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize is the number of prepared statements kept by a DB.
const defaultCacheSize = 128

// cachedStmt is a prepared statement and the number of queries using it.
type cachedStmt struct {
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// statementCache caches the sql.Stmt prepared on a database for each query
// text. The least recently used statements are evicted once the cache is
// full. An evicted statement is closed as soon as no query uses it.
//
// The mutex must be locked when accessing the refs and evicted fields of a
// cachedStmt.
type statementCache struct {
	stmts  *lru.Cache[string, *cachedStmt]
	closed bool
	mutex  sync.Mutex
}

func newStatementCache(size int) *statementCache {
	sc := &statementCache{}
	stmts, err := lru.NewWithEvict(size, sc.onEvict)
	if err != nil {
		panic("internal error: " + err.Error())
	}
	sc.stmts = stmts
	return sc
}

// onEvict is called by the lru cache, with sc.mutex held, for every
// statement dropped from it.
func (sc *statementCache) onEvict(_ string, cs *cachedStmt) {
	cs.evicted = true
	if cs.refs == 0 {
		cs.stmt.Close()
	}
}

// prepareSubstrate is an object that queries can be prepared on, e.g. a sql.DB
// or sql.Conn. It is used in prepare.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// prepare returns the statement prepared for query, preparing it on ps if
// the cache does not hold it yet. The returned release function must be
// called once the statement is no longer used.
func (sc *statementCache) prepare(ctx context.Context, ps prepareSubstrate, query string) (*sql.Stmt, func(), error) {
	sc.mutex.Lock()
	if sc.closed {
		sc.mutex.Unlock()
		return nil, nil, sql.ErrConnDone
	}
	if cs, ok := sc.stmts.Get(query); ok {
		cs.refs++
		sc.mutex.Unlock()
		return cs.stmt, sc.releaser(cs), nil
	}
	sc.mutex.Unlock()

	stmt, err := ps.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if sc.closed {
		stmt.Close()
		return nil, nil, sql.ErrConnDone
	}
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if cs, ok := sc.stmts.Get(query); ok {
		stmt.Close()
		cs.refs++
		return cs.stmt, sc.releaser(cs), nil
	}
	cs := &cachedStmt{stmt: stmt, refs: 1}
	sc.stmts.Add(query, cs)
	return stmt, sc.releaser(cs), nil
}

func (sc *statementCache) releaser(cs *cachedStmt) func() {
	return func() {
		sc.mutex.Lock()
		defer sc.mutex.Unlock()
		cs.refs--
		if cs.refs == 0 && cs.evicted {
			cs.stmt.Close()
		}
	}
}

// len returns the number of cached statements.
func (sc *statementCache) len() int {
	return sc.stmts.Len()
}

// close evicts every cached statement. Later calls to prepare fail.
func (sc *statementCache) close() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.closed = true
	sc.stmts.Purge()
}
