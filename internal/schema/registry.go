// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"sort"
	"sync"
)

// Change is a registry update deferred until the transaction that produced
// it has committed. A nil Table removes the named table.
type Change struct {
	Name  string
	Table *Table
}

// Registry is the connection scoped store of table schemas. Builders only
// read from it; it is written exclusively by the post-commit step of a
// transaction, through Apply.
type Registry struct {
	name   string
	mutex  sync.RWMutex
	tables map[string]*Table
}

// NewRegistry returns an empty registry for the named database.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, tables: map[string]*Table{}}
}

// Name returns the database name.
func (r *Registry) Name() string {
	return r.name
}

// Table looks up a table by name.
func (r *Registry) Table(name string) (*Table, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Tables returns every table sorted by name.
func (r *Registry) Tables() []*Table {
	r.mutex.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mutex.RUnlock()

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name() < tables[j].Name()
	})
	return tables
}

// Apply performs the changes in order. Readers never observe a state where
// only some of the changes have been applied.
func (r *Registry) Apply(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, c := range changes {
		if c.Table == nil {
			delete(r.tables, c.Name)
			continue
		}
		r.tables[c.Name] = c.Table
	}
}
