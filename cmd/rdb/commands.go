// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/canonical/rdb"
)

func newTablesCommand(cmd *command) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			conn, err := cmd.open(c.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			out := c.OutOrStdout()
			for _, name := range conn.Schema().Tables() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newDescribeCommand(cmd *command) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			conn, err := cmd.open(c.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			t, err := lookupTable(conn, args[0])
			if err != nil {
				return err
			}
			data := pterm.TableData{{"column", "type", "not null"}}
			for _, col := range t.Columns() {
				data = append(data, []string{col.Name(), string(col.Type()), strconv.FormatBool(col.NotNull())})
			}
			return renderTable(c.OutOrStdout(), data)
		},
	}
}

func newQueryCommand(cmd *command) *cobra.Command {
	var where []string
	var columns []string
	var limit int
	query := &cobra.Command{
		Use:   "query <table>",
		Short: "Select rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			conn, err := cmd.open(c.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			t, err := lookupTable(conn, args[0])
			if err != nil {
				return err
			}
			q, projected, err := buildQuery(conn, t, columns, where, limit)
			if err != nil {
				return err
			}
			sql, err := q.SQL()
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			fmt.Fprintln(out, color.New(color.Faint).Sprint(sql))

			rows, err := conn.Query(c.Context(), q)
			if err != nil {
				return err
			}
			header := make([]string, len(projected))
			for i, col := range projected {
				header[i] = col.Name()
			}
			data := pterm.TableData{header}
			for _, row := range rows {
				line := make([]string, len(projected))
				for i, col := range projected {
					line[i] = formatCell(col, row[col.Name()])
				}
				data = append(data, line)
			}
			if err := renderTable(out, data); err != nil {
				return err
			}
			fmt.Fprintln(out, color.GreenString("%d row(s)", len(rows)))
			return nil
		},
	}
	query.Flags().StringArrayVar(&where, "where", nil, "condition column=value, may be repeated")
	query.Flags().StringSliceVar(&columns, "columns", nil, "columns to select, all if empty")
	query.Flags().IntVar(&limit, "limit", 0, "maximum number of rows, unlimited if 0")
	return query
}

func lookupTable(conn *rdb.Connection, name string) (*rdb.Table, error) {
	t := conn.Schema().Table(name)
	if t == nil {
		return nil, fmt.Errorf("table %q not found in database %s", name, conn.Name())
	}
	return t, nil
}

// buildQuery returns the select for the query command and the columns it
// projects.
func buildQuery(conn *rdb.Connection, t *rdb.Table, columns, where []string, limit int) (*rdb.SelectBuilder, []*rdb.Column, error) {
	projected := t.Columns()
	var selected []rdb.Selectable
	if len(columns) > 0 {
		projected = nil
		for _, name := range columns {
			col, ok := t.Column(name)
			if !ok {
				return nil, nil, fmt.Errorf("table %s has no column %q", t.Name(), name)
			}
			projected = append(projected, col)
			selected = append(selected, col)
		}
	}

	var preds []rdb.Predicate
	for _, cond := range where {
		name, raw, ok := strings.Cut(cond, "=")
		if !ok {
			return nil, nil, fmt.Errorf("condition %q is not of the form column=value", cond)
		}
		col, ok := t.Column(strings.TrimSpace(name))
		if !ok {
			return nil, nil, fmt.Errorf("table %s has no column %q", t.Name(), name)
		}
		v, err := parseValue(col.Type(), strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid value for %s: %w", col.Name(), err)
		}
		preds = append(preds, col.Eq(v))
	}

	q := conn.Select(selected...).From(t)
	switch len(preds) {
	case 0:
	case 1:
		q.Where(preds[0])
	default:
		q.Where(rdb.And(preds...))
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return q, projected, nil
}

// parseValue converts a command line value to the Go type of the column.
func parseValue(typ rdb.ColumnType, s string) (any, error) {
	switch typ {
	case rdb.Integer:
		return strconv.ParseInt(s, 10, 64)
	case rdb.Number:
		return strconv.ParseFloat(s, 64)
	case rdb.Boolean:
		return strconv.ParseBool(s)
	case rdb.Date:
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		return time.Parse(time.DateOnly, s)
	case rdb.Blob:
		return hex.DecodeString(s)
	}
	return s, nil
}

func formatCell(col *rdb.Column, v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case []byte:
		if col.Type() == rdb.Blob {
			return "0x" + hex.EncodeToString(v)
		}
		return string(v)
	case int64:
		switch col.Type() {
		case rdb.Date:
			return time.UnixMilli(v).UTC().Format(time.RFC3339)
		case rdb.Boolean:
			return strconv.FormatBool(v != 0)
		}
	}
	return fmt.Sprint(v)
}

func renderTable(w io.Writer, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}
