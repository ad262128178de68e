// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Values is a raw column→value row as stored by SQLite. Values are int64,
// float64, string, []byte or nil.
type Values map[string]any

func (p *Provider) checkColumns(ctx context.Context, table string, cols []string) error {
	known, err := p.tableColumns(ctx, table)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if !known[c] {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c)
		}
	}
	return nil
}

// QueryRecordedRows returns the named columns of every recorded program
// ordered by id. Empty columns selects every column.
func (p *Provider) QueryRecordedRows(ctx context.Context, columns []string) ([]Values, error) {
	return p.queryRecorded(ctx, columns, "", nil)
}

// GetRecordedRow returns one recorded program or ErrNotFound.
func (p *Provider) GetRecordedRow(ctx context.Context, id int64, columns []string) (Values, error) {
	rows, err := p.queryRecorded(ctx, columns, "WHERE _id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("recorded program %d: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

func (p *Provider) queryRecorded(ctx context.Context, columns []string, where string, args []any) ([]Values, error) {
	if len(columns) == 0 {
		known, err := p.tableColumns(ctx, TableRecordedPrograms)
		if err != nil {
			return nil, err
		}
		for c := range known {
			columns = append(columns, c)
		}
		sort.Strings(columns)
	} else if err := p.checkColumns(ctx, TableRecordedPrograms, columns); err != nil {
		return nil, err
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM recorded_programs " + where + " ORDER BY _id"
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recorded programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Values
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		v := make(Values, len(columns))
		for i, c := range columns {
			v[c] = dest[i]
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertRecordedRow stores values as a new recorded program and returns its URI.
// An explicit _id is honoured.
func (p *Provider) InsertRecordedRow(ctx context.Context, values Values) (string, error) {
	values = p.withPackage(values)
	cols := sortedKeys(values)
	if err := p.checkColumns(ctx, TableRecordedPrograms, cols); err != nil {
		return "", err
	}
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	query := "INSERT INTO recorded_programs (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("insert recorded program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	uri := RecordedProgramURI(id)
	p.notify(TableRecordedPrograms, uri)
	return uri, nil
}

// UpdateRecordedRow overwrites the given columns of recorded program id.
func (p *Provider) UpdateRecordedRow(ctx context.Context, id int64, values Values) error {
	delete(values, ColumnID)
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return nil
	}
	if err := p.checkColumns(ctx, TableRecordedPrograms, cols); err != nil {
		return err
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, values[c])
	}
	args = append(args, id)
	res, err := p.db.ExecContext(ctx, "UPDATE recorded_programs SET "+strings.Join(sets, ", ")+" WHERE _id = ?", args...)
	if err != nil {
		return fmt.Errorf("update recorded program %d: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	p.notify(TableRecordedPrograms, RecordedProgramURI(id))
	return nil
}

// DeleteRecorded removes recorded program id.
func (p *Provider) DeleteRecorded(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM recorded_programs WHERE _id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recorded program %d: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	p.notify(TableRecordedPrograms, RecordedProgramURI(id))
	return nil
}

func (p *Provider) withPackage(values Values) Values {
	if p.packageName == "" {
		return values
	}
	if v, ok := values[ColumnPackageName]; ok && v != nil {
		return values
	}
	out := make(Values, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out[ColumnPackageName] = p.packageName
	return out
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recorded program %d: %w", id, ErrNotFound)
	}
	return nil
}

func sortedKeys(v Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
