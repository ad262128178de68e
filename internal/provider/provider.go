// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/persistence/sqlite"
)

// Options controls how a provider is opened.
type Options struct {
	// SchemaVersion selects the column set. Zero means SchemaCurrent.
	SchemaVersion int
	// PackageName is stamped on recorded rows that do not carry one.
	PackageName string
	// Bus receives a Change for every write. Nil disables notifications.
	Bus bus.Bus
}

// Provider owns the TV provider schema and all access to it.
type Provider struct {
	db          *sql.DB
	ownsDB      bool
	version     int
	packageName string
	bus         bus.Bus

	colMu   sync.Mutex
	columns map[string]map[string]bool
}

// Open opens (or creates) the provider database at path and migrates it.
func Open(path string, opts Options) (*Provider, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	p, err := New(db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	p.ownsDB = true
	return p, nil
}

// New wraps an already opened database and runs migrations.
func New(db *sql.DB, opts Options) (*Provider, error) {
	version := opts.SchemaVersion
	if version == 0 {
		version = SchemaCurrent
	}
	if version < SchemaV1 || version > SchemaCurrent {
		return nil, fmt.Errorf("provider: unsupported schema version %d", version)
	}
	p := &Provider{
		db:          db,
		version:     version,
		packageName: opts.PackageName,
		bus:         opts.Bus,
		columns:     make(map[string]map[string]bool),
	}
	if err := p.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger := log.WithComponent("provider")
	logger.Debug().Int("schema_version", version).Msg("provider ready")
	return p, nil
}

// Close closes the database if the provider opened it.
func (p *Provider) Close() error {
	if !p.ownsDB {
		return nil
	}
	return p.db.Close()
}

// DB exposes the underlying handle for health checks.
func (p *Provider) DB() *sql.DB { return p.db }

// SchemaVersion reports the column set the provider was opened with.
func (p *Provider) SchemaVersion() int { return p.version }

func (p *Provider) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_id TEXT NOT NULL,
		display_number TEXT NOT NULL,
		display_name TEXT,
		logo_uri TEXT,
		video_width INTEGER,
		video_height INTEGER,
		audio_channels INTEGER,
		has_closed_caption INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS programs (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(_id) ON DELETE CASCADE,
		title TEXT,
		short_description TEXT,
		poster_art_uri TEXT,
		start_time_utc_millis INTEGER NOT NULL,
		end_time_utc_millis INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_channels_input ON channels(input_id);
	CREATE INDEX IF NOT EXISTS idx_programs_channel_window ON programs(channel_id, start_time_utc_millis, end_time_utc_millis);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	cols := []string{
		"_id INTEGER PRIMARY KEY AUTOINCREMENT",
		"package_name TEXT",
		"input_id TEXT NOT NULL",
		"channel_id INTEGER",
		"title TEXT",
		"season_display_number TEXT",
		"season_title TEXT",
		"episode_display_number TEXT",
		"episode_title TEXT",
		"start_time_utc_millis INTEGER",
		"end_time_utc_millis INTEGER",
		"broadcast_genre TEXT",
		"canonical_genre TEXT",
		"short_description TEXT",
		"long_description TEXT",
		"video_width INTEGER",
		"video_height INTEGER",
		"audio_language TEXT",
		"content_rating TEXT",
		"poster_art_uri TEXT",
		"thumbnail_uri TEXT",
		"searchable INTEGER NOT NULL DEFAULT 1",
		"recording_data_uri TEXT",
		"recording_data_bytes INTEGER",
		"recording_duration_millis INTEGER",
		"recording_expire_time_utc_millis INTEGER",
		"internal_provider_data BLOB",
		"version_number INTEGER",
	}
	if p.version >= SchemaV2 {
		cols = append(cols, "series_id TEXT")
	}
	recorded := "CREATE TABLE IF NOT EXISTS recorded_programs (\n\t\t" + strings.Join(cols, ",\n\t\t") + "\n\t)"
	if _, err := p.db.ExecContext(ctx, recorded); err != nil {
		return err
	}

	// A database created at version 1 and reopened at version 2 gains the column.
	if p.version >= SchemaV2 {
		ok, err := p.HasColumn(ctx, TableRecordedPrograms, ColumnSeriesID)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := p.db.ExecContext(ctx, `ALTER TABLE recorded_programs ADD COLUMN series_id TEXT`); err != nil {
				return err
			}
			p.forgetColumns(TableRecordedPrograms)
		}
	}
	return nil
}

// HasColumn reports whether table carries column. Results are cached per table.
func (p *Provider) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cols, err := p.tableColumns(ctx, table)
	if err != nil {
		return false, err
	}
	return cols[column], nil
}

func (p *Provider) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	p.colMu.Lock()
	defer p.colMu.Unlock()
	if cols, ok := p.columns[table]; ok {
		return cols, nil
	}
	switch table {
	case TableChannels, TablePrograms, TableRecordedPrograms:
	default:
		return nil, fmt.Errorf("provider: unknown table %q", table)
	}

	rows, err := p.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	p.columns[table] = cols
	return cols, nil
}

func (p *Provider) forgetColumns(table string) {
	p.colMu.Lock()
	delete(p.columns, table)
	p.colMu.Unlock()
}

// PackageName is stamped onto recorded programs inserted without one.
func (p *Provider) PackageName() string { return p.packageName }
