// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProgramRow is one guide entry.
type ProgramRow struct {
	ID                 int64
	ChannelID          int64
	Title              string
	ShortDescription   string
	PosterArtURI       string
	StartTimeUTCMillis int64
	EndTimeUTCMillis   int64
}

const programColumns = `_id, channel_id, title, short_description, poster_art_uri, start_time_utc_millis, end_time_utc_millis`

func scanProgram(sc interface{ Scan(...any) error }) (ProgramRow, error) {
	var (
		pr                  ProgramRow
		title, desc, poster sql.NullString
	)
	if err := sc.Scan(&pr.ID, &pr.ChannelID, &title, &desc, &poster, &pr.StartTimeUTCMillis, &pr.EndTimeUTCMillis); err != nil {
		return pr, err
	}
	pr.Title = title.String
	pr.ShortDescription = desc.String
	pr.PosterArtURI = poster.String
	return pr, nil
}

func (p *Provider) queryPrograms(ctx context.Context, query string, args ...any) ([]ProgramRow, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ProgramRow
	for rows.Next() {
		pr, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// ProgramsAt returns the programs of channelID whose window covers atMillis,
// both ends inclusive.
func (p *Provider) ProgramsAt(ctx context.Context, channelID, atMillis int64) ([]ProgramRow, error) {
	return p.ListPrograms(ctx, channelID, atMillis, atMillis)
}

// ListPrograms returns the programs of channelID overlapping [from, to], ordered by start time.
func (p *Provider) ListPrograms(ctx context.Context, channelID, from, to int64) ([]ProgramRow, error) {
	return p.queryPrograms(ctx, `SELECT `+programColumns+` FROM programs
	WHERE channel_id = ? AND start_time_utc_millis <= ? AND end_time_utc_millis >= ?
	ORDER BY start_time_utc_millis, _id`, channelID, to, from)
}

// AllPrograms returns every program overlapping [from, to] across channels.
func (p *Provider) AllPrograms(ctx context.Context, from, to int64) ([]ProgramRow, error) {
	return p.queryPrograms(ctx, `SELECT `+programColumns+` FROM programs
	WHERE start_time_utc_millis <= ? AND end_time_utc_millis >= ?
	ORDER BY channel_id, start_time_utc_millis, _id`, to, from)
}

// CurrentProgram returns the program airing on channelID at nowMillis
// (start inclusive, end exclusive) or ErrNotFound.
func (p *Provider) CurrentProgram(ctx context.Context, channelID, nowMillis int64) (ProgramRow, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs
	WHERE channel_id = ? AND start_time_utc_millis <= ? AND end_time_utc_millis > ?
	ORDER BY start_time_utc_millis DESC, _id DESC LIMIT 1`, channelID, nowMillis, nowMillis)
	pr, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgramRow{}, fmt.Errorf("current program of channel %d: %w", channelID, ErrNotFound)
	}
	return pr, err
}

// InsertProgram stores pr and returns its URI.
func (p *Provider) InsertProgram(ctx context.Context, pr ProgramRow) (string, error) {
	if pr.EndTimeUTCMillis < pr.StartTimeUTCMillis {
		return "", fmt.Errorf("insert program: end %d before start %d", pr.EndTimeUTCMillis, pr.StartTimeUTCMillis)
	}
	res, err := p.db.ExecContext(ctx, `
	INSERT INTO programs (channel_id, title, short_description, poster_art_uri, start_time_utc_millis, end_time_utc_millis)
	VALUES (?, ?, ?, ?, ?, ?)`,
		pr.ChannelID, nullString(pr.Title), nullString(pr.ShortDescription), nullString(pr.PosterArtURI),
		pr.StartTimeUTCMillis, pr.EndTimeUTCMillis)
	if err != nil {
		return "", fmt.Errorf("insert program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	uri := ProgramURI(id)
	p.notify(TablePrograms, uri)
	return uri, nil
}
