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

// ChannelRow is one row of the channels table.
type ChannelRow struct {
	ID               int64
	InputID          string
	DisplayNumber    string
	DisplayName      string
	LogoURI          string
	VideoWidth       int
	VideoHeight      int
	AudioChannels    int
	HasClosedCaption bool
}

const channelColumns = `_id, input_id, display_number, display_name, logo_uri, video_width, video_height, audio_channels, has_closed_caption`

func scanChannel(sc interface{ Scan(...any) error }) (ChannelRow, error) {
	var (
		c                 ChannelRow
		name, logo        sql.NullString
		width, height, ac sql.NullInt64
		cc                int
	)
	if err := sc.Scan(&c.ID, &c.InputID, &c.DisplayNumber, &name, &logo, &width, &height, &ac, &cc); err != nil {
		return c, err
	}
	c.DisplayName = name.String
	c.LogoURI = logo.String
	c.VideoWidth = int(width.Int64)
	c.VideoHeight = int(height.Int64)
	c.AudioChannels = int(ac.Int64)
	c.HasClosedCaption = cc != 0
	return c, nil
}

// QueryChannels returns every channel registered for inputID in insertion order.
func (p *Provider) QueryChannels(ctx context.Context, inputID string) ([]ChannelRow, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE input_id = ? ORDER BY _id`, inputID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChannelRow
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChannel returns channel id or ErrNotFound.
func (p *Provider) GetChannel(ctx context.Context, id int64) (ChannelRow, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE _id = ?`, id)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ChannelRow{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return c, err
}

// InsertChannels inserts rows for inputID in one transaction and returns their ids.
func (p *Provider) InsertChannels(ctx context.Context, inputID string, rows []ChannelRow) ([]int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO channels (input_id, display_number, display_name, logo_uri, video_width, video_height, audio_channels, has_closed_caption)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		cc := 0
		if r.HasClosedCaption {
			cc = 1
		}
		res, err := stmt.ExecContext(ctx, inputID, r.DisplayNumber, nullString(r.DisplayName), nullString(r.LogoURI),
			r.VideoWidth, r.VideoHeight, r.AudioChannels, cc)
		if err != nil {
			return nil, fmt.Errorf("insert channel %q: %w", r.DisplayNumber, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.notify(TableChannels, ChannelURI(id))
	}
	return ids, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
