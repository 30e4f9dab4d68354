// Package store persists albums, assets, source toggles and scheduler
// settings in a local sqlite database. The source-name string mapping lives
// entirely in this package; everything above it works with source.Type.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const (
	settingInterval    = "shuffle_interval"
	settingMode        = "scaling_mode"
	settingAllDesktops = "all_desktops"
)

// Store is the sqlite-backed pool.AlbumRepository.
type Store struct {
	db *sql.DB
}

var _ pool.AlbumRepository = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(string(b))
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// sourceName maps a source.Type to its persisted identifier. The numeric
// enum value is never stored.
func sourceName(t source.Type) string {
	switch t {
	case source.ApplePhotos:
		return "apple_photos"
	case source.LightroomCloud:
		return "lightroom_cloud"
	default:
		return fmt.Sprintf("unknown_%d", int(t))
	}
}

func sourceFromName(name string) (source.Type, error) {
	switch name {
	case "apple_photos":
		return source.ApplePhotos, nil
	case "lightroom_cloud":
		return source.LightroomCloud, nil
	default:
		return 0, fmt.Errorf("unknown source name %q", name)
	}
}

// SelectedAlbums returns every selected album across all sources.
func (s *Store) SelectedAlbums() ([]pool.AlbumRecord, error) {
	rows, err := s.db.Query(
		`SELECT source, id, name, asset_count, selected FROM albums WHERE selected = 1 ORDER BY source, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// AlbumsBySource returns every known album for a source.
func (s *Store) AlbumsBySource(src source.Type) ([]pool.AlbumRecord, error) {
	rows, err := s.db.Query(
		`SELECT source, id, name, asset_count, selected FROM albums WHERE source = ? ORDER BY name`,
		sourceName(src))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

func scanAlbums(rows *sql.Rows) ([]pool.AlbumRecord, error) {
	var out []pool.AlbumRecord
	for rows.Next() {
		var rec pool.AlbumRecord
		var srcName string
		var selected int
		if err := rows.Scan(&srcName, &rec.ID, &rec.Name, &rec.AssetCount, &selected); err != nil {
			return nil, err
		}
		src, err := sourceFromName(srcName)
		if err != nil {
			return nil, err
		}
		rec.Source = src
		rec.Selected = selected != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Album returns one album, or nil when it does not exist.
func (s *Store) Album(src source.Type, albumID string) (*pool.AlbumRecord, error) {
	row := s.db.QueryRow(
		`SELECT name, asset_count, selected FROM albums WHERE source = ? AND id = ?`,
		sourceName(src), albumID)
	rec := pool.AlbumRecord{ID: albumID, Source: src}
	var selected int
	err := row.Scan(&rec.Name, &rec.AssetCount, &selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Selected = selected != 0
	return &rec, nil
}

// UpsertAlbums inserts or refreshes album rows, preserving the Selected flag
// of rows that already exist.
func (s *Store) UpsertAlbums(src source.Type, albums []source.Album) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range albums {
		if _, err := tx.Exec(
			`INSERT INTO albums(source, id, name, asset_count, selected) VALUES(?,?,?,?,0)
			 ON CONFLICT(source, id) DO UPDATE SET name=excluded.name, asset_count=excluded.asset_count`,
			sourceName(src), a.ID, a.Name, a.Count,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetAlbumSelected flips the selection flag and reports whether the stored
// value changed.
func (s *Store) SetAlbumSelected(src source.Type, albumID string, selected bool) (bool, error) {
	val := 0
	if selected {
		val = 1
	}
	res, err := s.db.Exec(
		`UPDATE albums SET selected = ? WHERE source = ? AND id = ? AND selected != ?`,
		val, sourceName(src), albumID, val)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetAssetCount updates the cached album size.
func (s *Store) SetAssetCount(src source.Type, albumID string, count int) error {
	_, err := s.db.Exec(
		`UPDATE albums SET asset_count = ? WHERE source = ? AND id = ?`,
		count, sourceName(src), albumID)
	return err
}

// AssetIDs returns the stored asset IDs of an album.
func (s *Store) AssetIDs(src source.Type, albumID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM assets WHERE source = ? AND album_id = ? ORDER BY id`,
		sourceName(src), albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertAssets replaces the stored asset list of an album in one transaction.
func (s *Store) InsertAssets(src source.Type, albumID string, assetIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM assets WHERE source = ? AND album_id = ?`,
		sourceName(src), albumID,
	); err != nil {
		return err
	}
	for _, id := range assetIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO assets(source, album_id, id) VALUES(?,?,?)`,
			sourceName(src), albumID, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteAssets removes all stored assets of an album.
func (s *Store) DeleteAssets(src source.Type, albumID string) error {
	_, err := s.db.Exec(
		`DELETE FROM assets WHERE source = ? AND album_id = ?`,
		sourceName(src), albumID)
	return err
}

// SourceEnabled reports the source toggle; sources without a row default to
// enabled.
func (s *Store) SourceEnabled(src source.Type) (bool, error) {
	var enabled int
	err := s.db.QueryRow(
		`SELECT enabled FROM sources WHERE source = ?`, sourceName(src)).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return enabled != 0, nil
}

// SetSourceEnabled persists the source toggle.
func (s *Store) SetSourceEnabled(src source.Type, enabled bool) error {
	val := 0
	if enabled {
		val = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO sources(source, enabled) VALUES(?,?)
		 ON CONFLICT(source) DO UPDATE SET enabled=excluded.enabled`,
		sourceName(src), val)
	return err
}

// Settings returns persisted scheduler settings, with defaults for keys that
// were never saved.
func (s *Store) Settings() (pool.Settings, error) {
	out := pool.Settings{
		Interval:    30 * time.Minute,
		Mode:        setter.ModeFill,
		AllDesktops: true,
	}

	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, err
		}
		switch key {
		case settingInterval:
			d, err := time.ParseDuration(value)
			if err != nil {
				return out, fmt.Errorf("stored interval %q: %w", value, err)
			}
			out.Interval = d
		case settingMode:
			m, err := setter.ParseScalingMode(value)
			if err != nil {
				return out, err
			}
			out.Mode = m
		case settingAllDesktops:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return out, fmt.Errorf("stored all_desktops %q: %w", value, err)
			}
			out.AllDesktops = b
		}
	}
	return out, rows.Err()
}

// SaveSettings persists scheduler settings.
func (s *Store) SaveSettings(settings pool.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pairs := map[string]string{
		settingInterval:    settings.Interval.String(),
		settingMode:        settings.Mode.String(),
		settingAllDesktops: strconv.FormatBool(settings.AllDesktops),
	}
	for key, value := range pairs {
		if _, err := tx.Exec(
			`INSERT INTO settings(key, value) VALUES(?,?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
			key, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
