//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	logx "rebootplan/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const counterKey = "task_id_counter"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
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

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (State, error) {
	if s == nil || s.db == nil {
		return State{NextID: 1}, ErrDisabled
	}
	st := State{NextID: 1}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, server_id, server_name, date, time, status FROM reboot_tasks`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r taskRecord
		var date string
		if err := rows.Scan(&r.ID, &r.ServerID, &r.ServerName, &date, &r.Time, &r.Status); err != nil {
			return st, err
		}
		at, perr := time.Parse(time.RFC3339, date)
		if perr != nil {
			s.log.Warn("skipping task with unreadable date",
				logx.String("id", r.ID), logx.Err(perr))
			continue
		}
		r.Date = at.Local()
		st.Tasks = append(st.Tasks, migrateRecord(r))
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	var raw string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, counterKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Keep default.
	case err != nil:
		return st, err
	default:
		if n, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); perr == nil && n >= 1 {
			st.NextID = n
		}
	}

	return st, nil
}

func (s *sqliteStore) Save(ctx context.Context, st State) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reboot_tasks`); err != nil {
		return err
	}
	for _, t := range st.Tasks {
		r := toRecord(t)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reboot_tasks(id, server_id, server_name, date, time, status)
			 VALUES(?,?,?,?,?,?)`,
			r.ID, r.ServerID, r.ServerName, r.Date.Format(time.RFC3339), r.Time, r.Status)
		if err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		counterKey, strconv.FormatInt(st.NextID, 10))
	if err != nil {
		return err
	}
	return tx.Commit()
}
