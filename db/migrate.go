package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/hmdraft/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migration is one embedded schema step
type Migration struct {
	Version string // numeric filename prefix, e.g. "001"
	Name    string
	SQL     string
}

// Migrations returns the embedded migrations sorted by version.
// 000_create_schema_migrations.sql always sorts first.
func Migrations() ([]Migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		body, err := migrations.ReadFile(path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", entry.Name())
		}
		out = append(out, Migration{
			Version: strings.SplitN(entry.Name(), "_", 2)[0],
			Name:    entry.Name(),
			SQL:     string(body),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Migrate runs all pending migrations in version order.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	all, err := Migrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		done, err := isApplied(db, m.Version)
		if err != nil {
			return errors.Wrapf(err, "check %s", m.Name)
		}
		if done {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", m.Name)
			}
			continue
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", m.Name, "version", m.Version)
		}
		if err := apply(db, m); err != nil {
			return err
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"total_migrations", len(all),
			"applied", applied,
		)
	}
	return nil
}

// isApplied reports whether version is recorded. Before 000 has run the
// schema_migrations table does not exist, which only 000 may tolerate.
func isApplied(db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	if err != nil {
		if version == "000" {
			return false, nil
		}
		return false, errors.Wrapf(err, "schema_migrations table missing, but migration is not 000: %s", version)
	}
	return exists, nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.Name)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return errors.Wrapf(err, "execute %s", m.Name)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return errors.Wrapf(err, "record %s", m.Name)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.Name)
}

// AppliedVersions lists recorded migration versions in order
func AppliedVersions(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, "query schema_migrations")
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan version")
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
