package database

import (
	"bufio"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the schema history shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const ledgerTable = "schema_migrations"

// Migration is one versioned step of the schema history.
type Migration struct {
	Name     string
	Up       []string
	Down     []string
	Checksum string
}

// MigrationRecord is a row of the ledger.
type MigrationRecord struct {
	Name      string    `db:"name"`
	AppliedAt time.Time `db:"applied_at"`
	Checksum  string    `db:"checksum"`
}

// Migrator applies migrations in file-name order and records each one
// in the ledger so it runs exactly once.
type Migrator struct {
	db   *sqlx.DB
	fsys fs.FS
}

func NewMigrator(db *sqlx.DB, fsys fs.FS) *Migrator {
	return &Migrator{db: db, fsys: fsys}
}

// Load reads and parses every .sql file in the migration source.
func (m *Migrator) Load() ([]Migration, error) {
	names, err := fs.Glob(m.fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		mig, err := ParseMigration(strings.TrimSuffix(path.Base(name), ".sql"), data)
		if err != nil {
			return nil, err
		}
		out = append(out, mig)
	}
	return out, nil
}

// ParseMigration splits a migration file into its up and down
// statements. Sections start with "-- +migrate Up" and
// "-- +migrate Down"; statements end with a semicolon at end of line.
func ParseMigration(name string, data []byte) (Migration, error) {
	sum := sha256.Sum256(data)
	mig := Migration{Name: name, Checksum: hex.EncodeToString(sum[:])}

	var section *[]string
	var stmt strings.Builder
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, "-- +migrate Up"):
			section = &mig.Up
			continue
		case strings.EqualFold(trimmed, "-- +migrate Down"):
			section = &mig.Down
			continue
		case trimmed == "" || strings.HasPrefix(trimmed, "--"):
			continue
		}
		if section == nil {
			return Migration{}, fmt.Errorf("migration %s: statement before -- +migrate marker", name)
		}
		stmt.WriteString(line)
		stmt.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			*section = append(*section, strings.TrimSpace(stmt.String()))
			stmt.Reset()
		}
	}
	if err := sc.Err(); err != nil {
		return Migration{}, err
	}
	if strings.TrimSpace(stmt.String()) != "" {
		return Migration{}, fmt.Errorf("migration %s: unterminated statement", name)
	}
	if len(mig.Up) == 0 {
		return Migration{}, fmt.Errorf("migration %s: no up statements", name)
	}
	return mig, nil
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+ledgerTable+` (
		name       VARCHAR(255) NOT NULL PRIMARY KEY,
		applied_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		checksum   VARCHAR(64)  NOT NULL
	)`)
	return err
}

// Applied returns the ledger in application order.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationRecord, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var recs []MigrationRecord
	err := m.db.SelectContext(ctx, &recs,
		"SELECT name, applied_at, checksum FROM "+ledgerTable+" ORDER BY name")
	return recs, err
}

// Up applies every pending migration and returns the names applied.
// A migration whose file changed after it was applied stops the run.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	all, err := m.Load()
	if err != nil {
		return nil, err
	}
	recs, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]string, len(recs))
	for _, r := range recs {
		done[r.Name] = r.Checksum
	}

	var applied []string
	for _, mig := range all {
		if sum, ok := done[mig.Name]; ok {
			if sum != mig.Checksum {
				return applied, fmt.Errorf("migration %s was modified after it was applied", mig.Name)
			}
			continue
		}
		// MySQL commits DDL implicitly, so statements run one by one and
		// the ledger row is written last.
		for i, stmt := range mig.Up {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("migration %s statement %d: %w", mig.Name, i+1, err)
			}
		}
		if _, err := m.db.ExecContext(ctx,
			"INSERT INTO "+ledgerTable+" (name, checksum) VALUES (?, ?)", mig.Name, mig.Checksum); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", mig.Name, err)
		}
		log.Printf("migrate: applied %s", mig.Name)
		applied = append(applied, mig.Name)
	}
	return applied, nil
}

// Down reverts the most recently applied migration. It returns the
// reverted name, or "" when the ledger is empty.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	all, err := m.Load()
	if err != nil {
		return "", err
	}
	recs, err := m.Applied(ctx)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", nil
	}
	last := recs[len(recs)-1].Name
	var mig *Migration
	for i := range all {
		if all[i].Name == last {
			mig = &all[i]
		}
	}
	if mig == nil {
		return "", fmt.Errorf("migration %s is recorded but missing from the source", last)
	}
	for i, stmt := range mig.Down {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("revert %s statement %d: %w", mig.Name, i+1, err)
		}
	}
	if _, err := m.db.ExecContext(ctx, "DELETE FROM "+ledgerTable+" WHERE name = ?", mig.Name); err != nil {
		return "", err
	}
	log.Printf("migrate: reverted %s", mig.Name)
	return mig.Name, nil
}
