package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"listing_engine/models"
)

// DirectoryStore is the local team-member directory used for lead routing.
type DirectoryStore struct {
	db *sql.DB
}

func NewDirectoryStore(dbPath string) (*DirectoryStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &DirectoryStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate directory: %w", err)
	}

	return store, nil
}

func (s *DirectoryStore) Close() error {
	return s.db.Close()
}

func (s *DirectoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DirectoryStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS team_members (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		email TEXT,
		mls_id TEXT,
		sold_mls_id TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS directory_imports (
		id INTEGER PRIMARY KEY,
		source TEXT,
		imported_at DATETIME,
		members INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_team_mls_id ON team_members(mls_id);
	CREATE INDEX IF NOT EXISTS idx_team_sold_mls_id ON team_members(sold_mls_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertTeamMember inserts or updates a member keyed by name.
func (s *DirectoryStore) UpsertTeamMember(ctx context.Context, m *models.TeamMember) error {
	return upsertTeamMember(ctx, s.db, m)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTeamMember(ctx context.Context, db execer, m *models.TeamMember) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("team member name is required")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO team_members (name, email, mls_id, sold_mls_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			email = excluded.email,
			mls_id = excluded.mls_id,
			sold_mls_id = excluded.sold_mls_id,
			updated_at = excluded.updated_at`,
		m.Name, nullIfEmpty(m.Email), nullIfEmpty(m.MLSID), nullIfEmpty(m.SoldMLSID), time.Now().UTC())
	return err
}

// TeamMembers returns the whole directory ordered by name.
func (s *DirectoryStore) TeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	return s.queryMembers(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(mls_id, ''), COALESCE(sold_mls_id, ''), updated_at
		FROM team_members ORDER BY name`)
}

// FindByAgentIDs returns members whose mls_id or sold_mls_id is one of ids.
func (s *DirectoryStore) FindByAgentIDs(ctx context.Context, ids []string) ([]models.TeamMember, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, id := range ids {
		args = append(args, id)
	}
	q := fmt.Sprintf(`
		SELECT id, name, COALESCE(email, ''), COALESCE(mls_id, ''), COALESCE(sold_mls_id, ''), updated_at
		FROM team_members
		WHERE mls_id IN (%s) OR sold_mls_id IN (%s)
		ORDER BY name`, placeholders, placeholders)
	return s.queryMembers(ctx, q, args...)
}

func (s *DirectoryStore) queryMembers(ctx context.Context, q string, args ...any) ([]models.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.MLSID, &m.SoldMLSID, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type directoryFile struct {
	Members []models.TeamMember `yaml:"members"`
}

// ImportFile loads members from a YAML file in one transaction and records
// the import. It returns the number of members written.
func (s *DirectoryStore) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read directory file: %w", err)
	}
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse directory file: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i := range file.Members {
		if err := upsertTeamMember(ctx, tx, &file.Members[i]); err != nil {
			return 0, fmt.Errorf("import member %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO directory_imports (source, imported_at, members) VALUES (?, ?, ?)`,
		path, time.Now().UTC(), len(file.Members)); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(file.Members), nil
}

// LastImport returns when the directory was last imported, or the zero time.
func (s *DirectoryStore) LastImport(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT imported_at FROM directory_imports ORDER BY id DESC LIMIT 1`).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
