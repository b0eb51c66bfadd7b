package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aussiebroadwan/sharebox/pkg/credstore/migrations"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// DefaultProfile is used when no profile name is given.
const DefaultProfile = "default"

// Profile describes one stored credential row without its secrets.
type Profile struct {
	Name               string
	BaseURL            string
	RefreshFingerprint string
	UpdatedAt          time.Time
}

// SQLite keeps one TokenPair per profile in a SQLite database.
type SQLite struct {
	db      *sql.DB
	qb      sq.StatementBuilderType
	profile string
	baseURL string
	owned   bool
}

// SQLiteDSN builds a modernc.org/sqlite DSN for path with a busy timeout and
// WAL journaling.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// OpenSQLite opens dsn, applies migrations and returns a store for profile.
func OpenSQLite(dsn, profile string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	s := &SQLite{
		db:      db,
		qb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		profile: profileOrDefault(profile),
		owned:   true,
	}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply credential store migrations: %w", err)
	}
	return s, nil
}

func profileOrDefault(p string) string {
	if p == "" {
		return DefaultProfile
	}
	return p
}

// ForProfile returns a store sharing the same database for another profile.
// Closing it is a no-op.
func (s *SQLite) ForProfile(profile string) *SQLite {
	return &SQLite{db: s.db, qb: s.qb, profile: profileOrDefault(profile), baseURL: s.baseURL}
}

// WithBaseURL records baseURL alongside every saved pair.
func (s *SQLite) WithBaseURL(baseURL string) *SQLite {
	s.baseURL = baseURL
	return s
}

func (s *SQLite) Profile() string { return s.profile }

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// ApplyMigrations applies pending embedded migrations.
func (s *SQLite) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) (TokenPair, error) {
	query, args, err := s.qb.
		Select("access_token", "refresh_token").
		From("credentials").
		Where(sq.Eq{"profile": s.profile}).
		ToSql()
	if err != nil {
		return TokenPair{}, err
	}

	var pair TokenPair
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&pair.AccessToken, &pair.RefreshToken)
	if err != nil {
		return TokenPair{}, mapNotFound(err)
	}
	if pair.IsZero() {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

func (s *SQLite) Save(ctx context.Context, pair TokenPair) error {
	now := time.Now().UTC().Unix()

	query, args, err := s.qb.
		Insert("credentials").
		Columns("profile", "access_token", "refresh_token", "refresh_fingerprint", "base_url", "created_at", "updated_at").
		Values(s.profile, pair.AccessToken, pair.RefreshToken, cryptox.ShortFingerprint(pair.RefreshToken), s.baseURL, now, now).
		Suffix(`ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			refresh_fingerprint = excluded.refresh_fingerprint,
			base_url = excluded.base_url,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	query, args, err := s.qb.Delete("credentials").Where(sq.Eq{"profile": s.profile}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Profiles lists stored profiles ordered by name.
func (s *SQLite) Profiles(ctx context.Context) ([]Profile, error) {
	query, args, err := s.qb.
		Select("profile", "base_url", "refresh_fingerprint", "updated_at").
		From("credentials").
		OrderBy("profile").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var (
			p       Profile
			updated int64
		)
		if err := rows.Scan(&p.Name, &p.BaseURL, &p.RefreshFingerprint, &updated); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
