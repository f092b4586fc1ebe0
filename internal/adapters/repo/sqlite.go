package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

//go:embed sqlitemigrations/*.sql
var sqliteMigrations embed.FS

// SQLite хранит предложения в локальном файле.
type SQLite struct {
	db *sql.DB
}

var (
	_ domain.SuggestionStore    = (*SQLite)(nil)
	_ domain.ChannelConfigStore = (*SQLite)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite открывает файл БД и применяет миграции.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// один writer: конкурентные решения сериализуются, условие status='pending' остаётся в UPDATE
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySQLiteMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func applySQLiteMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	names, err := fs.Glob(sqliteMigrations, "sqlitemigrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		var applied int
		if err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name=?`, name).Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			continue
		}
		body, err := sqliteMigrations.ReadFile(name)
		if err != nil {
			return err
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close закрывает файл БД.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSuggestion(row rowScanner) (domain.Suggestion, error) {
	var (
		s         domain.Suggestion
		status    string
		createdAt int64
		decidedAt sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.GuildID, &s.AuthorID, &s.ChannelID, &s.PresentationID, &s.Content, &status, &s.Reason, &s.DeciderID, &createdAt, &decidedAt); err != nil {
		return domain.Suggestion{}, err
	}
	s.Status = domain.SuggestionStatus(status)
	s.CreatedAt = fromMillis(createdAt)
	if decidedAt.Valid {
		ts := fromMillis(decidedAt.Int64)
		s.DecidedAt = &ts
	}
	return s, nil
}

// Create реализует domain.SuggestionStore.
func (s *SQLite) Create(ctx context.Context, in domain.NewSuggestion) (domain.Suggestion, error) {
	start := time.Now()
	created, err := scanSQLiteSuggestion(s.db.QueryRowContext(ctx, `
INSERT INTO suggestions (id, guild_id, author_id, channel_id, presentation_id, content, status, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'pending', '', ?)
RETURNING `+suggestionColumns,
		uuid.NewString(), in.GuildID, in.AuthorID, in.ChannelID, in.PresentationID, in.Content, toMillis(time.Now())))
	metrics.ObserveNetworkRequest("sqlite", "suggestions_insert", "suggestions", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Suggestion{}, domain.ErrDuplicatePresentation
		}
		return domain.Suggestion{}, domain.Unavailable("create suggestion", err)
	}
	return created, nil
}

// FindByPresentation реализует domain.SuggestionStore.
func (s *SQLite) FindByPresentation(ctx context.Context, presentationID string) (domain.Suggestion, error) {
	start := time.Now()
	found, err := scanSQLiteSuggestion(s.db.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE presentation_id=?`, presentationID))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveNetworkRequest("sqlite", "suggestions_get", "suggestions", start, nil)
		return domain.Suggestion{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("sqlite", "suggestions_get", "suggestions", start, err)
	if err != nil {
		return domain.Suggestion{}, domain.Unavailable("find suggestion", err)
	}
	return found, nil
}

// TransitionIfPending реализует domain.SuggestionStore одним условным UPDATE.
func (s *SQLite) TransitionIfPending(ctx context.Context, t domain.Transition) (domain.Suggestion, error) {
	if !t.Status.Terminal() {
		return domain.Suggestion{}, domain.ErrInvalidAction
	}
	start := time.Now()
	decided, err := scanSQLiteSuggestion(s.db.QueryRowContext(ctx, `
UPDATE suggestions SET status=?, reason=?, decider_id=?, decided_at=?
WHERE presentation_id=? AND status='pending'
RETURNING `+suggestionColumns, string(t.Status), t.Reason, t.DeciderID, toMillis(time.Now()), t.PresentationID))
	if err == nil {
		metrics.ObserveNetworkRequest("sqlite", "suggestions_transition", "suggestions", start, nil)
		return decided, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveNetworkRequest("sqlite", "suggestions_transition", "suggestions", start, err)
		return domain.Suggestion{}, domain.Unavailable("transition suggestion", err)
	}
	metrics.ObserveNetworkRequest("sqlite", "suggestions_transition", "suggestions", start, nil)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM suggestions WHERE presentation_id=?`, t.PresentationID).Scan(&count); err != nil {
		return domain.Suggestion{}, domain.Unavailable("check suggestion", err)
	}
	if count == 0 {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	return domain.Suggestion{}, domain.ErrAlreadyDecided
}

func scanSQLiteChannel(row rowScanner) (domain.ChannelConfig, error) {
	var (
		cfg                  domain.ChannelConfig
		createdAt, updatedAt int64
	)
	if err := row.Scan(&cfg.GuildID, &cfg.ChannelID, &cfg.ChannelName, &cfg.AllowedRoleID, &cfg.Emojis.First, &cfg.Emojis.Second, &createdAt, &updatedAt); err != nil {
		return domain.ChannelConfig{}, err
	}
	cfg.CreatedAt = fromMillis(createdAt)
	cfg.UpdatedAt = fromMillis(updatedAt)
	return cfg, nil
}

// Lookup реализует domain.ChannelConfigProvider.
func (s *SQLite) Lookup(ctx context.Context, guildID, channelID string) (domain.ChannelConfig, bool, error) {
	cfg, err := scanSQLiteChannel(s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channel_configs WHERE guild_id=? AND channel_id=?`, guildID, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChannelConfig{}, false, nil
	}
	if err != nil {
		return domain.ChannelConfig{}, false, domain.Unavailable("lookup channel", err)
	}
	return cfg, true, nil
}

// Insert реализует domain.ChannelConfigStore.
func (s *SQLite) Insert(ctx context.Context, cfg domain.ChannelConfig) (bool, error) {
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
INSERT INTO channel_configs (guild_id, channel_id, channel_name, allowed_role_id, emoji_first, emoji_second, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (guild_id, channel_id) DO NOTHING
`, cfg.GuildID, cfg.ChannelID, cfg.ChannelName, cfg.AllowedRoleID, cfg.Emojis.First, cfg.Emojis.Second, now, now)
	if err != nil {
		return false, domain.Unavailable("insert channel", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, domain.Unavailable("insert channel", err)
	}
	return affected > 0, nil
}

// Upsert реализует domain.ChannelConfigStore.
func (s *SQLite) Upsert(ctx context.Context, cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	now := toMillis(time.Now())
	saved, err := scanSQLiteChannel(s.db.QueryRowContext(ctx, `
INSERT INTO channel_configs (guild_id, channel_id, channel_name, allowed_role_id, emoji_first, emoji_second, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (guild_id, channel_id) DO UPDATE SET channel_name = excluded.channel_name, allowed_role_id = excluded.allowed_role_id, emoji_first = excluded.emoji_first, emoji_second = excluded.emoji_second, updated_at = excluded.updated_at
RETURNING `+channelColumns, cfg.GuildID, cfg.ChannelID, cfg.ChannelName, cfg.AllowedRoleID, cfg.Emojis.First, cfg.Emojis.Second, now, now))
	if err != nil {
		return domain.ChannelConfig{}, domain.Unavailable("upsert channel", err)
	}
	return saved, nil
}

// Delete реализует domain.ChannelConfigStore.
func (s *SQLite) Delete(ctx context.Context, guildID, channelID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channel_configs WHERE guild_id=? AND channel_id=?`, guildID, channelID)
	if err != nil {
		return domain.Unavailable("delete channel", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByGuild реализует domain.ChannelConfigStore.
func (s *SQLite) ListByGuild(ctx context.Context, guildID string) ([]domain.ChannelConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channel_configs WHERE guild_id=? ORDER BY channel_id`, guildID)
	if err != nil {
		return nil, domain.Unavailable("list channels", err)
	}
	defer rows.Close()
	var out []domain.ChannelConfig
	for rows.Next() {
		cfg, err := scanSQLiteChannel(rows)
		if err != nil {
			return nil, domain.Unavailable("scan channel", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list channels", err)
	}
	return out, nil
}
