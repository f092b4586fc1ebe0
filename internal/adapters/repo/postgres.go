package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

const pgUniqueViolation = "23505"

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.SuggestionStore    = (*Postgres)(nil)
	_ domain.ChannelConfigStore = (*Postgres)(nil)
	_ domain.BusinessMetricRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const suggestionColumns = `id, guild_id, author_id, channel_id, presentation_id, content, status, reason, decider_id, created_at, decided_at`

func scanSuggestion(row pgx.Row) (domain.Suggestion, error) {
	var (
		s         domain.Suggestion
		status    string
		decidedAt *time.Time
	)
	err := row.Scan(&s.ID, &s.GuildID, &s.AuthorID, &s.ChannelID, &s.PresentationID, &s.Content, &status, &s.Reason, &s.DeciderID, &s.CreatedAt, &decidedAt)
	if err != nil {
		return domain.Suggestion{}, err
	}
	s.Status = domain.SuggestionStatus(status)
	s.DecidedAt = decidedAt
	return s, nil
}

// Create реализует domain.SuggestionStore.
func (p *Postgres) Create(ctx context.Context, in domain.NewSuggestion) (domain.Suggestion, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	s, err := scanSuggestion(p.pool.QueryRow(ctx, `
INSERT INTO suggestions (id, guild_id, author_id, channel_id, presentation_id, content, status, reason)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', '')
RETURNING `+suggestionColumns,
		uuid.NewString(), in.GuildID, in.AuthorID, in.ChannelID, in.PresentationID, in.Content))
	metrics.ObserveNetworkRequest("postgres", "suggestions_insert", "suggestions", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Suggestion{}, domain.ErrDuplicatePresentation
		}
		return domain.Suggestion{}, domain.Unavailable("create suggestion", err)
	}
	_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
		Event:          domain.BusinessMetricEventSuggestionCreated,
		GuildID:        s.GuildID,
		ChannelID:      s.ChannelID,
		PresentationID: s.PresentationID,
		Metadata:       map[string]any{"author_id": s.AuthorID},
	})
	return s, nil
}

// FindByPresentation реализует domain.SuggestionStore.
func (p *Postgres) FindByPresentation(ctx context.Context, presentationID string) (domain.Suggestion, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	s, err := scanSuggestion(p.pool.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE presentation_id=$1`, presentationID))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "suggestions_get", "suggestions", start, nil)
		return domain.Suggestion{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "suggestions_get", "suggestions", start, err)
	if err != nil {
		return domain.Suggestion{}, domain.Unavailable("find suggestion", err)
	}
	return s, nil
}

// TransitionIfPending реализует domain.SuggestionStore.
// Условие status='pending' проверяется в самом UPDATE, поэтому из двух конкурентных решений применится одно.
func (p *Postgres) TransitionIfPending(ctx context.Context, t domain.Transition) (domain.Suggestion, error) {
	if !t.Status.Terminal() {
		return domain.Suggestion{}, domain.ErrInvalidAction
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	s, err := scanSuggestion(p.pool.QueryRow(ctx, `
UPDATE suggestions SET status=$2, reason=$3, decider_id=$4, decided_at=now()
WHERE presentation_id=$1 AND status='pending'
RETURNING `+suggestionColumns, t.PresentationID, string(t.Status), t.Reason, t.DeciderID))
	if err == nil {
		metrics.ObserveNetworkRequest("postgres", "suggestions_transition", "suggestions", start, nil)
		_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
			Event:          domain.BusinessMetricEventSuggestionDecided,
			GuildID:        s.GuildID,
			ChannelID:      s.ChannelID,
			PresentationID: s.PresentationID,
			Metadata:       map[string]any{"status": string(s.Status), "decider_id": s.DeciderID},
		})
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "suggestions_transition", "suggestions", start, err)
		return domain.Suggestion{}, domain.Unavailable("transition suggestion", err)
	}
	metrics.ObserveNetworkRequest("postgres", "suggestions_transition", "suggestions", start, nil)

	var exists bool
	start = time.Now()
	err = p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suggestions WHERE presentation_id=$1)`, t.PresentationID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "suggestions_exists", "suggestions", start, err)
	if err != nil {
		return domain.Suggestion{}, domain.Unavailable("check suggestion", err)
	}
	if !exists {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	return domain.Suggestion{}, domain.ErrAlreadyDecided
}

const channelColumns = `guild_id, channel_id, channel_name, allowed_role_id, emoji_first, emoji_second, created_at, updated_at`

func scanChannel(row pgx.Row) (domain.ChannelConfig, error) {
	var cfg domain.ChannelConfig
	err := row.Scan(&cfg.GuildID, &cfg.ChannelID, &cfg.ChannelName, &cfg.AllowedRoleID, &cfg.Emojis.First, &cfg.Emojis.Second, &cfg.CreatedAt, &cfg.UpdatedAt)
	return cfg, err
}

// Lookup реализует domain.ChannelConfigProvider.
func (p *Postgres) Lookup(ctx context.Context, guildID, channelID string) (domain.ChannelConfig, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	cfg, err := scanChannel(p.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channel_configs WHERE guild_id=$1 AND channel_id=$2`, guildID, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "channel_configs_get", "channel_configs", start, nil)
		return domain.ChannelConfig{}, false, nil
	}
	metrics.ObserveNetworkRequest("postgres", "channel_configs_get", "channel_configs", start, err)
	if err != nil {
		return domain.ChannelConfig{}, false, domain.Unavailable("lookup channel", err)
	}
	return cfg, true, nil
}

// Insert реализует domain.ChannelConfigStore.
func (p *Postgres) Insert(ctx context.Context, cfg domain.ChannelConfig) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO channel_configs (guild_id, channel_id, channel_name, allowed_role_id, emoji_first, emoji_second)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (guild_id, channel_id) DO NOTHING
`, cfg.GuildID, cfg.ChannelID, cfg.ChannelName, cfg.AllowedRoleID, cfg.Emojis.First, cfg.Emojis.Second)
	metrics.ObserveNetworkRequest("postgres", "channel_configs_insert", "channel_configs", start, err)
	if err != nil {
		return false, domain.Unavailable("insert channel", err)
	}
	return res.RowsAffected() > 0, nil
}

// Upsert реализует domain.ChannelConfigStore.
func (p *Postgres) Upsert(ctx context.Context, cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	saved, err := scanChannel(p.pool.QueryRow(ctx, `
INSERT INTO channel_configs (guild_id, channel_id, channel_name, allowed_role_id, emoji_first, emoji_second)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (guild_id, channel_id) DO UPDATE SET channel_name = EXCLUDED.channel_name, allowed_role_id = EXCLUDED.allowed_role_id, emoji_first = EXCLUDED.emoji_first, emoji_second = EXCLUDED.emoji_second, updated_at = now()
RETURNING `+channelColumns, cfg.GuildID, cfg.ChannelID, cfg.ChannelName, cfg.AllowedRoleID, cfg.Emojis.First, cfg.Emojis.Second))
	metrics.ObserveNetworkRequest("postgres", "channel_configs_upsert", "channel_configs", start, err)
	if err != nil {
		return domain.ChannelConfig{}, domain.Unavailable("upsert channel", err)
	}
	return saved, nil
}

// Delete реализует domain.ChannelConfigStore.
func (p *Postgres) Delete(ctx context.Context, guildID, channelID string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `DELETE FROM channel_configs WHERE guild_id=$1 AND channel_id=$2`, guildID, channelID)
	metrics.ObserveNetworkRequest("postgres", "channel_configs_delete", "channel_configs", start, err)
	if err != nil {
		return domain.Unavailable("delete channel", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByGuild реализует domain.ChannelConfigStore.
func (p *Postgres) ListByGuild(ctx context.Context, guildID string) ([]domain.ChannelConfig, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+channelColumns+` FROM channel_configs WHERE guild_id=$1 ORDER BY channel_id`, guildID)
	metrics.ObserveNetworkRequest("postgres", "channel_configs_list", "channel_configs", start, err)
	if err != nil {
		return nil, domain.Unavailable("list channels", err)
	}
	defer rows.Close()
	var out []domain.ChannelConfig
	for rows.Next() {
		cfg, err := scanChannel(rows)
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

func (p *Postgres) saveBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, guild_id, channel_id, presentation_id, metadata, occurred_at)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), $5, $6)
`, metric.Event, metric.GuildID, metric.ChannelID, metric.PresentationID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	return p.saveBusinessMetric(ctx, metric)
}
