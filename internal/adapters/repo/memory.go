package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"suggestion-bot/internal/domain"
)

// Memory: хранилище в памяти процесса для dev-окружения и тестов.
type Memory struct {
	mu          sync.Mutex
	suggestions map[string]domain.Suggestion
	channels    map[string]domain.ChannelConfig
	now         func() time.Time
}

var (
	_ domain.SuggestionStore    = (*Memory)(nil)
	_ domain.ChannelConfigStore = (*Memory)(nil)
)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{
		suggestions: make(map[string]domain.Suggestion),
		channels:    make(map[string]domain.ChannelConfig),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create реализует domain.SuggestionStore.
func (m *Memory) Create(ctx context.Context, s domain.NewSuggestion) (domain.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return domain.Suggestion{}, domain.Unavailable("memory create", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suggestions[s.PresentationID]; ok {
		return domain.Suggestion{}, domain.ErrDuplicatePresentation
	}
	created := domain.Suggestion{
		ID:             uuid.NewString(),
		GuildID:        s.GuildID,
		AuthorID:       s.AuthorID,
		ChannelID:      s.ChannelID,
		PresentationID: s.PresentationID,
		Content:        s.Content,
		Status:         domain.StatusPending,
		CreatedAt:      m.now(),
	}
	m.suggestions[s.PresentationID] = created
	return created, nil
}

// FindByPresentation реализует domain.SuggestionStore.
func (m *Memory) FindByPresentation(ctx context.Context, presentationID string) (domain.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return domain.Suggestion{}, domain.Unavailable("memory find", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[presentationID]
	if !ok {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	return s, nil
}

// TransitionIfPending реализует domain.SuggestionStore. Проверка и запись выполняются под одной блокировкой.
func (m *Memory) TransitionIfPending(ctx context.Context, t domain.Transition) (domain.Suggestion, error) {
	if !t.Status.Terminal() {
		return domain.Suggestion{}, domain.ErrInvalidAction
	}
	if err := ctx.Err(); err != nil {
		return domain.Suggestion{}, domain.Unavailable("memory transition", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[t.PresentationID]
	if !ok {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	if s.Status != domain.StatusPending {
		return domain.Suggestion{}, domain.ErrAlreadyDecided
	}
	decidedAt := m.now()
	s.Status = t.Status
	s.Reason = t.Reason
	s.DeciderID = t.DeciderID
	s.DecidedAt = &decidedAt
	m.suggestions[t.PresentationID] = s
	return s, nil
}

func channelKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

// Lookup реализует domain.ChannelConfigProvider.
func (m *Memory) Lookup(ctx context.Context, guildID, channelID string) (domain.ChannelConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChannelConfig{}, false, domain.Unavailable("memory lookup", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.channels[channelKey(guildID, channelID)]
	return cfg, ok, nil
}

// Insert реализует domain.ChannelConfigStore.
func (m *Memory) Insert(ctx context.Context, cfg domain.ChannelConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.Unavailable("memory insert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := channelKey(cfg.GuildID, cfg.ChannelID)
	if _, ok := m.channels[key]; ok {
		return false, nil
	}
	now := m.now()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	m.channels[key] = cfg
	return true, nil
}

// Upsert реализует domain.ChannelConfigStore.
func (m *Memory) Upsert(ctx context.Context, cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChannelConfig{}, domain.Unavailable("memory upsert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := channelKey(cfg.GuildID, cfg.ChannelID)
	now := m.now()
	if prev, ok := m.channels[key]; ok {
		cfg.CreatedAt = prev.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	m.channels[key] = cfg
	return cfg, nil
}

// Delete реализует domain.ChannelConfigStore.
func (m *Memory) Delete(ctx context.Context, guildID, channelID string) error {
	if err := ctx.Err(); err != nil {
		return domain.Unavailable("memory delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := channelKey(guildID, channelID)
	if _, ok := m.channels[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.channels, key)
	return nil
}

// ListByGuild реализует domain.ChannelConfigStore.
func (m *Memory) ListByGuild(ctx context.Context, guildID string) ([]domain.ChannelConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("memory list", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChannelConfig
	for key, cfg := range m.channels {
		if strings.HasPrefix(key, guildID+"/") {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}
