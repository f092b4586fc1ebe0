package repo

import (
	"context"
	"fmt"
	"strings"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/db"
)

// Backend объединяет хранилища выбранного драйвера.
type Backend struct {
	Suggestions domain.SuggestionStore
	Channels    domain.ChannelConfigStore
	// Metrics может быть nil, если драйвер не хранит бизнесовые события.
	Metrics domain.BusinessMetricRepo
	close   func() error
}

// Close освобождает подключение.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open открывает хранилище по имени драйвера: postgres, sqlite или memory.
func Open(ctx context.Context, driver, pgDSN, sqlitePath string) (*Backend, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres":
		if pgDSN == "" {
			return nil, fmt.Errorf("postgres: PG_DSN is empty")
		}
		pool, err := db.Connect(pgDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		pg := NewPostgres(pool)
		return &Backend{Suggestions: pg, Channels: pg, Metrics: pg, close: func() error { pool.Close(); return nil }}, nil
	case "sqlite":
		store, err := OpenSQLite(sqlitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Suggestions: store, Channels: store, close: store.Close}, nil
	case "memory":
		mem := NewMemory()
		return &Backend{Suggestions: mem, Channels: mem}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
