package main

import (
	"context"
	"fmt"
	"os"

	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/cli"
	"suggestion-bot/internal/infra/config"
	"suggestion-bot/internal/infra/log"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	open := func(ctx context.Context) (*repo.Backend, error) {
		return repo.Open(ctx, cfg.Storage.Driver, cfg.Storage.PGDSN, cfg.Storage.SQLitePath)
	}
	if err := cli.NewRootCmd(open, log.Component(logger, "suggestctl")).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
