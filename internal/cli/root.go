package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

// Opener открывает хранилище для команды.
type Opener func(ctx context.Context) (*repo.Backend, error)

type app struct {
	open   Opener
	log    zerolog.Logger
	asJSON bool
}

// NewRootCmd создаёт корневую команду suggestctl.
func NewRootCmd(open Opener, log zerolog.Logger) *cobra.Command {
	a := &app{open: open, log: log}
	root := &cobra.Command{
		Use:           "suggestctl",
		Short:         "Управление каналами и предложениями",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Вывод в формате JSON")
	root.AddCommand(a.channelsCmd(), a.suggestionsCmd())
	return root
}

// withServices открывает хранилище и передаёт сервисы в fn.
func (a *app) withServices(cmd *cobra.Command, fn func(ch *channels.Service, sg *suggestions.Service) error) error {
	backend, err := a.open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()
	return fn(channels.NewService(backend.Channels), suggestions.NewService(backend.Suggestions, backend.Channels, nil, a.log))
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
