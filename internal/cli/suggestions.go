package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

func (a *app) suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Просмотр предложений",
	}
	show := &cobra.Command{
		Use:   "show <presentation-id>",
		Short: "Показать предложение по идентификатору карточки",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(_ *channels.Service, sg *suggestions.Service) error {
				s, err := sg.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.asJSON {
					return a.printJSON(cmd.OutOrStdout(), s)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "id:       %s\n", s.ID)
				fmt.Fprintf(out, "channel:  %s/%s\n", s.GuildID, s.ChannelID)
				fmt.Fprintf(out, "author:   %s\n", s.AuthorID)
				fmt.Fprintf(out, "status:   %s\n", s.Status)
				fmt.Fprintf(out, "created:  %s\n", s.CreatedAt.Format(time.RFC3339))
				if s.DecidedAt != nil {
					fmt.Fprintf(out, "decided:  %s by %s\n", s.DecidedAt.Format(time.RFC3339), s.DeciderID)
					fmt.Fprintf(out, "reason:   %s\n", s.Reason)
				}
				fmt.Fprintf(out, "\n%s\n", s.Content)
				return nil
			})
		},
	}
	cmd.AddCommand(show)
	return cmd
}
