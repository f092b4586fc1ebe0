package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

func (a *app) channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Настройки каналов предложений",
	}

	var name string
	setup := &cobra.Command{
		Use:   "setup <guild> <channel> <emoji1> <emoji2> <role>",
		Short: "Зарегистрировать канал предложений",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ch *channels.Service, _ *suggestions.Service) error {
				cfg, err := ch.Setup(cmd.Context(), channels.SetupCommand{
					GuildID:     args[0],
					ChannelID:   args[1],
					ChannelName: name,
					Emoji1:      args[2],
					Emoji2:      args[3],
					RoleID:      args[4],
					ActorAdmin:  true,
				})
				if err != nil {
					return err
				}
				if a.asJSON {
					return a.printJSON(cmd.OutOrStdout(), cfg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "channel %s/%s configured\n", cfg.GuildID, cfg.ChannelID)
				return nil
			})
		},
	}
	setup.Flags().StringVar(&name, "name", "", "Название канала")

	list := &cobra.Command{
		Use:   "list <guild>",
		Short: "Показать каналы сервера",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ch *channels.Service, _ *suggestions.Service) error {
				items, err := ch.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.asJSON {
					if items == nil {
						items = []domain.ChannelConfig{}
					}
					return a.printJSON(cmd.OutOrStdout(), items)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CHANNEL\tNAME\tROLE\tEMOJIS")
				for _, c := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\n", c.ChannelID, c.ChannelName, c.AllowedRoleID, c.Emojis.First, c.Emojis.Second)
				}
				return tw.Flush()
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <guild> <channel>",
		Short: "Отключить предложения в канале",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ch *channels.Service, _ *suggestions.Service) error {
				if err := ch.Remove(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "channel %s/%s removed\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(setup, list, remove)
	return cmd
}
