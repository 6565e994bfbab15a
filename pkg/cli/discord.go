package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"socialsim/pkg/bot"
)

func newDiscordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discord",
		Short: "Run the Discord DM bot",
		Long: `Connects to Discord with DISCORD_TOKEN and serves conversations over DMs.
Set DISCORD_GUILD_ID to register slash commands on one guild for instant updates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv("DISCORD_TOKEN")
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if token == "" {
				return errors.New("missing required environment variable: DISCORD_TOKEN")
			}

			handler := bot.NewHandler(a.engine, a.cfg.Delays, a.log.With("component", "bot"))

			dg, err := discordgo.New("Bot " + token)
			if err != nil {
				return fmt.Errorf("error creating Discord session: %w", err)
			}
			// Presence shows as mobile, which reads as a person texting.
			dg.Identify.Properties.Browser = "Discord Android"
			dg.Identify.Properties.Device = "Discord Android"
			dg.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

			dg.AddHandler(handler.MessageCreate)
			dg.AddHandler(handler.InteractionCreate)

			if err := dg.Open(); err != nil {
				return fmt.Errorf("error opening connection: %w", err)
			}
			defer dg.Close()

			handler.SetBotID(dg.State.User.ID)

			// Empty guild registers globally; a guild id updates instantly.
			guildID := os.Getenv("DISCORD_GUILD_ID")
			registered, err := handler.RegisterSlashCommands(dg, guildID)
			if err != nil {
				return fmt.Errorf("error registering slash commands: %w", err)
			}
			defer func() {
				if err := handler.UnregisterSlashCommands(dg, guildID, registered); err != nil {
					a.log.Warn("Error unregistering slash commands", "error", err)
				}
			}()

			a.log.Info("Bot is running. Press CTRL-C to exit.", "personas", len(a.catalog.Keys()))

			sc := make(chan os.Signal, 1)
			signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			select {
			case <-sc:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
}
