// Package cli is the socialsim command line: local chat against the
// configured store and the Discord transport.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	userID     string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "socialsim",
		Short: "Text a cast of simulated people who remember how you treated them",
		Long: `socialsim runs a small social world: personas with schedules,
friendships that rise and fall, gossip and grudges.

Secrets are read from the environment (or a .env file):
  GEMINI_API_KEY     generation, classification and images (provider: gemini)
  CEREBRAS_API_KEY   comma-separated keys (provider: cerebras)
  DISCORD_TOKEN      for the discord command
  SURREAL_DB_HOST    use SurrealDB instead of the local SQLite file
  SQLITE_PATH        local store location (default socialsim.db)
  REDIS_URL          optional read-through cache`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yml", "path to config file")
	root.PersistentFlags().StringVarP(&opts.userID, "user", "u", "local", "user id to act as")

	root.AddCommand(
		newPersonasCmd(opts),
		newStartCmd(opts),
		newChatCmd(opts),
		newStatusCmd(opts),
		newResetCmd(opts),
		newApologizeCmd(opts),
		newDiscordCmd(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
