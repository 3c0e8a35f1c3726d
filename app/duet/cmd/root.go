package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cchalm/duet/internal/config"
)

var (
	v          = viper.New()
	configPath string

	// dotEnvErr is reported once a logger exists
	dotEnvErr error
)

var rootCmd = &cobra.Command{
	Use:   "duet",
	Short: "Two AI personas collaborating in a Discord channel",
	Long: `Duet runs two Discord bots backed by Claude. A human posts a task, optionally with a PDF,
and the bots take turns replying to each other: the lead writes code, the follower reviews it.
Post a message starting with <STOP> to end the exchange.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		dotEnvErr = config.LoadDotEnv()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "duet.log", "File that JSON logs are appended to; empty disables it")

	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_file", flags.Lookup("log-file"))
}
