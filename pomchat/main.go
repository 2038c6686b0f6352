package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gosuda/pomchat/config"
)

var rootCmd = &cobra.Command{
	Use:           "pomchat",
	Short:         "Pomodoro chat client (rooms, live presence, focus timer, message board)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = c
		setupLogging(cfg.Level())
		return nil
	},
}

var (
	flagConfig    string
	flagServerURL string
	flagDataPath  string
	flagLogLevel  string

	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	flags.StringVar(&flagServerURL, "server-url", "", "backend base URL (env POMCHAT_SERVER_URL)")
	flags.StringVar(&flagDataPath, "data-path", "", "directory for persisted preferences and session (env POMCHAT_DATA_PATH)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (env POMCHAT_LOG_LEVEL)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, themeCmd, chatCmd, boardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute pomchat command")
	}
}

// loadConfig layers the command-line flags over config.Load.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("server-url") {
		c.ServerURL = flagServerURL
	}
	if flags.Changed("data-path") {
		c.DataPath = flagDataPath
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setupLogging writes human-readable logs to a terminal and JSON otherwise.
func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
