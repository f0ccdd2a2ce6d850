package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/spacetrack/cmd/spacetrack/commands"
	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "spacetrack",
	Short: "Space-Track.org query CLI",
	Long: `A command-line interface for querying Space-Track.org.

Queries go through the same rate limiter, predicate cache and argument
validation as the Go library.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.spacetrack/config.yml)")
	rootCmd.PersistentFlags().StringP("identity", "i", "", "Space-Track identity (usually an e-mail address)")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Space-Track password (prompted when unset)")
	rootCmd.PersistentFlags().String("base-url", constants.DefaultBaseURL, "Space-Track base URL")
	rootCmd.PersistentFlags().String("cache-dir", "", "predicate cache directory (default is the user cache dir)")
	rootCmd.PersistentFlags().String("redis-url", "", "share rate limit windows through this Redis URL")
	rootCmd.PersistentFlags().String("nats-url", "", "share rate limit windows through this NATS JetStream server")
	rootCmd.PersistentFlags().String("rate-limit-prefix", "spacetrack:", "key prefix for shared rate limit windows")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml, toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Bind flags to viper
	for _, name := range []string{
		"config", "identity", "password", "base-url", "cache-dir", "redis-url",
		"nats-url", "rate-limit-prefix", "output", "verbose",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewPredicatesCommand())
	rootCmd.AddCommand(commands.NewClassesCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.spacetrack/config.yml
		viper.AddConfigPath(filepath.Join(home, ".spacetrack"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// SPACETRACK_IDENTITY, SPACETRACK_BASE_URL, ...
	viper.SetEnvPrefix("SPACETRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
