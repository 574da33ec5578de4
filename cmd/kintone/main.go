package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/kintone/cmd/kintone/commands"
	"github.com/fivetwenty-io/kintone/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "kintone",
	Short: "kintone REST API CLI",
	Long: `A command-line interface for the kintone REST API.

Reads every record matching a query, writes any number of records through
bulk requests, and upserts records by a unique field.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.kintone/config.yml)")
	rootCmd.PersistentFlags().StringP("base-url", "b", "", "kintone base URL, e.g. https://example.cybozu.com")
	rootCmd.PersistentFlags().StringSlice("api-token", nil, "app API token (repeatable)")
	rootCmd.PersistentFlags().StringP("username", "u", "", "login name for password authentication")
	rootCmd.PersistentFlags().String("guest-space", "", "guest space id")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("cache", "memory", "app metadata cache (none, memory, nats)")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server for --cache nats")
	rootCmd.PersistentFlags().Bool("rate-limit", true, "space requests and retry HTTP 429")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("api_tokens", rootCmd.PersistentFlags().Lookup("api-token"))
	_ = viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username"))
	_ = viper.BindPFlag("guest_space_id", rootCmd.PersistentFlags().Lookup("guest-space"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("nats_url", rootCmd.PersistentFlags().Lookup("nats-url"))
	_ = viper.BindPFlag("rate_limit", rootCmd.PersistentFlags().Lookup("rate-limit"))

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewRecordsCommand())
	rootCmd.AddCommand(commands.NewAppsCommand())
	rootCmd.AddCommand(commands.NewSpacesCommand())
	rootCmd.AddCommand(commands.NewCommentsCommand())
	rootCmd.AddCommand(commands.NewFilesCommand())
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

		configDir := filepath.Join(home, ".kintone")
		if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("KINTONE")
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
