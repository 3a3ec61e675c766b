package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amaumene/watchtrack/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "watchtrack",
	Short: "Track the TV series you watch, rate and rewatch",
	Long: `watchtrack records the series you watch together with their rating,
progress and watch status, and serves them over a JSON HTTP API.

Configuration is read from the environment and an optional .env file in the
working directory; flags override both.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("backend", "", "store backend: sqlite, postgres or bolt")
	rootCmd.PersistentFlags().String("db", "", "database file for the sqlite and bolt backends")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Flags win over environment and .env through viper's precedence
	viper.BindPFlag("STORE_BACKEND", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("DATABASE_FILE", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
