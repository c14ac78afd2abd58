// Package commands implements the CLI commands for luxapts.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "luxapts",
	Short: "Apartment listing scraper and search backend",
	Long: `Luxapts keeps a luxury apartment marketplace's unit availability,
pricing and amenity data fresh by scraping building websites, and serves
the amenity-aware unit search over that data.

Examples:
  # Run the HTTP server (cron, admin and search endpoints)
  luxapts serve --addr :8080

  # One-off unit scrape for a city
  luxapts scrape --type units --city new-york --limit 20

  # See which buildings are due without scraping anything
  luxapts scrape --type units --city new-york --dry-run`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.luxapts.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".luxapts")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("LUXAPTS")
	viper.AutomaticEnv()

	// Also check the conventional env var names
	_ = viper.BindEnv("database_url", "DATABASE_URL")
	_ = viper.BindEnv("cron_secret", "CRON_SECRET")
	_ = viper.BindEnv("api_key", "XAI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
