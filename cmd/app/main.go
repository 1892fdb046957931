package main

import (
	"fmt"
	"os"

	"dutchman/internal/app"
	"dutchman/internal/infra"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dutchman",
	Short: "Dutchman - simulated Dutch auction price discovery",
	Long: `Dutchman runs a descending-price (Dutch) token auction.

The price starts high and drops by a fixed decrement every tick until the
funding goal is met or the floor price is reached. Every accepted bid clears
at the same final price; oversubscribed demand is rationed proportionally.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", app.DefaultConfigPath, "path to config.yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*infra.Config, error) {
	return infra.LoadConfig(configPath)
}
