package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without running an auction",
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ac := cfg.AuctionConfig()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: ok\n", configPath)
	fmt.Fprintf(out, "  price        %s -> %s, -%s every %s\n",
		formatMoney(ac.StartPrice), formatMoney(ac.MinPrice), formatMoney(ac.PriceDecrement), ac.TickInterval)
	fmt.Fprintf(out, "  goal         %s\n", formatMoney(ac.FundingGoal))
	fmt.Fprintf(out, "  supply       %d tokens\n", ac.TotalTokenSupply)
	fmt.Fprintf(out, "  participants %d\n", len(ac.Participants))
	fmt.Fprintf(out, "  bidders      %d\n", len(cfg.Bidders))
	return nil
}
