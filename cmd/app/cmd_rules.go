package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auctionRules = []string{
	"The auction starts at a high price and decreases over time.",
	"Participants can place bids at any time during the auction.",
	"All successful bidders pay the same final price, regardless of when they bid.",
	"The auction ends when the funding goal is reached or the minimum price is hit.",
	"If oversubscribed, token allocations are distributed proportionally.",
}

var auctionBenefits = []string{
	"Fair pricing for all participants",
	"Reduced FOMO and gas wars common in other sale mechanisms",
	"Efficient price discovery",
	"Transparent and equitable token distribution",
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Explain how the auction works",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Auction Rules")
		for _, r := range auctionRules {
			fmt.Fprintf(out, "  - %s\n", r)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Benefits")
		for _, b := range auctionBenefits {
			fmt.Fprintf(out, "  - %s\n", b)
		}
	},
}
