package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
)

func formatMoney(d decimal.Decimal) string {
	return domain.FormatMoney(d)
}

// writeReport prints the outcome of a completed auction and its allocation table.
func writeReport(w io.Writer, snap domain.Snapshot) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "status        %s (%s)\n", snap.Status, snap.Reason)
	fmt.Fprintf(w, "final price   %s\n", formatMoney(snap.CurrentPrice))
	fmt.Fprintf(w, "total raised  %s\n", formatMoney(snap.TotalRaised))
	fmt.Fprintf(w, "bids          %d\n", len(snap.Bids))

	s := snap.Settlement
	if s == nil {
		return nil
	}
	fmt.Fprintf(w, "requested     %d tokens\n", s.TokensRequested)
	if s.Oversubscribed() {
		fmt.Fprintf(w, "rationed      ratio %s\n", s.Ratio.String())
	}
	fmt.Fprintf(w, "unallocated   %d tokens\n", s.UnallocatedTokens)
	fmt.Fprintln(w)

	if len(s.Allocations) == 0 && len(s.Refunds) == 0 {
		fmt.Fprintln(w, "no allocations")
		return nil
	}

	refunds := make(map[string]decimal.Decimal, len(s.Refunds))
	for _, r := range s.Refunds {
		refunds[r.Participant] = r.Amount
	}
	allocated := make(map[string]bool, len(s.Allocations))
	for _, a := range s.Allocations {
		allocated[a.Participant] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PARTICIPANT\tTOKENS\tPRICE PAID\tTOTAL COST\tREFUND\t")
	for _, a := range s.Allocations {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			a.Participant, a.TokensAllocated, formatMoney(a.PricePaid), formatMoney(a.TotalCost), formatMoney(refunds[a.Participant]))
	}
	// Bidders whose rationed share rounded down to zero are refunded in full.
	for _, r := range s.Refunds {
		if allocated[r.Participant] {
			continue
		}
		fmt.Fprintf(tw, "%s\t0\t%s\t%s\t%s\t\n",
			r.Participant, formatMoney(s.FinalPrice), formatMoney(decimal.Zero), formatMoney(r.Amount))
	}
	return tw.Flush()
}
