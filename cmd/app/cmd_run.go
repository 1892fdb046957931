package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dutchman/internal/app"
	"dutchman/internal/event"

	"github.com/spf13/cobra"
)

var (
	tickOverride time.Duration
	dumpPath     string
	quiet        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulated auction with the configured bidders",
	Long: `Starts the auction, lets the simulated bidders from the config act on
every price update and prints the allocation table when the auction ends.

Ctrl+C ends the auction early at the last committed price.

Example:
  dutchman run --tick 200ms --dump state.json`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().DurationVar(&tickOverride, "tick", 0, "override the tick interval (e.g. 200ms)")
	runCmd.Flags().StringVar(&dumpPath, "dump", "", "write the final auction state as JSON to this file")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the final report")
}

// progressPrinter echoes auction events as they are committed.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Broadcast(ev event.Event) {
	switch e := ev.(type) {
	case *event.PriceUpdateEvent:
		fmt.Fprintf(p.w, "tick %-3d price %s\n", e.Point.Tick, formatMoney(e.Point.Price))
	case *event.BidAcceptedEvent:
		fmt.Fprintf(p.w, "         bid   %s %d tokens @ %s (raised %s)\n",
			e.Bid.Participant, e.Bid.Tokens, formatMoney(e.Bid.Price), formatMoney(e.TotalRaised))
	case *event.CompletedEvent:
		fmt.Fprintf(p.w, "         done  %s\n", e.Reason)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if tickOverride > 0 {
		cfg.Auction.TickIntervalMS = int(max(tickOverride.Milliseconds(), 1))
	}

	b := app.NewBootstrap()
	if err := b.InitializeWith(cfg, true); err != nil {
		return err
	}
	defer b.Close()

	out := cmd.OutOrStdout()
	svc := b.Service
	if !quiet {
		svc.AddBroadcaster(progressPrinter{w: out})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "run %s: start %s, floor %s, -%s every %s\n",
		svc.RunID(),
		formatMoney(cfg.Auction.StartPrice),
		formatMoney(cfg.Auction.MinPrice),
		formatMoney(cfg.Auction.PriceDecrement),
		time.Duration(cfg.Auction.TickIntervalMS)*time.Millisecond)

	if err := svc.Start(ctx); err != nil {
		return err
	}

	// Cancellation finalizes the auction, so this always returns.
	snap, err := svc.Wait(context.Background())
	if err != nil {
		return err
	}

	if err := writeReport(out, snap); err != nil {
		return err
	}

	if dumpPath != "" {
		f, err := os.Create(dumpPath)
		if err != nil {
			return fmt.Errorf("failed to create dump file: %w", err)
		}
		defer f.Close()
		if err := svc.DumpState(f); err != nil {
			return err
		}
		fmt.Fprintf(out, "state written to %s\n", dumpPath)
	}
	return nil
}
