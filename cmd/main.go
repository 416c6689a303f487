package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tradecouncil/internal/bootstrap"
	"tradecouncil/internal/pipeline"
	"tradecouncil/pkg/errors"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tradecouncil",
		Short: "Multi-agent trading analysis pipeline",
		Long: `tradecouncil runs three analysts, a bull and a bear researcher, a moderated
debate, a trade proposal and a rule-based risk review for one subject.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newAnalystsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tradecouncil version %s\n", version)
		},
	})

	return root
}

// runFlags are the raw CLI values behind pipeline.Options
type runFlags struct {
	subject     string
	debate      bool
	proposal    bool
	price       float64
	vix         float64
	accountSize string
	pnl         string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline for a subject and print the result as JSON",
		Example: `  tradecouncil run --subject u1
  tradecouncil run --subject u1 --debate --proposal --price 5012.5 --pnl -1200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd.Flags())
			if err != nil {
				return err
			}

			c := bootstrap.NewContainer()
			c.MustInit()
			c.StartAnalytics()
			defer c.Shutdown()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := c.Pipeline.Orchestrator.RunFullPipeline(ctx, f.subject, opts)
			if err != nil {
				return userFacing(err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	f.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func (f *runFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.subject, "subject", "", "Subject (user) id the run is for")
	flags.BoolVar(&f.debate, "debate", false, "Run the three moderated debate rounds instead of quick consensus")
	flags.BoolVar(&f.proposal, "proposal", false, "Generate a trade proposal and risk assessment")
	flags.Float64Var(&f.price, "price", 0, "Current instrument price passed to the trader")
	flags.Float64Var(&f.vix, "vix", 0, "VIX level for the risk rules (defaults to the market input)")
	flags.StringVar(&f.accountSize, "account-size", "", "Account size in dollars")
	flags.StringVar(&f.pnl, "pnl", "", "Today's realised PnL in dollars, negative for a loss")
}

// options converts flags to pipeline options; unset optional flags stay nil
func (f runFlags) options(flags *pflag.FlagSet) (pipeline.Options, error) {
	opts := pipeline.Options{
		IncludeDebate:   f.debate,
		IncludeProposal: f.proposal,
	}

	if flags.Changed("price") {
		price := f.price
		opts.CurrentPrice = &price
	}
	if flags.Changed("vix") {
		vix := f.vix
		opts.VIXLevel = &vix
	}
	if f.accountSize != "" {
		size, err := decimal.NewFromString(f.accountSize)
		if err != nil {
			return opts, errors.NewValidationError("account-size", "must be a number", f.accountSize)
		}
		opts.AccountSize = &size
	}
	if f.pnl != "" {
		pnl, err := decimal.NewFromString(f.pnl)
		if err != nil {
			return opts, errors.NewValidationError("pnl", "must be a number", f.pnl)
		}
		opts.CurrentPnL = &pnl
	}

	return opts, nil
}

func newAnalystsCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "analysts",
		Short: "Run only the three analysts and print their reports as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := bootstrap.NewContainer()
			c.MustInit()
			c.StartAnalytics()
			defer c.Shutdown()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := c.Pipeline.Orchestrator.RunAnalystsOnly(ctx, subject)
			if err != nil {
				return userFacing(err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject (user) id the run is for")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume pipeline requests from Kafka and serve health and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := bootstrap.NewContainer()
			c.MustInit()
			c.MustInitServing()

			if err := c.Start(); err != nil {
				c.Shutdown()
				return err
			}

			waitForShutdown(c.Context)
			c.Shutdown()
			return nil
		},
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM or until the container cancels itself
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
}

// userFacing keeps the stage tag and safe message of a pipeline failure on top
func userFacing(err error) error {
	var perr *errors.PipelineError
	if errors.As(err, &perr) {
		return fmt.Errorf("%s (stage %s): %w", perr.UserMessage(), perr.Stage, err)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
