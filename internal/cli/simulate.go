package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"listingBot/config"
	"listingBot/internal/adapters/metrics"
	"listingBot/internal/analytics"
	"listingBot/internal/domain"
	"listingBot/internal/simulation"
	"listingBot/internal/utils"
)

// simFlags override the simulation window and bracket from the environment.
type simFlags struct {
	start      string
	end        string
	balance    float64
	takeProfit float64
	stopLoss   float64
}

func (f *simFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first listing date (YYYY-MM-DD or RFC3339), overrides SIM_START")
	cmd.Flags().StringVar(&f.end, "end", "", "last listing date, inclusive; a bare date covers the whole day. Overrides SIM_END")
	cmd.Flags().Float64Var(&f.balance, "balance", 0, "initial balance, overrides SIM_INITIAL_BALANCE")
	cmd.Flags().Float64Var(&f.takeProfit, "take-profit", 0, "take-profit fraction, overrides TAKE_PROFIT")
	cmd.Flags().Float64Var(&f.stopLoss, "stop-loss", 0, "stop-loss fraction, overrides STOP_LOSS")
}

// apply merges the flags into cfg and validates the resulting window.
func (f *simFlags) apply(cfg *config.Config) error {
	var err error
	now := time.Now().UTC()
	if f.start != "" {
		if cfg.SimStart, err = config.ParseDate(f.start); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if cfg.SimEnd, err = config.ParseEndDate(f.end, now); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	if f.balance > 0 {
		cfg.SimInitialBalance = f.balance
	}
	if f.takeProfit > 0 {
		cfg.TakeProfit = f.takeProfit
	}
	if f.stopLoss > 0 {
		cfg.StopLoss = f.stopLoss
	}
	return cfg.ValidateSimulation(now)
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		flags     simFlags
		tradesCSV string
		equityCSV string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay recorded listing events and report aggregate metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()
			if err := flags.apply(e.cfg); err != nil {
				return err
			}

			sim, err := simulation.NewSimulator(e.repo, e.repo, metrics.Nop{}, e.logger.With("simulator"))
			if err != nil {
				return err
			}
			run, trades, err := sim.Run(cmd.Context(), e.cfg.SimulationParams())
			if err != nil {
				return err
			}

			printRun(cmd.OutOrStdout(), run)
			if tradesCSV != "" {
				if err := writeFile(tradesCSV, func(w io.Writer) error { return utils.WriteTradesCSV(w, trades) }); err != nil {
					return err
				}
			}
			if equityCSV != "" {
				curve := analytics.EquityCurve(trades, run.Params.InitialBalance)
				if err := writeFile(equityCSV, func(w io.Writer) error { return utils.WriteEquityCSV(w, curve) }); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&tradesCSV, "trades-csv", "", "write the simulated trades to this CSV file")
	cmd.Flags().StringVar(&equityCSV, "equity-csv", "", "write the equity curve to this CSV file")
	return cmd
}

func printRun(w io.Writer, run *domain.SimulationRun) {
	m := run.Metrics
	fmt.Fprintf(w, "Run %s  %s -> %s\n", run.ID, run.Params.Start.Format("2006-01-02"), run.Params.End.Format("2006-01-02"))
	fmt.Fprintf(w, "  take profit %.2f%%  stop loss %.2f%%  fee %.3f%%\n",
		run.Params.TakeProfitPct*100, run.Params.StopLossPct*100, run.Params.FeeRate*100)
	fmt.Fprintf(w, "  trades        %d (won %d, lost %d, win rate %.2f%%)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate)
	fmt.Fprintf(w, "  total return  %.2f%%\n", m.TotalReturn)
	fmt.Fprintf(w, "  average win   %.2f%%  average loss %.2f%%\n", m.AverageWin, m.AverageLoss)
	if m.TotalTrades > 0 {
		fmt.Fprintf(w, "  best trade    %.2f%% (%s)\n", m.BestTrade, m.BestSymbol)
		fmt.Fprintf(w, "  worst trade   %.2f%% (%s)\n", m.WorstTrade, m.WorstSymbol)
	}
	fmt.Fprintf(w, "  max drawdown  %.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(w, "  sharpe ratio  %.3f\n", m.SharpeRatio)
	fmt.Fprintf(w, "  final balance %.2f\n", m.FinalBalance)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
