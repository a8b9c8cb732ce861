package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"listingBot/internal/simulation"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		flags   simFlags
		tp, sl  simulation.ParameterRange
		top     int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search take-profit and stop-loss over recorded listing events",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()
			if err := flags.apply(e.cfg); err != nil {
				return err
			}

			params := e.cfg.SimulationParams()
			events, err := e.repo.GetListingEvents(cmd.Context(), params.Start, params.End)
			if err != nil {
				return fmt.Errorf("failed to load listing events: %w", err)
			}

			opt := simulation.NewOptimizer(simulation.OptimizerConfig{
				TakeProfit: tp,
				StopLoss:   sl,
				Workers:    workers,
			}, e.logger.With("optimizer"))
			results, err := opt.Optimize(cmd.Context(), events, params)
			if err != nil {
				return err
			}

			if top > 0 && len(results) > top {
				results = results[:top]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tTP%\tSL%\tSCORE\tTRADES\tWIN%\tRETURN%\tDRAWDOWN%\tSHARPE")
			for i, r := range results {
				fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.3f\t%d\t%.2f\t%.2f\t%.2f\t%.3f\n",
					i+1, r.TakeProfitPct*100, r.StopLossPct*100, r.Score, r.Metrics.TotalTrades,
					r.Metrics.WinRate, r.Metrics.TotalReturn, r.Metrics.MaxDrawdown, r.Metrics.SharpeRatio)
			}
			return tw.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&tp.Min, "tp-min", 0.10, "smallest take-profit fraction")
	cmd.Flags().Float64Var(&tp.Max, "tp-max", 0.50, "largest take-profit fraction")
	cmd.Flags().Float64Var(&tp.Step, "tp-step", 0.05, "take-profit step")
	cmd.Flags().Float64Var(&sl.Min, "sl-min", 0.05, "smallest stop-loss fraction")
	cmd.Flags().Float64Var(&sl.Max, "sl-max", 0.30, "largest stop-loss fraction")
	cmd.Flags().Float64Var(&sl.Step, "sl-step", 0.05, "stop-loss step")
	cmd.Flags().IntVar(&top, "top", 10, "number of results to print, 0 prints all")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent replays (default GOMAXPROCS)")
	return cmd
}
