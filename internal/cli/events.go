package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"listingBot/config"
	"listingBot/internal/app"
	"listingBot/internal/utils"
)

func newImportEventsCmd(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import-events",
		Short: "Load listing events from a YAML file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--file is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			events, err := utils.ReadListingEventsYAML(f)
			if err != nil {
				return err
			}

			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			for _, ev := range events {
				if err := e.repo.SaveListingEvent(cmd.Context(), ev); err != nil {
					return fmt.Errorf("save %s: %w", ev.Symbol, err)
				}
			}
			e.logger.Info(cmd.Context(), "Listing events imported", map[string]interface{}{"count": len(events), "file": path})
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "YAML file with an events list")
	return cmd
}

func newRecordEventsCmd(opts *rootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "record-events",
		Short: "Build listing events from hourly klines for listings detected by the scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			now := time.Now().UTC()
			from, to := now.AddDate(0, 0, -30), now
			if start != "" {
				if from, err = config.ParseDate(start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			if end != "" {
				if to, err = config.ParseEndDate(end, now); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}
			if err := config.ValidateDateRange(from, to, now); err != nil {
				return err
			}

			exchange, err := e.exchange()
			if err != nil {
				return err
			}
			recorder, err := app.NewListingRecorder(exchange, e.repo, e.logger.With("recorder"), nil)
			if err != nil {
				return err
			}
			res, err := recorder.Record(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d, skipped %d, failed %d\n", res.Recorded, res.Skipped, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first detection date (default 30 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "last detection date, inclusive (default now)")
	return cmd
}

func newKlinesCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol string
		start  string
		limit  int
		out    string
	)

	cmd := &cobra.Command{
		Use:   "klines",
		Short: "Export hourly klines of a symbol to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" || start == "" {
				return fmt.Errorf("--symbol and --start are required")
			}
			from, err := config.ParseDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}

			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			exchange, err := e.exchange()
			if err != nil {
				return err
			}
			klines, err := exchange.GetHourlyKlines(cmd.Context(), symbol, from, limit)
			if err != nil {
				return err
			}
			e.logger.Info(cmd.Context(), "Fetched klines", map[string]interface{}{"symbol": symbol, "count": len(klines)})

			if out == "" {
				return utils.WriteKlinesCSV(cmd.OutOrStdout(), klines)
			}
			return writeFile(out, func(w io.Writer) error { return utils.WriteKlinesCSV(w, klines) })
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol, e.g. NEWUSDT")
	cmd.Flags().StringVar(&start, "start", "", "first candle time")
	cmd.Flags().IntVar(&limit, "limit", app.RecordWindow, "number of hourly candles")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
