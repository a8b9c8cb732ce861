package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"listingBot/internal/analytics"
	"listingBot/internal/domain"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteKlinesCSV writes candles with a header row.
func WriteKlinesCSV(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume", "quote_volume"})
	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
			formatFloat(k.QuoteVolume),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteTradesCSV writes trades with a header row. Open trades have empty exit columns.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"id", "symbol", "status", "entry_time", "entry_price", "quantity", "take_profit", "stop_loss", "exit_time", "exit_price", "pnl_percent"})
	for _, t := range trades {
		exitTime, exitPrice, pnl := "", "", ""
		if !t.IsOpen() {
			exitTime = t.ExitTime.Format(time.RFC3339)
			exitPrice = formatFloat(t.ExitPrice)
			pnl = strconv.FormatFloat(t.ProfitLossPercent, 'f', 4, 64)
		}
		writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Status),
			t.EntryTime.Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			formatFloat(t.Quantity),
			formatFloat(t.TakeProfit),
			formatFloat(t.StopLoss),
			exitTime,
			exitPrice,
			pnl,
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteEquityCSV writes an equity curve with a header row.
func WriteEquityCSV(w io.Writer, points []analytics.EquityPoint) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"time", "trade_id", "equity", "drawdown_percent"})
	for _, p := range points {
		writer.Write([]string{
			p.Time.Format(time.RFC3339),
			strconv.FormatInt(p.TradeID, 10),
			formatFloat(p.Value),
			strconv.FormatFloat(p.Drawdown, 'f', 4, 64),
		})
	}
	writer.Flush()
	return writer.Error()
}
