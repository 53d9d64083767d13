// Package writers exports finished backtest results to disk: a YAML
// summary plus CSV files for the trade list and the equity curve.
package writers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-quant/internal/types"
)

const timeFormat = time.RFC3339

// WriteResult writes summary.yaml, trades.csv, and equity.csv into dir,
// creating it if needed.
func WriteResult(dir string, result *types.BacktestResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	summary, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result summary: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "summary.yaml"), summary, 0644); err != nil {
		return fmt.Errorf("failed to write result summary: %w", err)
	}

	if err := WriteTradesCSV(filepath.Join(dir, "trades.csv"), result.Trades); err != nil {
		return err
	}

	return WriteEquityCSV(filepath.Join(dir, "equity.csv"), result.EquityCurve)
}

// WriteTradesCSV writes the trade list to a CSV file with a header row.
func WriteTradesCSV(path string, trades []types.Trade) error {
	return writeCSV(path, tradeHeader, len(trades), func(i int) []string {
		return tradeRecord(trades[i])
	})
}

// WriteEquityCSV writes the equity curve to a CSV file with a header row.
func WriteEquityCSV(path string, points []types.EquityPoint) error {
	return writeCSV(path, equityHeader, len(points), func(i int) []string {
		return equityRecord(points[i])
	})
}

var tradeHeader = []string{
	"id", "position_id", "symbol", "direction", "entry_price", "exit_price",
	"size", "entry_time", "exit_time", "pnl", "pnl_percent", "fees",
	"reason", "liquidated",
}

var equityHeader = []string{
	"time", "balance", "equity", "unrealized_pnl", "realized_pnl",
	"cumulative_pnl", "max_equity", "drawdown", "drawdown_percent",
	"open_positions", "trades", "wins", "losses",
}

func tradeRecord(t types.Trade) []string {
	return []string{
		t.ID,
		t.PositionID,
		t.Symbol,
		string(t.Direction),
		formatFloat(t.EntryPrice),
		formatFloat(t.ExitPrice),
		formatFloat(t.Size),
		t.EntryTime.Format(timeFormat),
		t.ExitTime.Format(timeFormat),
		formatFloat(t.PnL),
		formatFloat(t.PnLPercent),
		formatFloat(t.Fees),
		string(t.Reason),
		strconv.FormatBool(t.Liquidated),
	}
}

func equityRecord(p types.EquityPoint) []string {
	return []string{
		p.Time.Format(timeFormat),
		formatFloat(p.Balance),
		formatFloat(p.Equity),
		formatFloat(p.UnrealizedPnL),
		formatFloat(p.RealizedPnL),
		formatFloat(p.CumulativePnL),
		formatFloat(p.MaxEquity),
		formatFloat(p.Drawdown),
		formatFloat(p.DrawdownPercent),
		strconv.Itoa(p.OpenPositions),
		strconv.Itoa(p.Trades),
		strconv.Itoa(p.Wins),
		strconv.Itoa(p.Losses),
	}
}

func writeCSV(path string, header []string, rows int, record func(i int) []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	for i := 0; i < rows; i++ {
		if err := w.Write(record(i)); err != nil {
			return fmt.Errorf("failed to write record to %s: %w", path, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
