package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las señales en el modo configurado.
func (c *Console) Notify(_ context.Context, signals []domain.TradingSignal) error {
	if len(signals) == 0 {
		fmt.Fprintf(c.out, "[%s] no signals this cycle\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(signals)
	} else {
		c.printCompact(signals)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(signals []domain.TradingSignal) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d signals:", time.Now().Format("15:04:05"), len(signals))

	shown := 0
	for _, s := range signals {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " %s/%s@%.4g(%.0f)", s.Symbol, s.Side(), s.EntryPrice, s.ConfidenceScore)
		shown++
	}
	if len(signals) > shown {
		fmt.Fprintf(&sb, " +%d more", len(signals)-shown)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de señales rankeadas.
func (c *Console) printFull(signals []domain.TradingSignal) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Symbol", "Side", "Entry", "Stop", "TP1", "Lev", "Value", "Conf", "Volatility")

	for i, s := range signals {
		table.Append(
			fmt.Sprintf("%d", i+1),
			s.Symbol,
			s.Side(),
			fmt.Sprintf("%.6g", s.EntryPrice),
			fmt.Sprintf("%.6g", s.StopLoss),
			fmt.Sprintf("%.6g", s.TakeProfits[0]),
			fmt.Sprintf("%dx", s.Leverage),
			fmt.Sprintf("$%.2f", s.PositionSize.ValueUSDT),
			fmt.Sprintf("%.0f", s.ConfidenceScore),
			string(s.Stats.VolatilityType),
		)
	}

	table.Render()
}
