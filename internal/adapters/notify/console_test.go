package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSignals() []domain.TradingSignal {
	return []domain.TradingSignal{
		{
			Symbol:          "BTCUSDT",
			EntryPrice:      50000,
			StopLoss:        49000,
			TakeProfits:     []float64{52000},
			Leverage:        5,
			PositionSize:    domain.PositionSize{ValueUSDT: 500},
			ConfidenceScore: 90,
			Stats:           domain.MarketStats{VolatilityType: domain.VolatilityHigh},
		},
		{
			Symbol:          "ETHUSDT",
			EntryPrice:      3000,
			StopLoss:        3100,
			TakeProfits:     []float64{2800},
			Leverage:        3,
			PositionSize:    domain.PositionSize{ValueUSDT: 150},
			ConfidenceScore: 70,
			Stats:           domain.MarketStats{VolatilityType: domain.VolatilityStable},
		},
	}
}

func TestNotify_SinSenales(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no signals this cycle")
}

func TestNotify_Compacto(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), sampleSignals()))

	out := buf.String()
	assert.Contains(t, out, "2 signals")
	assert.Contains(t, out, "BTCUSDT/BUY")
	assert.Contains(t, out, "ETHUSDT/SELL")
}

func TestNotify_Tabla(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	require.NoError(t, c.Notify(context.Background(), sampleSignals()))

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "5x")
	assert.Contains(t, out, "high")
	assert.Contains(t, out, "$500.00")
}

func TestNotify_CompactoTruncaLaCola(t *testing.T) {
	signals := make([]domain.TradingSignal, 6)
	for i := range signals {
		signals[i] = sampleSignals()[0]
	}

	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)
	require.NoError(t, c.Notify(context.Background(), signals))
	assert.Contains(t, buf.String(), "+2 more")
}
