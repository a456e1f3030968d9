package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandles(closes ...float64) []CandleBar {
	candles := make([]CandleBar, len(closes))
	for i, c := range closes {
		candles[i] = CandleBar{Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return candles
}

func TestRSI_SerieCorta(t *testing.T) {
	// Con len <= period no hay RSI
	closes := []float64{1, 2, 3}
	_, ok := RSI(closes, 14)
	assert.False(t, ok)

	_, ok = RSI(closes, 3)
	assert.False(t, ok)
}

func TestRSI_SoloGanancias(t *testing.T) {
	// Sin pérdidas el RSI satura en 100
	closes := []float64{1, 2, 3, 4, 5, 6}
	rsi, ok := RSI(closes, 3)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_SerieConstante(t *testing.T) {
	// Deltas cero en ambos lados: avgLoss == 0 → 100
	closes := []float64{5, 5, 5, 5, 5}
	rsi, ok := RSI(closes, 3)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_Mixto(t *testing.T) {
	// deltas +2, −1, +2: gains = 4, losses = 1, period 2:
	// rs = (4/2)/(1/2) = 4 → 100 − 100/5 = 80
	closes := []float64{10, 12, 11, 13}
	rsi, ok := RSI(closes, 2)
	require.True(t, ok)
	assert.InDelta(t, 80.0, rsi, 0.01)
}

func TestEMA_SerieCorta(t *testing.T) {
	_, ok := EMA([]float64{1, 2}, 5)
	assert.False(t, ok)
}

func TestEMA_SerieConstante(t *testing.T) {
	closes := []float64{7, 7, 7, 7, 7}
	ema, ok := EMA(closes, 3)
	require.True(t, ok)
	assert.Equal(t, 7.0, ema)
}

func TestEMA_Semilla(t *testing.T) {
	// k = 2/3; seed = 10; tras 20: 10*(1/3) + 20*(2/3) = 16.67
	ema, ok := EMA([]float64{10, 20}, 2)
	require.True(t, ok)
	assert.InDelta(t, 16.67, ema, 0.01)
}

func TestATR_Basico(t *testing.T) {
	candles := []CandleBar{
		{High: 12, Low: 8, Close: 10},
		{High: 14, Low: 10, Close: 12},
		{High: 13, Low: 11, Close: 12},
	}
	// TR1 = max(4, |14-10|, |10-10|) = 4; TR2 = max(2, 1, 1) = 2; ATR(2) = 3
	atr, ok := ATR(candles, 2)
	require.True(t, ok)
	assert.InDelta(t, 3.0, atr, 0.001)
}

func TestATR_PocasVelas(t *testing.T) {
	_, ok := ATR(makeCandles(10), 5)
	assert.False(t, ok)
}

func TestTrendMeta_Alcista(t *testing.T) {
	strength, direction := TrendMeta(makeCandles(1, 2, 3, 4, 5), 0.03)
	assert.Equal(t, 1.0, strength)
	assert.Equal(t, 1, direction)
}

func TestTrendMeta_Bajista(t *testing.T) {
	strength, direction := TrendMeta(makeCandles(5, 4, 3, 2, 1), 0.03)
	assert.Equal(t, 1.0, strength)
	assert.Equal(t, -1, direction)
}

func TestTrendMeta_DebilReportaCero(t *testing.T) {
	// 2 up, 2 down: strength 0 → dirección 0
	_, direction := TrendMeta(makeCandles(1, 2, 1, 2, 1), 0.03)
	assert.Equal(t, 0, direction)
}

func TestRoundToStep_Trunca(t *testing.T) {
	assert.Equal(t, 0.12, RoundToStep(0.12345, 0.01))
	assert.Equal(t, 3.0, RoundToStep(3.999, 1))
	assert.Equal(t, 0.0, RoundToStep(0.0005, 0.001))
}

func TestRoundToStep_SinRuidoBinario(t *testing.T) {
	// 0.3/0.1 = 2.9999... en binario; el epsilon evita perder un step
	assert.Equal(t, 0.3, RoundToStep(0.3, 0.1))
	assert.Equal(t, 1.455, RoundToStep(1.4559, 0.001))
}
