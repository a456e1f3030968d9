package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSignal() TradingSignal {
	return TradingSignal{
		Symbol:      "BTCUSDT",
		EntryPrice:  50000,
		StopLoss:    49000,
		TakeProfits: []float64{52000, 54000},
		Leverage:    5,
		PositionSize: PositionSize{
			Contracts:      0.01,
			ValueUSDT:      500,
			PercentBalance: 3,
		},
		ConfidenceScore: 85,
	}
}

func TestValidate_SenalCorrecta(t *testing.T) {
	s := validSignal()
	assert.Nil(t, s.Validate())
}

func TestValidate_Rechazos(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TradingSignal)
		field  string
	}{
		{"sin símbolo", func(s *TradingSignal) { s.Symbol = "" }, "symbol"},
		{"entrada cero", func(s *TradingSignal) { s.EntryPrice = 0 }, "entryPrice"},
		{"entrada NaN", func(s *TradingSignal) { s.EntryPrice = math.NaN() }, "entryPrice"},
		{"stop negativo", func(s *TradingSignal) { s.StopLoss = -1 }, "stopLoss"},
		{"sin take profits", func(s *TradingSignal) { s.TakeProfits = nil }, "takeProfits"},
		{"take profit inválido", func(s *TradingSignal) { s.TakeProfits = []float64{52000, 0} }, "takeProfits"},
		{"valor cero", func(s *TradingSignal) { s.PositionSize.ValueUSDT = 0 }, "positionSize.valueUSDT"},
		{"contratos infinitos", func(s *TradingSignal) { s.PositionSize.Contracts = math.Inf(1) }, "positionSize.contracts"},
		{"confianza fuera de rango", func(s *TradingSignal) { s.ConfidenceScore = 101 }, "confidenceScore"},
		{"leverage cero", func(s *TradingSignal) { s.Leverage = 0 }, "leverage"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSignal()
			tc.mutate(&s)
			verr := s.Validate()
			require.NotNil(t, verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestClampNotional(t *testing.T) {
	s := validSignal()
	s.EntryPrice = 2
	s.PositionSize.ValueUSDT = 10

	s.ClampNotional(15)
	assert.Equal(t, 15.0, s.PositionSize.ValueUSDT)
	assert.Equal(t, 7.0, s.PositionSize.Contracts) // floor(15/2)
}

func TestClampNotional_NoTocaSiCumple(t *testing.T) {
	s := validSignal()
	before := s.PositionSize
	s.ClampNotional(15)
	assert.Equal(t, before, s.PositionSize)
}

func TestSide(t *testing.T) {
	s := validSignal() // entrada 50000 < TP 52000
	assert.Equal(t, "BUY", s.Side())

	s.TakeProfits = []float64{48000}
	assert.Equal(t, "SELL", s.Side())
}
