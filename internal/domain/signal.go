package domain

import (
	"fmt"
	"math"
)

// PositionSize describe el tamaño propuesto de una posición.
type PositionSize struct {
	Contracts      float64 `json:"contracts"`
	ValueUSDT      float64 `json:"valueUSDT"`
	PercentBalance float64 `json:"percentBalance"`
}

// TradingSignal es una propuesta de trade estructurada del oráculo.
// Inmutable una vez validada y aceptada por el scanner.
type TradingSignal struct {
	Symbol          string       `json:"symbol"`
	EntryPrice      float64      `json:"entryPrice"`
	StopLoss        float64      `json:"stopLoss"`
	TakeProfits     []float64    `json:"takeProfits"`
	Leverage        int          `json:"leverage"`
	PositionSize    PositionSize `json:"positionSize"`
	ConfidenceScore float64      `json:"confidenceScore"`

	Stats MarketStats `json:"marketStats"`
}

// ValidationError señala una propuesta del oráculo con forma inválida.
// Es un skip de primera clase, nunca aborta el ciclo.
type ValidationError struct {
	Symbol string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("signal %s: invalid %s: %s", e.Symbol, e.Field, e.Reason)
}

// Validate comprueba la forma de la señal: todos los campos numéricos
// presentes y finitos, al menos un take-profit.
func (s *TradingSignal) Validate() *ValidationError {
	if s.Symbol == "" {
		return &ValidationError{Symbol: s.Symbol, Field: "symbol", Reason: "empty"}
	}
	if !validPrice(s.EntryPrice) {
		return &ValidationError{Symbol: s.Symbol, Field: "entryPrice", Reason: "not a positive finite number"}
	}
	if !validPrice(s.StopLoss) {
		return &ValidationError{Symbol: s.Symbol, Field: "stopLoss", Reason: "not a positive finite number"}
	}
	if len(s.TakeProfits) < 1 {
		return &ValidationError{Symbol: s.Symbol, Field: "takeProfits", Reason: "at least one target required"}
	}
	for i, tp := range s.TakeProfits {
		if !validPrice(tp) {
			return &ValidationError{Symbol: s.Symbol, Field: "takeProfits", Reason: fmt.Sprintf("target %d not a positive finite number", i)}
		}
	}
	if !isFinite(s.PositionSize.ValueUSDT) || s.PositionSize.ValueUSDT <= 0 {
		return &ValidationError{Symbol: s.Symbol, Field: "positionSize.valueUSDT", Reason: "not a positive finite number"}
	}
	if !isFinite(s.PositionSize.Contracts) {
		return &ValidationError{Symbol: s.Symbol, Field: "positionSize.contracts", Reason: "not finite"}
	}
	if !isFinite(s.ConfidenceScore) || s.ConfidenceScore < 0 || s.ConfidenceScore > 100 {
		return &ValidationError{Symbol: s.Symbol, Field: "confidenceScore", Reason: "outside 0-100"}
	}
	if s.Leverage < 1 {
		return &ValidationError{Symbol: s.Symbol, Field: "leverage", Reason: "must be >= 1"}
	}
	return nil
}

// ClampNotional sube el valor de la posición al mínimo nocional y recalcula
// los contratos desde el precio de entrada. No hace nada si ya lo cumple.
func (s *TradingSignal) ClampNotional(minNotional float64) {
	if s.PositionSize.ValueUSDT >= minNotional {
		return
	}
	s.PositionSize.ValueUSDT = minNotional
	s.PositionSize.Contracts = math.Floor(minNotional / s.EntryPrice)
}

// Side deriva el lado del trade: BUY si la entrada está por debajo del
// primer take-profit, SELL en caso contrario.
func (s *TradingSignal) Side() string {
	if s.EntryPrice < s.TakeProfits[0] {
		return "BUY"
	}
	return "SELL"
}

func validPrice(v float64) bool { return isFinite(v) && v > 0 }
