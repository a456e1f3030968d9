package scanner

// filter.go — clasificación de volatilidad y filtro de admisión adaptativo.

import (
	"log/slog"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// Gates secundarios del bucket superior: explosive exige además cinta y
// delta volume altos; high exige cinta alta.
const (
	explosiveTapeGate  = 2000.0
	explosiveDeltaGate = 1_500_000.0
	highTapeGate       = 1000.0
)

// VolatilityThresholds son los cortes ATR ascendentes por bucket.
type VolatilityThresholds struct {
	Calm      float64
	Stable    float64
	High      float64
	Explosive float64
}

// classifyVolatility decide el bucket por umbrales ATR ascendentes, con
// gates combinados de velocidad/volumen para los buckets superiores.
func classifyVolatility(v VolatilityThresholds, atr, tapeSpeed, deltaVolume float64) domain.VolatilityType {
	switch {
	case atr > v.Explosive && tapeSpeed > explosiveTapeGate && deltaVolume > explosiveDeltaGate:
		return domain.VolatilityExplosive
	case atr > v.High && tapeSpeed > highTapeGate:
		return domain.VolatilityHigh
	case atr > v.Stable:
		return domain.VolatilityStable
	default:
		return domain.VolatilityCalm
	}
}

// Thresholds son los umbrales efectivos del filtro de admisión.
type Thresholds struct {
	MinVolume24h    float64
	MaxSpreadPct    float64
	MinOpenInterest float64
	MinTapeSpeed    float64
	MinDeltaVolume  float64
}

// baseThresholds devuelve los umbrales base de la sesión (día/noche).
func (s *Scanner) baseThresholds(isNight bool) Thresholds {
	th := Thresholds{
		MinVolume24h:    s.cfg.MinVolume24h,
		MaxSpreadPct:    s.cfg.MaxSpreadPct,
		MinOpenInterest: s.cfg.MinOpenInterest,
		MinTapeSpeed:    s.cfg.MinTapeSpeedDay,
		MinDeltaVolume:  s.cfg.MinDeltaVolDay,
	}
	if isNight {
		th.MinTapeSpeed = s.cfg.MinTapeSpeedNight
		th.MinDeltaVolume = s.cfg.MinDeltaVolNight
	}
	return th
}

// adaptiveThresholds escala los umbrales base según el bucket: calm relaja,
// explosive aprieta el spread pero sube el resto.
func adaptiveThresholds(base Thresholds, category domain.VolatilityType) Thresholds {
	var volume, spread, oi, tape, delta float64
	switch category {
	case domain.VolatilityCalm:
		volume, spread, oi, tape, delta = 0.8, 1.2, 0.8, 0.8, 0.8
	case domain.VolatilityHigh:
		volume, spread, oi, tape, delta = 1.2, 0.8, 1.2, 1.2, 1.2
	case domain.VolatilityExplosive:
		volume, spread, oi, tape, delta = 1.5, 0.5, 1.5, 1.5, 1.5
	default: // stable
		volume, spread, oi, tape, delta = 1.0, 1.0, 1.0, 1.0, 1.0
	}

	return Thresholds{
		MinVolume24h:    base.MinVolume24h * volume,
		MaxSpreadPct:    base.MaxSpreadPct * spread,
		MinOpenInterest: base.MinOpenInterest * oi,
		MinTapeSpeed:    base.MinTapeSpeed * tape,
		MinDeltaVolume:  base.MinDeltaVolume * delta,
	}
}

// candidateMetrics es el snapshot de métricas que evalúa el filtro.
type candidateMetrics struct {
	Symbol       string
	Volume24h    float64
	SpreadPct    float64
	OpenInterest float64
	TapeSpeed    float64
	DeltaVolume  float64
}

// admit aplica el filtro de admisión: pasa si supera TODOS los umbrales
// core, o la combinación fallback (listón de volumen+delta rebajado), o —
// con loose-mode activo — un listón mínimo de volumen+spread sobre la base.
func (s *Scanner) admit(m candidateMetrics, th Thresholds) bool {
	coreValid := m.Volume24h >= th.MinVolume24h &&
		m.SpreadPct <= th.MaxSpreadPct &&
		m.OpenInterest >= th.MinOpenInterest &&
		m.TapeSpeed >= th.MinTapeSpeed &&
		m.DeltaVolume >= th.MinDeltaVolume

	fallbackValid := m.Volume24h >= th.MinVolume24h*s.cfg.FallbackVolumeMult &&
		m.DeltaVolume >= th.MinDeltaVolume*s.cfg.FallbackDeltaMult

	looseValid := s.cfg.AllowLoose &&
		m.Volume24h >= s.cfg.MinVolume24h/2 &&
		m.SpreadPct <= s.cfg.MaxSpreadPct*2

	if coreValid || fallbackValid || looseValid {
		return true
	}

	slog.Warn("candidate rejected by adaptive filter",
		"symbol", m.Symbol,
		"volume24h", m.Volume24h,
		"spread_pct", m.SpreadPct,
		"open_interest", m.OpenInterest,
		"tape_speed", m.TapeSpeed,
		"delta_volume", m.DeltaVolume,
		"min_volume", th.MinVolume24h,
		"max_spread", th.MaxSpreadPct,
		"min_oi", th.MinOpenInterest,
		"min_tape", th.MinTapeSpeed,
		"min_delta", th.MinDeltaVolume,
	)
	return false
}
