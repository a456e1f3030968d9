package domain

// indicator.go — funciones numéricas puras sobre series de precios.
// Todas devuelven (valor, ok): ok=false equivale al null del resultado,
// nunca se propaga como error.

import "math"

// RSI calcula el RSI estilo Wilder sobre la serie completa: suma de ganancias
// y pérdidas dividida por period (no es una media móvil recalculada).
// ok=false si la serie tiene <= period puntos, algún delta no es numérico,
// o el resultado no es finito. Con avgLoss == 0 satura en 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if math.IsNaN(delta) {
			return 0, false
		}
		if delta >= 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if !isFinite(avgGain) || !isFinite(avgLoss) {
		return 0, false
	}

	if avgLoss == 0 {
		return 100, true
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	if !isFinite(rsi) {
		return 0, false
	}
	return Round2(rsi), true
}

// EMA calcula la media móvil exponencial sembrada con el primer cierre,
// k = 2/(period+1), aplicada secuencialmente sobre toda la serie.
// ok=false si len(closes) < period o alguna entrada no es finita.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}

	k := 2 / float64(period+1)
	ema := closes[0]
	for _, price := range closes[1:] {
		if !isFinite(price) {
			return 0, false
		}
		ema = price*k + ema*(1-k)
	}
	if !isFinite(ema) {
		return 0, false
	}
	return Round2(ema), true
}

// ATR es la media de los últimos period true ranges de la serie de velas.
// ok=false si no hay suficientes velas o el resultado no es finito.
func ATR(candles []CandleBar, period int) (float64, bool) {
	if period <= 0 || len(candles) < 2 {
		return 0, false
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c, p := candles[i], candles[i-1]
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-p.Close), math.Abs(c.Low-p.Close)))
		trs = append(trs, tr)
	}
	if len(trs) > period {
		trs = trs[len(trs)-period:]
	}

	var sum float64
	for _, tr := range trs {
		sum += tr
	}
	atr := sum / float64(period)
	if !isFinite(atr) {
		return 0, false
	}
	return atr, true
}

// TrendMeta mide la dominancia direccional de las velas:
// strength = |velas al alza − velas a la baja| / (n−1), redondeado a 2 decimales.
// direction es ±1 según el lado dominante, pero se reporta 0 si strength
// no supera minStrength.
func TrendMeta(candles []CandleBar, minStrength float64) (strength float64, direction int) {
	if len(candles) < 2 {
		return 0, 0
	}

	up := 0
	for i := 1; i < len(candles); i++ {
		if candles[i].Close > candles[i-1].Close {
			up++
		}
	}
	down := len(candles) - 1 - up

	strength = Round2(math.Abs(float64(up-down)) / float64(len(candles)-1))
	if strength >= minStrength {
		if up > down {
			direction = 1
		} else {
			direction = -1
		}
	}
	return strength, direction
}

// RoundToStep trunca value hacia abajo al múltiplo del step del exchange.
// Un valor menor que un step devuelve 0 (la señal se descarta).
func RoundToStep(value, step float64) float64 {
	if step <= 0 || value <= 0 {
		return 0
	}
	steps := math.Floor(value/step + 1e-9)
	result := steps * step
	// recorta el ruido binario de la multiplicación
	precision := int(math.Max(0, math.Ceil(-math.Log10(step))))
	pow := math.Pow(10, float64(precision))
	return math.Round(result*pow) / pow
}

// Round2 redondea a 2 decimales.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// Round4 redondea a 4 decimales.
func Round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
