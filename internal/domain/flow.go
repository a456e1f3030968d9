package domain

// flow.go — métricas de flujo sobre order book y cinta de trades.
// Son puras: un fallo de fetch se representa en el caller (el símbolo se
// salta), aquí no hay errores.

import "time"

// BidAskImbalance suma las cantidades de los top-N niveles de cada lado y
// devuelve (bidVol − askVol)/(bidVol + askVol) a 4 decimales — una medida
// con signo de presión del libro, no una probabilidad.
// Devuelve 0 cuando ambos lados están vacíos; ok=false si el resultado
// no es finito.
func BidAskImbalance(book OrderBook, depth int) (float64, bool) {
	if depth <= 0 {
		depth = 5
	}

	var bidVol, askVol float64
	for i, lvl := range book.Bids {
		if i >= depth {
			break
		}
		bidVol += lvl.Qty
	}
	for i, lvl := range book.Asks {
		if i >= depth {
			break
		}
		askVol += lvl.Qty
	}

	total := bidVol + askVol
	if total == 0 {
		return 0, true
	}
	imb := (bidVol - askVol) / total
	if !isFinite(imb) {
		return 0, false
	}
	return Round4(imb), true
}

// DeltaVolume es el resultado de particionar la cinta en volumen comprador
// vs vendedor dentro de la ventana de lookback.
type DeltaVolume struct {
	Delta   float64 `json:"deltaVolume"`
	BuyVol  float64 `json:"buyVol"`
	SellVol float64 `json:"sellVol"`
}

// ComputeDeltaVolume separa los prints más nuevos que now−lookback en
// iniciados por comprador (BuyerMaker=false) y por vendedor, y devuelve
// buyVol − sellVol junto a ambas patas. Una cinta vacía da 0 en todo.
func ComputeDeltaVolume(trades []Trade, lookback time.Duration, now time.Time) DeltaVolume {
	cutoff := now.Add(-lookback)

	var buyVol, sellVol float64
	for _, t := range trades {
		if t.Time.Before(cutoff) {
			continue
		}
		if t.BuyerMaker {
			sellVol += t.Qty
		} else {
			buyVol += t.Qty
		}
	}

	return DeltaVolume{
		Delta:   Round2(buyVol - sellVol),
		BuyVol:  Round2(buyVol),
		SellVol: Round2(sellVol),
	}
}

// ComputeTapeSpeed cuenta los prints dentro de la ventana y los divide por
// su duración en segundos — trades por segundo.
func ComputeTapeSpeed(trades []Trade, lookback time.Duration, now time.Time) (perSec float64, count int) {
	if lookback <= 0 {
		return 0, 0
	}
	cutoff := now.Add(-lookback)
	for _, t := range trades {
		if !t.Time.Before(cutoff) {
			count++
		}
	}
	return Round2(float64(count) / lookback.Seconds()), count
}
