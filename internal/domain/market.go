package domain

import "time"

// Ticker24h es el resumen de 24h de un par — efímero, se refresca en cada scan.
type Ticker24h struct {
	Symbol      string
	QuoteVolume float64
	ChangePct   float64
}

// CandleBar es una vela OHLCV de un intervalo.
type CandleBar struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// BookLevel es un nivel de precio del order book.
type BookLevel struct {
	Price float64
	Qty   float64
}

// OrderBook es un snapshot de profundidad (bids/asks ordenados desde el mejor precio).
type OrderBook struct {
	Bids []BookLevel
	Asks []BookLevel
}

// BestBid devuelve el mejor precio de compra, 0 si no hay bids.
func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta, 0 si no hay asks.
func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// SpreadPct devuelve el spread bid/ask como porcentaje del precio medio.
func (b OrderBook) SpreadPct() float64 {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (ask - bid) / ((ask + bid) / 2) * 100
}

// Trade es un print de la cinta (aggTrades). BuyerMaker true = venta agresora.
type Trade struct {
	Price      float64
	Qty        float64
	Time       time.Time
	BuyerMaker bool
}

// VolatilityType clasifica el régimen de volatilidad de un símbolo.
type VolatilityType string

const (
	VolatilityCalm      VolatilityType = "calm"
	VolatilityStable    VolatilityType = "stable"
	VolatilityHigh      VolatilityType = "high"
	VolatilityExplosive VolatilityType = "explosive"
)

// MarketStats es el snapshot derivado por símbolo que alimenta al oráculo.
// Se calcula fresco en cada ciclo; nunca es la fuente de verdad persistida.
type MarketStats struct {
	BestBid        float64        `json:"bestBid"`
	BestAsk        float64        `json:"bestAsk"`
	SpreadPct      float64        `json:"spreadPct"`
	ATR            float64        `json:"atr"`
	OpenInterest   float64        `json:"openInterest"`
	MarkPrice      float64        `json:"markPrice"`
	NextFundingTs  int64          `json:"nextFundingTs"`
	RSI            float64        `json:"rsi"`
	EMA            float64        `json:"ema"`
	HourUTC        int            `json:"hourUTC"`
	Imbalance      float64        `json:"imbalance"`
	DeltaVolume    float64        `json:"deltaVolume"`
	TapeSpeed      float64        `json:"tapeSpeed"`
	TrendStrength  float64        `json:"trendStrength"`
	TrendDirection int            `json:"trendDirection"`
	VolatilityType VolatilityType `json:"volatilityType"`
}

// PairSnapshot son las métricas baratas del primer pase. RSI/EMA son punteros
// porque un fallo parcial de fetch degrada a null en el prompt, no aborta el batch.
type PairSnapshot struct {
	Symbol      string   `json:"symbol"`
	Volume24h   float64  `json:"volume24h"`
	ChangePct   float64  `json:"changePct"`
	FundingRate float64  `json:"fundingRate"`
	RSI         *float64 `json:"rsi"`
	EMA         *float64 `json:"ema"`
}

// TopSymbol es una entrada del contexto macro (top por volumen 24h).
type TopSymbol struct {
	Symbol       string  `json:"symbol"`
	OpenInterest float64 `json:"oi"`
	Volume24h    float64 `json:"volume"`
}

// MarketContext es contexto macro agregado — solo para el prompt, nunca filtra.
type MarketContext struct {
	Timestamp         time.Time   `json:"timestamp"`
	TotalOpenInterest float64     `json:"totalOpenInterest"`
	TopSymbols        []TopSymbol `json:"topSymbols"`
}

// SnapshotEntry es una entrada del histórico por símbolo (cap 50, FIFO).
// Las entradas de métrica y las de señal comparten struct; los campos de
// señal van en omitempty.
type SnapshotEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	OpenInterest float64   `json:"openInterest,omitempty"`
	DeltaVolume  float64   `json:"deltaVolume,omitempty"`
	TapeSpeed    float64   `json:"tapeSpeed,omitempty"`
	Imbalance    float64   `json:"imbalance,omitempty"`
	RSI          *float64  `json:"rsi,omitempty"`
	EMA          *float64  `json:"ema,omitempty"`

	EntryPrice      float64       `json:"entryPrice,omitempty"`
	StopLoss        float64       `json:"stopLoss,omitempty"`
	TakeProfits     []float64     `json:"takeProfits,omitempty"`
	PositionSize    *PositionSize `json:"positionSize,omitempty"`
	ConfidenceScore float64       `json:"confidenceScore,omitempty"`
}

// SymbolInfo es la metadata de exchange por símbolo: estado y filtros de cuantización.
type SymbolInfo struct {
	Symbol   string
	Trading  bool
	StepSize float64 // LOT_SIZE
	TickSize float64 // PRICE_FILTER
}

// PremiumIndex agrupa mark price y funding de /premiumIndex.
type PremiumIndex struct {
	MarkPrice       float64
	LastFundingRate float64
	NextFundingTime int64
}
