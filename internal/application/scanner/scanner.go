package scanner

// scanner.go — el ciclo de escaneo completo: universo → pase barato →
// pre-filtro del oráculo → pase profundo → filtro de admisión → señales.
//
// Filosofía de errores: el fetch del universo es fatal (sin él no hay ciclo);
// todo lo demás degrada por símbolo. Un fallo del oráculo termina el ciclo
// sin señales pero sin error (fail-soft): el bot sigue vivo para el
// siguiente tick.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/Vasooook/binance-ai-trading-bot/internal/ports"
)

// flowLookback es la ventana de las métricas de cinta (delta, tape speed).
const flowLookback = time.Minute

// depthLevels son los niveles por lado pedidos al exchange para el imbalance.
const depthLevels = 5

// historyInPrompt es cuántas entradas del histórico ve el oráculo.
const historyInPrompt = 10

// topSymbolsInContext es cuántos símbolos lleva el contexto macro.
const topSymbolsInContext = 5

// feePctPerSide es la comisión taker que el prompt exige superar.
const feePctPerSide = 0.05

// Config son los parámetros del scanner, ya resueltos (sin YAML ni defaults).
type Config struct {
	PreFilterLimit  int
	BatchSize       int
	BatchPause      time.Duration
	CandlesInterval string
	ShortInterval   string
	CandlesCount    int
	RSIPeriod       int
	EMAPeriod       int
	ATRPeriod       int

	MinTrendStrength   float64
	MinVolume24h       float64
	MaxSpreadPct       float64
	MinOpenInterest    float64
	MinTapeSpeedDay    float64
	MinTapeSpeedNight  float64
	MinDeltaVolDay     float64
	MinDeltaVolNight   float64
	DaySessionUTC      [2]int
	UseAdaptive        bool
	AllowLoose         bool
	FallbackVolumeMult float64
	FallbackDeltaMult  float64
	SaveSnapshots      bool

	Volatility       VolatilityThresholds
	ConfidenceMedium float64

	RiskPercent     float64
	MinNotionalUSDT float64
	MaxLeverage     int

	Model       string
	FilterModel string
}

// Scanner orquesta el descubrimiento de oportunidades de trading.
type Scanner struct {
	cfg       Config
	market    ports.MarketDataClient
	oracle    ports.SignalOracle
	snapshots ports.SnapshotStore // puede ser nil: la persistencia es opcional

	now func() time.Time
}

// New crea un Scanner. snapshots puede ser nil si no se quiere histórico.
func New(cfg Config, market ports.MarketDataClient, oracle ports.SignalOracle, snapshots ports.SnapshotStore) *Scanner {
	return &Scanner{
		cfg:       cfg,
		market:    market,
		oracle:    oracle,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Scan ejecuta un ciclo completo y devuelve las señales validadas ordenadas
// por confianza descendente. Un ciclo sin señales devuelve (nil, nil).
func (s *Scanner) Scan(ctx context.Context, acct domain.Account) ([]domain.TradingSignal, error) {
	started := s.now()

	// 1. Universo: símbolos USDT en estado TRADING, ordenados por volumen 24h.
	universe, tickers, err := s.fetchUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner.Scan: %w", err)
	}
	slog.Info("scan universe ready", "pairs", len(universe))

	// 2. Pase barato: velas + funding por símbolo, en batches acotados.
	cheap := s.cheapPass(ctx, universe)
	if len(cheap) == 0 {
		slog.Warn("cheap pass produced no snapshots, ending cycle")
		return nil, nil
	}

	// 3-4. Pre-filtro del oráculo: array de símbolos sugeridos.
	suggested := s.oracleFilter(ctx, cheap, universe)
	if len(suggested) == 0 {
		slog.Info("oracle suggested no symbols", "elapsed", s.now().Sub(started))
		return nil, nil
	}
	slog.Info("oracle pre-filter done", "suggested", len(suggested))

	// 5. Contexto macro: OI total y top símbolos por volumen. Solo informa
	// al prompt, nunca filtra; su fallo no aborta nada.
	mctx := s.marketContext(ctx, tickers)

	// 6-7. Pase profundo + filtro de admisión adaptativo.
	candidates := s.deepPass(ctx, suggested, tickers, mctx)
	if len(candidates) == 0 {
		slog.Info("no candidates survived the admission filter")
		return nil, nil
	}
	slog.Info("admission filter done", "candidates", len(candidates))

	// 8-11. Generación de señales símbolo a símbolo.
	open := make(map[string]bool)
	for _, sym := range acct.OpenSymbols() {
		open[sym] = true
	}

	var signals []domain.TradingSignal
	for _, c := range candidates {
		if open[c.Symbol] {
			slog.Debug("skipping symbol with open position", "symbol", c.Symbol)
			continue
		}
		sig, ok := s.generateSignal(ctx, c, mctx, acct)
		if !ok {
			continue
		}
		signals = append(signals, sig)
	}

	// 12. Ranking por confianza descendente.
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].ConfidenceScore > signals[j].ConfidenceScore
	})

	if s.cfg.SaveSnapshots && s.snapshots != nil {
		for _, sig := range signals {
			entry := domain.SnapshotEntry{
				Timestamp:       s.now(),
				EntryPrice:      sig.EntryPrice,
				StopLoss:        sig.StopLoss,
				TakeProfits:     sig.TakeProfits,
				PositionSize:    &sig.PositionSize,
				ConfidenceScore: sig.ConfidenceScore,
			}
			if err := s.snapshots.AppendSnapshot(ctx, sig.Symbol, entry, mctx); err != nil {
				slog.Warn("persist signal snapshot failed", "symbol", sig.Symbol, "err", err)
			}
		}
	}

	slog.Info("scan cycle complete",
		"signals", len(signals),
		"elapsed", s.now().Sub(started),
	)
	return signals, nil
}

// fetchUniverse combina exchangeInfo y los tickers 24h en la lista de pares
// operables, ordenada por volumen descendente y recortada al pre-filter limit.
func (s *Scanner) fetchUniverse(ctx context.Context) ([]domain.Ticker24h, map[string]domain.Ticker24h, error) {
	infos, err := s.market.ExchangeSymbols(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch exchange symbols: %w", err)
	}
	tradeable := make(map[string]bool, len(infos))
	for _, info := range infos {
		if info.Trading && strings.HasSuffix(info.Symbol, "USDT") {
			tradeable[info.Symbol] = true
		}
	}

	tickers, err := s.market.Tickers24h(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch 24h tickers: %w", err)
	}

	bySymbol := make(map[string]domain.Ticker24h, len(tickers))
	universe := make([]domain.Ticker24h, 0, len(tickers))
	for _, t := range tickers {
		if !tradeable[t.Symbol] {
			continue
		}
		bySymbol[t.Symbol] = t
		universe = append(universe, t)
	}

	sort.Slice(universe, func(i, j int) bool {
		return universe[i].QuoteVolume > universe[j].QuoteVolume
	})
	if s.cfg.PreFilterLimit > 0 && len(universe) > s.cfg.PreFilterLimit {
		universe = universe[:s.cfg.PreFilterLimit]
	}
	return universe, bySymbol, nil
}

// cheapPass calcula las métricas baratas de cada par del universo con una
// ventana de velas mínima (RSIPeriod+1): aquí pasan ~300 pares, la ventana
// completa queda para el pase profundo. RSI/EMA degradan a null si las
// velas fallan; funding degrada a 0.
func (s *Scanner) cheapPass(ctx context.Context, universe []domain.Ticker24h) []domain.PairSnapshot {
	window := s.cfg.RSIPeriod + 1

	results := mapInBatches(ctx, universe, s.cfg.BatchSize, s.cfg.BatchPause,
		func(ctx context.Context, t domain.Ticker24h) (domain.PairSnapshot, error) {
			snap := domain.PairSnapshot{
				Symbol:    t.Symbol,
				Volume24h: t.QuoteVolume,
				ChangePct: t.ChangePct,
			}

			if candles, err := s.market.Klines(ctx, t.Symbol, s.cfg.CandlesInterval, window); err == nil {
				closes := closesOf(candles)
				if v, ok := domain.RSI(closes, s.cfg.RSIPeriod); ok {
					snap.RSI = &v
				}
				if v, ok := domain.EMA(closes, s.cfg.EMAPeriod); ok {
					snap.EMA = &v
				}
			} else {
				slog.Debug("cheap pass klines failed", "symbol", t.Symbol, "err", err)
			}

			if pi, err := s.market.PremiumIndex(ctx, t.Symbol); err == nil {
				snap.FundingRate = pi.LastFundingRate
			}

			return snap, nil
		})

	snaps := make([]domain.PairSnapshot, 0, len(results))
	for _, r := range results {
		if r.ok {
			snaps = append(snaps, r.val)
		}
	}
	return snaps
}

// oracleFilter pide al oráculo la shortlist y descarta sugerencias con forma
// inválida o fuera del universo. Cualquier fallo devuelve lista vacía.
func (s *Scanner) oracleFilter(ctx context.Context, cheap []domain.PairSnapshot, universe []domain.Ticker24h) []string {
	prompt := buildFilterPairsPrompt(cheap, topCandidatesWanted)

	raw, err := s.oracle.Complete(ctx, prompt, s.cfg.FilterModel)
	if err != nil {
		slog.Error("oracle pre-filter call failed", "err", err)
		return nil
	}

	symbols, err := extractSymbolArray(raw)
	if err != nil {
		slog.Error("oracle pre-filter response unparseable", "err", err)
		return nil
	}

	known := make(map[string]bool, len(universe))
	for _, t := range universe {
		known[t.Symbol] = true
	}

	var out []string
	seen := make(map[string]bool)
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if !validSymbol(sym) || !known[sym] {
			slog.Warn("discarding invalid oracle suggestion", "symbol", sym)
			continue
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// topCandidatesWanted es el tope de símbolos pedidos al pre-filtro.
const topCandidatesWanted = 10

// marketContext agrega el OI total y los top símbolos por volumen.
// Es best-effort: los fallos por símbolo se ignoran.
func (s *Scanner) marketContext(ctx context.Context, tickers map[string]domain.Ticker24h) *domain.MarketContext {
	ranked := make([]domain.Ticker24h, 0, len(tickers))
	for _, t := range tickers {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].QuoteVolume > ranked[j].QuoteVolume
	})
	if len(ranked) > topSymbolsInContext {
		ranked = ranked[:topSymbolsInContext]
	}

	mctx := &domain.MarketContext{Timestamp: s.now()}
	for _, t := range ranked {
		oi, err := s.market.OpenInterest(ctx, t.Symbol)
		if err != nil {
			slog.Debug("market context OI failed", "symbol", t.Symbol, "err", err)
			continue
		}
		mctx.TotalOpenInterest += oi
		mctx.TopSymbols = append(mctx.TopSymbols, domain.TopSymbol{
			Symbol:       t.Symbol,
			OpenInterest: oi,
			Volume24h:    t.QuoteVolume,
		})
	}
	if len(mctx.TopSymbols) == 0 {
		return nil
	}
	return mctx
}

// candidate es un símbolo admitido con sus métricas completas.
type candidate struct {
	Symbol string
	Stats  domain.MarketStats
}

// deepPass calcula las métricas completas de los símbolos sugeridos y aplica
// el filtro de admisión. Persiste un snapshot de métricas por símbolo medido.
func (s *Scanner) deepPass(ctx context.Context, symbols []string, tickers map[string]domain.Ticker24h, mctx *domain.MarketContext) []candidate {
	now := s.now()
	isNight := !s.isDaySession(now)
	base := s.baseThresholds(isNight)

	results := mapInBatches(ctx, symbols, s.cfg.BatchSize, s.cfg.BatchPause,
		func(ctx context.Context, symbol string) (candidate, error) {
			stats, err := s.measure(ctx, symbol, s.cfg.CandlesInterval, now)
			if err != nil {
				return candidate{}, err
			}
			return candidate{Symbol: symbol, Stats: stats}, nil
		})

	var admitted []candidate
	for _, r := range results {
		if !r.ok {
			continue
		}
		c := r.val
		t := tickers[c.Symbol]

		c.Stats.VolatilityType = classifyVolatility(s.cfg.Volatility, c.Stats.ATR, c.Stats.TapeSpeed, c.Stats.DeltaVolume)

		th := base
		if s.cfg.UseAdaptive {
			th = adaptiveThresholds(base, c.Stats.VolatilityType)
		}

		s.persistMetricSnapshot(ctx, c, mctx)

		m := candidateMetrics{
			Symbol:       c.Symbol,
			Volume24h:    t.QuoteVolume,
			SpreadPct:    c.Stats.SpreadPct,
			OpenInterest: c.Stats.OpenInterest,
			TapeSpeed:    c.Stats.TapeSpeed,
			DeltaVolume:  c.Stats.DeltaVolume,
		}
		if !s.admit(m, th) {
			continue
		}
		admitted = append(admitted, c)
	}
	return admitted
}

// measure obtiene y deriva todas las métricas de un símbolo en el intervalo
// dado. Cualquier fetch fallido hace fallar el símbolo entero.
func (s *Scanner) measure(ctx context.Context, symbol, interval string, now time.Time) (domain.MarketStats, error) {
	candles, err := s.market.Klines(ctx, symbol, interval, s.cfg.CandlesCount)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("klines %s: %w", symbol, err)
	}
	book, err := s.market.Depth(ctx, symbol, depthLevels)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("depth %s: %w", symbol, err)
	}
	trades, err := s.market.AggTrades(ctx, symbol, 1000)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("agg trades %s: %w", symbol, err)
	}
	oi, err := s.market.OpenInterest(ctx, symbol)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("open interest %s: %w", symbol, err)
	}
	pi, err := s.market.PremiumIndex(ctx, symbol)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("premium index %s: %w", symbol, err)
	}

	closes := closesOf(candles)
	stats := domain.MarketStats{
		BestBid:       book.BestBid(),
		BestAsk:       book.BestAsk(),
		SpreadPct:     domain.Round4(book.SpreadPct()),
		OpenInterest:  oi,
		MarkPrice:     pi.MarkPrice,
		NextFundingTs: pi.NextFundingTime,
		HourUTC:       now.UTC().Hour(),
	}

	if v, ok := domain.ATR(candles, s.cfg.ATRPeriod); ok {
		stats.ATR = v
	}
	if v, ok := domain.RSI(closes, s.cfg.RSIPeriod); ok {
		stats.RSI = v
	}
	if v, ok := domain.EMA(closes, s.cfg.EMAPeriod); ok {
		stats.EMA = v
	}
	if v, ok := domain.BidAskImbalance(book, depthLevels); ok {
		stats.Imbalance = v
	}

	dv := domain.ComputeDeltaVolume(trades, flowLookback, now)
	stats.DeltaVolume = dv.Delta
	stats.TapeSpeed, _ = domain.ComputeTapeSpeed(trades, flowLookback, now)
	stats.TrendStrength, stats.TrendDirection = domain.TrendMeta(candles, s.cfg.MinTrendStrength)

	return stats, nil
}

// generateSignal pide una señal al oráculo para un candidato admitido.
// Cualquier problema (NO_TRADE, parseo, validación, confianza) es un skip.
func (s *Scanner) generateSignal(ctx context.Context, c candidate, mctx *domain.MarketContext, acct domain.Account) (domain.TradingSignal, bool) {
	in := signalPromptInput{
		Symbol:      c.Symbol,
		Stats:       c.Stats,
		Context:     mctx,
		Balance:     acct.AvailableBalance,
		RiskPercent: s.cfg.RiskPercent,
		MinNotional: s.cfg.MinNotionalUSDT,
		MaxLeverage: s.cfg.MaxLeverage,
		FeePct:      feePctPerSide,
	}

	// Timeframe corto y histórico: enriquecen el prompt, fallos se ignoran.
	if short, err := s.measure(ctx, c.Symbol, s.cfg.ShortInterval, s.now()); err == nil {
		short.VolatilityType = classifyVolatility(s.cfg.Volatility, short.ATR, short.TapeSpeed, short.DeltaVolume)
		in.ShortStats = &short
	} else {
		slog.Debug("short timeframe unavailable", "symbol", c.Symbol, "err", err)
	}
	if s.snapshots != nil {
		if history, _, err := s.snapshots.SnapshotHistory(ctx, c.Symbol, historyInPrompt); err == nil {
			in.History = history
		}
	}

	raw, err := s.oracle.Complete(ctx, buildSignalPrompt(in), s.cfg.Model)
	if err != nil {
		slog.Error("oracle signal call failed", "symbol", c.Symbol, "err", err)
		return domain.TradingSignal{}, false
	}
	if strings.Contains(raw, "NO_TRADE") {
		slog.Info("oracle declined to trade", "symbol", c.Symbol)
		return domain.TradingSignal{}, false
	}

	body, err := extractJSONObject(raw)
	if err != nil {
		slog.Warn("oracle signal response unparseable", "symbol", c.Symbol, "err", err)
		return domain.TradingSignal{}, false
	}

	var sig domain.TradingSignal
	if err := json.Unmarshal([]byte(body), &sig); err != nil {
		slog.Warn("oracle signal JSON invalid", "symbol", c.Symbol, "err", err)
		return domain.TradingSignal{}, false
	}
	sig.Symbol = c.Symbol
	sig.Stats = c.Stats

	if verr := sig.Validate(); verr != nil {
		slog.Warn("oracle signal rejected", "symbol", c.Symbol, "err", verr)
		return domain.TradingSignal{}, false
	}
	if sig.Leverage > s.cfg.MaxLeverage {
		sig.Leverage = s.cfg.MaxLeverage
	}
	sig.ClampNotional(s.cfg.MinNotionalUSDT)

	if s.cfg.UseAdaptive && sig.ConfidenceScore < s.cfg.ConfidenceMedium {
		slog.Info("signal below confidence threshold",
			"symbol", c.Symbol,
			"confidence", sig.ConfidenceScore,
			"required", s.cfg.ConfidenceMedium,
		)
		return domain.TradingSignal{}, false
	}

	return sig, true
}

// persistMetricSnapshot guarda las métricas del símbolo en el histórico.
// Best-effort: un fallo de storage nunca bloquea el ciclo.
func (s *Scanner) persistMetricSnapshot(ctx context.Context, c candidate, mctx *domain.MarketContext) {
	if s.snapshots == nil {
		return
	}
	rsi, ema := c.Stats.RSI, c.Stats.EMA
	entry := domain.SnapshotEntry{
		Timestamp:    s.now(),
		OpenInterest: c.Stats.OpenInterest,
		DeltaVolume:  c.Stats.DeltaVolume,
		TapeSpeed:    c.Stats.TapeSpeed,
		Imbalance:    c.Stats.Imbalance,
		RSI:          &rsi,
		EMA:          &ema,
	}
	if err := s.snapshots.AppendSnapshot(ctx, c.Symbol, entry, mctx); err != nil {
		slog.Warn("persist metric snapshot failed", "symbol", c.Symbol, "err", err)
	}
}

// isDaySession decide la sesión según la hora UTC actual, evaluada en cada
// ciclo (nunca cacheada).
func (s *Scanner) isDaySession(now time.Time) bool {
	h := now.UTC().Hour()
	return h >= s.cfg.DaySessionUTC[0] && h < s.cfg.DaySessionUTC[1]
}

func closesOf(candles []domain.CandleBar) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
