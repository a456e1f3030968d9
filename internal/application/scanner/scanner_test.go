package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks de puertos ---

type mockMarket struct {
	symbols []domain.SymbolInfo
	tickers []domain.Ticker24h
	candles []domain.CandleBar
	book    domain.OrderBook
	trades  []domain.Trade
	oi      float64
	premium domain.PremiumIndex

	klinesErr error

	mu          sync.Mutex
	klineLimits []int
}

func (m *mockMarket) ExchangeSymbols(context.Context) ([]domain.SymbolInfo, error) {
	return m.symbols, nil
}
func (m *mockMarket) Tickers24h(context.Context) ([]domain.Ticker24h, error) {
	return m.tickers, nil
}
func (m *mockMarket) Klines(_ context.Context, _, _ string, limit int) ([]domain.CandleBar, error) {
	m.mu.Lock()
	m.klineLimits = append(m.klineLimits, limit)
	m.mu.Unlock()
	return m.candles, m.klinesErr
}
func (m *mockMarket) Depth(context.Context, string, int) (domain.OrderBook, error) {
	return m.book, nil
}
func (m *mockMarket) AggTrades(context.Context, string, int) ([]domain.Trade, error) {
	return m.trades, nil
}
func (m *mockMarket) OpenInterest(context.Context, string) (float64, error) {
	return m.oi, nil
}
func (m *mockMarket) PremiumIndex(context.Context, string) (domain.PremiumIndex, error) {
	return m.premium, nil
}

type mockOracle struct {
	filterResp string
	filterErr  error
	signalResp string
	signalErr  error

	filterCalls int
	signalCalls int
}

func (m *mockOracle) Complete(_ context.Context, _, model string) (string, error) {
	// el pre-filtro y la generación usan modelos distintos
	if model == "filter-model" {
		m.filterCalls++
		return m.filterResp, m.filterErr
	}
	m.signalCalls++
	return m.signalResp, m.signalErr
}

// --- fixtures ---

func testTime() time.Time {
	// 12:00 UTC: sesión de día
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func risingCandles(n int) []domain.CandleBar {
	candles := make([]domain.CandleBar, n)
	price := 100.0
	for i := range candles {
		price += 1
		candles[i] = domain.CandleBar{Open: price - 1, High: price + 2, Low: price - 2, Close: price}
	}
	return candles
}

func recentTrades(now time.Time, count int, qty float64) []domain.Trade {
	trades := make([]domain.Trade, count)
	for i := range trades {
		trades[i] = domain.Trade{Qty: qty, Time: now.Add(-10 * time.Second), BuyerMaker: false}
	}
	return trades
}

func scanTestConfig() Config {
	return Config{
		PreFilterLimit:  50,
		BatchSize:       5,
		CandlesInterval: "4h",
		ShortInterval:   "5m",
		CandlesCount:    72,
		RSIPeriod:       14,
		EMAPeriod:       13,
		ATRPeriod:       10,

		MinTrendStrength:   0.03,
		MinVolume24h:       1_000_000,
		MaxSpreadPct:       5,
		MinOpenInterest:    100,
		MinTapeSpeedDay:    0.1,
		MinTapeSpeedNight:  0.1,
		MinDeltaVolDay:     10,
		MinDeltaVolNight:   10,
		DaySessionUTC:      [2]int{8, 20},
		UseAdaptive:        true,
		FallbackVolumeMult: 0.7,
		FallbackDeltaMult:  0.5,

		Volatility:       testVol,
		ConfidenceMedium: 60,

		RiskPercent:     0.03,
		MinNotionalUSDT: 15,
		MaxLeverage:     25,

		Model:       "signal-model",
		FilterModel: "filter-model",
	}
}

func healthyMarket() *mockMarket {
	now := testTime()
	return &mockMarket{
		symbols: []domain.SymbolInfo{
			{Symbol: "BTCUSDT", Trading: true},
			{Symbol: "DEADUSDT", Trading: false},
		},
		tickers: []domain.Ticker24h{
			{Symbol: "BTCUSDT", QuoteVolume: 10_000_000, ChangePct: 2.5},
			{Symbol: "DEADUSDT", QuoteVolume: 99_000_000},
		},
		candles: risingCandles(30),
		book: domain.OrderBook{
			Bids: []domain.BookLevel{{Price: 129.9, Qty: 50}},
			Asks: []domain.BookLevel{{Price: 130.1, Qty: 30}},
		},
		trades:  recentTrades(now, 20, 5),
		oi:      50_000,
		premium: domain.PremiumIndex{MarkPrice: 130, LastFundingRate: 0.0001, NextFundingTime: 1},
	}
}

const goodSignalJSON = `{
  "entryPrice": 130,
  "stopLoss": 125,
  "takeProfits": [140, 150],
  "leverage": 5,
  "positionSize": {"contracts": 1, "valueUSDT": 130, "percentBalance": 3},
  "confidenceScore": 85
}`

func newTestScanner(market *mockMarket, oracle *mockOracle) *Scanner {
	s := New(scanTestConfig(), market, oracle, nil)
	s.now = testTime
	return s
}

// --- tests ---

func TestScan_CicloCompleto(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: goodSignalJSON,
	}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{AvailableBalance: 1000})

	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, "BUY", sig.Side())
	assert.Equal(t, 85.0, sig.ConfidenceScore)
	// las métricas medidas viajan con la señal
	assert.Equal(t, 129.9, sig.Stats.BestBid)
	assert.NotEmpty(t, sig.Stats.VolatilityType)

	assert.Equal(t, 1, oracle.filterCalls)
	assert.GreaterOrEqual(t, oracle.signalCalls, 1)
}

func TestScan_OraculoIlegibleEsFailSoft(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{filterResp: "sorry, I cannot help with that"}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{})

	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestScan_ErrorDelOraculoEsFailSoft(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{filterErr: errors.New("rate limited")}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{})

	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestScan_SugerenciaInvalidaDescartada(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{
		// forma inválida, fuera de universo, y no-trading
		filterResp: `["btc-usdt", "FOOUSDT", "DEADUSDT"]`,
		signalResp: goodSignalJSON,
	}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{})

	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Zero(t, oracle.signalCalls)
}

func TestScan_SimboloConPosicionAbiertaSeSalta(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: goodSignalJSON,
	}

	s := newTestScanner(market, oracle)
	acct := domain.Account{
		Positions: []domain.Position{{Symbol: "BTCUSDT", Amount: 0.5}},
	}
	signals, err := s.Scan(context.Background(), acct)

	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Zero(t, oracle.signalCalls)
}

func TestScan_NoTradeDelOraculo(t *testing.T) {
	market := healthyMarket()
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: "NO_TRADE",
	}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{})

	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestScan_ConfianzaBajaSeFiltra(t *testing.T) {
	market := healthyMarket()
	low := strings.Replace(goodSignalJSON, `"confidenceScore": 85`, `"confidenceScore": 30`, 1)
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: low,
	}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{})

	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestScan_VentanaDeVelasPorPase(t *testing.T) {
	// El pase barato pide la ventana mínima (RSIPeriod+1) para ~300 pares;
	// la ventana completa es solo del pase profundo.
	market := healthyMarket()
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: goodSignalJSON,
	}

	s := newTestScanner(market, oracle)
	_, err := s.Scan(context.Background(), domain.Account{AvailableBalance: 1000})
	require.NoError(t, err)

	require.NotEmpty(t, market.klineLimits)
	assert.Equal(t, s.cfg.RSIPeriod+1, market.klineLimits[0])
	assert.Contains(t, market.klineLimits, s.cfg.CandlesCount)
}

func TestScan_LeverageExcesivoSeRecorta(t *testing.T) {
	market := healthyMarket()
	wild := strings.Replace(goodSignalJSON, `"leverage": 5`, `"leverage": 100`, 1)
	oracle := &mockOracle{
		filterResp: `["BTCUSDT"]`,
		signalResp: wild,
	}

	s := newTestScanner(market, oracle)
	signals, err := s.Scan(context.Background(), domain.Account{AvailableBalance: 1000})

	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, 25, signals[0].Leverage)
}
