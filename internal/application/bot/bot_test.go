package bot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/adapters/notify"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/engine"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/reconcile"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/scanner"
	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExchange implementa los dos puertos del exchange con datos fijos.
type mockExchange struct {
	acct domain.Account

	scanned bool
}

func (m *mockExchange) AccountInfo(context.Context) (domain.Account, error) {
	return m.acct, nil
}
func (m *mockExchange) SetLeverage(context.Context, string, int) error { return nil }
func (m *mockExchange) SymbolFilters(context.Context, string) (domain.SymbolInfo, error) {
	return domain.SymbolInfo{}, nil
}
func (m *mockExchange) PlaceOrder(context.Context, domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	return domain.PlacedOrder{}, nil
}
func (m *mockExchange) OrderStatus(context.Context, string, int64) (domain.Order, error) {
	return domain.Order{Status: "NEW"}, nil
}
func (m *mockExchange) OpenOrders(context.Context) ([]domain.Order, error) { return nil, nil }
func (m *mockExchange) CancelAllOrders(context.Context, string) error      { return nil }

func (m *mockExchange) ExchangeSymbols(context.Context) ([]domain.SymbolInfo, error) {
	m.scanned = true
	return nil, nil
}
func (m *mockExchange) Tickers24h(context.Context) ([]domain.Ticker24h, error) { return nil, nil }
func (m *mockExchange) Klines(context.Context, string, string, int) ([]domain.CandleBar, error) {
	return nil, nil
}
func (m *mockExchange) Depth(context.Context, string, int) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (m *mockExchange) AggTrades(context.Context, string, int) ([]domain.Trade, error) {
	return nil, nil
}
func (m *mockExchange) OpenInterest(context.Context, string) (float64, error) { return 0, nil }
func (m *mockExchange) PremiumIndex(context.Context, string) (domain.PremiumIndex, error) {
	return domain.PremiumIndex{}, nil
}

type mockStore struct{}

func (mockStore) InsertTrade(context.Context, domain.TradeRecord) error { return nil }
func (mockStore) AttachProtectiveOrders(context.Context, string, int64, []int64) error {
	return nil
}
func (mockStore) UpdateTradeStatus(context.Context, string, domain.TradeStatus) error { return nil }
func (mockStore) ActiveTrades(context.Context) ([]domain.TradeRecord, error)          { return nil, nil }
func (mockStore) Close() error                                                        { return nil }

type mockOracle struct{}

func (mockOracle) Complete(context.Context, string, string) (string, error) { return "[]", nil }

func newTestBot(exchange *mockExchange, maxPositions int) (*Bot, *bytes.Buffer) {
	var buf bytes.Buffer

	sc := scanner.New(scanner.Config{BatchSize: 5}, exchange, mockOracle{}, nil)
	eng := engine.New(engine.Config{
		MaxPositions:   maxPositions,
		ConfirmRetries: 1,
		ConfirmPause:   time.Millisecond,
	}, exchange, mockStore{})
	rec := reconcile.New(exchange, mockStore{})
	notifier := notify.NewConsoleWriter(&buf, false)

	return New(rec, sc, eng, notifier, time.Hour, maxPositions), &buf
}

func TestRunOnce_CicloVacio(t *testing.T) {
	exchange := &mockExchange{}
	b, buf := newTestBot(exchange, 3)

	require.NoError(t, b.RunOnce(context.Background()))
	assert.True(t, exchange.scanned)
	assert.Contains(t, buf.String(), "no signals this cycle")
}

func TestRunOnce_SinHuecosNoEscanea(t *testing.T) {
	exchange := &mockExchange{
		acct: domain.Account{
			Positions: []domain.Position{
				{Symbol: "BTCUSDT", Amount: 1},
				{Symbol: "ETHUSDT", Amount: -1},
			},
		},
	}
	b, buf := newTestBot(exchange, 2)

	require.NoError(t, b.RunOnce(context.Background()))
	assert.False(t, exchange.scanned)
	assert.Empty(t, buf.String())
}

func TestRunOnce_GuardiaDeReentrada(t *testing.T) {
	exchange := &mockExchange{}
	b, _ := newTestBot(exchange, 3)

	b.running.Store(true)
	require.NoError(t, b.RunOnce(context.Background()))
	assert.False(t, exchange.scanned)
}
