package ports

import (
	"context"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// MarketDataClient obtiene datos de mercado de futuros USDT-M.
// Los adaptadores deben reintentar fallos transitorios (502/5xx) un número
// acotado de veces con backoff creciente y devolver error fatal para el resto.
type MarketDataClient interface {
	// ExchangeSymbols devuelve la metadata por símbolo: estado de trading
	// y filtros de cuantización (lot step, tick size).
	ExchangeSymbols(ctx context.Context) ([]domain.SymbolInfo, error)

	// Tickers24h devuelve los tickers de 24h de todos los pares.
	Tickers24h(ctx context.Context) ([]domain.Ticker24h, error)

	// Klines devuelve hasta limit velas del intervalo dado.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.CandleBar, error)

	// Depth devuelve el order book con los top-limit niveles por lado.
	Depth(ctx context.Context, symbol string, limit int) (domain.OrderBook, error)

	// AggTrades devuelve los últimos prints agregados de la cinta.
	AggTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error)

	// OpenInterest devuelve el open interest actual en contratos.
	OpenInterest(ctx context.Context, symbol string) (float64, error)

	// PremiumIndex devuelve mark price y funding del símbolo.
	PremiumIndex(ctx context.Context, symbol string) (domain.PremiumIndex, error)
}
