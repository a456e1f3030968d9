package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// ExchangeSymbols devuelve la metadata de todos los símbolos del exchange.
func (c *Client) ExchangeSymbols(ctx context.Context) ([]domain.SymbolInfo, error) {
	var resp exchangeInfoResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, &resp); err != nil {
		return nil, fmt.Errorf("binance.ExchangeSymbols: %w", err)
	}

	out := make([]domain.SymbolInfo, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		out = append(out, s.toDomain())
	}
	return out, nil
}

// Tickers24h devuelve los tickers de 24h de todos los pares.
func (c *Client) Tickers24h(ctx context.Context) ([]domain.Ticker24h, error) {
	var resp []tickerResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/ticker/24hr", nil, false, &resp); err != nil {
		return nil, fmt.Errorf("binance.Tickers24h: %w", err)
	}

	out := make([]domain.Ticker24h, 0, len(resp))
	for _, t := range resp {
		out = append(out, domain.Ticker24h{
			Symbol:      t.Symbol,
			QuoteVolume: parseFloat(t.QuoteVolume),
			ChangePct:   parseFloat(t.PriceChangePercent),
		})
	}
	return out, nil
}

// Klines devuelve hasta limit velas del intervalo dado, más antigua primero.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.CandleBar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var resp []kline
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/klines", params, false, &resp); err != nil {
		return nil, fmt.Errorf("binance.Klines %s: %w", symbol, err)
	}

	out := make([]domain.CandleBar, 0, len(resp))
	for _, k := range resp {
		out = append(out, k.toDomain())
	}
	return out, nil
}

// Depth devuelve el order book con los top-limit niveles por lado.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var resp depthResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/depth", params, false, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("binance.Depth %s: %w", symbol, err)
	}
	return resp.toDomain(), nil
}

// AggTrades devuelve los últimos prints agregados de la cinta.
func (c *Client) AggTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var resp []aggTradeResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/aggTrades", params, false, &resp); err != nil {
		return nil, fmt.Errorf("binance.AggTrades %s: %w", symbol, err)
	}

	out := make([]domain.Trade, 0, len(resp))
	for _, t := range resp {
		out = append(out, t.toDomain())
	}
	return out, nil
}

// OpenInterest devuelve el open interest actual en contratos.
func (c *Client) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp openInterestResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/openInterest", params, false, &resp); err != nil {
		return 0, fmt.Errorf("binance.OpenInterest %s: %w", symbol, err)
	}
	return parseFloat(resp.OpenInterest), nil
}

// PremiumIndex devuelve mark price y funding del símbolo.
func (c *Client) PremiumIndex(ctx context.Context, symbol string) (domain.PremiumIndex, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp premiumIndexResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/premiumIndex", params, false, &resp); err != nil {
		return domain.PremiumIndex{}, fmt.Errorf("binance.PremiumIndex %s: %w", symbol, err)
	}
	return domain.PremiumIndex{
		MarkPrice:       parseFloat(resp.MarkPrice),
		LastFundingRate: parseFloat(resp.LastFundingRate),
		NextFundingTime: resp.NextFundingTime,
	}, nil
}
