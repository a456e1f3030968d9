package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// AccountInfo devuelve balances y posiciones abiertas.
func (c *Client) AccountInfo(ctx context.Context) (domain.Account, error) {
	var resp accountResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v2/account", nil, true, &resp); err != nil {
		return domain.Account{}, fmt.Errorf("binance.AccountInfo: %w", err)
	}

	acct := domain.Account{
		AvailableBalance:   parseFloat(resp.AvailableBalance),
		TotalWalletBalance: parseFloat(resp.TotalWalletBalance),
		Positions:          make([]domain.Position, 0, len(resp.Positions)),
	}
	for _, p := range resp.Positions {
		acct.Positions = append(acct.Positions, domain.Position{
			Symbol:     p.Symbol,
			Amount:     parseFloat(p.PositionAmt),
			EntryPrice: parseFloat(p.EntryPrice),
		})
	}
	return acct, nil
}

// SetLeverage fija el apalancamiento del símbolo.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	if err := c.request(ctx, http.MethodPost, "/fapi/v1/leverage", params, true, nil); err != nil {
		return fmt.Errorf("binance.SetLeverage %s: %w", symbol, err)
	}
	return nil
}

// SymbolFilters devuelve los filtros de cuantización del símbolo.
func (c *Client) SymbolFilters(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	symbols, err := c.ExchangeSymbols(ctx)
	if err != nil {
		return domain.SymbolInfo{}, fmt.Errorf("binance.SymbolFilters %s: %w", symbol, err)
	}
	for _, s := range symbols {
		if s.Symbol == symbol {
			return s, nil
		}
	}
	return domain.SymbolInfo{}, fmt.Errorf("binance.SymbolFilters: unknown symbol %s", symbol)
}

// PlaceOrder firma y envía una orden.
func (c *Client) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.StopPrice > 0 {
		params.Set("stopPrice", strconv.FormatFloat(req.StopPrice, 'f', -1, 64))
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	var resp orderResp
	if err := c.request(ctx, http.MethodPost, "/fapi/v1/order", params, true, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("binance.PlaceOrder %s %s %s: %w", req.Symbol, req.Side, req.Type, err)
	}
	return domain.PlacedOrder{
		OrderID:        resp.OrderID,
		Status:         resp.Status,
		AvgFilledPrice: parseFloat(resp.AvgPrice),
	}, nil
}

// OrderStatus consulta el estado de una orden concreta.
func (c *Client) OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	var resp orderResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/order", params, true, &resp); err != nil {
		return domain.Order{}, fmt.Errorf("binance.OrderStatus %s %d: %w", symbol, orderID, err)
	}
	return domain.Order{
		OrderID: resp.OrderID,
		Symbol:  resp.Symbol,
		Side:    resp.Side,
		Type:    resp.Type,
		Status:  resp.Status,
	}, nil
}

// OpenOrders devuelve todas las órdenes abiertas de la cuenta.
func (c *Client) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	var resp []orderResp
	if err := c.request(ctx, http.MethodGet, "/fapi/v1/openOrders", nil, true, &resp); err != nil {
		return nil, fmt.Errorf("binance.OpenOrders: %w", err)
	}

	out := make([]domain.Order, 0, len(resp))
	for _, o := range resp {
		out = append(out, domain.Order{
			OrderID: o.OrderID,
			Symbol:  o.Symbol,
			Side:    o.Side,
			Type:    o.Type,
			Status:  o.Status,
		})
	}
	return out, nil
}

// CancelAllOrders cancela todas las órdenes abiertas del símbolo.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)

	if err := c.request(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", params, true, nil); err != nil {
		return fmt.Errorf("binance.CancelAllOrders %s: %w", symbol, err)
	}
	return nil
}
