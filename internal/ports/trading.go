package ports

import (
	"context"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// TradingClient opera la cuenta de futuros: órdenes, leverage y estado.
type TradingClient interface {
	// AccountInfo devuelve balances y posiciones abiertas.
	AccountInfo(ctx context.Context) (domain.Account, error)

	// SetLeverage fija el apalancamiento del símbolo.
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// SymbolFilters devuelve los filtros de cuantización del símbolo.
	SymbolFilters(ctx context.Context, symbol string) (domain.SymbolInfo, error)

	// PlaceOrder firma y envía una orden.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)

	// OrderStatus consulta el estado de una orden concreta.
	OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error)

	// OpenOrders devuelve todas las órdenes abiertas de la cuenta.
	OpenOrders(ctx context.Context) ([]domain.Order, error)

	// CancelAllOrders cancela todas las órdenes abiertas del símbolo.
	CancelAllOrders(ctx context.Context, symbol string) error
}
