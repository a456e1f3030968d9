// Package reconcile realinea el estado local con el exchange al inicio de
// cada ciclo: cancela órdenes huérfanas y transiciona los registros de
// trades según lo que realmente pasó (stop ejecutado, take ejecutado,
// entrada llenada).
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/Vasooook/binance-ai-trading-bot/internal/ports"
)

// Reconciler sincroniza estado local ↔ exchange. El exchange es la fuente
// de verdad sobre posiciones; el store es el audit trail.
type Reconciler struct {
	trading ports.TradingClient
	store   ports.TradeStore
}

// New crea un Reconciler.
func New(trading ports.TradingClient, store ports.TradeStore) *Reconciler {
	return &Reconciler{trading: trading, store: store}
}

// Sync ejecuta la pasada completa de reconciliación y devuelve el estado de
// cuenta fresco para el resto del ciclo. El fetch de cuenta es fatal: sin él
// no hay base fiable para operar. Todo lo demás degrada con logs.
func (r *Reconciler) Sync(ctx context.Context) (domain.Account, error) {
	acct, err := r.trading.AccountInfo(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("reconcile.Sync: account info: %w", err)
	}

	r.cancelOrphanOrders(ctx, acct)
	r.settleTrades(ctx)

	return acct, nil
}

// cancelOrphanOrders cancela las órdenes abiertas de símbolos sin posición:
// restos de protecciones cuya posición ya cerró por el otro lado.
func (r *Reconciler) cancelOrphanOrders(ctx context.Context, acct domain.Account) {
	orders, err := r.trading.OpenOrders(ctx)
	if err != nil {
		slog.Warn("open orders fetch failed, skipping orphan sweep", "err", err)
		return
	}

	open := make(map[string]bool)
	for _, sym := range acct.OpenSymbols() {
		open[sym] = true
	}

	seen := make(map[string]bool)
	for _, o := range orders {
		if open[o.Symbol] || seen[o.Symbol] {
			continue
		}
		seen[o.Symbol] = true

		if err := r.trading.CancelAllOrders(ctx, o.Symbol); err != nil {
			slog.Warn("orphan order cancel failed", "symbol", o.Symbol, "err", err)
			continue
		}
		slog.Info("orphan orders canceled", "symbol", o.Symbol)
	}
}

// settleTrades revisa cada trade activo contra el exchange:
//   - stop FILLED  → CLOSED_SL
//   - take FILLED  → CLOSED_TP (si varios takes se llenaron, gana el último
//     revisado; el cierre parcial por niveles se loguea)
//   - entrada FILLED con protecciones vivas → FILLED
//
// Los fallos de consulta por orden se saltan: el siguiente ciclo lo reintenta.
func (r *Reconciler) settleTrades(ctx context.Context) {
	trades, err := r.store.ActiveTrades(ctx)
	if err != nil {
		slog.Warn("active trades fetch failed, skipping settle sweep", "err", err)
		return
	}

	for _, t := range trades {
		next := t.Status

		if t.StopOrderID != 0 {
			stop, err := r.trading.OrderStatus(ctx, t.Symbol, t.StopOrderID)
			if err != nil {
				slog.Warn("stop order status failed", "symbol", t.Symbol, "order", t.StopOrderID, "err", err)
			} else if stop.Status == "FILLED" {
				next = domain.StatusClosedSL
			}
		}

		for _, takeID := range t.TakeOrderIDs {
			take, err := r.trading.OrderStatus(ctx, t.Symbol, takeID)
			if err != nil {
				slog.Warn("take order status failed", "symbol", t.Symbol, "order", takeID, "err", err)
				continue
			}
			if take.Status == "FILLED" {
				if next == domain.StatusClosedSL {
					slog.Warn("both stop and take report filled, keeping take", "symbol", t.Symbol, "trade", t.ID)
				}
				next = domain.StatusClosedTP
			}
		}

		// Barrido de estado simple: la entrada llenó pero nada cerró aún.
		if next == t.Status && t.Status == domain.StatusOpen {
			entry, err := r.trading.OrderStatus(ctx, t.Symbol, t.OrderID)
			if err == nil && entry.Status == "FILLED" {
				next = domain.StatusFilled
			}
		}

		if next == t.Status {
			continue
		}
		if err := r.store.UpdateTradeStatus(ctx, t.ID, next); err != nil {
			slog.Warn("trade status update failed", "trade", t.ID, "err", err)
			continue
		}
		slog.Info("trade settled", "symbol", t.Symbol, "trade", t.ID, "from", t.Status, "to", next)
	}
}
