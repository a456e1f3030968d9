// Package engine turns ranked trading signals into live exchange positions.
//
// Execution is deliberately conservative: every per-signal problem is a
// skip, never an abort, and a position is only persisted once both
// protective legs are confirmed live on the exchange. A position whose
// protection could not be confirmed is flattened immediately.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/Vasooook/binance-ai-trading-bot/internal/platform/retry"
	"github.com/Vasooook/binance-ai-trading-bot/internal/ports"
)

// ErrCycleRunning is returned when Execute is called while a previous
// execution cycle still holds the lock.
var ErrCycleRunning = errors.New("engine: execution cycle already running")

// Config holds the execution parameters, already resolved.
type Config struct {
	MaxPositions    int
	RiskPercent     float64
	MinNotionalUSDT float64
	ConfirmRetries  int
	ConfirmPause    time.Duration
}

// CycleResult summarizes one execution cycle.
type CycleResult struct {
	Placed     int
	Skipped    int
	RolledBack int
}

// Engine executes validated signals against the exchange.
type Engine struct {
	trading ports.TradingClient
	store   ports.TradeStore
	cfg     Config

	mu sync.Mutex
}

// New creates an Engine.
func New(cfg Config, trading ports.TradingClient, store ports.TradeStore) *Engine {
	return &Engine{trading: trading, store: store, cfg: cfg}
}

// Execute places orders for as many signals as the position budget allows,
// in ranking order. Signals are independent: one failing symbol never
// blocks the rest.
func (e *Engine) Execute(ctx context.Context, acct domain.Account, signals []domain.TradingSignal) (CycleResult, error) {
	if !e.mu.TryLock() {
		return CycleResult{}, ErrCycleRunning
	}
	defer e.mu.Unlock()

	var res CycleResult

	open := make(map[string]bool)
	for _, sym := range acct.OpenSymbols() {
		open[sym] = true
	}
	slots := e.cfg.MaxPositions - len(open)
	if slots <= 0 {
		slog.Info("position budget exhausted", "max", e.cfg.MaxPositions, "open", len(open))
		return res, nil
	}

	balance := acct.AvailableBalance

	for i := range signals {
		if slots <= 0 {
			res.Skipped += len(signals) - i
			break
		}
		sig := signals[i]

		if verr := sig.Validate(); verr != nil {
			slog.Warn("signal failed validation", "symbol", sig.Symbol, "err", verr)
			res.Skipped++
			continue
		}
		if open[sig.Symbol] {
			slog.Info("symbol already has an open position", "symbol", sig.Symbol)
			res.Skipped++
			continue
		}

		spent, err := e.placeTrade(ctx, sig, balance)
		if err != nil {
			var rb *rollbackError
			if errors.As(err, &rb) {
				res.RolledBack++
			}
			slog.Warn("signal skipped", "symbol", sig.Symbol, "err", err)
			res.Skipped++
			continue
		}

		res.Placed++
		slots--
		open[sig.Symbol] = true
		balance -= spent
	}

	slog.Info("execution cycle done",
		"placed", res.Placed,
		"skipped", res.Skipped,
		"rolled_back", res.RolledBack,
	)
	return res, nil
}

// rollbackError marks a failure where the entry was filled but protection
// could not be confirmed and the position was flattened.
type rollbackError struct{ inner error }

func (e *rollbackError) Error() string { return e.inner.Error() }
func (e *rollbackError) Unwrap() error { return e.inner }

// placeTrade runs the full order sequence for one signal. On success it
// returns the margin consumed so the caller can shrink its local balance.
func (e *Engine) placeTrade(ctx context.Context, sig domain.TradingSignal, balance float64) (float64, error) {
	if err := e.trading.SetLeverage(ctx, sig.Symbol, sig.Leverage); err != nil {
		return 0, fmt.Errorf("set leverage: %w", err)
	}

	info, err := e.trading.SymbolFilters(ctx, sig.Symbol)
	if err != nil {
		return 0, fmt.Errorf("symbol filters: %w", err)
	}

	qty := e.sizePosition(sig, balance, info.StepSize)
	if qty <= 0 {
		return 0, fmt.Errorf("quantity rounds to zero (step %v)", info.StepSize)
	}

	side := sig.Side()

	entry, err := e.trading.PlaceOrder(ctx, domain.PlaceOrderRequest{
		Symbol:   sig.Symbol,
		Side:     side,
		Type:     "MARKET",
		Quantity: qty,
	})
	if err != nil {
		return 0, fmt.Errorf("entry order: %w", err)
	}

	avgPrice := entry.AvgFilledPrice
	if avgPrice <= 0 {
		avgPrice = sig.EntryPrice
	}

	stopID, takeIDs, err := e.confirmProtection(ctx, sig, side, qty, info.TickSize)
	if err != nil {
		e.flatten(ctx, sig.Symbol, side, qty)
		return 0, &rollbackError{inner: fmt.Errorf("protective orders: %w", err)}
	}

	record := domain.TradeRecord{
		ID:           uuid.New().String(),
		Symbol:       sig.Symbol,
		Side:         side,
		OrderID:      entry.OrderID,
		StopOrderID:  stopID,
		TakeOrderIDs: takeIDs,
		EntryPrice:   avgPrice,
		StopLoss:     sig.StopLoss,
		TakeProfits:  sig.TakeProfits,
		Leverage:     sig.Leverage,
		PositionSize: domain.PositionSize{
			Contracts:      qty,
			ValueUSDT:      qty * avgPrice,
			PercentBalance: sig.PositionSize.PercentBalance,
		},
		Status:    domain.StatusOpen,
		Timestamp: time.Now().UTC(),
	}

	if err := e.store.InsertTrade(ctx, record); err != nil {
		// The position is live and protected; only the local record is missing.
		slog.Error("trade placed but not persisted", "symbol", sig.Symbol, "id", record.ID, "err", err)
		return qty * avgPrice / float64(sig.Leverage), nil
	}
	if err := e.store.AttachProtectiveOrders(ctx, record.ID, stopID, takeIDs); err != nil {
		slog.Error("protective order ids not persisted", "symbol", sig.Symbol, "id", record.ID, "err", err)
	}

	slog.Info("trade placed",
		"symbol", sig.Symbol,
		"side", side,
		"qty", qty,
		"entry", avgPrice,
		"stop", sig.StopLoss,
		"leverage", sig.Leverage,
	)
	return qty * avgPrice / float64(sig.Leverage), nil
}

// sizePosition derives the order quantity: risk a fixed fraction of the
// balance, never below the exchange minimum notional, scaled by leverage
// and floored to the lot step.
func (e *Engine) sizePosition(sig domain.TradingSignal, balance float64, step float64) float64 {
	riskAmount := balance * e.cfg.RiskPercent
	target := riskAmount
	if target < e.cfg.MinNotionalUSDT {
		target = e.cfg.MinNotionalUSDT
	}

	rawQty := target * float64(sig.Leverage) / sig.EntryPrice
	return domain.RoundToStep(rawQty, step)
}

// confirmProtection places the stop-market and take-profit-market legs and
// polls until BOTH report live, retrying the whole placement a bounded
// number of times. Both legs are reduce-only on the opposite side.
func (e *Engine) confirmProtection(ctx context.Context, sig domain.TradingSignal, side string, qty, tick float64) (int64, []int64, error) {
	exitSide := "SELL"
	if side == "SELL" {
		exitSide = "BUY"
	}

	stopPrice := roundToTick(sig.StopLoss, tick)
	takePrices := make([]float64, len(sig.TakeProfits))
	for i, tp := range sig.TakeProfits {
		takePrices[i] = roundToTick(tp, tick)
	}

	var stopID int64
	var takeIDs []int64

	err := retry.Do(ctx, e.cfg.ConfirmRetries, retry.Constant(e.cfg.ConfirmPause), func() error {
		stop, err := e.trading.PlaceOrder(ctx, domain.PlaceOrderRequest{
			Symbol:     sig.Symbol,
			Side:       exitSide,
			Type:       "STOP_MARKET",
			Quantity:   qty,
			StopPrice:  stopPrice,
			ReduceOnly: true,
		})
		if err != nil {
			return fmt.Errorf("place stop: %w", err)
		}

		takeIDs = takeIDs[:0]
		for _, price := range takePrices {
			take, err := e.trading.PlaceOrder(ctx, domain.PlaceOrderRequest{
				Symbol:     sig.Symbol,
				Side:       exitSide,
				Type:       "TAKE_PROFIT_MARKET",
				Quantity:   qty,
				StopPrice:  price,
				ReduceOnly: true,
			})
			if err != nil {
				return fmt.Errorf("place take profit: %w", err)
			}
			takeIDs = append(takeIDs, take.OrderID)
		}

		status, err := e.trading.OrderStatus(ctx, sig.Symbol, stop.OrderID)
		if err != nil || !status.Live() {
			return fmt.Errorf("stop order not live")
		}
		for _, id := range takeIDs {
			status, err := e.trading.OrderStatus(ctx, sig.Symbol, id)
			if err != nil || !status.Live() {
				return fmt.Errorf("take profit order not live")
			}
		}

		stopID = stop.OrderID
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return stopID, takeIDs, nil
}

// flatten closes the naked position with a single reduce-only market order.
// A failure here is logged loudly: the reconciler will see the unprotected
// position on the next cycle.
func (e *Engine) flatten(ctx context.Context, symbol, side string, qty float64) {
	exitSide := "SELL"
	if side == "SELL" {
		exitSide = "BUY"
	}
	_, err := e.trading.PlaceOrder(ctx, domain.PlaceOrderRequest{
		Symbol:     symbol,
		Side:       exitSide,
		Type:       "MARKET",
		Quantity:   qty,
		ReduceOnly: true,
	})
	if err != nil {
		slog.Error("ROLLBACK FAILED: naked position left on exchange", "symbol", symbol, "qty", qty, "err", err)
		return
	}
	slog.Warn("position rolled back", "symbol", symbol, "qty", qty)
}

// roundToTick snaps a price to the symbol's tick grid.
func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return domain.RoundToStep(price, tick)
}
