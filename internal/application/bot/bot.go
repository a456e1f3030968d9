// Package bot es el orquestador de ciclos: reconciliar → escanear →
// notificar → ejecutar, en un loop de ticker de intervalo fijo.
package bot

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/application/engine"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/reconcile"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/scanner"
	"github.com/Vasooook/binance-ai-trading-bot/internal/ports"
)

// Bot encadena las fases del ciclo de trading.
type Bot struct {
	reconciler *reconcile.Reconciler
	scanner    *scanner.Scanner
	engine     *engine.Engine
	notifier   ports.Notifier

	interval     time.Duration
	maxPositions int

	running atomic.Bool
}

// New crea un Bot.
func New(
	reconciler *reconcile.Reconciler,
	sc *scanner.Scanner,
	eng *engine.Engine,
	notifier ports.Notifier,
	interval time.Duration,
	maxPositions int,
) *Bot {
	return &Bot{
		reconciler:   reconciler,
		scanner:      sc,
		engine:       eng,
		notifier:     notifier,
		interval:     interval,
		maxPositions: maxPositions,
	}
}

// Run ejecuta un ciclo inmediatamente y después en cada tick del intervalo,
// hasta que el contexto se cancele. Si un ciclo sigue corriendo cuando llega
// el tick, el tick se salta — nunca se encolan ciclos.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("bot started", "interval", b.interval)

	if err := b.RunOnce(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("bot stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta un único ciclo completo. Si otro ciclo está en marcha
// devuelve nil sin hacer nada (skip, no cola).
func (b *Bot) RunOnce(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		slog.Warn("previous cycle still running, skipping tick")
		return nil
	}
	defer b.running.Store(false)

	started := time.Now()

	// 1. Reconciliar: estado fresco del exchange, órdenes huérfanas fuera.
	acct, err := b.reconciler.Sync(ctx)
	if err != nil {
		return err
	}

	// 2. Presupuesto de posiciones: sin hueco no hay motivo para escanear.
	open := len(acct.OpenSymbols())
	if open >= b.maxPositions {
		slog.Info("all position slots in use, skipping scan", "open", open, "max", b.maxPositions)
		return nil
	}

	// 3. Escanear y rankear.
	signals, err := b.scanner.Scan(ctx, acct)
	if err != nil {
		return err
	}

	// 4. Notificar siempre, haya o no señales.
	if err := b.notifier.Notify(ctx, signals); err != nil {
		slog.Warn("notify failed", "err", err)
	}
	if len(signals) == 0 {
		return nil
	}

	// 5. Ejecutar en orden de ranking.
	if _, err := b.engine.Execute(ctx, acct, signals); err != nil {
		return err
	}

	slog.Info("cycle finished", "elapsed", time.Since(started))
	return nil
}
