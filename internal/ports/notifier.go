package ports

import (
	"context"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// Notifier presenta las señales rankeadas al usuario.
type Notifier interface {
	// Notify muestra las señales ordenadas por confianza.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, signals []domain.TradingSignal) error
}
