package ports

import (
	"context"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

// TradeStore persiste los registros de trades. Los registros nunca se
// borran, solo transicionan de estado.
type TradeStore interface {
	// InsertTrade crea el registro inicial (status OPEN).
	InsertTrade(ctx context.Context, trade domain.TradeRecord) error

	// AttachProtectiveOrders añade los ids de stop y take-profit al registro.
	AttachProtectiveOrders(ctx context.Context, id string, stopOrderID int64, takeOrderIDs []int64) error

	// UpdateTradeStatus transiciona el estado del registro.
	UpdateTradeStatus(ctx context.Context, id string, status domain.TradeStatus) error

	// ActiveTrades devuelve los registros con status OPEN o FILLED.
	ActiveTrades(ctx context.Context) ([]domain.TradeRecord, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

// SnapshotStore guarda el histórico de snapshots por símbolo: un array
// acotado (FIFO, máx 50) más un blob de contexto de mercado.
// La persistencia es best-effort — fallos se loguean, nunca bloquean señales.
type SnapshotStore interface {
	// AppendSnapshot añade una entrada al histórico del símbolo, recortando
	// las más antiguas por encima del cap, y reemplaza el contexto.
	AppendSnapshot(ctx context.Context, symbol string, entry domain.SnapshotEntry, mctx *domain.MarketContext) error

	// SnapshotHistory devuelve las últimas limit entradas y el contexto guardado.
	SnapshotHistory(ctx context.Context, symbol string, limit int) ([]domain.SnapshotEntry, *domain.MarketContext, error)
}
