package storage

// sqlite.go — dos colecciones lógicas:
//   - `trades`: una fila por trade ejecutado. Append-only: las filas nunca
//     se borran, solo transicionan de status (audit trail).
//   - `snapshots`: una fila por símbolo con el histórico de métricas como
//     array JSON acotado (FIFO, máx 50) más un blob de contexto de mercado.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id              TEXT PRIMARY KEY,
    symbol          TEXT NOT NULL,
    side            TEXT NOT NULL,
    order_id        INTEGER NOT NULL,
    stop_order_id   INTEGER NOT NULL DEFAULT 0,
    take_order_ids  TEXT    NOT NULL DEFAULT '[]',
    entry_price     REAL    NOT NULL,
    stop_loss       REAL    NOT NULL,
    take_profits    TEXT    NOT NULL DEFAULT '[]',
    leverage        INTEGER NOT NULL,
    contracts       REAL    NOT NULL,
    value_usdt      REAL    NOT NULL,
    percent_balance REAL    NOT NULL,
    status          TEXT    NOT NULL,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

CREATE TABLE IF NOT EXISTS snapshots (
    symbol         TEXT PRIMARY KEY,
    market_data    TEXT NOT NULL DEFAULT '[]',
    market_context TEXT,
    updated_at     DATETIME NOT NULL
);
`

// snapshotCap es el máximo de entradas del histórico por símbolo.
const snapshotCap = 50

// SQLiteStore implementa ports.TradeStore y ports.SnapshotStore usando
// SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InsertTrade crea el registro inicial de un trade.
func (s *SQLiteStore) InsertTrade(ctx context.Context, t domain.TradeRecord) error {
	takeIDs, err := json.Marshal(t.TakeOrderIDs)
	if err != nil {
		return fmt.Errorf("storage.InsertTrade: marshal take ids: %w", err)
	}
	takeProfits, err := json.Marshal(t.TakeProfits)
	if err != nil {
		return fmt.Errorf("storage.InsertTrade: marshal take profits: %w", err)
	}

	now := time.Now().UTC()
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, symbol, side, order_id, stop_order_id, take_order_ids,
			 entry_price, stop_loss, take_profits, leverage,
			 contracts, value_usdt, percent_balance, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Side, t.OrderID, t.StopOrderID, string(takeIDs),
		t.EntryPrice, t.StopLoss, string(takeProfits), t.Leverage,
		t.PositionSize.Contracts, t.PositionSize.ValueUSDT, t.PositionSize.PercentBalance,
		string(t.Status), t.Timestamp.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("storage.InsertTrade %s: %w", t.Symbol, err)
	}
	return nil
}

// AttachProtectiveOrders añade los ids de stop y take-profit al registro.
func (s *SQLiteStore) AttachProtectiveOrders(ctx context.Context, id string, stopOrderID int64, takeOrderIDs []int64) error {
	takeIDs, err := json.Marshal(takeOrderIDs)
	if err != nil {
		return fmt.Errorf("storage.AttachProtectiveOrders: marshal take ids: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET stop_order_id = ?, take_order_ids = ?, updated_at = ? WHERE id = ?`,
		stopOrderID, string(takeIDs), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("storage.AttachProtectiveOrders %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.AttachProtectiveOrders: trade %s not found", id)
	}
	return nil
}

// UpdateTradeStatus transiciona el estado del registro.
func (s *SQLiteStore) UpdateTradeStatus(ctx context.Context, id string, status domain.TradeStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateTradeStatus %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateTradeStatus: trade %s not found", id)
	}
	return nil
}

// ActiveTrades devuelve los registros con status OPEN o FILLED.
func (s *SQLiteStore) ActiveTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, side, order_id, stop_order_id, take_order_ids,
		       entry_price, stop_loss, take_profits, leverage,
		       contracts, value_usdt, percent_balance, status, created_at
		FROM trades
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
	`, string(domain.StatusOpen), string(domain.StatusFilled))
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var takeIDs, takeProfits, status string

		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.Side, &t.OrderID, &t.StopOrderID, &takeIDs,
			&t.EntryPrice, &t.StopLoss, &takeProfits, &t.Leverage,
			&t.PositionSize.Contracts, &t.PositionSize.ValueUSDT, &t.PositionSize.PercentBalance,
			&status, &t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("storage.ActiveTrades: scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(takeIDs), &t.TakeOrderIDs); err != nil {
			return nil, fmt.Errorf("storage.ActiveTrades: take ids of %s: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(takeProfits), &t.TakeProfits); err != nil {
			return nil, fmt.Errorf("storage.ActiveTrades: take profits of %s: %w", t.ID, err)
		}
		t.Status = domain.TradeStatus(status)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// AppendSnapshot añade una entrada al histórico del símbolo con recorte FIFO
// y reemplaza el contexto de mercado.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, symbol string, entry domain.SnapshotEntry, mctx *domain.MarketContext) error {
	var history []domain.SnapshotEntry

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT market_data FROM snapshots WHERE symbol = ?`, symbol,
	).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// primer snapshot del símbolo
	case err != nil:
		return fmt.Errorf("storage.AppendSnapshot %s: read: %w", symbol, err)
	default:
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			// histórico corrupto: empezar de cero antes que bloquear el ciclo
			history = nil
		}
	}

	history = append(history, entry)
	if len(history) > snapshotCap {
		history = history[len(history)-snapshotCap:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("storage.AppendSnapshot %s: marshal: %w", symbol, err)
	}

	var contextJSON any
	if mctx != nil {
		b, err := json.Marshal(mctx)
		if err != nil {
			return fmt.Errorf("storage.AppendSnapshot %s: marshal context: %w", symbol, err)
		}
		contextJSON = string(b)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (symbol, market_data, market_context, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			market_data    = excluded.market_data,
			market_context = COALESCE(excluded.market_context, snapshots.market_context),
			updated_at     = excluded.updated_at
	`, symbol, string(data), contextJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AppendSnapshot %s: upsert: %w", symbol, err)
	}
	return nil
}

// SnapshotHistory devuelve las últimas limit entradas y el contexto guardado.
func (s *SQLiteStore) SnapshotHistory(ctx context.Context, symbol string, limit int) ([]domain.SnapshotEntry, *domain.MarketContext, error) {
	var raw string
	var contextRaw sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT market_data, market_context FROM snapshots WHERE symbol = ?`, symbol,
	).Scan(&raw, &contextRaw)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("storage.SnapshotHistory %s: %w", symbol, err)
	}

	var history []domain.SnapshotEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, nil, fmt.Errorf("storage.SnapshotHistory %s: unmarshal: %w", symbol, err)
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	var mctx *domain.MarketContext
	if contextRaw.Valid && contextRaw.String != "" {
		mctx = &domain.MarketContext{}
		if err := json.Unmarshal([]byte(contextRaw.String), mctx); err != nil {
			mctx = nil
		}
	}
	return history, mctx, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
