package scanner

// batch.go — fan-out acotado para respetar los rate limits del exchange.
//
// A diferencia de un worker pool clásico, aquí el límite es el upstream:
// batches de tamaño fijo ejecutados en orden de envío, con pausa entre
// batches. Dentro de un batch los miembros corren concurrentes sin orden
// garantizado; el slice de resultados preserva el orden de entrada.

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// batchResult es el resultado por elemento: ok=false significa que el
// elemento falló y debe saltarse, nunca aborta el batch.
type batchResult[R any] struct {
	val R
	ok  bool
}

// mapInBatches aplica fn a cada elemento en batches de batchSize con una
// pausa entre batches. Los fallos individuales degradan a ok=false.
func mapInBatches[T, R any](
	ctx context.Context,
	items []T,
	batchSize int,
	pause time.Duration,
	fn func(context.Context, T) (R, error),
) []batchResult[R] {
	if batchSize <= 0 {
		batchSize = 20
	}

	results := make([]batchResult[R], len(items))

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				val, err := fn(ctx, items[idx])
				if err != nil {
					slog.Warn("batch item failed", "index", idx, "err", err)
					return
				}
				results[idx] = batchResult[R]{val: val, ok: true}
			}(i)
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return results
			}
		}
	}

	return results
}
