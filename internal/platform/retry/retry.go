// Package retry es el combinador de reintentos acotados del proyecto:
// cap de intentos + política de espera, aplicado uniformemente a las
// llamadas de transporte y al confirm loop de órdenes protectoras.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Permanent marca un error como no reintentable (p.ej. un 4xx del exchange).
func Permanent(err error) error { return backoff.Permanent(err) }

// Constant devuelve una política de espera fija entre intentos.
func Constant(wait time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(wait)
}

// Linear devuelve una política de espera creciente: step, 2×step, 3×step…
func Linear(step time.Duration) backoff.BackOff {
	return &linearBackOff{step: step}
}

type linearBackOff struct {
	step time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return time.Duration(l.n) * l.step
}

func (l *linearBackOff) Reset() { l.n = 0 }

// Do ejecuta fn hasta attempts veces, esperando según policy entre intentos
// y respetando la cancelación del contexto. Devuelve nil al primer éxito o
// el último error al agotar el presupuesto.
func Do(ctx context.Context, attempts int, policy backoff.BackOff, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	policy.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)
	return backoff.Retry(fn, b)
}
