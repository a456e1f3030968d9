package ports

import "context"

// SignalOracle es el servicio de decisión hospedado.
// Devuelve texto crudo; el caller es responsable de extraer el JSON
// (preámbulo y code fences incluidos) y de tratar un fallo de parseo como
// "sin señal", nunca como fatal.
type SignalOracle interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}
