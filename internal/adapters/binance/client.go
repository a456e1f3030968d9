// Package binance es el adaptador REST de futuros USDT-M.
// Firma HMAC-SHA256, rate limiting y retry de fallos transitorios viven
// aquí; el resto del sistema solo ve los ports.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vasooook/binance-ai-trading-bot/internal/platform/retry"
)

const (
	defaultBaseURL = "https://fapi.binance.com"

	// Límites al ~60% de los documentados para dejar margen a otros clientes.
	// REST market data: 2400 weight/min → ~20/s de llamadas ligeras.
	marketRatePerSec = 20
	// Endpoints firmados (órdenes, cuenta): 1200/min → 10/s.
	signedRatePerSec = 10

	maxAttempts   = 3
	baseRetryWait = 1 * time.Second
)

// Client es el HTTP client del exchange con firma, rate limiting y retries.
// Implementa ports.MarketDataClient y ports.TradingClient.
type Client struct {
	http          *http.Client
	baseURL       string
	apiKey        string
	apiSecret     string
	marketLimiter *rate.Limiter
	signedLimiter *rate.Limiter

	now func() time.Time
}

// NewClient crea un Client. Si baseURL está vacío usa producción.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		baseURL:       baseURL,
		apiKey:        apiKey,
		apiSecret:     apiSecret,
		marketLimiter: rate.NewLimiter(marketRatePerSec, 40),
		signedLimiter: rate.NewLimiter(signedRatePerSec, 10),
		now:           time.Now,
	}
}

// request hace una llamada al exchange. signed añade timestamp y firma
// HMAC-SHA256 de la query. Los 5xx y 429 se reintentan con backoff lineal
// (1s, 2s, 3s); cualquier otro fallo es permanente.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	limiter := c.marketLimiter
	if signed {
		limiter = c.signedLimiter
	}

	return retry.Do(ctx, maxAttempts, retry.Linear(baseRetryWait), func() error {
		if err := limiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		if err := c.do(ctx, method, path, params, signed, out); err != nil {
			return err
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		params.Del("signature") // los reintentos refirman desde cero
		params.Set("signature", c.sign(params.Encode()))
	}

	u := c.baseURL + path
	if q := params.Encode(); q != "" {
		u += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("binance: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		slog.Warn("binance: transient error, retrying",
			"method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("binance: %s %s: status %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return retry.Permanent(fmt.Errorf("binance: %s %s: status %d: %s", method, path, resp.StatusCode, string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("binance: decode %s: %w", path, err))
	}
	return nil
}

// sign firma la query con el secret de la API.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
