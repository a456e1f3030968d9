package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test-key", "test-secret")
	c.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return c
}

func TestDepth_ParseaElLibro(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/depth", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"bids":[["50000.5","1.2"],["50000.0","3"]],"asks":[["50001.0","0.8"]]}`))
	})

	book, err := c.Depth(context.Background(), "BTCUSDT", 5)
	require.NoError(t, err)
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, 50000.5, book.BestBid())
	assert.Equal(t, 50001.0, book.BestAsk())
}

func TestRequest_FirmaHMAC(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
		w.Write([]byte(`{"availableBalance":"100","totalWalletBalance":"100","positions":[]}`))
	})

	_, err := c.AccountInfo(context.Background())
	require.NoError(t, err)

	values, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	signature := values.Get("signature")
	require.NotEmpty(t, signature)
	assert.Equal(t, "1700000000000", values.Get("timestamp"))

	// la firma cubre la query sin el propio parámetro signature
	values.Del("signature")
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(values.Encode()))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestRequest_ReintentaTransitorios(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"openInterest":"12345"}`))
	})

	oi, err := c.OpenInterest(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 12345.0, oi)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRequest_4xxEsPermanente(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1111,"msg":"Precision is over the maximum"}`))
	})

	_, err := c.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET", Quantity: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-1111")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPlaceOrder_ParametrosCondicionales(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"orderId":77,"status":"NEW","avgPrice":"0"}`))
	})

	placed, err := c.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		Symbol:     "ETHUSDT",
		Side:       "SELL",
		Type:       "STOP_MARKET",
		Quantity:   1.5,
		StopPrice:  2950.5,
		ReduceOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), placed.OrderID)

	values, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	assert.Equal(t, "2950.5", values.Get("stopPrice"))
	assert.Equal(t, "true", values.Get("reduceOnly"))
	assert.Equal(t, "1.5", values.Get("quantity"))
}

func TestKlines_ParseaArraysMixtos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"100.0","105.0","99.0","104.0","1234.5",0,"0",0,"0","0","0"]]`))
	})

	candles, err := c.Klines(context.Background(), "BTCUSDT", "4h", 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 104.0, candles[0].Close)
	assert.Equal(t, 1234.5, candles[0].Volume)
	assert.Equal(t, int64(1700000000000), candles[0].OpenTime.UnixMilli())
}
