package binance

// types.go — payloads del wire. Binance serializa casi todos los números
// como strings; el parseo a float vive en los helpers de conversión.

import (
	"strconv"
	"time"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

type exchangeInfoResp struct {
	Symbols []symbolInfoResp `json:"symbols"`
}

type symbolInfoResp struct {
	Symbol  string       `json:"symbol"`
	Status  string       `json:"status"`
	Filters []filterResp `json:"filters"`
}

type filterResp struct {
	FilterType string `json:"filterType"`
	StepSize   string `json:"stepSize"`
	TickSize   string `json:"tickSize"`
}

func (s symbolInfoResp) toDomain() domain.SymbolInfo {
	info := domain.SymbolInfo{
		Symbol:  s.Symbol,
		Trading: s.Status == "TRADING",
	}
	for _, f := range s.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			info.StepSize = parseFloat(f.StepSize)
		case "PRICE_FILTER":
			info.TickSize = parseFloat(f.TickSize)
		}
	}
	return info
}

type tickerResp struct {
	Symbol             string `json:"symbol"`
	QuoteVolume        string `json:"quoteVolume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

type depthResp struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (d depthResp) toDomain() domain.OrderBook {
	book := domain.OrderBook{
		Bids: make([]domain.BookLevel, 0, len(d.Bids)),
		Asks: make([]domain.BookLevel, 0, len(d.Asks)),
	}
	for _, lvl := range d.Bids {
		book.Bids = append(book.Bids, domain.BookLevel{Price: parseFloat(lvl[0]), Qty: parseFloat(lvl[1])})
	}
	for _, lvl := range d.Asks {
		book.Asks = append(book.Asks, domain.BookLevel{Price: parseFloat(lvl[0]), Qty: parseFloat(lvl[1])})
	}
	return book
}

type aggTradeResp struct {
	Price      string `json:"p"`
	Qty        string `json:"q"`
	Timestamp  int64  `json:"T"`
	BuyerMaker bool   `json:"m"`
}

func (t aggTradeResp) toDomain() domain.Trade {
	return domain.Trade{
		Price:      parseFloat(t.Price),
		Qty:        parseFloat(t.Qty),
		Time:       time.UnixMilli(t.Timestamp),
		BuyerMaker: t.BuyerMaker,
	}
}

type openInterestResp struct {
	OpenInterest string `json:"openInterest"`
}

type premiumIndexResp struct {
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type accountResp struct {
	AvailableBalance   string         `json:"availableBalance"`
	TotalWalletBalance string         `json:"totalWalletBalance"`
	Positions          []positionResp `json:"positions"`
}

type positionResp struct {
	Symbol      string `json:"symbol"`
	PositionAmt string `json:"positionAmt"`
	EntryPrice  string `json:"entryPrice"`
}

type orderResp struct {
	OrderID  int64  `json:"orderId"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	AvgPrice string `json:"avgPrice"`
}

// kline es [openTime, open, high, low, close, volume, …] con números en string.
type kline []any

func (k kline) toDomain() domain.CandleBar {
	bar := domain.CandleBar{}
	if len(k) < 6 {
		return bar
	}
	if ms, ok := k[0].(float64); ok {
		bar.OpenTime = time.UnixMilli(int64(ms))
	}
	bar.Open = anyToFloat(k[1])
	bar.High = anyToFloat(k[2])
	bar.Low = anyToFloat(k[3])
	bar.Close = anyToFloat(k[4])
	bar.Volume = anyToFloat(k[5])
	return bar
}

func anyToFloat(v any) float64 {
	switch x := v.(type) {
	case string:
		return parseFloat(x)
	case float64:
		return x
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
