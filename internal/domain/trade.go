package domain

import "time"

// TradeStatus es el estado persistido de un TradeRecord.
type TradeStatus string

const (
	StatusOpen     TradeStatus = "OPEN"
	StatusFilled   TradeStatus = "FILLED"
	StatusClosedSL TradeStatus = "CLOSED_SL"
	StatusClosedTP TradeStatus = "CLOSED_TP"
)

// Active indica si el trade sigue vivo (la posición puede estar abierta).
func (s TradeStatus) Active() bool {
	return s == StatusOpen || s == StatusFilled
}

// TradeRecord es el registro persistido de un trade ejecutado.
// Solo lo crea el engine (insert inicial) y lo muta el reconciler
// (transiciones de estado). Nunca se borra — audit trail append-only.
type TradeRecord struct {
	ID           string
	Symbol       string
	Side         string
	OrderID      int64
	StopOrderID  int64
	TakeOrderIDs []int64
	EntryPrice   float64
	StopLoss     float64
	TakeProfits  []float64
	Leverage     int
	PositionSize PositionSize
	Status       TradeStatus
	Timestamp    time.Time
}

// Position es una posición abierta reportada por el exchange — la fuente de
// verdad sobre si un símbolo está abierto. Amount lleva signo.
type Position struct {
	Symbol     string
	Amount     float64
	EntryPrice float64
}

// Account es el estado de cuenta del exchange. Se refresca al inicio de
// cada ciclo y nunca se cachea entre ciclos.
type Account struct {
	AvailableBalance   float64
	TotalWalletBalance float64
	Positions          []Position
}

// OpenSymbols devuelve los símbolos con posición distinta de cero.
func (a Account) OpenSymbols() []string {
	var out []string
	for _, p := range a.Positions {
		if p.Amount != 0 {
			out = append(out, p.Symbol)
		}
	}
	return out
}

// Order es el estado de una orden consultado al exchange.
type Order struct {
	OrderID int64
	Symbol  string
	Side    string
	Type    string
	Status  string // NEW | PARTIALLY_FILLED | FILLED | CANCELED | EXPIRED
}

// Live indica que la orden está aceptada y sin ejecutar.
func (o Order) Live() bool { return o.Status == "NEW" }

// PlaceOrderRequest es la petición de colocación de orden.
type PlaceOrderRequest struct {
	Symbol     string
	Side       string // BUY | SELL
	Type       string // MARKET | STOP_MARKET | TAKE_PROFIT_MARKET
	Quantity   float64
	StopPrice  float64 // solo STOP_MARKET / TAKE_PROFIT_MARKET
	ReduceOnly bool
}

// PlacedOrder es la respuesta del exchange a una colocación.
type PlacedOrder struct {
	OrderID        int64
	Status         string
	AvgFilledPrice float64
}
