package scanner

// prompt.go — construcción de prompts para el oráculo y extracción tolerante
// de JSON de sus respuestas (los modelos a veces envuelven el JSON en fences
// o añaden preámbulo).

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Vasooook/binance-ai-trading-bot/internal/domain"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+USDT$`)

// buildFilterPairsPrompt genera el prompt del primer pase: una línea JSON por
// par con sus métricas baratas, y la instrucción de devolver solo un array
// de símbolos.
func buildFilterPairsPrompt(snapshots []domain.PairSnapshot, maxSymbols int) string {
	var sb strings.Builder

	sb.WriteString("You are a crypto perpetual futures screener.\n")
	sb.WriteString("Below is one JSON object per line describing a USDT-M perpetual pair:\n")
	sb.WriteString("24h quote volume, 24h price change %, current funding rate, RSI and EMA ")
	sb.WriteString("(null means the metric could not be computed).\n\n")

	for _, snap := range snapshots {
		line, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "\nSelect up to %d symbols with the best short-term trading potential: ", maxSymbols)
	sb.WriteString("strong momentum, healthy volume, and a funding rate that does not punish the likely direction.\n")
	sb.WriteString("Respond with ONLY a JSON array of symbol strings, e.g. [\"BTCUSDT\",\"ETHUSDT\"]. ")
	sb.WriteString("No commentary, no markdown.\n")

	return sb.String()
}

// signalPromptInput agrupa todo lo que ve el oráculo al generar una señal.
type signalPromptInput struct {
	Symbol      string
	Stats       domain.MarketStats
	ShortStats  *domain.MarketStats // timeframe corto, best-effort
	History     []domain.SnapshotEntry
	Context     *domain.MarketContext
	Balance     float64
	RiskPercent float64
	MinNotional float64
	MaxLeverage int
	FeePct      float64
}

// buildSignalPrompt genera el prompt del segundo pase para un símbolo admitido.
func buildSignalPrompt(in signalPromptInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a disciplined crypto futures trader. Analyze %s (USDT-M perpetual) and decide if there is a trade.\n\n", in.Symbol)

	sb.WriteString("CURRENT MARKET DATA (primary timeframe):\n")
	writeJSON(&sb, in.Stats)

	if in.ShortStats != nil {
		sb.WriteString("\nSHORT TIMEFRAME DATA:\n")
		writeJSON(&sb, in.ShortStats)
	}

	if len(in.History) > 0 {
		sb.WriteString("\nRECENT SNAPSHOT HISTORY (oldest first):\n")
		for _, e := range in.History {
			writeJSON(&sb, e)
		}
	}

	if in.Context != nil {
		sb.WriteString("\nMARKET CONTEXT:\n")
		writeJSON(&sb, in.Context)
	}

	sb.WriteString("\nSTRATEGY RULES:\n")
	sb.WriteString("- Trade WITH the trend: trendDirection 1 favors longs, -1 favors shorts, 0 means no clear trend (be selective).\n")
	sb.WriteString("- Confirm with order flow: positive imbalance and positive deltaVolume support longs; negative support shorts.\n")
	sb.WriteString("- RSI above 70 warns against new longs; below 30 warns against new shorts.\n")
	sb.WriteString("- Explosive volatility allows wider targets; calm volatility demands tight stops or no trade.\n")
	sb.WriteString("- The stop loss must sit beyond the recent ATR range so noise does not stop the trade out.\n")

	sb.WriteString("\nRISK MANAGEMENT:\n")
	fmt.Fprintf(&sb, "- Account balance: %.2f USDT. Risk at most %.1f%% of balance per trade.\n", in.Balance, in.RiskPercent*100)
	fmt.Fprintf(&sb, "- Position value must be at least %.0f USDT (exchange minimum notional).\n", in.MinNotional)
	fmt.Fprintf(&sb, "- Leverage must be an integer between 1 and %d.\n", in.MaxLeverage)
	fmt.Fprintf(&sb, "- Taker fee is %.3f%% per side; targets must clear fees with room to spare.\n", in.FeePct)

	sb.WriteString("\nREJECTION CRITERIA — respond with the single word NO_TRADE if any apply:\n")
	sb.WriteString("- Conflicting trend and order flow signals.\n")
	sb.WriteString("- Spread too wide relative to the expected move.\n")
	sb.WriteString("- No realistic target beyond fees within the next few hours.\n")

	sb.WriteString("\nOtherwise respond with ONLY a JSON object (no markdown, no commentary):\n")
	sb.WriteString(`{
  "symbol": "SYMBOL",
  "entryPrice": 0.0,
  "stopLoss": 0.0,
  "takeProfits": [0.0],
  "leverage": 1,
  "positionSize": {"contracts": 0.0, "valueUSDT": 0.0, "percentBalance": 0.0},
  "confidenceScore": 0
}`)
	sb.WriteByte('\n')

	return sb.String()
}

func writeJSON(sb *strings.Builder, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sb.Write(b)
	sb.WriteByte('\n')
}

// extractSymbolArray localiza el primer array JSON de la respuesta y lo
// decodifica como lista de strings, ignorando preámbulo y fences.
func extractSymbolArray(raw string) ([]string, error) {
	start := strings.IndexByte(raw, '[')
	if start < 0 {
		return nil, fmt.Errorf("scanner.extractSymbolArray: no JSON array in response")
	}

	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var symbols []string
	if err := dec.Decode(&symbols); err != nil {
		return nil, fmt.Errorf("scanner.extractSymbolArray: decode: %w", err)
	}
	return symbols, nil
}

// validSymbol comprueba la forma SÍMBOLO+USDT de una sugerencia del oráculo.
func validSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// extractJSONObject localiza el primer objeto JSON de la respuesta y devuelve
// su texto exacto, listo para Unmarshal en el tipo destino.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("scanner.extractJSONObject: no JSON object in response")
	}

	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return "", fmt.Errorf("scanner.extractJSONObject: decode: %w", err)
	}
	return string(obj), nil
}
