package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Scanner Scanner `yaml:"scanner"`
	Trading Trading `yaml:"trading"`
	Oracle  Oracle  `yaml:"oracle"`
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Scanner controla el ciclo de escaneo y los filtros de admisión.
type Scanner struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	PreFilterLimit  int    `yaml:"pre_filter_limit"`
	BatchSize       int    `yaml:"batch_size"`
	BatchPauseMs    int    `yaml:"batch_pause_ms"`
	CandlesInterval string `yaml:"candles_interval"`
	ShortInterval   string `yaml:"short_interval"`
	CandlesCount    int    `yaml:"candles_count"`
	RSIPeriod       int    `yaml:"rsi_period"`
	EMAPeriod       int    `yaml:"ema_period"`
	ATRPeriod       int    `yaml:"atr_period"`

	MinTrendStrength   float64 `yaml:"min_trend_strength"`
	MinVolume24h       float64 `yaml:"min_volume_24h"`
	MaxSpreadPct       float64 `yaml:"max_spread_pct"`
	MinOpenInterest    float64 `yaml:"min_open_interest"`
	MinTapeSpeedDay    float64 `yaml:"min_tape_speed_day"`
	MinTapeSpeedNight  float64 `yaml:"min_tape_speed_night"`
	MinDeltaVolDay     float64 `yaml:"min_delta_volume_day"`
	MinDeltaVolNight   float64 `yaml:"min_delta_volume_night"`
	DaySessionUTC      [2]int  `yaml:"day_session_utc"`
	UseAdaptive        bool    `yaml:"use_adaptive_thresholds"`
	AllowLoose         bool    `yaml:"allow_loose_candidates"`
	FallbackVolumeMult float64 `yaml:"fallback_volume_mult"`
	FallbackDeltaMult  float64 `yaml:"fallback_delta_mult"`
	SaveSnapshots      bool    `yaml:"save_snapshots"`

	// Umbrales ATR ascendentes por régimen de volatilidad.
	Volatility VolatilityThresholds `yaml:"volatility_thresholds"`
	Confidence ConfidenceThresholds `yaml:"confidence_thresholds"`
}

// VolatilityThresholds son los cortes de ATR de cada bucket.
type VolatilityThresholds struct {
	Calm      float64 `yaml:"calm"`
	Stable    float64 `yaml:"stable"`
	High      float64 `yaml:"high"`
	Explosive float64 `yaml:"explosive"`
}

// ConfidenceThresholds son los cortes de confidenceScore del oráculo.
type ConfidenceThresholds struct {
	Strong float64 `yaml:"strong"`
	Medium float64 `yaml:"medium"`
	Weak   float64 `yaml:"weak"`
}

// Trading controla la ejecución de órdenes.
type Trading struct {
	MaxPositions    int     `yaml:"max_positions"`
	RiskPercent     float64 `yaml:"risk_percent"`
	MinNotionalUSDT float64 `yaml:"min_notional_usdt"`
	MaxLeverage     int     `yaml:"max_leverage"`
	ConfirmRetries  int     `yaml:"confirm_retries"`
	ConfirmPauseMs  int     `yaml:"confirm_pause_ms"`
}

// Oracle selecciona los modelos del servicio de decisión.
type Oracle struct {
	Model       string `yaml:"model"`
	FilterModel string `yaml:"filter_model"`
}

// API contiene el base URL del exchange. Las credenciales van por entorno.
type API struct {
	BaseURL string `yaml:"base_url"`
}

// Storage controla dónde se persisten los datos.
type Storage struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// Log controla el formato y nivel de logging.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ScanInterval devuelve el intervalo de ciclo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// BatchPause devuelve la pausa entre batches.
func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.Scanner.BatchPauseMs) * time.Millisecond
}

// ConfirmPause devuelve la pausa entre intentos del confirm loop.
func (c *Config) ConfirmPause() time.Duration {
	return time.Duration(c.Trading.ConfirmPauseMs) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
}

// setDefaults asegura valores sensatos; los números vienen de la operación
// real del bot en 4h/5m.
func setDefaults(cfg *Config) {
	s := &cfg.Scanner
	if s.IntervalSeconds <= 0 {
		s.IntervalSeconds = 900
	}
	if s.PreFilterLimit <= 0 {
		s.PreFilterLimit = 300
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 20
	}
	if s.BatchPauseMs <= 0 {
		s.BatchPauseMs = 200
	}
	if s.CandlesInterval == "" {
		s.CandlesInterval = "4h"
	}
	if s.ShortInterval == "" {
		s.ShortInterval = "5m"
	}
	if s.CandlesCount <= 0 {
		s.CandlesCount = 72
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.EMAPeriod <= 0 {
		s.EMAPeriod = 13
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 10
	}
	if s.MinTrendStrength <= 0 {
		s.MinTrendStrength = 0.03
	}
	if s.MinVolume24h <= 0 {
		s.MinVolume24h = 5_000_000
	}
	if s.MaxSpreadPct <= 0 {
		s.MaxSpreadPct = 0.2
	}
	if s.MinOpenInterest <= 0 {
		s.MinOpenInterest = 30_000
	}
	if s.MinTapeSpeedDay <= 0 {
		s.MinTapeSpeedDay = 300
	}
	if s.MinTapeSpeedNight <= 0 {
		s.MinTapeSpeedNight = 100
	}
	if s.MinDeltaVolDay <= 0 {
		s.MinDeltaVolDay = 50_000
	}
	if s.MinDeltaVolNight <= 0 {
		s.MinDeltaVolNight = 25_000
	}
	if s.DaySessionUTC == [2]int{} {
		s.DaySessionUTC = [2]int{8, 20}
	}
	if s.FallbackVolumeMult <= 0 {
		s.FallbackVolumeMult = 0.7
	}
	if s.FallbackDeltaMult <= 0 {
		s.FallbackDeltaMult = 0.5
	}
	if s.Volatility == (VolatilityThresholds{}) {
		s.Volatility = VolatilityThresholds{Calm: 0.5, Stable: 1.2, High: 2.5, Explosive: 4.0}
	}
	if s.Confidence == (ConfidenceThresholds{}) {
		s.Confidence = ConfidenceThresholds{Strong: 80, Medium: 60, Weak: 40}
	}

	t := &cfg.Trading
	if t.MaxPositions <= 0 {
		t.MaxPositions = 3
	}
	if t.RiskPercent <= 0 {
		t.RiskPercent = 0.03
	}
	if t.MinNotionalUSDT <= 0 {
		t.MinNotionalUSDT = 15
	}
	if t.MaxLeverage <= 0 {
		t.MaxLeverage = 25
	}
	if t.ConfirmRetries <= 0 {
		t.ConfirmRetries = 3
	}
	if t.ConfirmPauseMs <= 0 {
		t.ConfirmPauseMs = 1500
	}

	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gpt-4o"
	}
	if cfg.Oracle.FilterModel == "" {
		cfg.Oracle.FilterModel = "gpt-4o-mini"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://fapi.binance.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tradingbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
