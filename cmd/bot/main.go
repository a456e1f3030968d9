package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vasooook/binance-ai-trading-bot/config"
	"github.com/Vasooook/binance-ai-trading-bot/internal/adapters/binance"
	"github.com/Vasooook/binance-ai-trading-bot/internal/adapters/notify"
	"github.com/Vasooook/binance-ai-trading-bot/internal/adapters/openai"
	"github.com/Vasooook/binance-ai-trading-bot/internal/adapters/storage"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/bot"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/engine"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/reconcile"
	"github.com/Vasooook/binance-ai-trading-bot/internal/application/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full signal table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	oracleKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" || apiSecret == "" {
		slog.Error("BINANCE_API_KEY and BINANCE_API_SECRET must be set")
		os.Exit(1)
	}
	if oracleKey == "" {
		slog.Error("OPENAI_API_KEY must be set")
		os.Exit(1)
	}

	slog.Info("trading bot starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"once", *once,
		"max_positions", cfg.Trading.MaxPositions,
	)

	exchange := binance.NewClient(cfg.API.BaseURL, apiKey, apiSecret)
	oracle := openai.NewClient(oracleKey)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	sc := scanner.New(scannerConfig(cfg), exchange, oracle, store)
	eng := engine.New(engine.Config{
		MaxPositions:    cfg.Trading.MaxPositions,
		RiskPercent:     cfg.Trading.RiskPercent,
		MinNotionalUSDT: cfg.Trading.MinNotionalUSDT,
		ConfirmRetries:  cfg.Trading.ConfirmRetries,
		ConfirmPause:    cfg.ConfirmPause(),
	}, exchange, store)
	rec := reconcile.New(exchange, store)

	b := bot.New(rec, sc, eng, notifier, cfg.ScanInterval(), cfg.Trading.MaxPositions)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		if err := b.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		slog.Info("single cycle done")
		return
	}

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("bot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("trading bot stopped cleanly")
}

// scannerConfig aplana la config YAML al Config del scanner.
func scannerConfig(cfg *config.Config) scanner.Config {
	s := cfg.Scanner
	return scanner.Config{
		PreFilterLimit:  s.PreFilterLimit,
		BatchSize:       s.BatchSize,
		BatchPause:      cfg.BatchPause(),
		CandlesInterval: s.CandlesInterval,
		ShortInterval:   s.ShortInterval,
		CandlesCount:    s.CandlesCount,
		RSIPeriod:       s.RSIPeriod,
		EMAPeriod:       s.EMAPeriod,
		ATRPeriod:       s.ATRPeriod,

		MinTrendStrength:   s.MinTrendStrength,
		MinVolume24h:       s.MinVolume24h,
		MaxSpreadPct:       s.MaxSpreadPct,
		MinOpenInterest:    s.MinOpenInterest,
		MinTapeSpeedDay:    s.MinTapeSpeedDay,
		MinTapeSpeedNight:  s.MinTapeSpeedNight,
		MinDeltaVolDay:     s.MinDeltaVolDay,
		MinDeltaVolNight:   s.MinDeltaVolNight,
		DaySessionUTC:      s.DaySessionUTC,
		UseAdaptive:        s.UseAdaptive,
		AllowLoose:         s.AllowLoose,
		FallbackVolumeMult: s.FallbackVolumeMult,
		FallbackDeltaMult:  s.FallbackDeltaMult,
		SaveSnapshots:      s.SaveSnapshots,

		Volatility: scanner.VolatilityThresholds{
			Calm:      s.Volatility.Calm,
			Stable:    s.Volatility.Stable,
			High:      s.Volatility.High,
			Explosive: s.Volatility.Explosive,
		},
		ConfidenceMedium: s.Confidence.Medium,

		RiskPercent:     cfg.Trading.RiskPercent,
		MinNotionalUSDT: cfg.Trading.MinNotionalUSDT,
		MaxLeverage:     cfg.Trading.MaxLeverage,

		Model:       cfg.Oracle.Model,
		FilterModel: cfg.Oracle.FilterModel,
	}
}

func setupLogger(cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
