package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Khrafts/hyper-mcp-sub002/internal/config"
	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange/bybit"
	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange/sim"
	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/logger"
	"github.com/Khrafts/hyper-mcp-sub002/internal/monitoring"
	"github.com/Khrafts/hyper-mcp-sub002/internal/notifications"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
	"github.com/Khrafts/hyper-mcp-sub002/internal/tools"
	"github.com/Khrafts/hyper-mcp-sub002/pkg/reporting"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", false, "use the simulated adapter regardless of configuration")
		port   = flag.Int("port", 0, "HTTP port override (0 uses configuration)")
	)
	flag.Parse()

	cfg := config.Load()
	if *port > 0 {
		cfg.Monitoring.Port = *port
	}
	if *dryRun {
		cfg.Exchange.Name = "sim"
	}

	appLogger, err := logger.NewLoggerWithDebug("execution-bot", cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()

	adapter, err := buildAdapter(cfg)
	if err != nil {
		appLogger.Error("Adapter setup failed: %v", err)
		log.Fatalf("Adapter setup failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthChecker := monitoring.NewHealthChecker()

	if err := adapter.Connect(ctx); err != nil {
		appLogger.Error("Failed to connect to %s: %v", adapter.GetName(), err)
		log.Fatalf("Failed to connect to %s: %v", adapter.GetName(), err)
	}
	defer adapter.Disconnect()
	healthChecker.SetConnected(true)

	notifier := buildNotifier(cfg)

	riskLimits := risk.RiskLimits{
		MaxPositionSize:  cfg.Risk.MaxPositionSize,
		MaxLeverage:      cfg.Risk.MaxLeverage,
		MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
		MaxDrawdown:      cfg.Risk.MaxDrawdown,
		MaxConcentration: cfg.Risk.MaxConcentration,
		VaRLimit:         cfg.Risk.VaRLimit,
		StopLossPercent:  cfg.Risk.StopLossPercent,
		MaxOrderValue:    cfg.Risk.MaxOrderValue,
	}

	riskEngine, err := risk.NewEngine(adapter, appLogger, riskLimits,
		risk.WithCheckInterval(cfg.Risk.CheckInterval),
		risk.WithNotifier(notifier),
		risk.WithAccountAddress(cfg.Risk.AccountAddress),
		risk.WithHealthChecker(healthChecker),
	)
	if err != nil {
		appLogger.Error("Risk engine setup failed: %v", err)
		log.Fatalf("Risk engine setup failed: %v", err)
	}

	execEngine := execution.NewEngine(adapter, riskEngine, appLogger,
		execution.WithRetryConfig(execution.RetryConfig{
			MaxRetries:    cfg.Execution.MaxRetries,
			InitialDelay:  cfg.Execution.InitialDelay,
			MaxDelay:      cfg.Execution.MaxDelay,
			BackoffFactor: cfg.Execution.BackoffFactor,
		}),
		execution.WithHealthChecker(healthChecker),
	)

	riskEngine.Start()
	defer riskEngine.Stop()
	execEngine.Start()
	defer execEngine.Stop()

	reporting.NewConsoleReporter().PrintStartupInfo(
		adapter.GetName(), environmentString(adapter), riskLimits, cfg.Monitoring.Port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", healthChecker)
	tools.NewServer(execEngine, riskEngine, appLogger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.Port),
		Handler: mux,
	}

	go func() {
		appLogger.Info("HTTP server listening on :%d", cfg.Monitoring.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed: %v", err)
	}

	reporting.NewConsoleReporter().PrintStatistics(execEngine.GetExecutionStatistics())

	if cfg.Reporting.ExcelPath != "" {
		reports := execEngine.GetExecutionReports()
		if len(reports) > 0 {
			err := reporting.NewExcelReporter().WriteExecutionWorkbook(
				reports, riskEngine.GetActiveAlerts(), cfg.Reporting.ExcelPath)
			if err != nil {
				appLogger.Error("Failed to write execution workbook: %v", err)
			} else {
				appLogger.Info("Execution history written to %s", cfg.Reporting.ExcelPath)
			}
		}
	}
}

// buildAdapter selects the market adapter from configuration
func buildAdapter(cfg *config.Config) (exchange.MarketAdapter, error) {
	switch cfg.Exchange.Name {
	case "sim":
		return sim.NewAdapter(map[string]float64{
			"BTCUSDT": 50000,
			"ETHUSDT": 3000,
		}), nil
	case "bybit":
		if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
			return nil, fmt.Errorf("bybit adapter requires BYBIT_API_KEY and BYBIT_API_SECRET")
		}
		return bybit.NewAdapter(bybit.Config{
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.APISecret,
			Category:  cfg.Exchange.Category,
			Testnet:   cfg.Exchange.Testnet,
			Demo:      cfg.Exchange.Demo,
		}), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", cfg.Exchange.Name)
	}
}

func buildNotifier(cfg *config.Config) notifications.Notifier {
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		return notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	}
	return notifications.NewNoopNotifier()
}

func environmentString(adapter exchange.MarketAdapter) string {
	if env, ok := adapter.(interface{ GetEnvironment() string }); ok {
		return env.GetEnvironment()
	}
	if adapter.IsDemo() {
		return "demo"
	}
	return "live"
}
