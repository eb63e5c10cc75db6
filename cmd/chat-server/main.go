// cmd/chat-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"warehouse-chat/internal/common/config"
	"warehouse-chat/internal/common/database"
	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/common/observability"
	"warehouse-chat/internal/completion"
	"warehouse-chat/internal/history"
	"warehouse-chat/internal/httpapi"
	"warehouse-chat/internal/intent"
	"warehouse-chat/internal/orchestrator"
	"warehouse-chat/internal/prompter"
	"warehouse-chat/internal/respond"
	"warehouse-chat/internal/semmodel"
	"warehouse-chat/internal/warehouse"
	"warehouse-chat/internal/websearch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chat server...")

	obs := observability.New("chat-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init warehouse connection with retry ---
	var wh *database.WarehouseClient
	err = retryWithBackoff(func() error {
		var err error
		wh, err = database.NewWarehouse(cfg.Database.Warehouse)
		if err != nil {
			return err
		}
		return wh.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Warehouse connection")

	if err != nil {
		zapLog.Fatal("warehouse failed after retries", zap.Error(err))
	}
	defer wh.Close()
	zapLog.Info("Warehouse connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init conversation log (in-memory sqlite) ---
	db, err := database.NewSQLite(database.MemoryDSN)
	if err != nil {
		zapLog.Fatal("conversation log init failed", zap.Error(err))
	}

	logStore, err := history.NewStore(db, log)
	if err != nil {
		zapLog.Fatal("conversation log migration failed", zap.Error(err))
	}

	// --- Assemble pipeline ---
	completions := completion.NewClient(&cfg.Completion, log)

	introspector := warehouse.NewIntrospector(
		wh.GetDB(),
		rds.GetClient(),
		cfg.Database.Warehouse.Database,
		cfg.Database.Warehouse.Schema,
		config.GetDuration(cfg.Chat.SchemaCacheTTL),
		log,
	)

	search := websearch.NewClient(
		cfg.WebSearch.BaseURL,
		cfg.WebSearch.APIKey,
		config.GetDuration(cfg.WebSearch.Timeout),
		log,
	)

	orch := orchestrator.New(
		orchestrator.NewSessionManager(),
		semmodel.NewStore(),
		intent.NewClassifier(completions, log),
		prompter.NewAssembler(),
		completions,
		warehouse.NewClient(wh.GetDB(), log),
		introspector,
		respond.NewGenerator(completions, log),
		logStore,
		search,
		obs,
		log,
		orchestrator.Options{
			QueryTimeout: config.GetDuration(cfg.Chat.QueryTimeout),
			HistoryLimit: cfg.Chat.HistoryLimit,
		},
	)

	router := httpapi.NewRouter(orch, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down chat server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}

	zapLog.Info("Chat server stopped")
}
