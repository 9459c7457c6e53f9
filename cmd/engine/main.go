package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	blockchain "agrochain/blockchain/client"
	"agrochain/config"
	"agrochain/internal/messaging/consumer"
	worker "agrochain/processing"
	"agrochain/storage/store"
)

const defaultConfigPath = "./config/engine.defaults.yml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the engine configuration file")
	configDir := flag.String("config-dir", "", "directory holding engine.defaults.yml; overrides -config when set")
	flag.Parse()

	logger := log.New(os.Stdout, "[ENGINE] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting Anchor Engine...")

	// 1. Load Engine Config
	var engineCfg *config.EngineConfig
	if *configDir != "" {
		dirCfg, err := config.LoadConfig(*configDir)
		if err != nil {
			logger.Fatalf("FATAL: Failed to load engine configuration: %v", err)
		}
		if dirCfg.Engine == nil {
			logger.Fatalf("FATAL: Failed to load engine configuration: no engine.defaults.yml in %s", *configDir)
		}
		engineCfg = dirCfg.Engine
	} else {
		loaded, err := config.LoadEngineConfig(*configPath)
		if err != nil {
			logger.Fatalf("FATAL: Failed to load engine configuration: %v", err)
		}
		engineCfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Dependencies
	logger.Println("Initializing database connection...")
	engineCfg.Database.LogConfiguration()
	dbStore, err := store.NewPostgresStore(ctx, engineCfg.Database, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize database store: %v", err)
	}
	defer dbStore.Close()

	logger.Println("Initializing blockchain client using configuration files...")
	bcClient, err := blockchain.NewBlockchainClientFromFile(engineCfg.BlockchainClientConfigPath, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize blockchain client: %v", err)
	}
	defer bcClient.Close()

	// 3. Initialize consumers
	var mqConsumers []consumer.Consumer
	if engineCfg.KafkaConsumer.Brokers[0] != "mock://local" {
		logger.Printf("Initializing %d Kafka consumers...", engineCfg.KafkaConsumer.Count)
		for i := 0; i < engineCfg.KafkaConsumer.Count; i++ {
			kafkaConsumer, err := consumer.NewKafkaConsumer(engineCfg.KafkaConsumer, logger)
			if err != nil {
				logger.Fatalf("FATAL: Failed to initialize Kafka consumer %d: %v", i, err)
			}
			mqConsumers = append(mqConsumers, kafkaConsumer)
		}
	} else {
		logger.Println("Initializing mock consumer...")
		mqConsumers = append(mqConsumers, consumer.NewMockConsumer(logger))
	}
	defer func() {
		for _, c := range mqConsumers {
			c.Close()
		}
	}()

	// 4. Health endpoint
	var monitorServer *http.Server
	if engineCfg.Monitoring.ListenAddr != "" {
		started := time.Now()
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+engineCfg.Monitoring.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":    "healthy",
				"service":   "agrochain-anchor-engine",
				"consumers": len(mqConsumers),
				"uptime":    time.Since(started).Round(time.Second).String(),
			})
		})
		monitorServer = &http.Server{Addr: engineCfg.Monitoring.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("Health endpoint listening on %s%s", engineCfg.Monitoring.ListenAddr, engineCfg.Monitoring.HealthCheckPath)
			if err := monitorServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("Health endpoint failed: %v", err)
			}
		}()
	}

	// 5. Create and start one worker pool per consumer
	var wg sync.WaitGroup
	for i, c := range mqConsumers {
		w := worker.New(engineCfg.Worker, engineCfg.MaxAnchorRetries, logger, dbStore, c, bcClient)
		wg.Add(1)
		go func(workerID int, w *worker.Worker) {
			defer wg.Done()
			logger.Printf("Starting worker pool %d with its dedicated consumer...", workerID)
			w.Run(ctx)
			logger.Printf("Worker pool %d stopped.", workerID)
		}(i+1, w)
	}

	logger.Printf("Anchor Engine started with %d consumers. Press Ctrl+C to stop.", len(mqConsumers))

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("Received shutdown signal, initiating graceful shutdown...")
	cancel()

	if monitorServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := monitorServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Health endpoint shutdown failed: %v", err)
		}
		shutdownCancel()
	}

	logger.Println("Waiting for all workers to finish...")
	wg.Wait()

	logger.Println("Anchor Engine shut down gracefully.")
}
