package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	blockchain "agrochain/blockchain/client"
	apiconfig "agrochain/config"
	core "agrochain/ingestion/service/core"
	grpchandler "agrochain/ingestion/service/grpc"
	httphandler "agrochain/ingestion/service/http"
	"agrochain/internal/messaging/producer"
	"agrochain/storage/store"
	"agrochain/traceability/audit"
	"agrochain/traceability/hash"
	"agrochain/traceability/workflow"
)

const defaultConfigPath = "./config/ingestion.defaults.yml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the ingestion configuration file")
	configDir := flag.String("config-dir", "", "directory holding ingestion.defaults.yml; overrides -config when set")
	flag.Parse()

	logger := log.New(os.Stdout, "[INGEST] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting traceability ingestion service...")

	// 1. Load configuration
	var cfg *apiconfig.IngestionConfig
	if *configDir != "" {
		dirCfg, err := apiconfig.LoadConfig(*configDir)
		if err != nil {
			logger.Fatalf("Failed to load ingestion configuration: %v", err)
		}
		if dirCfg.Ingestion == nil {
			logger.Fatalf("Failed to load ingestion configuration: no ingestion.defaults.yml in %s", *configDir)
		}
		cfg = dirCfg.Ingestion
	} else {
		loaded, err := apiconfig.LoadIngestionConfig(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load ingestion configuration: %v", err)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize dependencies
	dataStore := openStore(ctx, cfg, logger)
	defer dataStore.Close()

	var eventProducer producer.Producer
	if cfg.KafkaProducer.Enabled() {
		logger.Println("Initializing Kafka producer...")
		kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaProducer, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize Kafka producer: %v", err)
		}
		defer kafkaProducer.Close()
		eventProducer = kafkaProducer
	} else {
		logger.Println("kafka_producer.brokers not configured, events will not be published for anchoring.")
	}

	var (
		minter workflow.Minter
		ledger audit.Ledger
	)
	if cfg.Minting.Enabled {
		logger.Println("Initializing blockchain client for certificate minting...")
		bc, err := blockchain.NewBlockchainClientFromFile(cfg.Minting.BlockchainClientConfigPath, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize blockchain client: %v", err)
		}
		defer bc.Close()
		minter = workflow.NewLedgerMinter(bc, cfg.Minting.MetadataBaseURL, cfg.Minting.ExplorerBaseURL, cfg.Minting.Timeout)
		ledger = bc
	} else {
		logger.Println("minting disabled, processing completion will be rejected.")
	}

	// 3. Create core Service and handlers
	coreService := core.NewService(dataStore, eventProducer, minter, core.Options{
		HashMode:             hash.Mode(cfg.Traceability.HashMode),
		ActivityDefaultLimit: cfg.Traceability.ActivityDefaultLimit,
		BatchProcessor:       cfg.BatchProcessor,
		Ledger:               ledger,
	}, logger)
	defer coreService.Close()

	var wg sync.WaitGroup

	// 4. [Conditional startup] HTTP server
	var httpServer *http.Server
	if cfg.HttpListenAddr != "" {
		mux := http.NewServeMux()
		httphandler.NewHandler(coreService, logger).Routes(mux)

		httpServer = &http.Server{
			Addr:           cfg.HttpListenAddr,
			Handler:        mux,
			ReadTimeout:    cfg.HttpServer.ReadTimeout,
			WriteTimeout:   cfg.HttpServer.WriteTimeout,
			IdleTimeout:    cfg.HttpServer.IdleTimeout,
			MaxHeaderBytes: cfg.HttpServer.MaxHeaderBytes,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Printf("HTTP server listening on %s", cfg.HttpListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("HTTP server startup failed: %v", err)
			}
			logger.Println("HTTP server stopped listening.")
		}()
	} else {
		logger.Println("http_listen_addr not configured, skipping HTTP server startup.")
	}

	// 5. [Conditional startup] gRPC server
	var grpcServer *grpc.Server
	if cfg.GrpcListenAddr != "" {
		lis, err := net.Listen("tcp", cfg.GrpcListenAddr)
		if err != nil {
			logger.Fatalf("Unable to listen on gRPC port %s: %v", cfg.GrpcListenAddr, err)
		}
		grpcServer = grpc.NewServer()
		grpchandler.RegisterTraceabilityServer(grpcServer, grpchandler.NewServer(coreService, logger))
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Printf("gRPC server listening on %s", cfg.GrpcListenAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Fatalf("gRPC server startup failed: %v", err)
			}
			logger.Println("gRPC server stopped listening.")
		}()
	} else {
		logger.Println("grpc_listen_addr not configured, skipping gRPC server startup.")
	}

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("Received shutdown signal: %s, starting graceful shutdown...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		logger.Println("Shutting down HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP server shutdown failed: %v", err)
		} else {
			logger.Println("HTTP server shutdown.")
		}
	}
	if grpcServer != nil {
		logger.Println("Shutting down gRPC server...")
		grpcServer.GracefulStop()
		logger.Println("gRPC server shutdown.")
	}

	wg.Wait()
	logger.Println("All servers stopped. Ingestion service shutdown.")
}

// openStore builds the store selected by store.driver
func openStore(ctx context.Context, cfg *apiconfig.IngestionConfig, logger *log.Logger) store.Store {
	if cfg.Store.Driver == "memory" {
		logger.Println("Using in-memory store; data is lost on exit.")
		return store.NewMemoryStore(logger)
	}

	logger.Println("Initializing database connection...")
	cfg.Database.LogConfiguration()
	pg, err := store.NewPostgresStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database store: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			logger.Fatalf("Failed to migrate database schema: %v", err)
		}
	}
	return pg
}
