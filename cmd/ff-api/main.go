package main

import (
	"FlowFeatures/internal/api"
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/query"
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var querier query.Querier
	if cfg.Export.ClickHouse.Enabled {
		querier, err = query.NewClickHouseQuerier(context.Background(), cfg.Export.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
		log.Println("Serving flows from ClickHouse.")
	} else {
		querier = query.NewCSVQuerier(cfg.API.DatasetPath)
		log.Printf("Serving flows from %s", cfg.API.DatasetPath)
	}

	// Run gRPC health server
	grpcServer, healthServer := api.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.API.GRPCListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.API.GRPCListenAddr, err)
	}
	go func() {
		log.Printf("gRPC health server starting on %s", cfg.API.GRPCListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Run HTTP server
	httpServer := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: api.NewRouter(querier, prometheus.DefaultGatherer),
	}
	go func() {
		log.Printf("API server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", httpServer.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Servers shutting down...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("All servers exited.")
}
