package main

import (
	"FlowFeatures/internal/app"
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/metrics"
	"FlowFeatures/internal/model"
	"FlowFeatures/internal/probe"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.Println("Starting ff-engine...")

	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()
	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Capture.Seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CaptureDuration())
		defer cancel()
	}

	m := metrics.New()
	if cfg.Engine.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m.MustRegister(reg)
		server := metrics.Serve(cfg.Engine.MetricsAddr, reg)
		defer server.Close()
	}

	session, err := app.NewSession(ctx, cfg, m)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	session.Start()

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	err = sub.Start(func(info *model.PacketInfo) {
		if err := session.Submit(info); err != nil {
			log.Printf("Dropping packet: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	<-ctx.Done()
	log.Println("Session window closed, stopping subscriber...")
	sub.Close()

	exportCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := session.Finish(exportCtx); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	log.Println("Shutdown complete.")
}
