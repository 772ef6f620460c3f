package main

import (
	"FlowFeatures/internal/app"
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/metrics"
	"FlowFeatures/pkg/capture"
	"FlowFeatures/pkg/pcap"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/prometheus/client_golang/prometheus"
)

// exportTimeout bounds the export that follows the capture window.
const exportTimeout = 30 * time.Second

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 1. Pick and open the capture device.
	devs, err := capture.ListDevices()
	if err != nil {
		fatal(err)
	}
	fmt.Print(capture.DescribeDevices(devs))

	dev, err := capture.SelectDevice(devs, cfg.Capture.DeviceIndex)
	if err != nil {
		fatal(err)
	}
	handle, err := capture.Open(dev, capture.Options{
		SnapshotLen: cfg.Capture.SnapshotLen,
		Promiscuous: cfg.Capture.Promiscuous,
		BPFFilter:   cfg.Capture.BPFFilter,
	})
	if err != nil {
		fatal(err)
	}
	defer handle.Close()

	// 2. Session bounded by the capture window or an interrupt.
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

	var archive *pcap.Archive
	if cfg.Capture.ArchivePath != "" {
		archive, err = pcap.NewArchive(cfg.Capture.ArchivePath, uint32(cfg.Capture.SnapshotLen), handle.LinkType(), cfg.Engine.SizeOfPacketChannel)
		if err != nil {
			log.Fatalf("Failed to create archive: %v", err)
		}
	}

	log.Printf("Capturing on %s for %ds with label %d -> %s (Ctrl+C stops early)",
		dev.Name, cfg.Capture.Seconds, cfg.Capture.Label, cfg.Export.CSVPath)
	session.Start()

	// 3. Pump packets until the window closes.
	capture.Run(ctx, handle, handle.LinkType(), func(packet gopacket.Packet) {
		if archive != nil {
			archive.Enqueue(packet)
		}
		if err := session.HandlePacket(packet); err != nil {
			log.Printf("Failed to queue packet: %v", err)
		}
	})
	if archive != nil {
		if err := archive.Close(); err != nil {
			log.Printf("Failed to close archive: %v", err)
		}
	}

	// 4. Quiesce and export.
	exportCtx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	if _, err := session.Finish(exportCtx); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	log.Println("Done.")
}

func fatal(err error) {
	if hint := capture.Hint(err); hint != "" {
		log.Fatalf("%v\nHint: %s", err, hint)
	}
	log.Fatalf("%v", err)
}
