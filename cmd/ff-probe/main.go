package main

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/engine/protocol"
	"FlowFeatures/internal/probe"
	"FlowFeatures/pkg/capture"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	devs, err := capture.ListDevices()
	if err != nil {
		log.Fatalf("%v\nHint: %s", err, capture.Hint(err))
	}
	fmt.Print(capture.DescribeDevices(devs))
	dev, err := capture.SelectDevice(devs, cfg.Capture.DeviceIndex)
	if err != nil {
		log.Fatalf("%v\nHint: %s", err, capture.Hint(err))
	}

	// Initialize NATS Publisher
	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	handle, err := capture.Open(dev, capture.Options{
		SnapshotLen: cfg.Capture.SnapshotLen,
		Promiscuous: cfg.Capture.Promiscuous,
		BPFFilter:   cfg.Capture.BPFFilter,
	})
	if err != nil {
		log.Fatalf("%v\nHint: %s", err, capture.Hint(err))
	}
	defer handle.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Capture started on %s. Publishing packets to %s...", dev.Name, cfg.Probe.Subject)
	published := 0
	capture.Run(ctx, handle, handle.LinkType(), func(packet gopacket.Packet) {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			return // not TCP/UDP over IP
		}
		if err := pub.Publish(info); err != nil {
			log.Printf("Failed to publish packet: %v", err)
			return
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d packets published...", published)
		}
	})
	log.Printf("Shutdown signal received, %d packets published.", published)
}
