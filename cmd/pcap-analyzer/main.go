package main

import (
	"FlowFeatures/internal/app"
	"FlowFeatures/internal/config"
	"FlowFeatures/pkg/pcap"
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
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path_to_pcap_file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pcapReader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := app.NewSession(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	session.Start()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// The reader feeds a channel drained here, so packets reach the
	// session in file order.
	packets := make(chan gopacket.Packet, cfg.Engine.SizeOfPacketChannel)
	go func() {
		pcapReader.ReadPackets(ctx, packets)
		close(packets)
	}()
	for packet := range packets {
		if err := session.HandlePacket(packet); err != nil {
			log.Printf("Failed to queue packet: %v", err)
		}
	}
	log.Println("Finished reading packets from pcap file.")

	if _, err := session.Finish(context.Background()); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}
