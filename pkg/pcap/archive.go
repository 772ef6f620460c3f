package pcap

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Archive records the raw packets of a capture session to a pcap file from a
// single background goroutine, so packet order is preserved.
type Archive struct {
	file       *os.File
	writer     *pcapgo.Writer
	packetChan chan gopacket.Packet
	wg         sync.WaitGroup
	dropped    uint64
	mu         sync.Mutex
}

// NewArchive creates the pcap file and starts the writer goroutine.
func NewArchive(path string, snapLen uint32, linkType layers.LinkType, bufferSize int) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	writer := pcapgo.NewWriter(file)
	if err := writer.WriteFileHeader(snapLen, linkType); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap file header: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 10000
	}
	a := &Archive{
		file:       file,
		writer:     writer,
		packetChan: make(chan gopacket.Packet, bufferSize),
	}

	a.wg.Add(1)
	go a.run()
	log.Printf("Archive: recording raw packets to %s", path)
	return a, nil
}

func (a *Archive) run() {
	defer a.wg.Done()
	for packet := range a.packetChan {
		if err := a.writer.WritePacket(packet.Metadata().CaptureInfo, packet.Data()); err != nil {
			log.Printf("Archive: error writing packet: %v", err)
		}
	}
}

// Enqueue hands a packet to the writer goroutine. Packets are dropped, and
// counted, when the buffer is full.
func (a *Archive) Enqueue(packet gopacket.Packet) {
	select {
	case a.packetChan <- packet:
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// Close drains the buffer and closes the file. It must be called once, after
// the last Enqueue.
func (a *Archive) Close() error {
	close(a.packetChan)
	a.wg.Wait()

	a.mu.Lock()
	dropped := a.dropped
	a.mu.Unlock()
	if dropped > 0 {
		log.Printf("Archive: %d packets dropped because the buffer was full", dropped)
	}
	return a.file.Close()
}
