package pcap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type packetDataSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Reader reads packets from a pcap or pcapng file without libpcap.
type Reader struct {
	file   *os.File
	source packetDataSource
}

// NewReader opens a capture file. Classic pcap is tried first, then pcapng.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	if r, err := pcapgo.NewReader(bufio.NewReader(file)); err == nil {
		return &Reader{file: file, source: r}, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	ng, err := pcapgo.NewNgReader(bufio.NewReader(file), pcapgo.DefaultNgReaderOptions)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("'%s' is neither pcap nor pcapng: %w", filePath, err)
	}
	return &Reader{file: file, source: ng}, nil
}

// LinkType returns the link type of the capture file.
func (r *Reader) LinkType() layers.LinkType {
	return r.source.LinkType()
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

// ReadPackets decodes every packet in the file and sends it to out, in file
// order. It stops early when ctx is done and returns the number of packets sent.
// The channel is not closed.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- gopacket.Packet) int {
	packetSource := gopacket.NewPacketSource(r.source, r.source.LinkType())
	packets := packetSource.Packets()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent
		case packet, ok := <-packets:
			if !ok {
				return sent
			}
			select {
			case out <- packet:
				sent++
			case <-ctx.Done():
				return sent
			}
		}
	}
}
