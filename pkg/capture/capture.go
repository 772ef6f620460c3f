// Package capture opens live capture devices through libpcap.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Session-abort conditions. Each has a remediation hint, see Hint.
var (
	ErrNoDevices   = errors.New("no capture devices found")
	ErrDeviceIndex = errors.New("invalid device index")
	ErrOpenDevice  = errors.New("cannot open device")
)

// readTimeout bounds how long a read blocks, so Run notices cancellation.
const readTimeout = 250 * time.Millisecond

// Options configures how a device is opened.
type Options struct {
	SnapshotLen int32
	Promiscuous bool
	BPFFilter   string
}

// ListDevices returns every device libpcap can capture on.
func ListDevices() ([]pcap.Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevices, err)
	}
	if len(devs) == 0 {
		return nil, ErrNoDevices
	}
	return devs, nil
}

// SelectDevice picks the device at index.
func SelectDevice(devs []pcap.Interface, index int) (pcap.Interface, error) {
	if index < 0 || index >= len(devs) {
		return pcap.Interface{}, fmt.Errorf("%w: %d (have %d devices)", ErrDeviceIndex, index, len(devs))
	}
	return devs[index], nil
}

// DescribeDevices renders the device list as "index: name | description" lines.
func DescribeDevices(devs []pcap.Interface) string {
	var sb strings.Builder
	for i, dev := range devs {
		fmt.Fprintf(&sb, "%d: %s | %s\n", i, dev.Name, dev.Description)
	}
	return sb.String()
}

// Open opens dev for live capture and applies the BPF filter, if any.
func Open(dev pcap.Interface, opts Options) (*pcap.Handle, error) {
	snapLen := opts.SnapshotLen
	if snapLen <= 0 {
		snapLen = 1600
	}
	handle, err := pcap.OpenLive(dev.Name, snapLen, opts.Promiscuous, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrOpenDevice, dev.Name, err)
	}
	if opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", opts.BPFFilter, err)
		}
	}
	return handle, nil
}

// Hint returns an operator-facing remediation for a session-abort error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrNoDevices):
		return "Check that libpcap (or Npcap on Windows) is installed and that you may list devices."
	case errors.Is(err, ErrDeviceIndex):
		return "Pick a device index from the list above."
	case errors.Is(err, ErrOpenDevice):
		return "Run with capture privileges (root, CAP_NET_RAW, or Administrator)."
	default:
		return ""
	}
}

// Run feeds every captured packet to handle until ctx is done or the source
// is exhausted. Packets are delivered one at a time, in arrival order, from
// the calling goroutine. It returns the number of packets delivered.
func Run(ctx context.Context, source gopacket.PacketDataSource, decoder gopacket.Decoder, handle func(gopacket.Packet)) uint64 {
	packetSource := gopacket.NewPacketSource(source, decoder)
	packets := packetSource.Packets()

	var delivered uint64
	for {
		select {
		case <-ctx.Done():
			return delivered
		case packet, ok := <-packets:
			if !ok {
				return delivered
			}
			handle(packet)
			delivered++
		}
	}
}
