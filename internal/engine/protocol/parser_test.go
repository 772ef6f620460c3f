package protocol

import (
	"FlowFeatures/internal/model"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		t.Fatalf("failed to serialize packet: %v", err)
	}
	return buf.Bytes()
}

func ipv4TCP(t *testing.T) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2},
	}
	tcp := &layers.TCP{SrcPort: 1234, DstPort: 80, SYN: true, Window: 1024}
	tcp.SetNetworkLayerForChecksum(ip)
	return serialize(t, eth, ip, tcp, gopacket.Payload(make([]byte, 46)))
}

func ipv6UDP(t *testing.T) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP,
		SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	udp.SetNetworkLayerForChecksum(ip)
	return serialize(t, eth, ip, udp, gopacket.Payload([]byte("query")))
}

func TestParseBytes_IPv4TCP(t *testing.T) {
	data := ipv4TCP(t)
	ts := time.Unix(1700000000, 500)
	info, err := ParseBytes(data, layers.LayerTypeEthernet, gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)})
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if info.FiveTuple.Protocol != model.ProtocolTCP {
		t.Errorf("Protocol = %d, want 6", info.FiveTuple.Protocol)
	}
	if info.Src() != (model.Endpoint{IP: "10.0.0.1", Port: 1234}) || info.Dst() != (model.Endpoint{IP: "10.0.0.2", Port: 80}) {
		t.Errorf("unexpected endpoints: %v -> %v", info.Src(), info.Dst())
	}
	if info.Length != len(data) {
		t.Errorf("Length = %d, want %d", info.Length, len(data))
	}
	if !info.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", info.Timestamp, ts)
	}
}

func TestParseBytes_IPv6UDP(t *testing.T) {
	info, err := ParseBytes(ipv6UDP(t), layers.LayerTypeEthernet, gopacket.CaptureInfo{})
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if info.FiveTuple.Protocol != model.ProtocolUDP {
		t.Errorf("Protocol = %d, want 17", info.FiveTuple.Protocol)
	}
	if got := info.Src(); got != (model.Endpoint{IP: "2001:db8::1", Port: 5353}) {
		t.Errorf("Src = %v", got)
	}
	if info.Timestamp.IsZero() {
		t.Errorf("missing capture timestamp should fall back to now")
	}
}

func TestParseBytes_Skips(t *testing.T) {
	arp := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
			HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPRequest,
			SourceHwAddress: srcMAC, SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress: make([]byte, 6), DstProtAddress: []byte{10, 0, 0, 2},
		},
	)
	ipForICMP := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2},
	}
	icmp := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		ipForICMP,
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)},
	)

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"arp", arp, ErrNotIP},
		{"icmp", icmp, ErrNotTransport},
		{"truncated tcp", ipv4TCP(t)[:14+20+4], ErrNotTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBytes(tc.data, layers.LayerTypeEthernet, gopacket.CaptureInfo{})
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
