package protocol

import (
	"FlowFeatures/internal/model"
	"errors"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Reasons a packet is skipped before aggregation.
var (
	ErrNotIP        = errors.New("not an IPv4 or IPv6 packet")
	ErrNotTransport = errors.New("not a TCP or UDP packet")
)

// ParsePacket extracts the flow descriptor of a decoded packet. Packets
// without an IPv4/IPv6 layer or without a TCP/UDP layer are rejected.
func ParsePacket(packet gopacket.Packet) (*model.PacketInfo, error) {
	info := &model.PacketInfo{
		Timestamp: time.Now(), // Overwritten by capture metadata when present
		Length:    len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
	}

	var fiveTuple model.FiveTuple

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		fiveTuple.SrcIP = cloneIP(ip.SrcIP)
		fiveTuple.DstIP = cloneIP(ip.DstIP)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		fiveTuple.SrcIP = cloneIP(ip.SrcIP)
		fiveTuple.DstIP = cloneIP(ip.DstIP)
	} else {
		return nil, ErrNotIP
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		fiveTuple.SrcPort = uint16(tcp.SrcPort)
		fiveTuple.DstPort = uint16(tcp.DstPort)
		fiveTuple.Protocol = model.ProtocolTCP
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		fiveTuple.SrcPort = uint16(udp.SrcPort)
		fiveTuple.DstPort = uint16(udp.DstPort)
		fiveTuple.Protocol = model.ProtocolUDP
	} else {
		return nil, ErrNotTransport
	}

	info.FiveTuple = fiveTuple
	return info, nil
}

// ParseBytes decodes raw frame bytes of the given link type and extracts the
// flow descriptor.
func ParseBytes(data []byte, linkType gopacket.Decoder, ci gopacket.CaptureInfo) (*model.PacketInfo, error) {
	packet := gopacket.NewPacket(data, linkType, gopacket.Default)
	if meta := packet.Metadata(); meta != nil {
		meta.CaptureInfo = ci
	}
	return ParsePacket(packet)
}

// cloneIP copies the address out of the packet buffer, which capture sources
// may reuse.
func cloneIP(ip net.IP) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)
	return out
}
