package model

import (
	"cmp"
	"net"
	"strconv"
	"time"
)

// Transport protocol numbers accepted by the engine.
const (
	ProtocolTCP uint8 = 6
	ProtocolUDP uint8 = 17
)

// Endpoint is one side of a conversation.
type Endpoint struct {
	IP   string
	Port uint16
}

// Compare orders endpoints lexicographically by IP string, then numerically by port.
func (e Endpoint) Compare(o Endpoint) int {
	if c := cmp.Compare(e.IP, o.IP); c != 0 {
		return c
	}
	return cmp.Compare(e.Port, o.Port)
}

// Less reports whether e sorts before o.
func (e Endpoint) Less(o Endpoint) bool {
	return e.Compare(o) < 0
}

func (e Endpoint) String() string {
	return e.IP + ":" + strconv.Itoa(int(e.Port))
}

// FlowKey is the direction-independent identity of a flow. A <= B always holds
// for keys built by Canonicalize.
type FlowKey struct {
	A        Endpoint
	B        Endpoint
	Protocol uint8
}

// ID returns the stable, human-readable flow identifier, e.g.
// "10.0.0.1:1234-10.0.0.2:80-P6".
func (k FlowKey) ID() string {
	return k.A.String() + "-" + k.B.String() + "-P" + strconv.Itoa(int(k.Protocol))
}

// Canonicalize derives the flow key for a packet travelling src -> dst and
// reports whether the packet is in the forward direction (sent by key.A).
func Canonicalize(src, dst Endpoint, protocol uint8) (FlowKey, bool) {
	key := FlowKey{A: src, B: dst, Protocol: protocol}
	if dst.Less(src) {
		key.A, key.B = dst, src
	}
	return key, src == key.A
}

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// PacketInfo holds the metadata extracted from a single packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int
}

// Src returns the sending endpoint.
func (p *PacketInfo) Src() Endpoint {
	return Endpoint{IP: p.FiveTuple.SrcIP.String(), Port: p.FiveTuple.SrcPort}
}

// Dst returns the receiving endpoint.
func (p *PacketInfo) Dst() Endpoint {
	return Endpoint{IP: p.FiveTuple.DstIP.String(), Port: p.FiveTuple.DstPort}
}

// FlowStats is the running accumulator for one flow. Sums of squares are kept
// instead of samples so memory per flow stays constant.
type FlowStats struct {
	Start time.Time
	Last  time.Time
	Prev  time.Time

	Packets    uint64
	Bytes      uint64
	FwdPackets uint64
	FwdBytes   uint64
	BwdPackets uint64
	BwdBytes   uint64

	MinPktLen   uint32
	MaxPktLen   uint32
	SumPktLen   float64
	SumSqPktLen float64

	// Inter-arrival times, in microseconds.
	IATCount   uint64
	SumIATUs   float64
	SumSqIATUs float64
}

// FlowRecord is one exported row of the feature table.
type FlowRecord struct {
	FlowID        string
	SrcIP         string
	DstIP         string
	SrcPort       uint16
	DstPort       uint16
	Protocol      uint8
	DurationMs    int64
	Packets       uint64
	Bytes         uint64
	FwdPackets    uint64
	BwdPackets    uint64
	FwdBytes      uint64
	BwdBytes      uint64
	MinPktLen     uint32
	MaxPktLen     uint32
	MeanPktLen    float64
	StdPktLen     float64
	FlowIATMeanUs float64
	FlowIATStdUs  float64
	PacketsPerSec float64
	BytesPerSec   float64
	FwdPps        float64
	BwdPps        float64
	Label         int
}

// Columns is the fixed column order of the exported feature table.
var Columns = []string{
	"FlowID", "SrcIP", "DstIP", "SrcPort", "DstPort", "Protocol", "DurationMs",
	"Packets", "Bytes", "FwdPackets", "BwdPackets", "FwdBytes", "BwdBytes",
	"MinPktLen", "MaxPktLen", "MeanPktLen", "StdPktLen",
	"FlowIATMeanUs", "FlowIATStdUs",
	"PacketsPerSec", "BytesPerSec", "FwdPps", "BwdPps", "Label",
}
