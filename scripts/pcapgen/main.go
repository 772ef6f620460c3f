package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// conversation is one synthetic bidirectional flow.
type conversation struct {
	client, server         net.IP
	clientPort, serverPort uint16
	udp                    bool
	remaining              int
	clock                  time.Time
}

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	flowCount := flag.Int("flows", 50, "Number of conversations to generate")
	perFlow := flag.Int("packets", 20, "Packets per conversation")
	udpShare := flag.Float64("udp", 0.3, "Fraction of conversations that use UDP")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	base := time.Now()

	convs := make([]*conversation, *flowCount)
	for i := range convs {
		convs[i] = &conversation{
			client:     net.IP{10, 0, byte(rng.Intn(256)), byte(rng.Intn(254) + 1)},
			server:     net.IP{192, 168, byte(rng.Intn(256)), byte(rng.Intn(254) + 1)},
			clientPort: uint16(rng.Intn(65535-1024) + 1024),
			serverPort: []uint16{53, 80, 443, 8080}[rng.Intn(4)],
			udp:        rng.Float64() < *udpShare,
			remaining:  *perFlow,
			clock:      base.Add(time.Duration(rng.Intn(1000)) * time.Millisecond),
		}
	}

	log.Printf("Generating %d conversations of %d packets into %s...", *flowCount, *perFlow, *outputFile)

	written := 0
	for active := convs; len(active) > 0; {
		// Interleave conversations by always emitting the earliest pending packet.
		next := 0
		for i, c := range active {
			if c.clock.Before(active[next].clock) {
				next = i
			}
		}
		c := active[next]

		data, err := c.packet(rng)
		if err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     c.clock,
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := pcapWriter.WritePacket(ci, data); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
		written++

		c.remaining--
		c.clock = c.clock.Add(time.Duration(rng.Intn(5000)+100) * time.Microsecond)
		if c.remaining == 0 {
			active = append(active[:next], active[next+1:]...)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", written, *outputFile)
}

// packet serializes the conversation's next packet. Roughly a third of the
// packets travel from the server back to the client.
func (c *conversation) packet(rng *rand.Rand) ([]byte, error) {
	srcIP, dstIP := c.client, c.server
	srcPort, dstPort := c.clientPort, c.serverPort
	if rng.Intn(3) == 0 {
		srcIP, dstIP = dstIP, srcIP
		srcPort, dstPort = dstPort, srcPort
	}

	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:   srcIP,
		DstIP:   dstIP,
		Version: 4,
		TTL:     64,
	}

	payload := make([]byte, rng.Intn(1400)+10)
	rng.Read(payload)

	var transport gopacket.SerializableLayer
	if c.udp {
		ipLayer.Protocol = layers.IPProtocolUDP
		udpLayer := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
		udpLayer.SetNetworkLayerForChecksum(ipLayer)
		transport = udpLayer
	} else {
		ipLayer.Protocol = layers.IPProtocolTCP
		tcpLayer := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(dstPort),
			Seq:     rng.Uint32(),
			ACK:     true,
			Ack:     rng.Uint32(),
			Window:  14600,
		}
		tcpLayer.SetNetworkLayerForChecksum(ipLayer)
		transport = tcpLayer
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, transport, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
