package probe

import (
	"FlowFeatures/internal/model"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleInfo(src, dst string) *model.PacketInfo {
	return &model.PacketInfo{
		Timestamp: time.Date(2026, 10, 17, 12, 0, 0, 123456000, time.UTC),
		Length:    1514,
		FiveTuple: model.FiveTuple{
			SrcIP:    net.ParseIP(src),
			DstIP:    net.ParseIP(dst),
			SrcPort:  51000,
			DstPort:  443,
			Protocol: model.ProtocolTCP,
		},
	}
}

func TestCodec_IPv4(t *testing.T) {
	in := sampleInfo("10.0.0.1", "10.0.0.2")
	data, err := MarshalPacket(in)
	require.NoError(t, err)

	out, err := UnmarshalPacket(data)
	require.NoError(t, err)

	assert.True(t, out.Timestamp.Equal(in.Timestamp))
	assert.Equal(t, in.Length, out.Length)
	assert.Equal(t, in.Src(), out.Src())
	assert.Equal(t, in.Dst(), out.Dst())
	assert.Equal(t, model.ProtocolTCP, out.FiveTuple.Protocol)
	assert.Len(t, []byte(out.FiveTuple.SrcIP), net.IPv4len, "IPv4 addresses travel in 4 bytes")
}

func TestCodec_IPv6(t *testing.T) {
	in := sampleInfo("2001:db8::1", "2001:db8::2")
	in.FiveTuple.Protocol = model.ProtocolUDP
	data, err := MarshalPacket(in)
	require.NoError(t, err)

	out, err := UnmarshalPacket(data)
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", out.Src().IP)
	assert.Equal(t, model.ProtocolUDP, out.FiveTuple.Protocol)
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	data, err := MarshalPacket(sampleInfo("10.0.0.1", "10.0.0.2"))
	require.NoError(t, err)
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte("future"))

	out, err := UnmarshalPacket(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(51000), out.FiveTuple.SrcPort)
}

func TestCodec_RejectsMalformed(t *testing.T) {
	valid, err := MarshalPacket(sampleInfo("10.0.0.1", "10.0.0.2"))
	require.NoError(t, err)

	badPort := append([]byte(nil), valid...)
	badPort = protowire.AppendTag(badPort, fieldSrcPort, protowire.VarintType)
	badPort = protowire.AppendVarint(badPort, 70000)

	noTimestamp := protowire.AppendTag(nil, fieldSrcIP, protowire.BytesType)
	noTimestamp = protowire.AppendBytes(noTimestamp, []byte{10, 0, 0, 1})
	noTimestamp = protowire.AppendTag(noTimestamp, fieldDstIP, protowire.BytesType)
	noTimestamp = protowire.AppendBytes(noTimestamp, []byte{10, 0, 0, 2})

	cases := map[string][]byte{
		"truncated":    valid[:len(valid)-3],
		"port range":   badPort,
		"no timestamp": noTimestamp,
		"empty":        {},
		"garbage":      {0xff, 0xff, 0xff},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalPacket(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	var got []*model.PacketInfo
	handler := decodeMessage(func(info *model.PacketInfo) { got = append(got, info) })

	data, err := MarshalPacket(sampleInfo("10.0.0.1", "10.0.0.2"))
	require.NoError(t, err)
	handler(&nats.Msg{Data: data})
	handler(&nats.Msg{Data: []byte{0x01}})

	require.Len(t, got, 1, "malformed messages are dropped")
	assert.Equal(t, uint16(443), got[0].FiveTuple.DstPort)
}
