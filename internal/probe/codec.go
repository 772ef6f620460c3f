package probe

import (
	"FlowFeatures/internal/model"
	"errors"
	"fmt"
	"math"
	"net"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the packet descriptor message:
//
//	message PacketInfo {
//	  bytes src_ip = 1;
//	  bytes dst_ip = 2;
//	  uint32 src_port = 3;
//	  uint32 dst_port = 4;
//	  uint32 protocol = 5;
//	  uint64 length = 6;
//	  google.protobuf.Timestamp timestamp = 7;
//	}
const (
	fieldSrcIP     protowire.Number = 1
	fieldDstIP     protowire.Number = 2
	fieldSrcPort   protowire.Number = 3
	fieldDstPort   protowire.Number = 4
	fieldProtocol  protowire.Number = 5
	fieldLength    protowire.Number = 6
	fieldTimestamp protowire.Number = 7
)

// ErrMalformed is returned for messages that are not valid packet descriptors.
var ErrMalformed = errors.New("malformed packet descriptor")

// MarshalPacket encodes a descriptor in protobuf wire format.
func MarshalPacket(info *model.PacketInfo) ([]byte, error) {
	ts, err := proto.Marshal(timestamppb.New(info.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldSrcIP, protowire.BytesType)
	b = protowire.AppendBytes(b, compactIP(info.FiveTuple.SrcIP))
	b = protowire.AppendTag(b, fieldDstIP, protowire.BytesType)
	b = protowire.AppendBytes(b, compactIP(info.FiveTuple.DstIP))
	b = protowire.AppendTag(b, fieldSrcPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.FiveTuple.SrcPort))
	b = protowire.AppendTag(b, fieldDstPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.FiveTuple.DstPort))
	b = protowire.AppendTag(b, fieldProtocol, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.FiveTuple.Protocol))
	b = protowire.AppendTag(b, fieldLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.Length))
	b = protowire.AppendTag(b, fieldTimestamp, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b, nil
}

// UnmarshalPacket decodes a descriptor produced by MarshalPacket. Unknown
// fields are skipped.
func UnmarshalPacket(data []byte) (*model.PacketInfo, error) {
	info := &model.PacketInfo{}
	var haveTimestamp bool

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case (num == fieldSrcIP || num == fieldDstIP || num == fieldTimestamp) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldSrcIP:
				info.FiveTuple.SrcIP = append(net.IP(nil), v...)
			case fieldDstIP:
				info.FiveTuple.DstIP = append(net.IP(nil), v...)
			case fieldTimestamp:
				var ts timestamppb.Timestamp
				if err := proto.Unmarshal(v, &ts); err != nil {
					return nil, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
				}
				if err := ts.CheckValid(); err != nil {
					return nil, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
				}
				info.Timestamp = ts.AsTime()
				haveTimestamp = true
			}
		case num >= fieldSrcPort && num <= fieldLength && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
			if err := setVarint(info, num, v); err != nil {
				return nil, err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if !validIP(info.FiveTuple.SrcIP) || !validIP(info.FiveTuple.DstIP) {
		return nil, fmt.Errorf("%w: missing or invalid address", ErrMalformed)
	}
	if !haveTimestamp {
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	return info, nil
}

func setVarint(info *model.PacketInfo, num protowire.Number, v uint64) error {
	switch num {
	case fieldSrcPort, fieldDstPort:
		if v > math.MaxUint16 {
			return fmt.Errorf("%w: port %d out of range", ErrMalformed, v)
		}
		if num == fieldSrcPort {
			info.FiveTuple.SrcPort = uint16(v)
		} else {
			info.FiveTuple.DstPort = uint16(v)
		}
	case fieldProtocol:
		if v > math.MaxUint8 {
			return fmt.Errorf("%w: protocol %d out of range", ErrMalformed, v)
		}
		info.FiveTuple.Protocol = uint8(v)
	case fieldLength:
		if v > math.MaxInt32 {
			return fmt.Errorf("%w: length %d out of range", ErrMalformed, v)
		}
		info.Length = int(v)
	}
	return nil
}

func compactIP(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

func validIP(ip net.IP) bool {
	return len(ip) == net.IPv4len || len(ip) == net.IPv6len
}
