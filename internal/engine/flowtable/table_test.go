package flowtable

import (
	"FlowFeatures/internal/model"
	"math"
	"math/rand"
	"net"
	"testing"
	"time"
)

var (
	client = model.Endpoint{IP: "10.0.0.1", Port: 1234}
	server = model.Endpoint{IP: "10.0.0.2", Port: 80}
)

func us(n int64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(n) * time.Microsecond)
}

func packet(src, dst model.Endpoint, length int, ts time.Time) *model.PacketInfo {
	return &model.PacketInfo{
		Timestamp: ts,
		Length:    length,
		FiveTuple: model.FiveTuple{
			SrcIP:    net.ParseIP(src.IP),
			DstIP:    net.ParseIP(dst.IP),
			SrcPort:  src.Port,
			DstPort:  dst.Port,
			Protocol: model.ProtocolTCP,
		},
	}
}

func TestTable_AlternatingFlow(t *testing.T) {
	table := New()
	lengths := []int{100, 200, 150, 300, 250}
	stamps := []int64{0, 1000, 2500, 4000, 7000}
	for i := range lengths {
		src, dst := client, server
		if i%2 == 1 {
			src, dst = server, client
		}
		table.Observe(packet(src, dst, lengths[i], us(stamps[i])))
	}

	if table.Len() != 1 {
		t.Fatalf("expected 1 flow, got %d", table.Len())
	}
	key, _ := model.Canonicalize(client, server, model.ProtocolTCP)
	st, ok := table.Lookup(key)
	if !ok {
		t.Fatalf("flow %s not found", key.ID())
	}

	if st.Packets != 5 || st.Bytes != 1000 {
		t.Errorf("Packets/Bytes = %d/%d, want 5/1000", st.Packets, st.Bytes)
	}
	if st.FwdPackets != 3 || st.BwdPackets != 2 {
		t.Errorf("Fwd/Bwd packets = %d/%d, want 3/2", st.FwdPackets, st.BwdPackets)
	}
	if st.FwdBytes != 500 || st.BwdBytes != 500 {
		t.Errorf("Fwd/Bwd bytes = %d/%d, want 500/500", st.FwdBytes, st.BwdBytes)
	}
	if st.MinPktLen != 100 || st.MaxPktLen != 300 {
		t.Errorf("Min/Max = %d/%d, want 100/300", st.MinPktLen, st.MaxPktLen)
	}
	if st.IATCount != 4 || st.SumIATUs != 7000 {
		t.Errorf("IATCount/SumIATUs = %d/%v, want 4/7000", st.IATCount, st.SumIATUs)
	}
	if !st.Start.Equal(us(0)) || !st.Last.Equal(us(7000)) {
		t.Errorf("Start/Last = %v/%v", st.Start, st.Last)
	}
}

func TestUpdate_FirstPacket(t *testing.T) {
	var st model.FlowStats
	Update(&st, 60, us(42), false)

	if st.Packets != 1 || st.BwdPackets != 1 || st.FwdPackets != 0 {
		t.Errorf("unexpected counters: %+v", st)
	}
	if st.IATCount != 0 || st.SumIATUs != 0 || st.SumSqIATUs != 0 {
		t.Errorf("IAT aggregates must stay zero after the first packet: %+v", st)
	}
	if st.SumSqPktLen != 3600 {
		t.Errorf("SumSqPktLen = %v, want 3600", st.SumSqPktLen)
	}
	if !st.Start.Equal(st.Last) || !st.Prev.Equal(st.Start) {
		t.Errorf("timestamps should all equal the first arrival")
	}
}

func TestUpdate_ClampsNegativeIAT(t *testing.T) {
	var st model.FlowStats
	Update(&st, 100, us(5000), true)
	Update(&st, 100, us(3000), true)

	if st.IATCount != 1 {
		t.Fatalf("IATCount = %d, want 1", st.IATCount)
	}
	if st.SumIATUs != 0 || st.SumSqIATUs != 0 {
		t.Errorf("negative gap must be clamped to 0, got sum=%v sumsq=%v", st.SumIATUs, st.SumSqIATUs)
	}
}

func TestUpdate_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	table := New()
	endpoints := []model.Endpoint{
		{IP: "10.0.0.1", Port: 1000},
		{IP: "10.0.0.2", Port: 2000},
		{IP: "10.0.0.3", Port: 3000},
	}
	sent := make(map[model.FlowKey]uint64)

	ts := int64(0)
	for i := 0; i < 500; i++ {
		a := endpoints[rng.Intn(len(endpoints))]
		b := endpoints[rng.Intn(len(endpoints))]
		if a == b {
			continue
		}
		ts += rng.Int63n(2000)
		table.Observe(packet(a, b, 40+rng.Intn(1460), us(ts)))
		key, _ := model.Canonicalize(a, b, model.ProtocolTCP)
		sent[key]++
	}

	table.ForEach(func(key model.FlowKey, st *model.FlowStats) {
		if st.FwdPackets+st.BwdPackets != st.Packets {
			t.Errorf("%s: packet conservation broken: %+v", key.ID(), st)
		}
		if st.FwdBytes+st.BwdBytes != st.Bytes {
			t.Errorf("%s: byte conservation broken: %+v", key.ID(), st)
		}
		if st.Packets != sent[key] {
			t.Errorf("%s: Packets = %d, want %d", key.ID(), st.Packets, sent[key])
		}
		if st.IATCount != st.Packets-1 {
			t.Errorf("%s: IATCount = %d, want %d", key.ID(), st.IATCount, st.Packets-1)
		}
		mean := math.Round(st.SumPktLen / float64(st.Packets))
		if mean < float64(st.MinPktLen) || mean > float64(st.MaxPktLen) {
			t.Errorf("%s: mean %v outside [%d, %d]", key.ID(), mean, st.MinPktLen, st.MaxPktLen)
		}
		if st.Last.Before(st.Start) {
			t.Errorf("%s: Last before Start", key.ID())
		}
	})
}

func TestTable_ForEachOrder(t *testing.T) {
	table := New()
	table.Observe(packet(model.Endpoint{IP: "10.0.0.9", Port: 1}, server, 10, us(0)))
	table.Observe(packet(client, server, 10, us(1)))
	table.Observe(packet(model.Endpoint{IP: "10.0.0.10", Port: 1}, server, 10, us(2)))

	var ids []string
	table.ForEach(func(key model.FlowKey, _ *model.FlowStats) {
		ids = append(ids, key.ID())
	})
	want := []string{
		"10.0.0.1:1234-10.0.0.2:80-P6",
		"10.0.0.10:1-10.0.0.2:80-P6",
		"10.0.0.2:80-10.0.0.9:1-P6",
	}
	if len(ids) != len(want) {
		t.Fatalf("got %d flows, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("flow %d = %s, want %s", i, ids[i], want[i])
		}
	}
}
