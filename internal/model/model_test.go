package model

import "testing"

func TestCanonicalize_Symmetry(t *testing.T) {
	cases := []struct {
		name string
		src  Endpoint
		dst  Endpoint
	}{
		{"different ips", Endpoint{"10.0.0.1", 1234}, Endpoint{"10.0.0.2", 80}},
		{"reverse order ips", Endpoint{"192.168.1.9", 53}, Endpoint{"10.1.1.1", 40000}},
		{"same ip different ports", Endpoint{"127.0.0.1", 8080}, Endpoint{"127.0.0.1", 443}},
		{"ipv6", Endpoint{"fe80::1", 5353}, Endpoint{"2001:db8::2", 5353}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k1, fwd1 := Canonicalize(tc.src, tc.dst, ProtocolTCP)
			k2, fwd2 := Canonicalize(tc.dst, tc.src, ProtocolTCP)
			if k1 != k2 {
				t.Fatalf("keys differ: %+v vs %+v", k1, k2)
			}
			if fwd1 == fwd2 {
				t.Errorf("expected exactly one forward direction, got %v and %v", fwd1, fwd2)
			}
			if k1.B.Less(k1.A) {
				t.Errorf("key not canonical: %+v", k1)
			}
		})
	}
}

func TestCanonicalize_ProtocolIsPartOfKey(t *testing.T) {
	a := Endpoint{"10.0.0.1", 53}
	b := Endpoint{"10.0.0.2", 53}
	tcp, _ := Canonicalize(a, b, ProtocolTCP)
	udp, _ := Canonicalize(a, b, ProtocolUDP)
	if tcp == udp {
		t.Errorf("TCP and UDP flows must not share a key")
	}
}

func TestEndpoint_Order(t *testing.T) {
	// IPs compare as strings, so "10.0.0.10" sorts before "10.0.0.9".
	if !(Endpoint{"10.0.0.10", 1}).Less(Endpoint{"10.0.0.9", 1}) {
		t.Errorf("expected lexicographic IP order")
	}
	if !(Endpoint{"10.0.0.1", 80}).Less(Endpoint{"10.0.0.1", 443}) {
		t.Errorf("expected numeric port order on equal IPs")
	}
	if (Endpoint{"10.0.0.1", 80}).Compare(Endpoint{"10.0.0.1", 80}) != 0 {
		t.Errorf("equal endpoints should compare as 0")
	}
}

func TestFlowKey_ID(t *testing.T) {
	key, fwd := Canonicalize(Endpoint{"10.0.0.2", 80}, Endpoint{"10.0.0.1", 1234}, ProtocolTCP)
	if fwd {
		t.Errorf("packet from the larger endpoint should be backward")
	}
	if got, want := key.ID(), "10.0.0.1:1234-10.0.0.2:80-P6"; got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}
}

func TestColumns(t *testing.T) {
	if len(Columns) != 24 {
		t.Fatalf("expected 24 columns, got %d", len(Columns))
	}
	if Columns[0] != "FlowID" || Columns[len(Columns)-1] != "Label" {
		t.Errorf("unexpected column bounds: %s ... %s", Columns[0], Columns[len(Columns)-1])
	}
}
