package flowtable

import (
	"FlowFeatures/internal/model"
	"time"
)

// Update applies one packet observation to a flow's accumulator.
func Update(st *model.FlowStats, length int, ts time.Time, forward bool) {
	l := uint32(length)
	fl := float64(length)

	if st.Packets == 0 {
		st.Start = ts
		st.Last = ts
		st.Prev = ts
		st.MinPktLen = l
		st.MaxPktLen = l
		st.SumPktLen = fl
		st.SumSqPktLen = fl * fl
	} else {
		// Clamp so a clock step backwards never produces a negative gap.
		iat := ts.Sub(st.Prev).Microseconds()
		if iat < 0 {
			iat = 0
		}
		fi := float64(iat)
		st.IATCount++
		st.SumIATUs += fi
		st.SumSqIATUs += fi * fi
		st.Prev = ts

		if l < st.MinPktLen {
			st.MinPktLen = l
		}
		if l > st.MaxPktLen {
			st.MaxPktLen = l
		}
		st.SumPktLen += fl
		st.SumSqPktLen += fl * fl

		st.Last = ts
	}

	st.Packets++
	st.Bytes += uint64(length)

	if forward {
		st.FwdPackets++
		st.FwdBytes += uint64(length)
	} else {
		st.BwdPackets++
		st.BwdBytes += uint64(length)
	}
}
