// Package feature turns accumulated flow statistics into exported feature rows.
package feature

import (
	"FlowFeatures/internal/model"
	"math"
)

// minDurationSec replaces a zero or negative flow duration when computing rates.
const minDurationSec = 1e-6

// Mean returns sum/n, or 0 when n is 0.
func Mean(sum float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Variance returns the population variance from running sums. The result is
// clamped at zero: E[x^2]-E[x]^2 can cancel to a tiny negative value.
func Variance(sum, sumSq float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	v := sumSq/float64(n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// Std returns the population standard deviation from running sums.
func Std(sum, sumSq float64, n uint64) float64 {
	return math.Sqrt(Variance(sum, sumSq, n))
}

// Derive builds the feature row for one flow.
func Derive(key model.FlowKey, st *model.FlowStats, label int) model.FlowRecord {
	durMs := st.Last.Sub(st.Start).Milliseconds()
	durSec := minDurationSec
	if durMs > 0 {
		durSec = float64(durMs) / 1000
	}

	return model.FlowRecord{
		FlowID:        key.ID(),
		SrcIP:         key.A.IP,
		DstIP:         key.B.IP,
		SrcPort:       key.A.Port,
		DstPort:       key.B.Port,
		Protocol:      key.Protocol,
		DurationMs:    durMs,
		Packets:       st.Packets,
		Bytes:         st.Bytes,
		FwdPackets:    st.FwdPackets,
		BwdPackets:    st.BwdPackets,
		FwdBytes:      st.FwdBytes,
		BwdBytes:      st.BwdBytes,
		MinPktLen:     st.MinPktLen,
		MaxPktLen:     st.MaxPktLen,
		MeanPktLen:    Mean(st.SumPktLen, st.Packets),
		StdPktLen:     Std(st.SumPktLen, st.SumSqPktLen, st.Packets),
		FlowIATMeanUs: Mean(st.SumIATUs, st.IATCount),
		FlowIATStdUs:  Std(st.SumIATUs, st.SumSqIATUs, st.IATCount),
		PacketsPerSec: float64(st.Packets) / durSec,
		BytesPerSec:   float64(st.Bytes) / durSec,
		FwdPps:        float64(st.FwdPackets) / durSec,
		BwdPps:        float64(st.BwdPackets) / durSec,
		Label:         label,
	}
}
