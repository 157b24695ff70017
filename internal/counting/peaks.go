package counting

// PeakSet is the ordered (left to right) list of peak indices found in one
// frame's occupancy signal.
type PeakSet []int

// PeakParams controls DetectPeaks.
type PeakParams struct {
	Threshold     float64
	Spacing       int
	MinSeparation int
}

// DetectPeaks scans sig from index Spacing onwards. An interior index is a
// candidate when it exceeds Threshold and both neighbours Spacing away; an
// index within Spacing of the right edge is only compared with its left
// neighbour. Indices below Spacing are never evaluated. A candidate is kept
// when it is more than MinSeparation past the last kept peak.
func DetectPeaks(sig Signal, pp PeakParams) PeakSet {
	space := pp.Spacing
	if space <= 0 {
		return nil
	}
	n := len(sig)
	var peaks PeakSet
	for i := space; i < n; i++ {
		v := sig[i]
		if v <= pp.Threshold || v <= sig[i-space] {
			continue
		}
		if i < n-space && v <= sig[i+space] {
			continue
		}
		if len(peaks) > 0 && absInt(i-peaks[len(peaks)-1]) <= pp.MinSeparation {
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
