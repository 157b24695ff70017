package counting

// CountNew returns how many peaks of current are new vehicles. On the first
// frame every peak is new. Otherwise a peak is new when its distance to the
// nearest peak of previous exceeds minShift, or when previous is empty.
func CountNew(current, previous PeakSet, minShift int, first bool) int {
	if first {
		return len(current)
	}
	added := 0
	for _, p := range current {
		d, ok := nearestDistance(p, previous)
		if !ok || d > minShift {
			added++
		}
	}
	return added
}

// nearestDistance reports the smallest |p-q| over q in set. ok is false when
// set is empty.
func nearestDistance(p int, set PeakSet) (d int, ok bool) {
	for i, q := range set {
		dq := absInt(p - q)
		if i == 0 || dq < d {
			d = dq
		}
	}
	return d, len(set) > 0
}
