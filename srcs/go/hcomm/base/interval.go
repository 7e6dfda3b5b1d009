package base

// Interval represents the interval of integers [Begin, End)
type Interval struct {
	Begin int
	End   int
}

// FixedPartition splits r into consecutive parts of length size, the last may be shorter.
func FixedPartition(r Interval, size int) []Interval {
	var ps []Interval
	for b := r.Begin; b < r.End; b += size {
		ps = append(ps, Interval{Begin: b, End: min(b+size, r.End)})
	}
	return ps
}
