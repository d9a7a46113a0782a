package highlight

import "sort"

// Interval is a half-open [Start, End) range of rune offsets.
type Interval struct {
	Start, End int
}

func (iv Interval) empty() bool { return iv.End <= iv.Start }

// Merge sorts intervals and coalesces any that touch or overlap into maximal
// ranges. Empty intervals are dropped. The result is sorted and
// non-overlapping.
func Merge(ivs []Interval) []Interval {
	var in []Interval
	for _, iv := range ivs {
		if !iv.empty() {
			in = append(in, iv)
		}
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End < in[j].End
	})

	var out []Interval
	for _, iv := range in {
		if len(out) == 0 || iv.Start > out[len(out)-1].End {
			out = append(out, iv)
		} else if iv.End > out[len(out)-1].End {
			out[len(out)-1].End = iv.End
		}
	}
	return out
}

// Subtract removes every interval in cuts from iv. A cut strictly inside iv
// splits it in two; a cut touching one edge trims it; a covering cut removes
// it entirely.
func Subtract(iv Interval, cuts []Interval) []Interval {
	segments := []Interval{iv}
	for _, cut := range cuts {
		var next []Interval
		for _, seg := range segments {
			if cut.End <= seg.Start || cut.Start >= seg.End {
				next = append(next, seg)
				continue
			}
			if seg.Start < cut.Start {
				next = append(next, Interval{seg.Start, cut.Start})
			}
			if cut.End < seg.End {
				next = append(next, Interval{cut.End, seg.End})
			}
		}
		segments = next
		if len(segments) == 0 {
			break
		}
	}

	out := segments[:0]
	for _, seg := range segments {
		if !seg.empty() {
			out = append(out, seg)
		}
	}
	return out
}
