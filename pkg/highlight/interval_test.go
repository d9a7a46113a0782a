package highlight

import (
	"math/rand"
	"testing"
)

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"empty", nil, nil},
		{"single", []Interval{{1, 3}}, []Interval{{1, 3}}},
		{"disjoint", []Interval{{5, 7}, {1, 3}}, []Interval{{1, 3}, {5, 7}}},
		{"overlapping", []Interval{{1, 4}, {3, 6}}, []Interval{{1, 6}}},
		{"touching", []Interval{{1, 3}, {3, 5}}, []Interval{{1, 5}}},
		{"contained", []Interval{{1, 10}, {3, 5}}, []Interval{{1, 10}}},
		{"drops empty", []Interval{{2, 2}, {4, 3}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.in)
			if !equalIntervals(got, tc.want) {
				t.Errorf("Merge(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSubtract(t *testing.T) {
	cases := []struct {
		name string
		iv   Interval
		cuts []Interval
		want []Interval
	}{
		{"no cuts", Interval{1, 5}, nil, []Interval{{1, 5}}},
		{"disjoint cut", Interval{1, 5}, []Interval{{7, 9}}, []Interval{{1, 5}}},
		{"cut inside splits", Interval{0, 10}, []Interval{{4, 6}}, []Interval{{0, 4}, {6, 10}}},
		{"cut at left edge", Interval{2, 8}, []Interval{{2, 4}}, []Interval{{4, 8}}},
		{"cut at right edge", Interval{2, 8}, []Interval{{6, 8}}, []Interval{{2, 6}}},
		{"cut covers all", Interval{3, 5}, []Interval{{0, 10}}, nil},
		{"two cuts", Interval{0, 10}, []Interval{{1, 2}, {8, 9}}, []Interval{{0, 1}, {2, 8}, {9, 10}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(tc.iv, tc.cuts)
			if !equalIntervals(got, tc.want) {
				t.Errorf("Subtract(%v, %v) = %v, want %v", tc.iv, tc.cuts, got, tc.want)
			}
		})
	}
}

// Random interval fuzzing: merged output never overlaps and the union of
// Subtract output is always a subset of the input interval.
func TestMergeFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 500; iter++ {
		in := randomIntervals(rng, 12, 40)
		out := Merge(in)
		for i := 1; i < len(out); i++ {
			if out[i].Start <= out[i-1].End {
				t.Fatalf("iter %d: merged output overlaps or touches: %v", iter, out)
			}
		}
		for _, iv := range out {
			if iv.End <= iv.Start {
				t.Fatalf("iter %d: empty interval in output: %v", iter, out)
			}
		}
		// Every input point must be covered by the output and vice versa.
		if !samePointSet(in, out, 45) {
			t.Fatalf("iter %d: Merge changed covered points; in=%v out=%v", iter, in, out)
		}
	}
}

func TestSubtractFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for iter := 0; iter < 500; iter++ {
		iv := Interval{rng.Intn(20), 20 + rng.Intn(20)}
		cuts := randomIntervals(rng, 6, 40)
		out := Subtract(iv, cuts)
		for _, seg := range out {
			if seg.Start < iv.Start || seg.End > iv.End {
				t.Fatalf("iter %d: segment %v outside input %v", iter, seg, iv)
			}
			if seg.End <= seg.Start {
				t.Fatalf("iter %d: empty segment %v", iter, seg)
			}
			for _, cut := range cuts {
				if seg.Start < cut.End && cut.Start < seg.End {
					t.Fatalf("iter %d: segment %v overlaps cut %v", iter, seg, cut)
				}
			}
		}
	}
}

func randomIntervals(rng *rand.Rand, n, max int) []Interval {
	count := rng.Intn(n)
	out := make([]Interval, 0, count)
	for i := 0; i < count; i++ {
		a, b := rng.Intn(max), rng.Intn(max)
		out = append(out, Interval{a, b})
	}
	return out
}

func covered(ivs []Interval, p int) bool {
	for _, iv := range ivs {
		if p >= iv.Start && p < iv.End {
			return true
		}
	}
	return false
}

func samePointSet(a, b []Interval, max int) bool {
	for p := 0; p <= max; p++ {
		if covered(a, p) != covered(b, p) {
			return false
		}
	}
	return true
}

func equalIntervals(a, b []Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
