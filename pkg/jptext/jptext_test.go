package jptext

import "testing"

func TestCleanStripsControls(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "こんにちは", "こんにちは"},
		{"trim", "  こんにちは\n", "こんにちは"},
		{"lrm", "\u200eこんにちは\u200f", "こんにちは"},
		{"embedding", "\u202aテスト\u202c", "テスト"},
		{"isolate", "\u2066テスト\u2069", "テスト"},
		{"nfkc fullwidth ascii", "ＡＢＣ１２３", "ABC123"},
		{"nfkc halfwidth kana", "ｶﾀｶﾅ", "カタカナ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"", "こんにちは", " ＡＢＣ\u200e君の名は。\u202e ", "食べる\u2066\u2069",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCleanOutputHasNoControls(t *testing.T) {
	out := Clean("a\u200eb\u202ac\u2066d")
	for _, r := range out {
		if isBidiControl(r) {
			t.Fatalf("control character %U survived Clean: %q", r, out)
		}
	}
}

func TestFormatMS(t *testing.T) {
	cases := []struct {
		ms   int
		want string
	}{
		{0, "00:00:00.000"},
		{62500, "00:01:02.500"},
		{3661001, "01:01:01.001"},
		{-5, "00:00:00.000"},
	}
	for _, tc := range cases {
		if got := FormatMS(tc.ms); got != tc.want {
			t.Errorf("FormatMS(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}
