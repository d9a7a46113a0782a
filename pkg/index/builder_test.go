package index

import (
	"strings"
	"testing"

	"kikitori/pkg/tokenize"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	a, err := tokenize.NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return NewBuilder(a)
}

func TestBuildDeterministic(t *testing.T) {
	b := newTestBuilder(t)
	text := "今日は学校に行きました"
	first := b.Build(text)
	second := b.Build(text)
	if first != second {
		t.Errorf("Build not deterministic: %+v vs %+v", first, second)
	}
	if first.SurfaceTok == "" || first.ReadingTok == "" {
		t.Errorf("expected non-empty fields, got %+v", first)
	}
}

func TestBuildTokenCountsMatch(t *testing.T) {
	b := newTestBuilder(t)
	f := b.Build("君の名は")
	surf := strings.Fields(f.SurfaceTok)
	read := strings.Fields(f.ReadingTok)
	if len(surf) != len(read) {
		t.Errorf("surface tokens %v and reading tokens %v disagree in count", surf, read)
	}
}

func TestBuildCleansInput(t *testing.T) {
	b := newTestBuilder(t)
	dirty := b.Build("‎ 食べる ‬")
	clean := b.Build("食べる")
	if dirty != clean {
		t.Errorf("controls changed index fields: %+v vs %+v", dirty, clean)
	}
}

func TestBuildEmpty(t *testing.T) {
	b := newTestBuilder(t)
	if f := b.Build("   "); f != (Fields{}) {
		t.Errorf("expected empty fields for blank text, got %+v", f)
	}
}
