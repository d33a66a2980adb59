package dotpath

import (
	"testing"
)

func TestResolve(t *testing.T) {
	eq(t, Root().IsRoot(), true)
	eq(t, Root().Value(), "")
	eq(t, Root().Resolve("wt").Value(), "wt")
	eq(t, Root().Resolve("cs").Resolve("stg").Resolve("1").Value(), "cs.stg.1")
	eq(t, Of("eqm", "abc", "atk"), Root().Resolve("eqm").Resolve("abc").Resolve("atk"))
	eq(t, Of().IsRoot(), true)
	eq(t, Parse("a.b").Resolve("c").String(), "a.b.c")
	eq(t, Root().String(), "<root>")
}

func TestSplit(t *testing.T) {
	parent, last := Of("a", "b", "c").Split()
	eq(t, parent, Of("a", "b"))
	eq(t, last, "c")

	parent, last = Of("a").Split()
	eq(t, parent.IsRoot(), true)
	eq(t, last, "a")

	segs := Of("x", "y").Segments()
	eq(t, len(segs), 2)
	eq(t, segs[1], "y")
	eq(t, len(Root().Segments()), 0)
}

func TestResolveEmptySegmentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("** expected panic")
		}
	}()
	Root().Resolve("")
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
