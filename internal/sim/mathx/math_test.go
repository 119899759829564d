package mathx

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, div, mod int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.div {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.div)
		}
		if rem := c.a - FloorDiv(c.a, c.b)*c.b; rem != c.mod {
			t.Fatalf("remainder of %d/%d = %d want %d", c.a, c.b, rem, c.mod)
		}
	}
}

func TestHash3Deterministic(t *testing.T) {
	if Hash3(7, 1, 2, 3) != Hash3(7, 1, 2, 3) {
		t.Fatalf("hash is not deterministic")
	}
	if Hash3(7, 1, 2, 3) == Hash3(8, 1, 2, 3) {
		t.Fatalf("seed does not affect hash")
	}
	if Hash3(7, 1, 2, 3) == Hash3(7, 3, 2, 1) {
		t.Fatalf("axis order does not affect hash")
	}
}
