package keypool

import "testing"

func TestRotationWraps(t *testing.T) {
	p := New([]string{"a", "b", "c"})

	key, ok := p.Current()
	if !ok || key != "a" {
		t.Fatalf("expected first key 'a', got %q (ok=%v)", key, ok)
	}

	// After N rotations the index is N mod pool-size.
	for n := 1; n <= 7; n++ {
		p.Advance()
		if got, want := p.Index(), n%3; got != want {
			t.Errorf("after %d rotations: index=%d, want %d", n, got, want)
		}
	}

	key, _ = p.Current()
	if key != "b" { // 7 mod 3 == 1
		t.Errorf("expected key 'b' after 7 rotations, got %q", key)
	}
}

func TestEmptyPool(t *testing.T) {
	p := New(nil)

	if key, ok := p.Current(); ok || key != "" {
		t.Errorf("empty pool Current() = (%q, %v), want absent", key, ok)
	}
	if _, ok := p.Advance(); ok {
		t.Error("empty pool Advance() reported a key")
	}
	if p.Index() != 0 || p.Size() != 0 {
		t.Errorf("empty pool index/size = %d/%d", p.Index(), p.Size())
	}
}
