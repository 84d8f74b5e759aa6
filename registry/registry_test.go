package registry

import "testing"

type fakeCloser struct{ closed *bool }

func (f fakeCloser) Close() error {
	*f.closed = true
	return nil
}

func TestAddAcquireRelease(t *testing.T) {
	r := New()
	closed := false
	h := r.Add(fakeCloser{&closed})

	ref, ok := r.Acquire(h)
	if !ok {
		t.Fatal("Acquire failed for live handle")
	}
	if closed {
		t.Fatal("value closed while still referenced")
	}
	ref.Release()
	if closed {
		t.Fatal("value closed while registry still holds its own reference")
	}

	if !r.Remove(h) {
		t.Fatal("Remove failed for live handle")
	}
	if !closed {
		t.Fatal("value not closed after last reference released")
	}
}

func TestRemoveMakesHandleUnresolvableImmediately(t *testing.T) {
	r := New()
	closed := false
	h := r.Add(fakeCloser{&closed})

	ref, ok := r.Acquire(h)
	if !ok {
		t.Fatal("Acquire failed for live handle")
	}

	r.Remove(h)
	if closed {
		t.Fatal("value closed while an Acquire-held reference is still outstanding")
	}
	if _, ok := r.Acquire(h); ok {
		t.Fatal("Acquire succeeded on a removed handle")
	}

	ref.Release()
	if !closed {
		t.Fatal("value not closed after the last outstanding reference released")
	}
}

func TestDoubleRemoveFails(t *testing.T) {
	r := New()
	closed := false
	h := r.Add(fakeCloser{&closed})
	if !r.Remove(h) {
		t.Fatal("first Remove failed")
	}
	if r.Remove(h) {
		t.Fatal("second Remove succeeded")
	}
}

func TestLen(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
	closed := false
	h := r.Add(fakeCloser{&closed})
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	r.Remove(h)
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}
