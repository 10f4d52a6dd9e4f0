package util

import (
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	base := filepath.Join("conf", "show")
	abs, _ := filepath.Abs(filepath.Join("x", "programs.txt"))

	if got := ResolvePath(base, "programs.txt"); got != filepath.Join(base, "programs.txt") {
		t.Fatalf("relative: %q", got)
	}
	if got := ResolvePath(base, abs); got != abs {
		t.Fatalf("absolute: %q", got)
	}
	if got := ResolvePath(base, ""); got != "" {
		t.Fatalf("empty: %q", got)
	}
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	got := r.Snapshot()
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("snapshot = %v", got)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestRingBufferTail(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	if got := r.Tail(2); len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("tail(2) = %v", got)
	}
	if got := r.Tail(10); len(got) != 3 || got[0] != 3 {
		t.Fatalf("tail(10) = %v", got)
	}
	if got := r.Tail(0); len(got) != 0 {
		t.Fatalf("tail(0) = %v", got)
	}
}
