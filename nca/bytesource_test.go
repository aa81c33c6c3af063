package nca

import "testing"

func TestMemorySourceReadAt(t *testing.T) {
	src := NewMemorySource([]byte("hello world"))
	if src.Size() != 11 {
		t.Fatalf("expected size 11, got %d", src.Size())
	}

	dst := make([]byte, 5)
	if err := src.ReadAt(dst, 6); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(dst) != "world" {
		t.Fatalf("expected %q, got %q", "world", dst)
	}
}

func TestMemorySourceOutOfRange(t *testing.T) {
	src := NewMemorySource([]byte("short"))
	dst := make([]byte, 10)
	if err := src.ReadAt(dst, 0); err != OutOfRange {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}
