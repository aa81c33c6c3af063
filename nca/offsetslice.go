package nca

// OffsetSlice presents [base, base+length) of an inner ByteSource as a new
// source starting at 0. It owns the inner source: Close propagates.
type OffsetSlice struct {
	inner  ByteSource
	base   int64
	length int64
}

// NewOffsetSlice wraps inner, taking ownership of it.
func NewOffsetSlice(inner ByteSource, base, length int64) *OffsetSlice {
	return &OffsetSlice{inner: inner, base: base, length: length}
}

func (s *OffsetSlice) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > s.length {
		return OutOfRange
	}
	return s.inner.ReadAt(dst, s.base+offset)
}

func (s *OffsetSlice) Size() int64 { return s.length }

func (s *OffsetSlice) Close() error { return s.inner.Close() }
