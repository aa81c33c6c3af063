package nca

import (
	"fmt"
	"io"
	"os"

	"github.com/avast/retry-go"
)

// ByteSource is the abstract random-access read-only stream every layer in
// this package consumes. It mirrors io.ReaderAt plus a fixed Size, kept as
// its own interface (rather than io.ReaderAt directly) so adapters can be
// chained and closed as a linear ownership graph.
type ByteSource interface {
	// ReadAt reads len(dst) bytes starting at the given absolute offset.
	// It returns OutOfRange if offset+len(dst) exceeds Size(), and an
	// IoError-kind *Error wrapping any underlying failure.
	ReadAt(dst []byte, offset int64) error
	// Size returns the fixed size of the source. Constant for the
	// source's lifetime.
	Size() int64
	// Close releases the source and, if it owns one, its inner source.
	Close() error
}

// MemorySource is a ByteSource backed by an in-memory byte slice. Used
// heavily by tests.
type MemorySource struct {
	buf []byte
}

func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

func (m *MemorySource) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > int64(len(m.buf)) {
		return OutOfRange
	}
	copy(dst, m.buf[offset:offset+int64(len(dst))])
	return nil
}

func (m *MemorySource) Size() int64 { return int64(len(m.buf)) }
func (m *MemorySource) Close() error { return nil }

// FileSource is a ByteSource backed by an *os.File. Opens are retried a
// handful of times, since archives are frequently read off removable or
// network storage where a transient open failure is common and not worth
// surfacing immediately.
type FileSource struct {
	f    *os.File
	size int64
}

// OpenFileSource opens path for reading, retrying transient failures.
func OpenFileSource(path string) (*FileSource, error) {
	var f *os.File
	err := retry.Do(
		func() error {
			var openErr error
			f, openErr = os.Open(path)
			return openErr
		},
		retry.Attempts(5),
	)
	if err != nil {
		return nil, errIo(fmt.Sprintf("open %s", path), err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errIo(fmt.Sprintf("stat %s", path), err)
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

func (fs *FileSource) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > fs.size {
		return OutOfRange
	}
	err := retry.Do(
		func() error {
			_, rerr := fs.f.ReadAt(dst, offset)
			if rerr == io.EOF && len(dst) == 0 {
				return nil
			}
			return rerr
		},
		retry.Attempts(3),
	)
	if err != nil {
		return errIo(fmt.Sprintf("read %d bytes at %d", len(dst), offset), err)
	}
	return nil
}

func (fs *FileSource) Size() int64 { return fs.size }

func (fs *FileSource) Close() error {
	return fs.f.Close()
}
