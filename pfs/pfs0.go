// Package pfs implements the minimal PFS0 partition-filesystem reader
// consumed by the nca package's signature verification path, which the
// ncatool CLI's verify subcommand wires in. It only exposes the "open a mounted
// stream" shape nca.PfsReader expects from an external collaborator.
package pfs

import (
	"encoding/binary"
	"fmt"

	"github.com/jakcron/NXTools/nca"
)

const (
	magic          = "PFS0"
	fileEntrySize  = 0x18
	headerSize     = 0x10
)

// Entry is one file's location within the underlying partition stream.
type Entry struct {
	Name   string
	Offset int64
	Size   int64
}

// Archive is an opened PFS0 listing: a flat name -> (offset, size) table
// over a single underlying nca.ByteSource.
type Archive struct {
	source  nca.ByteSource
	entries []Entry
	byName  map[string]Entry
}

// Open parses the PFS0 header, entry table and string table out of source.
// It does not take ownership of source: closing source is the caller's
// responsibility, since the same partition reader may be reused by callers
// after the PFS listing is done with it.
func Open(source nca.ByteSource) (*Archive, error) {
	header := make([]byte, headerSize)
	if err := source.ReadAt(header, 0); err != nil {
		return nil, err
	}
	if string(header[0:4]) != magic {
		return nil, fmt.Errorf("pfs0: bad magic %q", header[0:4])
	}

	fileCount := binary.LittleEndian.Uint32(header[4:8])
	stringTableSize := binary.LittleEndian.Uint32(header[8:12])

	entryTableOffset := int64(headerSize)
	entryTableSize := int64(fileCount) * fileEntrySize
	entryTable := make([]byte, entryTableSize)
	if err := source.ReadAt(entryTable, entryTableOffset); err != nil {
		return nil, err
	}

	stringTableOffset := entryTableOffset + entryTableSize
	stringTable := make([]byte, stringTableSize)
	if err := source.ReadAt(stringTable, stringTableOffset); err != nil {
		return nil, err
	}

	dataOffset := stringTableOffset + int64(stringTableSize)

	a := &Archive{source: source, byName: map[string]Entry{}}
	for i := uint32(0); i < fileCount; i++ {
		e := entryTable[i*fileEntrySize : (i+1)*fileEntrySize]
		offset := int64(binary.LittleEndian.Uint64(e[0:8]))
		size := int64(binary.LittleEndian.Uint64(e[8:16]))
		nameOffset := binary.LittleEndian.Uint32(e[16:20])

		name := readCString(stringTable, nameOffset)
		entry := Entry{Name: name, Offset: dataOffset + offset, Size: size}
		a.entries = append(a.entries, entry)
		a.byName[name] = entry
	}

	return a, nil
}

func readCString(buf []byte, start uint32) string {
	end := start
	for end < uint32(len(buf)) && buf[end] != 0 {
		end++
	}
	return string(buf[start:end])
}

// Entries lists every file in the archive, in on-disk order.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// OpenFile returns a ByteSource windowed onto the named entry's bytes
// within the underlying source, satisfying nca.PfsReader.
func (a *Archive) OpenFile(name string) (nca.ByteSource, error) {
	entry, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("pfs0: %q not present", name)
	}
	return &subSource{parent: a.source, offset: entry.Offset, size: entry.Size}, nil
}

// subSource windows a region of a parent ByteSource without taking
// ownership of it (Close is a no-op), since PFS entries are logically
// views, not owners, of the partition stream they were read from.
type subSource struct {
	parent nca.ByteSource
	offset int64
	size   int64
}

func (s *subSource) Size() int64 { return s.size }
func (s *subSource) Close() error { return nil }
func (s *subSource) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > s.size {
		return nca.OutOfRange
	}
	return s.parent.ReadAt(dst, s.offset+offset)
}
