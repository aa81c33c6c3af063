// Package romfs implements a minimal RomFS reader: just enough to turn a
// hash-tree-verified RomFS partition stream into a flat name listing.
// Directory nesting, hashing buckets and everything else RomFS carries for
// fast lookup are left unparsed.
package romfs

import (
	"encoding/binary"
	"fmt"

	"github.com/jakcron/NXTools/nca"
)

const headerFieldCount = 10

// Header is the fixed 10-field RomFS header.
type Header struct {
	HeaderSize          uint64
	DirHashTableOffset  uint64
	DirHashTableSize    uint64
	DirMetaTableOffset  uint64
	DirMetaTableSize    uint64
	FileHashTableOffset uint64
	FileHashTableSize   uint64
	FileMetaTableOffset uint64
	FileMetaTableSize   uint64
	DataOffset          uint64
}

// FileEntry is one RomFS file-metadata-table record.
type FileEntry struct {
	Parent  uint32
	Sibling uint32
	Offset  int64
	Size    int64
	Name    string
}

// Archive is an opened RomFS partition: its header and a flat, name-keyed
// view of the file metadata table.
type Archive struct {
	source nca.ByteSource
	Header Header
	Files  map[string]FileEntry
}

// Open reads the RomFS header and file-metadata table out of source.
func Open(source nca.ByteSource) (*Archive, error) {
	rawHeader := make([]byte, headerFieldCount*8)
	if err := source.ReadAt(rawHeader, 0); err != nil {
		return nil, err
	}
	header := parseHeader(rawHeader)

	if header.FileMetaTableOffset+header.FileMetaTableSize > uint64(source.Size()) {
		return nil, fmt.Errorf("romfs: file metadata table out of range")
	}
	metaTable := make([]byte, header.FileMetaTableSize)
	if err := source.ReadAt(metaTable, int64(header.FileMetaTableOffset)); err != nil {
		return nil, err
	}

	files, err := parseFileEntries(metaTable, header)
	if err != nil {
		return nil, err
	}

	return &Archive{source: source, Header: header, Files: files}, nil
}

func parseHeader(data []byte) Header {
	u64 := func(i int) uint64 { return binary.LittleEndian.Uint64(data[i*8 : i*8+8]) }
	return Header{
		HeaderSize:          u64(0),
		DirHashTableOffset:  u64(1),
		DirHashTableSize:    u64(2),
		DirMetaTableOffset:  u64(3),
		DirMetaTableSize:    u64(4),
		FileHashTableOffset: u64(5),
		FileHashTableSize:   u64(6),
		FileMetaTableOffset: u64(7),
		FileMetaTableSize:   u64(8),
		DataOffset:          u64(9),
	}
}

func parseFileEntries(metaTable []byte, header Header) (map[string]FileEntry, error) {
	result := map[string]FileEntry{}
	offset := uint32(0)
	for offset < uint32(len(metaTable)) {
		if offset+0x20 > uint32(len(metaTable)) {
			break
		}
		parent := binary.LittleEndian.Uint32(metaTable[offset : offset+0x4])
		sibling := binary.LittleEndian.Uint32(metaTable[offset+0x4 : offset+0x8])
		dataOffset := binary.LittleEndian.Uint64(metaTable[offset+0x8 : offset+0x10])
		size := binary.LittleEndian.Uint64(metaTable[offset+0x10 : offset+0x18])
		nameSize := binary.LittleEndian.Uint32(metaTable[offset+0x1C : offset+0x20])

		nameStart := offset + 0x20
		nameEnd := nameStart + nameSize
		if nameEnd > uint32(len(metaTable)) {
			return nil, fmt.Errorf("romfs: file entry name out of range")
		}
		name := string(metaTable[nameStart:nameEnd])

		entry := FileEntry{
			Parent:  parent,
			Sibling: sibling,
			Offset:  int64(header.DataOffset) + int64(dataOffset),
			Size:    int64(size),
			Name:    name,
		}
		result[name] = entry

		// entries are padded to a 4-byte boundary after the name.
		advance := 0x20 + nameSize
		advance = (advance + 3) &^ 3
		offset += advance
	}
	return result, nil
}

// OpenFile returns a ByteSource windowed onto the named file's bytes.
func (a *Archive) OpenFile(name string) (nca.ByteSource, error) {
	entry, ok := a.Files[name]
	if !ok {
		return nil, fmt.Errorf("romfs: %q not present", name)
	}
	return &fileSource{parent: a.source, offset: entry.Offset, size: entry.Size}, nil
}

type fileSource struct {
	parent nca.ByteSource
	offset int64
	size   int64
}

func (s *fileSource) Size() int64  { return s.size }
func (s *fileSource) Close() error { return nil }
func (s *fileSource) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > s.size {
		return nca.OutOfRange
	}
	return s.parent.ReadAt(dst, s.offset+offset)
}
