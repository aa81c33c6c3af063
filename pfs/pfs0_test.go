package pfs

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jakcron/NXTools/nca"
)

// buildPfs0 lays out a minimal valid PFS0 image with the given named file
// contents, in the order given.
func buildPfs0(files []struct{ name string; data []byte }) []byte {
	var entries []byte
	var stringTable []byte
	var data []byte
	var nameOffset uint32

	for _, f := range files {
		var entry [fileEntrySize]byte
		binary.LittleEndian.PutUint64(entry[0:8], uint64(len(data)))
		binary.LittleEndian.PutUint64(entry[8:16], uint64(len(f.data)))
		binary.LittleEndian.PutUint32(entry[16:20], nameOffset)
		entries = append(entries, entry[:]...)

		stringTable = append(stringTable, append([]byte(f.name), 0)...)
		nameOffset += uint32(len(f.name) + 1)

		data = append(data, f.data...)
	}

	var header [headerSize]byte
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(files)))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(stringTable)))

	buf := append([]byte{}, header[:]...)
	buf = append(buf, entries...)
	buf = append(buf, stringTable...)
	buf = append(buf, data...)
	return buf
}

func TestOpenListsEntriesInOrder(t *testing.T) {
	buf := buildPfs0([]struct{ name string; data []byte }{
		{name: "main.npdm", data: bytes.Repeat([]byte{0x01}, 8)},
		{name: "rtld", data: bytes.Repeat([]byte{0x02}, 4)},
	})

	archive, err := Open(nca.NewMemorySource(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := archive.Entries()
	if len(entries) != 2 || entries[0].Name != "main.npdm" || entries[1].Name != "rtld" {
		t.Fatalf("unexpected entry list: %+v", entries)
	}
}

func TestOpenFileReturnsWindowedBytes(t *testing.T) {
	npdmBytes := bytes.Repeat([]byte{0xAB}, 16)
	buf := buildPfs0([]struct{ name string; data []byte }{
		{name: "main.npdm", data: npdmBytes},
	})

	archive, err := Open(nca.NewMemorySource(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	src, err := archive.OpenFile("main.npdm")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if src.Size() != int64(len(npdmBytes)) {
		t.Fatalf("expected size %d, got %d", len(npdmBytes), src.Size())
	}
	got := make([]byte, len(npdmBytes))
	if err := src.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, npdmBytes) {
		t.Fatalf("windowed bytes mismatch")
	}
}

func TestOpenFileMissingEntryErrors(t *testing.T) {
	buf := buildPfs0([]struct{ name string; data []byte }{
		{name: "main.npdm", data: []byte{0x01}},
	})
	archive, err := Open(nca.NewMemorySource(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := archive.OpenFile("missing"); err == nil {
		t.Fatalf("expected an error opening a missing entry")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	buf := buildPfs0(nil)
	buf[0] = 'X'
	if _, err := Open(nca.NewMemorySource(buf)); err == nil {
		t.Fatalf("expected bad-magic error")
	}
}
