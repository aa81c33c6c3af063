package nca

import (
	"bytes"
	"testing"
)

func presentEntry(index int, offsetBlocks, endOffsetBlocks uint32) PartitionTableEntry {
	return PartitionTableEntry{Index: index, OffsetBlocks: offsetBlocks, EndOffsetBlocks: endOffsetBlocks}
}

// TestAssemblePartitionsMissingBodyCtrKeyFailsOnlyThatPartition checks that
// a partition needing AesCtr decryption with no body CTR key available
// gets FailReason "MissingKey" and a nil Reader, while other partitions
// still assemble successfully.
func TestAssemblePartitionsMissingBodyCtrKeyFailsOnlyThatPartition(t *testing.T) {
	sectorSize := int64(headerSectorSize)
	archiveBytes := bytes.Repeat([]byte{0xCC}, int(sectorSize*4))
	archive := NewMemorySource(archiveBytes)

	mainHeader := &MainHeader{}
	mainHeader.Partitions[0] = presentEntry(0, 0, 1) // [0, 0x200)
	mainHeader.Partitions[1] = presentEntry(1, 1, 2) // [0x200, 0x400)

	fsHeaders := [numFsHeaders]*FsHeader{
		{Version: kDefaultFsHeaderVersion, Format: FormatPfs, Hash: HashNone, Encryption: EncryptionNone},
		{Version: kDefaultFsHeaderVersion, Format: FormatPfs, Hash: HashNone, Encryption: EncryptionAesCtr},
		{},
		{},
	}

	bodyKeys := &DerivedBodyKeys{HasBodyCtrKey: false}

	partitions := AssemblePartitions(archive, mainHeader, fsHeaders, bodyKeys)

	if partitions[0].FailReason != "" || partitions[0].Reader == nil {
		t.Fatalf("expected partition 0 to assemble successfully, got FailReason=%q reader=%v", partitions[0].FailReason, partitions[0].Reader)
	}
	if partitions[1].FailReason != KindMissingKey.String() {
		t.Fatalf("expected partition 1 FailReason %q, got %q", KindMissingKey.String(), partitions[1].FailReason)
	}
	if partitions[1].Reader != nil {
		t.Fatalf("expected partition 1 Reader to be nil on failure")
	}
	if partitions[2].FailReason != "not present" {
		t.Fatalf("expected partition 2 to be reported not present, got %q", partitions[2].FailReason)
	}
}

func TestAssemblePartitionsRejectsUnsupportedFsHeaderVersion(t *testing.T) {
	archive := NewMemorySource(bytes.Repeat([]byte{0x00}, int(headerSectorSize)))
	mainHeader := &MainHeader{}
	mainHeader.Partitions[0] = presentEntry(0, 0, 1)

	fsHeaders := [numFsHeaders]*FsHeader{
		{Version: kDefaultFsHeaderVersion + 1, Format: FormatPfs},
		{}, {}, {},
	}

	partitions := AssemblePartitions(archive, mainHeader, fsHeaders, &DerivedBodyKeys{})
	if partitions[0].Reader != nil {
		t.Fatalf("expected nil reader for unsupported fs header version")
	}
	if partitions[0].FailReason == "" {
		t.Fatalf("expected a FailReason for unsupported fs header version")
	}
}

func TestAssemblePartitionsEncryptionNoneHashNoneReadsThroughOffset(t *testing.T) {
	payload := []byte("partition-data--")
	padding := bytes.Repeat([]byte{0}, int(headerSectorSize)-len(payload))
	archive := NewMemorySource(append(append([]byte{}, payload...), padding...))

	mainHeader := &MainHeader{}
	mainHeader.Partitions[0] = presentEntry(0, 0, 1)
	fsHeaders := [numFsHeaders]*FsHeader{
		{Version: kDefaultFsHeaderVersion, Format: FormatPfs, Hash: HashNone, Encryption: EncryptionNone},
		{}, {}, {},
	}

	partitions := AssemblePartitions(archive, mainHeader, fsHeaders, &DerivedBodyKeys{})
	info := partitions[0]
	if info.FailReason != "" {
		t.Fatalf("unexpected FailReason: %q", info.FailReason)
	}
	got := make([]byte, len(payload))
	if err := info.Reader.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}
