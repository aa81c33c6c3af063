package nca

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"go.uber.org/zap"
)

// orchestratorFixture builds a full encrypted NCA3 archive in memory: one
// Program-content PFS partition (None/None) whose sole entry is main.npdm,
// signed end to end. It fakes the PFS/NPDM collaborators inline instead of
// importing the pfs/npdm packages, which both depend on this one.
type orchestratorFixture struct {
	archive   []byte
	headerKey [32]byte
	signKey   *rsa.PrivateKey
	acidKey   *rsa.PrivateKey
	npdmBytes []byte
}

func buildOrchestratorFixture(t *testing.T) orchestratorFixture {
	t.Helper()

	npdmBytes := bytes.Repeat([]byte{0x5A}, 0x400)
	partitionData := npdmBytes // the lone PFS entry's bytes

	headerKey := testHeaderKey()
	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	acidKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	var plain [headerBlockSize]byte
	copy(plain[mainHeaderOffset:mainHeaderOffset+4], "NCA3")
	plain[mainHeaderOffset+0x05] = byte(ContentTypeProgram)
	plain[mainHeaderOffset+0x06] = 1 // key generation 1

	fsOff := fsHeaderOffset0
	plain[fsOff+0x00] = kDefaultFsHeaderVersion
	plain[fsOff+0x01] = byte(FormatPfs)
	plain[fsOff+0x02] = byte(HashNone)
	plain[fsOff+0x03] = byte(EncryptionNone)
	fsHash := sha256.Sum256(plain[fsOff : fsOff+fsHeaderSize])
	copy(plain[mainHeaderOffset+0x80:mainHeaderOffset+0x80+sha256Size], fsHash[:])

	partitionOffsetBlocks := uint32(headerBlockSize / headerSectorSize)
	partitionEndBlocks := partitionOffsetBlocks + uint32((len(partitionData)+headerSectorSize-1)/headerSectorSize)
	binary.LittleEndian.PutUint32(plain[mainHeaderOffset+0x40:mainHeaderOffset+0x44], partitionOffsetBlocks)
	binary.LittleEndian.PutUint32(plain[mainHeaderOffset+0x44:mainHeaderOffset+0x48], partitionEndBlocks)

	headerHash := sha256.Sum256(plain[mainHeaderOffset : mainHeaderOffset+0x400])
	sigMain, err := rsa.SignPSS(rand.Reader, signKey, crypto.SHA256, headerHash[:], nil)
	if err != nil {
		t.Fatalf("SignPSS main: %v", err)
	}
	sigAcid, err := rsa.SignPSS(rand.Reader, acidKey, crypto.SHA256, headerHash[:], nil)
	if err != nil {
		t.Fatalf("SignPSS acid: %v", err)
	}
	copy(plain[0x000:0x100], sigMain)
	copy(plain[0x100:0x200], sigAcid)

	header := encryptHeaderFixture(plain, headerKey, false)
	archive := append(append([]byte{}, header[:]...), partitionData...)

	return orchestratorFixture{
		archive:   archive,
		headerKey: headerKey,
		signKey:   signKey,
		acidKey:   acidKey,
		npdmBytes: npdmBytes,
	}
}

type fixturePfsReader struct{ data []byte }

func (f fixturePfsReader) OpenFile(name string) (ByteSource, error) {
	if name != "main.npdm" {
		return nil, OutOfRange
	}
	return NewMemorySource(f.data), nil
}

type fixtureAcidReader struct{ key *rsa.PublicKey }

func (f fixtureAcidReader) Acid() (*rsa.PublicKey, error) { return f.key, nil }

// TestProcessEndToEndProgramWithPfsPartition runs a full NCA3 archive,
// content_type=Program, with one PFS partition (None/None) through Process
// end to end: one assembled partition, signature 2 verifies, extracted
// main.npdm bytes match the fixture plaintext.
func TestProcessEndToEndProgramWithPfsPartition(t *testing.T) {
	fx := buildOrchestratorFixture(t)

	ks := &Keyset{HeaderKey: fx.headerKey, HeaderSignKey: &fx.signKey.PublicKey}

	collab := Collaborators{
		OpenPfs: func(src ByteSource) (PfsReader, error) {
			buf := make([]byte, src.Size())
			if err := src.ReadAt(buf, 0); err != nil {
				return nil, err
			}
			return fixturePfsReader{data: buf}, nil
		},
		ParseNpdm: func(ByteSource) (NpdmAcidKeyReader, error) {
			return fixtureAcidReader{key: &fx.acidKey.PublicKey}, nil
		},
	}

	result, err := Process(NewMemorySource(fx.archive), ks, nil, nil, true, collab, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Partitions[0].Reader == nil {
		t.Fatalf("expected partition 0 to assemble, FailReason=%q", result.Partitions[0].FailReason)
	}
	for i := 1; i < numFsHeaders; i++ {
		if result.Partitions[i].Reader != nil {
			t.Fatalf("expected partition %d to be absent", i)
		}
	}

	if !result.SignatureMain.Verified {
		t.Fatalf("expected signature_main to verify, got %+v", result.SignatureMain)
	}
	if !result.SignatureAcid.Verified {
		t.Fatalf("expected signature_acid to verify, got %+v", result.SignatureAcid)
	}

	got := make([]byte, result.Partitions[0].Size)
	if err := result.Partitions[0].Reader.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt partition data: %v", err)
	}
	if !bytes.Equal(got, fx.npdmBytes) {
		t.Fatalf("extracted main.npdm bytes do not match fixture plaintext")
	}
}
