package nca

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/jakcron/NXTools/internal/xts"
)

const (
	headerBlockSize  = 0xC00
	headerSectorSize = 0x200
	mainHeaderOffset = 0x200
	fsHeaderOffset0  = 0x400
	fsHeaderSize     = 0x200
	numFsHeaders     = 4
)

type DistributionType byte

const (
	DistributionDownload DistributionType = 0
	DistributionGameCard DistributionType = 1
)

type ContentType byte

const (
	ContentTypeProgram    ContentType = 0
	ContentTypeMeta       ContentType = 1
	ContentTypeControl    ContentType = 2
	ContentTypeManual     ContentType = 3
	ContentTypeData       ContentType = 4
	ContentTypePublicData ContentType = 5
)

type KaekIndex byte

const (
	KaekApplication KaekIndex = 0
	KaekOcean       KaekIndex = 1
	KaekSystem      KaekIndex = 2
)

type FormatType byte

const (
	FormatPfs FormatType = iota
	FormatRomFs
	FormatUnknown
)

type HashType byte

const (
	HashNone HashType = iota
	HashHierarchicalSha256
	HashHierarchicalIntegrity
	HashUnknown
)

type EncryptionType byte

const (
	EncryptionNone EncryptionType = iota
	EncryptionAesXts
	EncryptionAesCtr
	EncryptionAesCtrEx
	EncryptionUnknown
)

// kDefaultFsHeaderVersion is the only fs-header version this package accepts.
const kDefaultFsHeaderVersion = 2

// PartitionTableEntry is one of the four slots in the main header's
// partition table.
type PartitionTableEntry struct {
	Index           int
	OffsetBlocks    uint32
	EndOffsetBlocks uint32
	FsHeaderHash    [sha256Size]byte
}

func (p PartitionTableEntry) OffsetBytes() int64 { return int64(p.OffsetBlocks) * headerSectorSize }
func (p PartitionTableEntry) EndOffsetBytes() int64 {
	return int64(p.EndOffsetBlocks) * headerSectorSize
}
func (p PartitionTableEntry) SizeBytes() int64 { return p.EndOffsetBytes() - p.OffsetBytes() }
func (p PartitionTableEntry) Present() bool    { return p.EndOffsetBlocks > p.OffsetBlocks }

// MainHeader is the parsed, decrypted 0x200-byte main header.
type MainHeader struct {
	Magic             string
	Distribution      DistributionType
	ContentType       ContentType
	KeyGeneration1    byte
	KaekIndexField    KaekIndex
	ContentSize       uint64
	ProgramID         uint64
	ContentIndex      uint32
	SdkAddonVersion   SdkAddonVersion
	KeyGeneration2    byte
	RightsID          [16]byte
	Partitions        [numFsHeaders]PartitionTableEntry
	EncryptedKeyArea  [4][16]byte

	// HeaderHash is sha256 of the 0x400 bytes starting at the main header
	// (the 0x200-byte main header followed by fs-header slot 0), stored
	// for later signature verification.
	HeaderHash [sha256Size]byte
}

func (h *MainHeader) HasRightsID() bool { return !isZeroKey16(h.RightsID) }
func (h *MainHeader) MasterKeyRev() int { return MasterKeyRev(h.KeyGeneration1, h.KeyGeneration2) }

// FsHeader is the parsed, decrypted 0x200-byte fs-header for one partition
// slot.
type FsHeader struct {
	Version        byte
	Format         FormatType
	Hash           HashType
	Encryption     EncryptionType
	IvHigh         uint64
	HashSuperblock [0x138]byte
	raw            [fsHeaderSize]byte
}

// DecryptedHeaderBlock holds the full decrypted 0xC00-byte header and the
// NCA2/NCA3 branch taken, kept for tests that want to assert on the branch.
type DecryptedHeaderBlock struct {
	Bytes    [headerBlockSize]byte
	IsNca2   bool
}

// DecryptHeaderBlock decrypts the archive's fixed 0xC00-byte header block:
// AES-128-XTS with the keyset's header key, sector size 0x200, sector
// numbers 0..5 covering [0x000,0xC00) continuously for everything up
// to and including the main header. The NCA2/NCA3 magic then decides how
// the four fs-header slots (sectors 2..5) are decrypted: NCA3 continues the
// same sector sequence, NCA2 decrypts each slot independently with sector
// number 0.
func DecryptHeaderBlock(encrypted [headerBlockSize]byte, keyset *Keyset) (*DecryptedHeaderBlock, error) {
	cipher, err := xts.NewAES128Cipher(keyset.HeaderKey[:])
	if err != nil {
		return nil, errIo("header xts cipher init", err)
	}

	var decrypted [headerBlockSize]byte
	// Sectors 0 and 1: signature block + main header. Always continuous.
	for sector := 0; sector < 2; sector++ {
		off := sector * headerSectorSize
		if err := cipher.DecryptNintendoSector(decrypted[off:off+headerSectorSize], encrypted[off:off+headerSectorSize], uint64(sector)); err != nil {
			return nil, errIo("header sector decrypt", err)
		}
	}

	magic := string(decrypted[mainHeaderOffset : mainHeaderOffset+4])
	if magic != "NCA2" && magic != "NCA3" {
		return nil, errBadMagic(fmt.Sprintf("unrecognised magic %q", magic))
	}
	isNca2 := magic == "NCA2"

	for slot := 0; slot < numFsHeaders; slot++ {
		off := fsHeaderOffset0 + slot*fsHeaderSize
		sector := uint64(2 + slot)
		if isNca2 {
			sector = 0
		}
		if err := cipher.DecryptNintendoSector(decrypted[off:off+headerSectorSize], encrypted[off:off+headerSectorSize], sector); err != nil {
			return nil, errIo("fs header sector decrypt", err)
		}
	}

	return &DecryptedHeaderBlock{Bytes: decrypted, IsNca2: isNca2}, nil
}

// ParseMainHeader parses the main header's field layout out of the
// decrypted header block's main-header region (0x200..0x400) and computes
// HeaderHash.
func ParseMainHeader(block *DecryptedHeaderBlock) (*MainHeader, error) {
	b := block.Bytes[mainHeaderOffset : mainHeaderOffset+headerSectorSize]
	h := &MainHeader{}
	h.Magic = string(b[0x00:0x04])
	h.Distribution = DistributionType(b[0x04])
	h.ContentType = ContentType(b[0x05])
	h.KeyGeneration1 = b[0x06]
	h.KaekIndexField = KaekIndex(b[0x07])
	h.ContentSize = binary.LittleEndian.Uint64(b[0x08:0x10])
	h.ProgramID = binary.LittleEndian.Uint64(b[0x10:0x18])
	h.ContentIndex = binary.LittleEndian.Uint32(b[0x18:0x1C])
	h.SdkAddonVersion = ParseSdkAddonVersion(binary.LittleEndian.Uint32(b[0x1C:0x20]))
	h.KeyGeneration2 = b[0x20]
	copy(h.RightsID[:], b[0x30:0x40])

	for i := 0; i < numFsHeaders; i++ {
		entryOff := 0x40 + i*0x10
		h.Partitions[i] = PartitionTableEntry{
			Index:           i,
			OffsetBlocks:    binary.LittleEndian.Uint32(b[entryOff : entryOff+4]),
			EndOffsetBlocks: binary.LittleEndian.Uint32(b[entryOff+4 : entryOff+8]),
		}
	}
	for i := 0; i < numFsHeaders; i++ {
		hashOff := 0x80 + i*sha256Size
		copy(h.Partitions[i].FsHeaderHash[:], b[hashOff:hashOff+sha256Size])
	}
	for i := 0; i < 4; i++ {
		keyOff := 0x100 + i*16
		copy(h.EncryptedKeyArea[i][:], b[keyOff:keyOff+16])
	}

	// main_header region for header_hash purposes is the 0x400 bytes
	// starting at the main header: the main header itself (0x200..0x400)
	// and fs-header slot 0 (0x400..0x600).
	h.HeaderHash = sha256.Sum256(block.Bytes[mainHeaderOffset : mainHeaderOffset+0x400])

	return h, nil
}

// ParseFsHeader parses the decrypted fs-header slot at index slot and
// validates it against the stored hash in mainHeader; a mismatch is fatal
// at the archive level.
func ParseFsHeader(block *DecryptedHeaderBlock, mainHeader *MainHeader, slot int) (*FsHeader, error) {
	off := fsHeaderOffset0 + slot*fsHeaderSize
	raw := block.Bytes[off : off+fsHeaderSize]

	gotHash := sha256.Sum256(raw)
	if gotHash != mainHeader.Partitions[slot].FsHeaderHash {
		return nil, errHashMismatch(LayerFsHeader, slot, "fs header hash mismatch")
	}

	fh := &FsHeader{}
	copy(fh.raw[:], raw)
	fh.Version = raw[0x00]
	fh.Format = decodeFormatType(raw[0x01])
	fh.Hash = decodeHashType(raw[0x02])
	fh.Encryption = decodeEncryptionType(raw[0x03])
	fh.IvHigh = binary.BigEndian.Uint64(raw[0x04:0x0C])
	copy(fh.HashSuperblock[:], raw[0x20:0x20+0x138])

	return fh, nil
}

func decodeFormatType(b byte) FormatType {
	switch b {
	case 0:
		return FormatPfs
	case 1:
		return FormatRomFs
	default:
		return FormatUnknown
	}
}

func decodeHashType(b byte) HashType {
	switch b {
	case 0:
		return HashNone
	case 2:
		return HashHierarchicalSha256
	case 3:
		return HashHierarchicalIntegrity
	default:
		return HashUnknown
	}
}

func decodeEncryptionType(b byte) EncryptionType {
	switch b {
	case 0:
		return EncryptionNone
	case 1:
		return EncryptionAesXts
	case 2:
		return EncryptionAesCtr
	case 3:
		return EncryptionAesCtrEx
	default:
		return EncryptionUnknown
	}
}
