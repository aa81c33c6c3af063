package nca

import (
	"encoding/binary"
	"fmt"
)

// PartitionInfo is the outcome of assembling one partition-table entry: on
// success Reader is a ready ByteSource; on failure Reader is nil and
// FailReason explains why. An fs-header hash mismatch is fatal at the
// archive level; everything else here is per-partition and non-fatal.
type PartitionInfo struct {
	Index      int
	Offset     int64
	Size       int64
	Format     FormatType
	Hash       HashType
	Encryption EncryptionType
	IvHigh     uint64

	HashMeta *HashTreeMeta

	Reader     ByteSource
	FailReason string

	rawSuperblock [0x138]byte
}

// AssemblePartitions builds, for each present partition-table entry, the
// inner-to-outer reader chain (encryption layer, then hash
// layer), recording a FailReason and a nil Reader on any per-partition
// build failure instead of aborting the whole archive. FsHeader hash
// mismatches were already checked fatally by ParseFsHeader before this is
// called.
func AssemblePartitions(archive ByteSource, mainHeader *MainHeader, fsHeaders [numFsHeaders]*FsHeader, bodyKeys *DerivedBodyKeys) [numFsHeaders]PartitionInfo {
	var out [numFsHeaders]PartitionInfo

	for i := 0; i < numFsHeaders; i++ {
		entry := mainHeader.Partitions[i]
		if !entry.Present() {
			out[i] = PartitionInfo{Index: i, FailReason: "not present"}
			continue
		}
		fh := fsHeaders[i]
		info := PartitionInfo{
			Index:      i,
			Offset:     entry.OffsetBytes(),
			Size:       entry.SizeBytes(),
			Format:     fh.Format,
			Hash:       fh.Hash,
			Encryption: fh.Encryption,
			IvHigh:     fh.IvHigh,
			rawSuperblock: fh.HashSuperblock,
		}

		if fh.Version != kDefaultFsHeaderVersion {
			info.FailReason = fmt.Sprintf("unsupported fs header version %d", fh.Version)
			out[i] = info
			continue
		}
		if fh.Format != FormatPfs && fh.Format != FormatRomFs {
			info.FailReason = "unsupported format type"
			out[i] = info
			continue
		}

		reader, failReason := buildPartitionReader(archive, info, bodyKeys)
		if failReason != "" {
			info.FailReason = failReason
			out[i] = info
			continue
		}
		info.Reader = reader
		out[i] = info
	}

	return out
}

func buildPartitionReader(archive ByteSource, info PartitionInfo, bodyKeys *DerivedBodyKeys) (ByteSource, string) {
	var encrypted ByteSource

	switch info.Encryption {
	case EncryptionNone:
		encrypted = NewOffsetSlice(archive, info.Offset, info.Size)
	case EncryptionAesCtr:
		if !bodyKeys.HasBodyCtrKey {
			return nil, KindMissingKey.String()
		}
		ctrStream, err := NewAesCtrStream(archive, bodyKeys.BodyCtrKey[:], info.IvHigh)
		if err != nil {
			return nil, err.Error()
		}
		encrypted = NewOffsetSlice(ctrStream, info.Offset, info.Size)
	case EncryptionAesXts, EncryptionAesCtrEx:
		return nil, KindUnsupportedEncryption.String()
	default:
		return nil, KindUnsupportedEncryption.String()
	}

	switch info.Hash {
	case HashNone:
		return encrypted, ""
	case HashHierarchicalSha256, HashHierarchicalIntegrity:
		meta, err := normaliseHashSuperblock(info.Hash, info.rawSuperblock)
		if err != nil {
			return nil, err.Error()
		}
		tree, err := NewHashTreeStream(encrypted, meta)
		if err != nil {
			return nil, err.Error()
		}
		return tree, ""
	default:
		return nil, KindUnsupportedHashType.String()
	}
}

func normaliseHashSuperblock(hashType HashType, superblock [0x138]byte) (HashTreeMeta, error) {
	switch hashType {
	case HashHierarchicalSha256:
		return parseHierarchicalSha256(superblock)
	case HashHierarchicalIntegrity:
		return parseHierarchicalIntegrity(superblock)
	default:
		return HashTreeMeta{}, errUnsupportedHashType("not a hash-tree type")
	}
}

// parseHierarchicalSha256 reads the single-layer superblock variant: one
// master hash block, one intermediate hash layer, one data layer.
func parseHierarchicalSha256(b [0x138]byte) (HashTreeMeta, error) {
	hashBlockSize := int64(binary.LittleEndian.Uint32(b[0x20:0x24]))
	layerOffset := int64(binary.LittleEndian.Uint64(b[0x24:0x2C]))
	layerSize := int64(binary.LittleEndian.Uint64(b[0x2C:0x34]))
	dataOffset := int64(binary.LittleEndian.Uint64(b[0x34:0x3C]))
	dataSize := int64(binary.LittleEndian.Uint64(b[0x3C:0x44]))

	var master [sha256Size]byte
	copy(master[:], b[0x00:0x20])

	return HashTreeMeta{
		MasterHashList: [][sha256Size]byte{master},
		Layers: []HashLayerRegion{
			{Offset: layerOffset, Size: layerSize, BlockSize: hashBlockSize},
		},
		Data:             HashLayerRegion{Offset: dataOffset, Size: dataSize, BlockSize: hashBlockSize},
		AlignHashToBlock: true,
	}, nil
}

const ivfcMaxLayers = 6

// parseHierarchicalIntegrity reads the IVFC superblock variant: up to six
// layers (root first), the last of which is the data layer, authenticated
// by a master-hash list stored after the layer table.
func parseHierarchicalIntegrity(b [0x138]byte) (HashTreeMeta, error) {
	magic := string(b[0x00:0x04])
	if magic != "IVFC" {
		return HashTreeMeta{}, errBadMagic(fmt.Sprintf("unrecognised IVFC magic %q", magic))
	}
	masterHashSize := int(binary.LittleEndian.Uint32(b[0x04:0x08]))
	layerCount := int(binary.LittleEndian.Uint32(b[0x08:0x0C]))
	if layerCount < 2 || layerCount > ivfcMaxLayers {
		return HashTreeMeta{}, errUnsupportedHashType(fmt.Sprintf("unsupported IVFC layer count %d", layerCount))
	}

	const layerTableOffset = 0x10
	const layerEntrySize = 24
	layers := make([]HashLayerRegion, 0, layerCount-1)
	var data HashLayerRegion

	for i := 0; i < layerCount; i++ {
		entryOff := layerTableOffset + i*layerEntrySize
		offset := int64(binary.LittleEndian.Uint64(b[entryOff : entryOff+8]))
		size := int64(binary.LittleEndian.Uint64(b[entryOff+8 : entryOff+16]))
		blockSizeLog2 := binary.LittleEndian.Uint32(b[entryOff+16 : entryOff+20])
		region := HashLayerRegion{Offset: offset, Size: size, BlockSize: int64(1) << blockSizeLog2}
		if i == layerCount-1 {
			data = region
		} else {
			layers = append(layers, region)
		}
	}

	masterHashOffset := layerTableOffset + ivfcMaxLayers*layerEntrySize
	masterHashList := make([][sha256Size]byte, 0, masterHashSize/sha256Size)
	for off := masterHashOffset; off+sha256Size <= masterHashOffset+masterHashSize && off+sha256Size <= len(b); off += sha256Size {
		var h [sha256Size]byte
		copy(h[:], b[off:off+sha256Size])
		masterHashList = append(masterHashList, h)
	}

	return HashTreeMeta{
		MasterHashList:   masterHashList,
		Layers:           layers,
		Data:             data,
		AlignHashToBlock: false,
	}, nil
}
