package nca

import (
	"crypto/sha256"
)

const sha256Size = 32

// HashLayerRegion describes one layer of a hierarchical hash tree: its
// location within the partition's decrypted (but still partition-relative)
// coordinate space, and the block size hashes in this layer are computed
// over.
type HashLayerRegion struct {
	Offset    int64
	Size      int64
	BlockSize int64
}

// HashTreeMeta normalises either on-disk hash-superblock variant
// (HierarchicalSha256 or HierarchicalIntegrity/IVFC) into one shape:
// a master-hash list authenticating the root layer, zero or more
// intermediate layers each authenticating the next, and a data layer.
type HashTreeMeta struct {
	MasterHashList   [][sha256Size]byte
	Layers           []HashLayerRegion // root first
	Data             HashLayerRegion
	AlignHashToBlock bool // HierarchicalSha256 pads the final short block; HierarchicalIntegrity hashes it at natural length
}

// HashTreeStream verifies reads of an inner ByteSource's data region against
// a hierarchical hash tree rooted at a stored master-hash list. All
// intermediate layers are read and verified once, at construction; only the
// lowest layer is retained afterwards to validate on-demand data reads.
type HashTreeStream struct {
	inner  ByteSource
	meta   HashTreeMeta
	lowest []byte // lowest hash layer, 32 bytes per block, validated against its parent
}

// NewHashTreeStream ingests meta, reading and verifying every intermediate
// layer against its parent up to the master-hash list. It takes ownership
// of inner.
func NewHashTreeStream(inner ByteSource, meta HashTreeMeta) (*HashTreeStream, error) {
	if len(meta.Layers) == 0 {
		return nil, errUnsupportedHashType("hash tree has no layers")
	}

	layerBufs := make([][]byte, len(meta.Layers))
	for i, layer := range meta.Layers {
		buf := make([]byte, layer.Size)
		if err := inner.ReadAt(buf, layer.Offset); err != nil {
			return nil, err
		}
		layerBufs[i] = buf
	}

	root := meta.Layers[0]
	if err := verifyLayerAgainstHashes(layerBufs[0], root.BlockSize, meta.MasterHashList, meta.AlignHashToBlock, LayerMaster); err != nil {
		return nil, err
	}

	for i := 1; i < len(layerBufs); i++ {
		parentHashes := splitHashes(layerBufs[i-1])
		layer := meta.Layers[i]
		if err := verifyLayerAgainstHashes(layerBufs[i], layer.BlockSize, parentHashes, meta.AlignHashToBlock, LayerIntermediate); err != nil {
			return nil, err
		}
	}

	return &HashTreeStream{
		inner:  inner,
		meta:   meta,
		lowest: layerBufs[len(layerBufs)-1],
	}, nil
}

func splitHashes(buf []byte) [][sha256Size]byte {
	count := len(buf) / sha256Size
	out := make([][sha256Size]byte, count)
	for i := 0; i < count; i++ {
		copy(out[i][:], buf[i*sha256Size:(i+1)*sha256Size])
	}
	return out
}

func verifyLayerAgainstHashes(layer []byte, blockSize int64, expected [][sha256Size]byte, align bool, at HashLayer) error {
	blockCount := (int64(len(layer)) + blockSize - 1) / blockSize
	for i := int64(0); i < blockCount; i++ {
		if int(i) >= len(expected) {
			return errHashMismatch(at, int(i), "no expected hash for block")
		}
		start := i * blockSize
		end := start + blockSize
		if end > int64(len(layer)) {
			end = int64(len(layer))
		}
		if isZeroHash(expected[i]) {
			continue
		}
		chunk := layer[start:end]
		got := hashBlock(chunk, blockSize, align)
		if got != expected[i] {
			return errHashMismatch(at, int(i), "layer hash mismatch")
		}
	}
	return nil
}

func isZeroHash(h [sha256Size]byte) bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

func hashBlock(chunk []byte, blockSize int64, align bool) [sha256Size]byte {
	var h [sha256Size]byte
	if align && int64(len(chunk)) < blockSize {
		padded := make([]byte, blockSize)
		copy(padded, chunk)
		h = sha256.Sum256(padded)
	} else {
		h = sha256.Sum256(chunk)
	}
	return h
}

func (s *HashTreeStream) Size() int64 { return s.meta.Data.Size }

func (s *HashTreeStream) Close() error { return s.inner.Close() }

func (s *HashTreeStream) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > s.Size() {
		return OutOfRange
	}
	if len(dst) == 0 {
		return nil
	}

	blockSize := s.meta.Data.BlockSize
	alignedStart := (offset / blockSize) * blockSize
	alignedEnd := ((offset + int64(len(dst)) + blockSize - 1) / blockSize) * blockSize

	for blockStart := alignedStart; blockStart < alignedEnd; blockStart += blockSize {
		blockIndex := blockStart / blockSize
		blockEnd := blockStart + blockSize
		if blockEnd > s.Size() {
			blockEnd = s.Size()
		}
		blockLen := blockEnd - blockStart

		expectedIdx := int(blockIndex)
		if expectedIdx*sha256Size+sha256Size > len(s.lowest) {
			return errHashMismatch(LayerData, expectedIdx, "no expected hash for data block")
		}
		var expected [sha256Size]byte
		copy(expected[:], s.lowest[expectedIdx*sha256Size:expectedIdx*sha256Size+sha256Size])

		var blockBuf []byte
		if isZeroHash(expected) {
			blockBuf = make([]byte, blockLen)
		} else {
			blockBuf = make([]byte, blockLen)
			if err := s.inner.ReadAt(blockBuf, s.meta.Data.Offset+blockStart); err != nil {
				return err
			}
			got := hashBlock(blockBuf, blockSize, s.meta.AlignHashToBlock)
			if got != expected {
				return errHashMismatch(LayerData, expectedIdx, "data block hash mismatch")
			}
		}

		reqStart, reqEnd := offset, offset+int64(len(dst))
		copyStart := max64(blockStart, reqStart)
		copyEnd := min64(blockEnd, reqEnd)
		if copyStart < copyEnd {
			copy(dst[copyStart-reqStart:copyEnd-reqStart], blockBuf[copyStart-blockStart:copyEnd-blockStart])
		}
	}
	return nil
}
