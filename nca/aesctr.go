package nca

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// maxScratch bounds AesCtrStream's per-read decryption buffer, per the
// concurrency/resource model's "per-read scratch is bounded at 64 KiB".
const maxScratch = 64 * 1024

const aesBlockSize = 16

// AesCtrStream decrypts an inner ByteSource with AES-128-CTR, where the
// counter for block b is the big-endian 128-bit value (ivHigh<<64) | b and b
// is the absolute byte offset (in the inner source's coordinate space)
// shifted right by 4. Decryption is stateless across calls: each ReadAt
// derives the counters it needs from scratch.
type AesCtrStream struct {
	inner  ByteSource
	block  cipher.Block
	ivHigh uint64
}

// NewAesCtrStream wraps inner, taking ownership of it. ivHigh is the 8-byte
// IV-generation seed from the fs-header, interpreted big-endian.
func NewAesCtrStream(inner ByteSource, key []byte, ivHigh uint64) (*AesCtrStream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errIo("aes-ctr cipher init", err)
	}
	return &AesCtrStream{inner: inner, block: block, ivHigh: ivHigh}, nil
}

func (s *AesCtrStream) Size() int64 { return s.inner.Size() }

func (s *AesCtrStream) Close() error { return s.inner.Close() }

func (s *AesCtrStream) ReadAt(dst []byte, offset int64) error {
	if offset < 0 || offset+int64(len(dst)) > s.Size() {
		return OutOfRange
	}
	if len(dst) == 0 {
		return nil
	}

	alignedStart := offset &^ (aesBlockSize - 1)
	alignedEnd := (offset + int64(len(dst)) + aesBlockSize - 1) &^ (aesBlockSize - 1)
	if alignedEnd > s.inner.Size() {
		// the final block of an unaligned source is short; decryptInPlace
		// handles the partial block.
		alignedEnd = s.inner.Size()
	}

	for chunkStart := alignedStart; chunkStart < alignedEnd; {
		chunkEnd := chunkStart + maxScratch
		if chunkEnd > alignedEnd {
			chunkEnd = alignedEnd
		}
		scratch := make([]byte, chunkEnd-chunkStart)
		if err := s.inner.ReadAt(scratch, chunkStart); err != nil {
			return err
		}
		s.decryptInPlace(scratch, chunkStart)

		// copy the overlap between this scratch chunk and the caller's
		// originally-requested [offset, offset+len(dst)) range.
		reqStart := offset
		reqEnd := offset + int64(len(dst))
		copyStart := max64(chunkStart, reqStart)
		copyEnd := min64(chunkEnd, reqEnd)
		if copyStart < copyEnd {
			copy(dst[copyStart-reqStart:copyEnd-reqStart], scratch[copyStart-chunkStart:copyEnd-chunkStart])
		}
		chunkStart = chunkEnd
	}
	return nil
}

// decryptInPlace decrypts buf, whose first byte sits at absolute offset
// bufStart (must be block-aligned), block by block, deriving a fresh counter
// for each 16-byte block from its absolute block index.
func (s *AesCtrStream) decryptInPlace(buf []byte, bufStart int64) {
	blockIndex := uint64(bufStart) / aesBlockSize
	var counter [aesBlockSize]byte
	var keystream [aesBlockSize]byte

	for off := 0; off < len(buf); off += aesBlockSize {
		binary.BigEndian.PutUint64(counter[0:8], s.ivHigh)
		binary.BigEndian.PutUint64(counter[8:16], blockIndex)
		s.block.Encrypt(keystream[:], counter[:])

		end := off + aesBlockSize
		if end > len(buf) {
			end = len(buf)
		}
		for i := off; i < end; i++ {
			buf[i] ^= keystream[i-off]
		}
		blockIndex++
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
