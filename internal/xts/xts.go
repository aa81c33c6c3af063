// Package xts implements AES-XTS sector encryption, including the
// big-endian tweak variant used by the NCA header block.
//
// The even-endian math here is adapted from the classic golang.org/x/crypto/xts
// implementation (IEEE P1619): two independent AES-128 subkeys, a per-sector
// tweak run through the second subkey, and GF(2^128) doubling of the tweak
// per 16-byte block.
package xts

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
)

const blockSize = 16

// Cipher holds the two AES-128 subkeys used by XTS: k1 encrypts data blocks,
// k2 encrypts the per-sector tweak seed.
type Cipher struct {
	k1, k2 cipher.Block
}

// NewCipher builds an XTS cipher from a 32-byte key (two concatenated
// AES-128 keys), using cipherFunc to construct each half.
func NewCipher(cipherFunc func([]byte) (cipher.Block, error), key []byte) (*Cipher, error) {
	if len(key)%2 != 0 {
		return nil, fmt.Errorf("xts: key length %d is not even", len(key))
	}
	half := len(key) / 2
	c := &Cipher{}
	var err error
	if c.k1, err = cipherFunc(key[:half]); err != nil {
		return nil, err
	}
	if c.k2, err = cipherFunc(key[half:]); err != nil {
		return nil, err
	}
	if c.k1.BlockSize() != blockSize {
		return nil, errors.New("xts: cipher does not have a 16-byte block size")
	}
	return c, nil
}

// Decrypt decrypts a single sector using the standard IEEE P1619 tweak: the
// sector number encoded little-endian, encrypted with k2.
func (c *Cipher) Decrypt(dst, src []byte, sectorNum uint64) error {
	var seed [blockSize]byte
	binary.LittleEndian.PutUint64(seed[:8], sectorNum)
	return c.decryptWithSeed(dst, src, seed)
}

// DecryptNintendoSector decrypts a single sector using the NCA header's
// tweak convention: the sector number encoded big-endian, still encrypted
// with k2 and doubled per block like standard XTS. IEEE P1619 specifies
// little-endian instead; this big-endian variant is this format's quirk.
func (c *Cipher) DecryptNintendoSector(dst, src []byte, sectorNum uint64) error {
	var seed [blockSize]byte
	for i := blockSize - 1; i >= 0 && sectorNum != 0; i-- {
		seed[i] = byte(sectorNum & 0xff)
		sectorNum >>= 8
	}
	return c.decryptWithSeed(dst, src, seed)
}

func (c *Cipher) decryptWithSeed(dst, src []byte, seed [blockSize]byte) error {
	return c.transformWithSeed(dst, src, seed, c.k1.Decrypt)
}

// encryptWithSeed mirrors decryptWithSeed with the data-key direction
// reversed; kept unexported since this package's only consumer (header
// decryption) never needs to encrypt, but the symmetry is worth keeping
// next to Decrypt for tests to build known-ciphertext fixtures against.
func (c *Cipher) encryptWithSeed(dst, src []byte, seed [blockSize]byte) error {
	return c.transformWithSeed(dst, src, seed, c.k1.Encrypt)
}

func (c *Cipher) transformWithSeed(dst, src []byte, seed [blockSize]byte, blockOp func(dst, src []byte)) error {
	if len(src)%blockSize != 0 {
		return fmt.Errorf("xts: sector length %d is not a multiple of %d", len(src), blockSize)
	}
	if len(dst) < len(src) {
		return fmt.Errorf("xts: destination shorter than source")
	}

	var tweak [blockSize]byte
	c.k2.Encrypt(tweak[:], seed[:])

	for off := 0; off < len(src); off += blockSize {
		block := dst[off : off+blockSize]
		for j := 0; j < blockSize; j++ {
			block[j] = src[off+j] ^ tweak[j]
		}
		blockOp(block, block)
		for j := 0; j < blockSize; j++ {
			block[j] ^= tweak[j]
		}
		mul2(&tweak)
	}
	return nil
}

// mul2 doubles tweak in GF(2^128) with the irreducible polynomial
// x^128 + x^7 + x^2 + x + 1, per IEEE P1619.
func mul2(tweak *[blockSize]byte) {
	var carryIn byte
	for j := range tweak {
		carryOut := tweak[j] >> 7
		tweak[j] = (tweak[j] << 1) + carryIn
		carryIn = carryOut
	}
	if carryIn != 0 {
		tweak[0] ^= 1<<7 | 1<<2 | 1<<1 | 1
	}
}

// NewAES128Cipher is a convenience constructor for AES-128-XTS (32-byte key).
func NewAES128Cipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("xts: AES-128-XTS key must be 32 bytes, got %d", len(key))
	}
	return NewCipher(aes.NewCipher, key)
}
