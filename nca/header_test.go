package nca

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

// The helpers below independently re-implement AES-XTS with the Nintendo
// big-endian tweak convention, so fixtures can be built as real ciphertext
// without reaching into internal/xts's unexported encrypt path.

func nintendoTweakSeed(sectorNum uint64) [16]byte {
	var seed [16]byte
	for i := 15; i >= 0 && sectorNum != 0; i-- {
		seed[i] = byte(sectorNum & 0xff)
		sectorNum >>= 8
	}
	return seed
}

func gfMul2(tweak *[16]byte) {
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

func xtsTransformSector(k1, k2 cipher.Block, dst, src []byte, seed [16]byte, encrypt bool) {
	var tweak [16]byte
	k2.Encrypt(tweak[:], seed[:])
	for off := 0; off < len(src); off += 16 {
		block := dst[off : off+16]
		for j := 0; j < 16; j++ {
			block[j] = src[off+j] ^ tweak[j]
		}
		if encrypt {
			k1.Encrypt(block, block)
		} else {
			k1.Decrypt(block, block)
		}
		for j := 0; j < 16; j++ {
			block[j] ^= tweak[j]
		}
		gfMul2(&tweak)
	}
}

// encryptHeaderFixture produces valid ciphertext for plain, following the
// same sector-selection rule DecryptHeaderBlock expects: sectors 0-1 always
// continuous, fs-header slots either continuous (NCA3) or all sector 0 (NCA2).
func encryptHeaderFixture(plain [headerBlockSize]byte, key [32]byte, isNca2 bool) [headerBlockSize]byte {
	k1, err := aes.NewCipher(key[:16])
	if err != nil {
		panic(err)
	}
	k2, err := aes.NewCipher(key[16:])
	if err != nil {
		panic(err)
	}

	var out [headerBlockSize]byte
	for sector := 0; sector < 2; sector++ {
		off := sector * headerSectorSize
		xtsTransformSector(k1, k2, out[off:off+headerSectorSize], plain[off:off+headerSectorSize], nintendoTweakSeed(uint64(sector)), true)
	}
	for slot := 0; slot < numFsHeaders; slot++ {
		off := fsHeaderOffset0 + slot*fsHeaderSize
		sector := uint64(2 + slot)
		if isNca2 {
			sector = 0
		}
		xtsTransformSector(k1, k2, out[off:off+headerSectorSize], plain[off:off+headerSectorSize], nintendoTweakSeed(sector), true)
	}
	return out
}

// buildPlainHeaderBlock writes a minimal well-formed plaintext 0xC00 header:
// magic, one present partition slot whose fs-header hash matches a real
// (all-zero-bodied) fs header.
func buildPlainHeaderBlock(magic string) [headerBlockSize]byte {
	var plain [headerBlockSize]byte
	copy(plain[mainHeaderOffset:mainHeaderOffset+4], magic)
	plain[mainHeaderOffset+0x06] = 5 // key generation 1

	// fs header slot 0: version 2, format PFS, hash none, encryption none.
	fsOff := fsHeaderOffset0
	plain[fsOff+0x00] = kDefaultFsHeaderVersion
	fsHash := sha256.Sum256(plain[fsOff : fsOff+fsHeaderSize])
	copy(plain[mainHeaderOffset+0x80:mainHeaderOffset+0x80+sha256Size], fsHash[:])

	binary.LittleEndian.PutUint32(plain[mainHeaderOffset+0x40:mainHeaderOffset+0x44], 0)
	binary.LittleEndian.PutUint32(plain[mainHeaderOffset+0x44:mainHeaderOffset+0x48], 1)

	return plain
}

func testHeaderKey() [32]byte {
	var key [32]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestDecryptHeaderBlockRoundTripsNca3(t *testing.T) {
	key := testHeaderKey()
	plain := buildPlainHeaderBlock("NCA3")
	encrypted := encryptHeaderFixture(plain, key, false)

	ks := &Keyset{HeaderKey: key}
	decoded, err := DecryptHeaderBlock(encrypted, ks)
	if err != nil {
		t.Fatalf("DecryptHeaderBlock: %v", err)
	}
	if decoded.IsNca2 {
		t.Fatalf("expected NCA3 branch, got IsNca2=true")
	}
	if decoded.Bytes != plain {
		t.Fatalf("decrypted bytes do not match original plaintext")
	}

	mainHeader, err := ParseMainHeader(decoded)
	if err != nil {
		t.Fatalf("ParseMainHeader: %v", err)
	}
	if mainHeader.Magic != "NCA3" {
		t.Fatalf("expected magic NCA3, got %q", mainHeader.Magic)
	}
	if _, err := ParseFsHeader(decoded, mainHeader, 0); err != nil {
		t.Fatalf("ParseFsHeader slot 0: %v", err)
	}
}

// TestDecryptHeaderBlockNca2UsesPerSlotSectorZero checks that NCA2 decrypts
// each fs-header slot independently at sector 0, not continuing the sector
// sequence. Decrypting an NCA2 ciphertext as if it were continuous must
// corrupt the fs-header bytes enough to fail the stored-hash check.
func TestDecryptHeaderBlockNca2UsesPerSlotSectorZero(t *testing.T) {
	key := testHeaderKey()
	plain := buildPlainHeaderBlock("NCA2")
	encrypted := encryptHeaderFixture(plain, key, true)

	ks := &Keyset{HeaderKey: key}
	decoded, err := DecryptHeaderBlock(encrypted, ks)
	if err != nil {
		t.Fatalf("DecryptHeaderBlock: %v", err)
	}
	if !decoded.IsNca2 {
		t.Fatalf("expected NCA2 branch, got IsNca2=false")
	}
	if decoded.Bytes != plain {
		t.Fatalf("correct per-slot decryption did not recover plaintext")
	}

	// Now decrypt the same ciphertext pretending every slot continues the
	// sector sequence (the NCA3 rule) and confirm the fs-header hash check
	// catches the resulting corruption.
	k1, _ := aes.NewCipher(key[:16])
	k2, _ := aes.NewCipher(key[16:])
	var wrongDecode [headerBlockSize]byte
	for sector := 0; sector < 2; sector++ {
		off := sector * headerSectorSize
		xtsTransformSector(k1, k2, wrongDecode[off:off+headerSectorSize], encrypted[off:off+headerSectorSize], nintendoTweakSeed(uint64(sector)), false)
	}
	for slot := 0; slot < numFsHeaders; slot++ {
		off := fsHeaderOffset0 + slot*fsHeaderSize
		xtsTransformSector(k1, k2, wrongDecode[off:off+headerSectorSize], encrypted[off:off+headerSectorSize], nintendoTweakSeed(uint64(2+slot)), false)
	}

	wrongBlock := &DecryptedHeaderBlock{Bytes: wrongDecode, IsNca2: true}
	mainHeader, err := ParseMainHeader(wrongBlock)
	if err != nil {
		t.Fatalf("ParseMainHeader: %v", err)
	}
	_, err = ParseFsHeader(wrongBlock, mainHeader, 0)
	ncaErr, ok := err.(*Error)
	if !ok || ncaErr.Kind != KindHashMismatch || ncaErr.Layer != LayerFsHeader {
		t.Fatalf("expected fs-header HashMismatch from wrong sector numbering, got %v", err)
	}
}

func TestDecryptHeaderBlockRejectsBadMagic(t *testing.T) {
	key := testHeaderKey()
	plain := buildPlainHeaderBlock("NCA9")
	encrypted := encryptHeaderFixture(plain, key, false)

	ks := &Keyset{HeaderKey: key}
	_, err := DecryptHeaderBlock(encrypted, ks)
	ncaErr, ok := err.(*Error)
	if !ok || ncaErr.Kind != KindBadMagic {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}
