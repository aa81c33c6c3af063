package nca

import "crypto/rsa"

// Keyset holds all externally-supplied cryptographic material needed to
// decrypt and verify an archive. It is borrowed read-only for the duration
// of one Orchestrator run; building one from a keyset file is the job of
// the sibling keyset package, kept outside this package per the collaborator
// boundary.
type Keyset struct {
	HeaderKey   [32]byte // AES-128-XTS key pair for the header block
	HeaderSignKey *rsa.PublicKey

	// KeyAreaKey[kaekIndex][masterKeyRev] are the AES-128 keys used to
	// decrypt a partition's key area. kaekIndex ranges over
	// {Application, Ocean, System} (0..2); slots beyond that are unused
	// but the matrix is sized 0..3 to match the on-disk index field's
	// full range.
	KeyAreaKey [4][32][16]byte
	HaveKeyAreaKey [4][32]bool

	TitleKeyKek     [32][16]byte
	HaveTitleKeyKek [32]bool

	// Manual keys, all optional. ManualBodyKeyCtr/ManualBodyKeyXts take
	// precedence over key-area/ticket derivation. ManualTitleKeyCtr/
	// ManualTitleKeyXts are ticket title keys: Process uses them only when
	// its caller passes none, and they only take effect for archives with a
	// non-zero rights id.
	ManualTitleKeyCtr *[16]byte
	ManualTitleKeyXts *[32]byte
	ManualBodyKeyCtr  *[16]byte
	ManualBodyKeyXts  *[32]byte
}

// KeyAreaKeyRecord reports the decrypt outcome for one of the four key-area
// slots in a main header.
type KeyAreaKeyRecord struct {
	Index      int
	Encrypted  [16]byte
	Decrypted  bool
	PlainValue [16]byte
}

// DerivedBodyKeys is the output of the key-derivation phase: whatever keys
// were successfully produced for decrypting this archive's partitions.
type DerivedBodyKeys struct {
	HasBodyCtrKey bool
	BodyCtrKey    [16]byte

	HasBodyXtsKey bool
	BodyXtsKey    [32]byte

	KeyArea [4]KeyAreaKeyRecord
}
