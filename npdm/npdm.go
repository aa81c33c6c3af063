// Package npdm implements the minimal slice of the NPDM manifest format
// that signature verification needs: locating the embedded ACID section
// and extracting its "NCA header 2" RSA public key. Every other NPDM field
// (ACI0, filesystem access control, capability descriptors) is left
// unparsed.
package npdm

import (
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/jakcron/NXTools/nca"
)

const (
	metaMagic = "META"
	acidMagic = "ACID"

	metaHeaderSize = 0x80
	acidOffsetOff  = 0x70
	acidSizeOff    = 0x74

	acidHeader2KeyOffset = 0x120
	acidRsaKeySize       = 0x100
	rsaPublicExponent    = 65537
)

// Manifest is a parsed NPDM file's META header plus its raw ACID section
// bytes, kept unparsed beyond what Acid() needs.
type Manifest struct {
	acidBytes []byte
}

// Parse reads the META header out of source, then the ACID section it
// points to. source is expected to be a ByteSource already windowed onto
// exactly the main.npdm file (see pfs.Archive.OpenFile).
func Parse(source nca.ByteSource) (*Manifest, error) {
	header := make([]byte, metaHeaderSize)
	if err := source.ReadAt(header, 0); err != nil {
		return nil, err
	}
	if string(header[0:4]) != metaMagic {
		return nil, fmt.Errorf("npdm: bad magic %q", header[0:4])
	}

	acidOffset := int64(binary.LittleEndian.Uint32(header[acidOffsetOff : acidOffsetOff+4]))
	acidSize := int64(binary.LittleEndian.Uint32(header[acidSizeOff : acidSizeOff+4]))

	acidBytes := make([]byte, acidSize)
	if err := source.ReadAt(acidBytes, acidOffset); err != nil {
		return nil, err
	}
	if string(acidBytes[0:4]) != acidMagic {
		return nil, fmt.Errorf("npdm: bad ACID magic %q", acidBytes[0:4])
	}

	return &Manifest{acidBytes: acidBytes}, nil
}

// Acid extracts the ACID section's "NCA header 2" RSA-2048 public key,
// satisfying nca.NpdmAcidKeyReader.
func (m *Manifest) Acid() (*rsa.PublicKey, error) {
	if len(m.acidBytes) < acidHeader2KeyOffset+acidRsaKeySize {
		return nil, fmt.Errorf("npdm: ACID section too short for header-2 key")
	}
	modulus := make([]byte, acidRsaKeySize)
	copy(modulus, m.acidBytes[acidHeader2KeyOffset:acidHeader2KeyOffset+acidRsaKeySize])
	return &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: rsaPublicExponent}, nil
}
