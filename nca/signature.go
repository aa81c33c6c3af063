package nca

import (
	"crypto"
	"crypto/rsa"
)

// PfsReader and NpdmAcidKeyReader are the external collaborator interfaces
// consumed by signature verification: a PFS reader locates main.npdm, and
// the parsed NPDM returns its ACID section's "NCA header 2" RSA public key. The npdm and
// pfs packages provide concrete implementations; this package only depends
// on the shapes below, per spec's external-collaborator boundary.
type PfsReader interface {
	// OpenFile returns a ByteSource for the named entry, or an error if
	// it is not present.
	OpenFile(name string) (ByteSource, error)
}

type NpdmAcidKeyReader interface {
	Acid() (*rsa.PublicKey, error)
}

// SignatureResult reports the outcome of verifying one of the two header
// signatures. Neither failure is fatal to the run; both degrade to a
// Warning string instead.
type SignatureResult struct {
	Verified bool
	Warning  string
}

// VerifySignatureMain verifies signature_main (RSA-2048-PSS/SHA-256 over
// headerHash) using the keyset's fixed header-signing key.
func VerifySignatureMain(headerHash [sha256Size]byte, signature []byte, keyset *Keyset) SignatureResult {
	if keyset.HeaderSignKey == nil {
		return SignatureResult{Warning: "header sign key not available"}
	}
	err := rsa.VerifyPSS(keyset.HeaderSignKey, crypto.SHA256, headerHash[:], signature, nil)
	if err != nil {
		return SignatureResult{Warning: "signature mismatch"}
	}
	return SignatureResult{Verified: true}
}

// VerifySignatureAcid verifies signature_acid: it only runs for Program
// content whose partition 0 is a built PFS reader, opens main.npdm through
// it, extracts the ACID header-2 key, and verifies. Any structural failure
// along the way degrades to a specific warning string instead of failing
// the run.
func VerifySignatureAcid(headerHash [sha256Size]byte, signature []byte, mainHeader *MainHeader, partition0 PartitionInfo, openPfs func(ByteSource) (PfsReader, error), parseNpdm func(ByteSource) (NpdmAcidKeyReader, error)) SignatureResult {
	if mainHeader.ContentType != ContentTypeProgram {
		return SignatureResult{}
	}
	if partition0.Reader == nil || partition0.Format != FormatPfs {
		return SignatureResult{Warning: "No ExeFs partition"}
	}

	pfs, err := openPfs(partition0.Reader)
	if err != nil {
		return SignatureResult{Warning: "ExeFs unreadable"}
	}

	npdmSource, err := pfs.OpenFile("main.npdm")
	if err != nil {
		return SignatureResult{Warning: "main.npdm not present in ExeFs"}
	}

	npdm, err := parseNpdm(npdmSource)
	if err != nil {
		return SignatureResult{Warning: "main.npdm not present in ExeFs"}
	}

	key, err := npdm.Acid()
	if err != nil {
		return SignatureResult{Warning: "main.npdm not present in ExeFs"}
	}

	if err := rsa.VerifyPSS(key, crypto.SHA256, headerHash[:], signature, nil); err != nil {
		return SignatureResult{Warning: "signature mismatch"}
	}
	return SignatureResult{Verified: true}
}
