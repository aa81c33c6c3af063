package nca

import (
	"go.uber.org/zap"
)

// Archive is the fully processed result of an Orchestrator run: the parsed
// header, the per-partition assembly outcome, and the two signature
// verdicts.
type Archive struct {
	MainHeader *MainHeader
	FsHeaders  [numFsHeaders]*FsHeader
	BodyKeys   DerivedBodyKeys
	Partitions [numFsHeaders]PartitionInfo

	SignatureMain SignatureResult
	SignatureAcid SignatureResult
}

// Collaborators bundles the external hooks the Orchestrator needs for
// parts it doesn't implement itself: opening a PFS listing and parsing an
// NPDM manifest. Both are optional; a nil collaborator just produces a
// signature-2 warning.
type Collaborators struct {
	OpenPfs   func(ByteSource) (PfsReader, error)
	ParseNpdm func(ByteSource) (NpdmAcidKeyReader, error)
}

// ManualTitleKey optionally supplies a rights-id-protected archive's
// ticket-sourced body CTR title key; the Orchestrator doesn't parse
// tickets itself, so callers that have one pass it in directly.
type ManualTitleKey = [16]byte

// ManualTitleKeyXts is ManualTitleKey's counterpart for the body XTS title
// key, the other half of what a rights-id-protected archive's ticket
// carries.
type ManualTitleKeyXts = [32]byte

// Process drives the fixed phase order over archive: header decrypt,
// parse, key derivation and partition assembly always run and never emit
// anything themselves; signature verification runs only when verify is
// true.
func Process(archive ByteSource, keyset *Keyset, manualTitleKey *ManualTitleKey, manualTitleKeyXts *ManualTitleKeyXts, verify bool, collab Collaborators, log *zap.SugaredLogger) (*Archive, error) {
	headerBuf := make([]byte, headerBlockSize)
	if err := archive.ReadAt(headerBuf, 0); err != nil {
		return nil, err
	}
	var fixedHeaderBuf [headerBlockSize]byte
	copy(fixedHeaderBuf[:], headerBuf)

	decrypted, err := DecryptHeaderBlock(fixedHeaderBuf, keyset)
	if err != nil {
		return nil, err
	}

	mainHeader, err := ParseMainHeader(decrypted)
	if err != nil {
		return nil, err
	}

	var fsHeaders [numFsHeaders]*FsHeader
	for i := 0; i < numFsHeaders; i++ {
		if !mainHeader.Partitions[i].Present() {
			continue
		}
		fh, err := ParseFsHeader(decrypted, mainHeader, i)
		if err != nil {
			return nil, err
		}
		fsHeaders[i] = fh
	}

	effectiveTitleKey := manualTitleKey
	if effectiveTitleKey == nil {
		effectiveTitleKey = keyset.ManualTitleKeyCtr
	}
	effectiveTitleKeyXts := manualTitleKeyXts
	if effectiveTitleKeyXts == nil {
		effectiveTitleKeyXts = keyset.ManualTitleKeyXts
	}

	masterRev := mainHeader.MasterKeyRev()
	keyArea := DecryptKeyArea(mainHeader.EncryptedKeyArea, int(mainHeader.KaekIndexField), masterRev, keyset)
	bodyKeys := SelectBodyKeys(mainHeader.RightsID, keyArea, masterRev, keyset, effectiveTitleKey, effectiveTitleKeyXts)

	partitions := AssemblePartitions(archive, mainHeader, fsHeaders, &bodyKeys)
	if log != nil {
		for i, p := range partitions {
			if p.FailReason != "" {
				log.Warnf("partition %d not readable: %s", i, p.FailReason)
			}
		}
	}

	result := &Archive{
		MainHeader: mainHeader,
		FsHeaders:  fsHeaders,
		BodyKeys:   bodyKeys,
		Partitions: partitions,
	}

	if verify {
		sigMain := headerSignature(decrypted.Bytes[:], 0x000)
		sigAcid := headerSignature(decrypted.Bytes[:], 0x100)

		result.SignatureMain = VerifySignatureMain(mainHeader.HeaderHash, sigMain, keyset)
		if result.SignatureMain.Warning != "" && log != nil {
			log.Warnf("signature_main: %s", result.SignatureMain.Warning)
		}

		if collab.OpenPfs != nil && collab.ParseNpdm != nil {
			result.SignatureAcid = VerifySignatureAcid(mainHeader.HeaderHash, sigAcid, mainHeader, partitions[0], collab.OpenPfs, collab.ParseNpdm)
		} else if mainHeader.ContentType == ContentTypeProgram {
			result.SignatureAcid = SignatureResult{Warning: "NPDM collaborator not configured"}
		}
		if result.SignatureAcid.Warning != "" && log != nil {
			log.Warnf("signature_acid: %s", result.SignatureAcid.Warning)
		}
	}

	return result, nil
}

func headerSignature(headerBuf []byte, offset int) []byte {
	return headerBuf[offset : offset+0x100]
}
