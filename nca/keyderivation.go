package nca

import "crypto/aes"

// MasterKeyRev computes the zero-based master-key-revision index from the
// two overlapping key-generation fields the header format carries for
// historical reasons (see the KeyDerivation row of DESIGN.md): take the
// larger of the two, then saturating-subtract one.
func MasterKeyRev(keyGeneration1, keyGeneration2 byte) int {
	gen := keyGeneration1
	if keyGeneration2 > gen {
		gen = keyGeneration2
	}
	if gen == 0 {
		return 0
	}
	return int(gen) - 1
}

func aesEcbDecryptBlock(block []byte, key [16]byte) [16]byte {
	c, _ := aes.NewCipher(key[:])
	var out [16]byte
	c.Decrypt(out[:], block)
	return out
}

func isZeroKey16(k [16]byte) bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}

// DecryptKeyArea decrypts the four key-area slots of encKeys using
// keyset.KeyAreaKey[kaekIndex][masterRev]. All-zero slots remain zero and
// are recorded as not-decrypted, matching real-world archives which leave
// unused slots blank.
func DecryptKeyArea(encKeys [4][16]byte, kaekIndex, masterRev int, keyset *Keyset) [4]KeyAreaKeyRecord {
	var out [4]KeyAreaKeyRecord
	haveKaek := kaekIndex >= 0 && kaekIndex < 4 && masterRev >= 0 && masterRev < 32 && keyset.HaveKeyAreaKey[kaekIndex][masterRev]

	for i := 0; i < 4; i++ {
		out[i] = KeyAreaKeyRecord{Index: i, Encrypted: encKeys[i]}
		if isZeroKey16(encKeys[i]) {
			continue
		}
		if !haveKaek {
			continue
		}
		out[i].PlainValue = aesEcbDecryptBlock(encKeys[i][:], keyset.KeyAreaKey[kaekIndex][masterRev])
		out[i].Decrypted = true
	}
	return out
}

// DeriveTitleKey unwraps manualTitleKey under the ticket KEK for masterRev,
// yielding the body CTR key the ticket path supplies for rights-id-protected
// content.
func DeriveTitleKey(manualTitleKey [16]byte, masterRev int, keyset *Keyset) (out [16]byte, err error) {
	if masterRev < 0 || masterRev >= 32 || !keyset.HaveTitleKeyKek[masterRev] {
		return out, errMissingKey(KeyUseTitleKek, "ticket kek not available for master key revision")
	}
	return aesEcbDecryptBlock(manualTitleKey[:], keyset.TitleKeyKek[masterRev]), nil
}

// DeriveTitleKeyXts unwraps manualTitleKeyXts under the ticket KEK for
// masterRev, the same way DeriveTitleKey does for the 16-byte body CTR key,
// but over both 16-byte halves of the 32-byte XTS key pair independently.
func DeriveTitleKeyXts(manualTitleKeyXts [32]byte, masterRev int, keyset *Keyset) (out [32]byte, err error) {
	if masterRev < 0 || masterRev >= 32 || !keyset.HaveTitleKeyKek[masterRev] {
		return out, errMissingKey(KeyUseTitleKek, "ticket kek not available for master key revision")
	}
	lo := aesEcbDecryptBlock(manualTitleKeyXts[:16], keyset.TitleKeyKek[masterRev])
	hi := aesEcbDecryptBlock(manualTitleKeyXts[16:], keyset.TitleKeyKek[masterRev])
	copy(out[:16], lo[:])
	copy(out[16:], hi[:])
	return out, nil
}

// bodyCtrKeyAreaSlot and bodyXts{Lo,Hi}KeyAreaSlot name which key-area
// indices hold the body CTR/XTS keys.
const (
	bodyCtrKeyAreaSlot = 2
	bodyXtsLoKeyAreaSlot = 0
	bodyXtsHiKeyAreaSlot = 1
)

// SelectBodyKeys picks the body CTR/XTS keys: key-area-derived keys when
// rightsId is all-zero, ticket-derived keys otherwise, with manual
// overrides in keyset taking precedence over either source. When rightsId
// is non-zero both the body CTR key and the body XTS key come from the
// ticket-sourced title keys (manualTitleKey, manualTitleKeyXts) unwrapped
// under TitleKeyKek[masterRev]; neither is derivable from the key area.
func SelectBodyKeys(rightsID [16]byte, keyArea [4]KeyAreaKeyRecord, masterRev int, keyset *Keyset, manualTitleKey *[16]byte, manualTitleKeyXts *[32]byte) DerivedBodyKeys {
	var out DerivedBodyKeys
	out.KeyArea = keyArea

	hasRightsID := !isZeroKey16(rightsID)

	switch {
	case keyset.ManualBodyKeyCtr != nil:
		out.HasBodyCtrKey = true
		out.BodyCtrKey = *keyset.ManualBodyKeyCtr
	case !hasRightsID && keyArea[bodyCtrKeyAreaSlot].Decrypted:
		out.HasBodyCtrKey = true
		out.BodyCtrKey = keyArea[bodyCtrKeyAreaSlot].PlainValue
	case hasRightsID && manualTitleKey != nil:
		if titleKey, err := DeriveTitleKey(*manualTitleKey, masterRev, keyset); err == nil {
			out.HasBodyCtrKey = true
			out.BodyCtrKey = titleKey
		}
	}

	switch {
	case keyset.ManualBodyKeyXts != nil:
		out.HasBodyXtsKey = true
		out.BodyXtsKey = *keyset.ManualBodyKeyXts
	case !hasRightsID && keyArea[bodyXtsLoKeyAreaSlot].Decrypted && keyArea[bodyXtsHiKeyAreaSlot].Decrypted:
		out.HasBodyXtsKey = true
		copy(out.BodyXtsKey[:16], keyArea[bodyXtsLoKeyAreaSlot].PlainValue[:])
		copy(out.BodyXtsKey[16:], keyArea[bodyXtsHiKeyAreaSlot].PlainValue[:])
	case hasRightsID && manualTitleKeyXts != nil:
		if titleKeyXts, err := DeriveTitleKeyXts(*manualTitleKeyXts, masterRev, keyset); err == nil {
			out.HasBodyXtsKey = true
			out.BodyXtsKey = titleKeyXts
		}
	}

	return out
}
