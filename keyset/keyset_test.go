package keyset

import (
	"encoding/hex"
	"strings"
	"testing"
)

func hex16(b byte) string { return strings.Repeat(hex.EncodeToString([]byte{b}), 16) }
func hex32(b byte) string { return strings.Repeat(hex.EncodeToString([]byte{b}), 32) }

func TestBuildParsesHeaderKeyAndKeyAreaKeys(t *testing.T) {
	raw := map[string]string{
		"header_key":                 hex32(0xAA),
		"key_area_key_application_00": hex16(0x01),
		"key_area_key_ocean_05":       hex16(0x02),
		"titlekek_00":                 hex16(0x03),
	}

	ks, err := build(raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	wantHeaderKey := [32]byte{}
	copy(wantHeaderKey[:], mustHex(hex32(0xAA)))
	if ks.HeaderKey != wantHeaderKey {
		t.Fatalf("header key mismatch")
	}
	if !ks.HaveKeyAreaKey[0][0] {
		t.Fatalf("expected key_area_key_application_00 to be recorded")
	}
	if !ks.HaveKeyAreaKey[1][5] {
		t.Fatalf("expected key_area_key_ocean_05 to be recorded")
	}
	if !ks.HaveTitleKeyKek[0] {
		t.Fatalf("expected titlekek_00 to be recorded")
	}
}

func TestBuildParsesManualOverrides(t *testing.T) {
	raw := map[string]string{
		"manual_body_key_ctr": hex16(0x11),
		"manual_title_key_xts": hex32(0x22),
	}
	ks, err := build(raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ks.ManualBodyKeyCtr == nil {
		t.Fatalf("expected manual_body_key_ctr to be set")
	}
	if ks.ManualTitleKeyXts == nil {
		t.Fatalf("expected manual_title_key_xts to be set")
	}
	if ks.ManualBodyKeyXts != nil || ks.ManualTitleKeyCtr != nil {
		t.Fatalf("expected unset overrides to remain nil")
	}
}

func TestBuildIgnoresMalformedHexSilently(t *testing.T) {
	raw := map[string]string{
		"header_key": "not-hex",
	}
	ks, err := build(raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var zero [32]byte
	if ks.HeaderKey != zero {
		t.Fatalf("expected malformed header_key to be skipped, left as zero")
	}
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
