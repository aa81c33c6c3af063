// Package keyset loads an nca.Keyset from an external "prod.keys"-style
// properties file. Keyset-file parsing lives outside the nca package on
// purpose: this package exists only to give the rest of the repository
// (tests, the CLI) a concrete way to build a Keyset from disk.
package keyset

import (
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"

	"github.com/jakcron/NXTools/nca"
)

const rsaPublicExponent = 65537

// Load parses path (falling back to "${HOME}/.switch/prod.keys" if path is
// empty or unreadable) into an nca.Keyset.
func Load(path string) (*nca.Keyset, error) {
	candidates := []string{}
	if path != "" {
		candidates = append(candidates, path)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".switch", "prod.keys"))
	}

	var props *properties.Properties
	var lastErr error
	for _, candidate := range candidates {
		props, lastErr = properties.LoadFile(candidate, properties.UTF8)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("keyset: couldn't find a readable keys file: %w", lastErr)
	}

	raw := map[string]string{}
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		raw[key] = value
	}
	return build(raw)
}

func build(raw map[string]string) (*nca.Keyset, error) {
	ks := &nca.Keyset{}

	if hk, ok := decodeHex32(raw, "header_key"); ok {
		ks.HeaderKey = hk
	}

	if modulusHex, ok := raw["header_sign_key_modulus"]; ok {
		modulus, err := hex.DecodeString(modulusHex)
		if err != nil {
			return nil, fmt.Errorf("keyset: header_sign_key_modulus: %w", err)
		}
		ks.HeaderSignKey = &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: rsaPublicExponent}
	}

	for rev := 0; rev < 32; rev++ {
		for _, kaek := range []struct {
			index int
			name  string
		}{{0, "application"}, {1, "ocean"}, {2, "system"}} {
			key := fmt.Sprintf("key_area_key_%s_%02x", kaek.name, rev)
			if v, ok := decodeHex16(raw, key); ok {
				ks.KeyAreaKey[kaek.index][rev] = v
				ks.HaveKeyAreaKey[kaek.index][rev] = true
			}
		}
		if v, ok := decodeHex16(raw, fmt.Sprintf("titlekek_%02x", rev)); ok {
			ks.TitleKeyKek[rev] = v
			ks.HaveTitleKeyKek[rev] = true
		}
	}

	if v, ok := decodeHex16(raw, "manual_body_key_ctr"); ok {
		ks.ManualBodyKeyCtr = &v
	}
	if v, ok := decodeHex32(raw, "manual_body_key_xts"); ok {
		ks.ManualBodyKeyXts = &v
	}
	if v, ok := decodeHex16(raw, "manual_title_key_ctr"); ok {
		ks.ManualTitleKeyCtr = &v
	}
	if v, ok := decodeHex32(raw, "manual_title_key_xts"); ok {
		ks.ManualTitleKeyXts = &v
	}

	return ks, nil
}

func decodeHex16(raw map[string]string, key string) ([16]byte, bool) {
	var out [16]byte
	s, ok := raw[key]
	if !ok {
		return out, false
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

func decodeHex32(raw map[string]string, key string) ([32]byte, bool) {
	var out [32]byte
	s, ok := raw[key]
	if !ok {
		return out, false
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, false
	}
	copy(out[:], b)
	return out, true
}
