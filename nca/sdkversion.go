package nca

import (
	"fmt"

	"github.com/mcuadros/go-version"
)

// SdkAddonVersion decodes the main header's byte-packed
// major.minor.micro SDK-addon version field.
type SdkAddonVersion struct {
	Major, Minor, Micro byte
}

func ParseSdkAddonVersion(packed uint32) SdkAddonVersion {
	return SdkAddonVersion{
		Major: byte(packed >> 24),
		Minor: byte(packed >> 16),
		Micro: byte(packed >> 8),
	}
}

func (v SdkAddonVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// AtLeast reports whether v is greater than or equal to other, which must be
// a "major.minor.micro"-style version string.
func (v SdkAddonVersion) AtLeast(other string) bool {
	return version.CompareSimple(v.String(), other) >= 0
}
