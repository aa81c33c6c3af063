package nca

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can decide fatal-vs-warning handling
// without string matching.
type Kind int

const (
	KindIoError Kind = iota
	KindBadMagic
	KindUnsupportedVersion
	KindHashMismatch
	KindMissingKey
	KindUnsupportedEncryption
	KindUnsupportedHashType
	KindUnsupportedFormat
	KindSignatureInvalid
)

func (k Kind) String() string {
	switch k {
	case KindIoError:
		return "IoError"
	case KindBadMagic:
		return "BadMagic"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindHashMismatch:
		return "HashMismatch"
	case KindMissingKey:
		return "MissingKey"
	case KindUnsupportedEncryption:
		return "UnsupportedEncryption"
	case KindUnsupportedHashType:
		return "UnsupportedHashType"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	default:
		return "Unknown"
	}
}

// HashLayer names which tree layer a HashMismatch occurred in.
type HashLayer int

const (
	LayerFsHeader HashLayer = iota
	LayerMaster
	LayerIntermediate
	LayerData
)

func (l HashLayer) String() string {
	switch l {
	case LayerFsHeader:
		return "fs_header"
	case LayerMaster:
		return "master"
	case LayerIntermediate:
		return "hash_tree"
	case LayerData:
		return "data"
	default:
		return "unknown"
	}
}

// KeyUse names which key a MissingKey error refers to.
type KeyUse int

const (
	KeyUseBodyCtr KeyUse = iota
	KeyUseBodyXts
	KeyUseTitleKek
)

func (k KeyUse) String() string {
	switch k {
	case KeyUseBodyCtr:
		return "body_ctr"
	case KeyUseBodyXts:
		return "body_xts"
	case KeyUseTitleKek:
		return "title_kek"
	default:
		return "unknown"
	}
}

// Error is the wrapped error type produced throughout the nca package. It
// carries a Kind so callers can classify fatal vs recoverable failures per
// the archive-level/partition-level split without parsing messages.
type Error struct {
	Kind    Kind
	Layer   HashLayer // valid when Kind == KindHashMismatch
	Index   int       // block or partition index, where applicable
	Key     KeyUse    // valid when Kind == KindMissingKey
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nca: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("nca: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: X}) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, wrapped error) *Error {
	return &Error{Kind: kind, Message: msg, Err: wrapped}
}

func errIo(msg string, wrapped error) *Error {
	return newErr(KindIoError, msg, wrapped)
}

func errBadMagic(msg string) *Error {
	return newErr(KindBadMagic, msg, nil)
}

func errUnsupportedVersion(msg string) *Error {
	return newErr(KindUnsupportedVersion, msg, nil)
}

func errHashMismatch(layer HashLayer, index int, msg string) *Error {
	return &Error{Kind: KindHashMismatch, Layer: layer, Index: index, Message: msg}
}

func errMissingKey(key KeyUse, msg string) *Error {
	return &Error{Kind: KindMissingKey, Key: key, Message: msg}
}

func errUnsupportedEncryption(msg string) *Error {
	return newErr(KindUnsupportedEncryption, msg, nil)
}

func errUnsupportedHashType(msg string) *Error {
	return newErr(KindUnsupportedHashType, msg, nil)
}

func errUnsupportedFormat(msg string) *Error {
	return newErr(KindUnsupportedFormat, msg, nil)
}

func errSignatureInvalid(which, reason string) *Error {
	return newErr(KindSignatureInvalid, fmt.Sprintf("%s: %s", which, reason), nil)
}

// OutOfRange is returned by ByteSource implementations when a read exceeds
// the source's declared size.
var OutOfRange = errors.New("nca: read out of range")
