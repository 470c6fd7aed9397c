// Package hashutil computes and verifies the digests published alongside
// Minecraft server and extension artifacts.
package hashutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/prisma-mc/prisma/internal/model"
)

// MismatchError is returned by Compare when a computed digest does not
// match the hash an upstream published for it.
type MismatchError struct {
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Hash mismatch: expected %s but got %s", e.Expected, e.Got)
}

func ComputeMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func ComputeSHA1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func ComputeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func ComputeSHA512(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// Compute returns the hex digest of data under the given kind. Kind
// HashKindNone returns an empty string since no digest is meaningful.
func Compute(kind model.HashKind, data []byte) (string, error) {
	switch kind {
	case model.HashKindMD5:
		return ComputeMD5(data), nil
	case model.HashKindSHA1:
		return ComputeSHA1(data), nil
	case model.HashKindSHA256:
		return ComputeSHA256(data), nil
	case model.HashKindSHA512:
		return ComputeSHA512(data), nil
	case model.HashKindNone:
		return "", nil
	default:
		return "", fmt.Errorf("unknown hash kind %q", kind)
	}
}

// Compare recomputes the digest of data under h's algorithm and checks it
// against h.Hex. HashKindNone always succeeds.
func Compare(h model.HashType, data []byte) error {
	if h.Kind == model.HashKindNone {
		return nil
	}

	got, err := Compute(h.Kind, data)
	if err != nil {
		return err
	}

	if got != h.Hex {
		return &MismatchError{Expected: h.Hex, Got: got}
	}

	return nil
}
