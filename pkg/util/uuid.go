package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ContentUUID derives a stable UUID from a byte payload. Identical
// entropy-coded streams produce identical IDs across files.
func ContentUUID(value []byte) string {
	hash := md5.Sum(value)
	id, err := uuid.FromBytes(hash[:])
	if err != nil {
		return ""
	}
	return id.String()
}
