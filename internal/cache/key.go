package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ArtifactKey identifies one learning artifact.
type ArtifactKey struct {
	VideoID  string
	Language string
}

// String renders the key for logs and persistent storage.
func (k ArtifactKey) String() string {
	return k.VideoID + ":" + k.Language
}

// ContentKey identifies a content-derived result: the operation name plus a
// digest of its inputs.
type ContentKey struct {
	Operation string
	Digest    string
}

// NewContentKey hashes parts into a ContentKey for operation. Parts are
// separated by a NUL byte so ("ab","c") and ("a","bc") differ.
func NewContentKey(operation string, parts ...string) ContentKey {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return ContentKey{Operation: operation, Digest: hex.EncodeToString(h.Sum(nil))}
}
