// Package sha256 derives content-addressed names for stored snapshots.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// Sum returns the hex SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectPath returns dir/<first two digest chars>/<digest><ext>. Identical content always maps
// to the same path, so repeated snapshots overwrite instead of piling up.
func ObjectPath(dir string, data []byte, ext string) string {
	digest := Sum(data)
	return path.Join(dir, digest[:2], digest+ext)
}
