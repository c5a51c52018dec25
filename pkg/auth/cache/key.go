package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// entryKey builds the storage key for a (username, service) pair. The NUL
// separator cannot occur in either component.
func entryKey(username string, service auth.Service) string {
	return username + "\x00" + string(service)
}

// fileKey is a filesystem-safe digest of the entry key, used where the key
// becomes a file name and usernames could contain awkward characters.
func fileKey(username string, service auth.Service) string {
	sum := sha256.Sum256([]byte(entryKey(username, service)))
	return hex.EncodeToString(sum[:16])
}
