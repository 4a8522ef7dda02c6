package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for digests. The version suffix allows algorithm migration.
const (
	DomainRecord   = "custody/record/v1"
	DomainWriteSet = "custody/writeset/v1"
	DomainState    = "custody/state/v1"
)

// Digest computes SHA256(domain || 0x00 || data), hex encoded.
// The null separator prevents domain/data boundary ambiguity.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
